package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/maravicoffee/project-alfred/internal/capability"
)

// CodeExecution returns the sandboxed script-execution capability. The
// interpreter is configurable; the per-run timeout defaults to
// defaultTimeout and can be overridden via the "timeout" argument.
func CodeExecution(interpreter string, defaultTimeout time.Duration) capability.Executor {
	if interpreter == "" {
		interpreter = "python3"
	}
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	return &codeExecExecutor{interpreter: interpreter, defaultTimeout: defaultTimeout}
}

type codeExecExecutor struct {
	interpreter    string
	defaultTimeout time.Duration
}

func (c *codeExecExecutor) Metadata() capability.Metadata {
	return capability.Metadata{
		Name:        "code_execution",
		Description: "Execute a script safely in a sandboxed subprocess",
		Category:    "computation",
		Parameters: []capability.Parameter{
			{Name: "code", Type: "string", Description: "Source code to execute", Required: true},
			{Name: "timeout", Type: "integer", Description: "Execution timeout in seconds (default: 5)", Required: false},
		},
	}
}

func (c *codeExecExecutor) Run(ctx context.Context, args map[string]any) capability.Result {
	code, ok := stringArg(args, "code")
	if !ok {
		return capability.Fail("code must be a string")
	}

	timeout := c.defaultTimeout
	if secs, ok := intArg(args, "timeout"); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	tmp, err := os.CreateTemp("", "alfred-exec-*.py")
	if err != nil {
		return capability.Fail("temp file: %v", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(code); err != nil {
		tmp.Close()
		return capability.Fail("write script: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return capability.Fail("close script: %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.interpreter, tmp.Name())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return capability.Fail("code execution timed out after %s", timeout)
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return capability.Fail("execution failed: %v", runErr)
		}
	}

	result := capability.Result{
		Success: exitCode == 0,
		Output: map[string]any{
			"stdout":    stdout.String(),
			"stderr":    stderr.String(),
			"exit_code": exitCode,
		},
	}
	if exitCode != 0 {
		result.Error = fmt.Sprintf("script exited with code %d", exitCode)
	}
	return result
}
