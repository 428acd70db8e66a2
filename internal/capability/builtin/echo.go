package builtin

import (
	"context"
	"fmt"

	"github.com/maravicoffee/project-alfred/internal/capability"
)

// Echo returns the echo capability, mainly useful for wiring tests and
// smoke checks.
func Echo() capability.Executor {
	return &echoExecutor{}
}

type echoExecutor struct{}

func (e *echoExecutor) Metadata() capability.Metadata {
	return capability.Metadata{
		Name:        "echo",
		Description: "Echoes back the input message",
		Category:    "utility",
		Parameters: []capability.Parameter{
			{Name: "message", Type: "string", Description: "The message to echo back", Required: true},
		},
	}
}

func (e *echoExecutor) Run(ctx context.Context, args map[string]any) capability.Result {
	message, ok := stringArg(args, "message")
	if !ok {
		return capability.Fail("message must be a string")
	}
	return capability.Ok(fmt.Sprintf("Echo: %s", message))
}
