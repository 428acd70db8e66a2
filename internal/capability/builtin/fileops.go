package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maravicoffee/project-alfred/internal/capability"
)

// FileOperations returns a file capability confined to workDir. Paths are
// reduced to their base name before resolution, so an executor can never
// be steered outside its sandbox directory.
func FileOperations(workDir string) capability.Executor {
	return &fileOpsExecutor{workDir: workDir}
}

type fileOpsExecutor struct {
	workDir string
}

func (f *fileOpsExecutor) Metadata() capability.Metadata {
	return capability.Metadata{
		Name:        "file_operations",
		Description: "Perform file operations: read, write, list files",
		Category:    "file_system",
		Parameters: []capability.Parameter{
			{Name: "operation", Type: "string", Description: "Operation to perform: 'read', 'write', 'list'", Required: true},
			{Name: "path", Type: "string", Description: "File or directory path", Required: false},
			{Name: "content", Type: "string", Description: "Content to write (for write operation)", Required: false},
		},
	}
}

func (f *fileOpsExecutor) Run(ctx context.Context, args map[string]any) capability.Result {
	if err := os.MkdirAll(f.workDir, 0o755); err != nil {
		return capability.Fail("workspace unavailable: %v", err)
	}

	operation, _ := stringArg(args, "operation")
	path, _ := stringArg(args, "path")

	switch operation {
	case "read":
		return f.read(path)
	case "write":
		content, ok := stringArg(args, "content")
		if !ok {
			return capability.Fail("content is required for write operation")
		}
		return f.write(path, content)
	case "list":
		return f.list()
	default:
		return capability.Fail("unknown operation: %s", operation)
	}
}

func (f *fileOpsExecutor) resolve(path string) (string, error) {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("invalid path: %q", path)
	}
	return filepath.Join(f.workDir, name), nil
}

func (f *fileOpsExecutor) read(path string) capability.Result {
	target, err := f.resolve(path)
	if err != nil {
		return capability.Fail("%v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return capability.Fail("file not found: %s", target)
		}
		return capability.Fail("read failed: %v", err)
	}
	return capability.Ok(map[string]any{
		"operation": "read",
		"path":      target,
		"content":   string(data),
		"size":      len(data),
	})
}

func (f *fileOpsExecutor) write(path, content string) capability.Result {
	target, err := f.resolve(path)
	if err != nil {
		return capability.Fail("%v", err)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return capability.Fail("write failed: %v", err)
	}
	return capability.Ok(map[string]any{
		"operation":     "write",
		"path":          target,
		"bytes_written": len(content),
	})
}

func (f *fileOpsExecutor) list() capability.Result {
	entries, err := os.ReadDir(f.workDir)
	if err != nil {
		return capability.Fail("list failed: %v", err)
	}

	files := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		var size int64
		kind := "directory"
		if !e.IsDir() {
			kind = "file"
			if info, err := e.Info(); err == nil {
				size = info.Size()
			}
		}
		files = append(files, map[string]any{
			"name": e.Name(),
			"size": size,
			"type": kind,
		})
	}

	return capability.Ok(map[string]any{
		"operation": "list",
		"path":      f.workDir,
		"files":     files,
		"total":     len(files),
	})
}
