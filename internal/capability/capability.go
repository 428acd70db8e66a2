// Package capability defines the executor contract and the name-keyed
// registry the planner executes against.
//
// A capability is a schema-described unit of external functionality (web
// search, file operations, code execution, arithmetic). The agent never
// depends on what an executor does internally, only on its declared
// metadata and its Run result.
package capability

import (
	"context"
	"fmt"
)

// Parameter describes one named argument a capability accepts.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, integer, boolean, array
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Metadata is the declared contract of a capability.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Parameters  []Parameter `json:"parameters"`
}

// Result is the uniform outcome of a capability invocation. Executors
// report internal failures inline via Success=false and Error; Run never
// propagates a panic or a Go error past the registry boundary.
type Result struct {
	Success bool   `json:"success"`
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok builds a successful result carrying the given output.
func Ok(output any) Result {
	return Result{Success: true, Output: output}
}

// Fail builds a failed result with a formatted error message.
func Fail(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Executor is the closed polymorphic interface every capability satisfies.
// Run may suspend for arbitrary wall-clock time (network I/O, subprocesses);
// implementations must honor ctx cancellation at their blocking points.
type Executor interface {
	Metadata() Metadata
	Run(ctx context.Context, args map[string]any) Result
}
