// Package generation defines the pluggable contract for the four
// black-box operations the agent consumes: intent analysis, plan
// synthesis, response generation, and parameter extraction.
//
// Any implementation satisfying Client can back the agent — an LLM
// provider, a remote service, or the deterministic RuleClient shipped
// here. The agent absorbs every failure behind documented fallbacks, so
// implementations are free to fail.
package generation

import (
	"context"

	"github.com/maravicoffee/project-alfred/internal/capability"
)

// Plan step actions the executor dispatches on.
const (
	ActionGenerateResponse = "generate_response"
	ActionUseTool          = "use_tool"
)

// Analysis is the intent-analysis record produced for a user request.
type Analysis struct {
	Intent        string   `json:"intent"`
	Entities      []string `json:"entities"`
	RequiresTools bool     `json:"requires_tools"`
	Complexity    string   `json:"complexity"` // simple, medium, complex
	Summary       string   `json:"summary"`
}

// PlanStep is one ordered step of an execution plan.
type PlanStep struct {
	Step        int            `json:"step"`
	Action      string         `json:"action"`
	Capability  string         `json:"capability,omitempty"` // empty when no capability is involved
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// StepResult records the outcome of executing one plan step.
type StepResult struct {
	Step       int    `json:"step"`
	Capability string `json:"capability,omitempty"`
	Success    bool   `json:"success"`
	Output     any    `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Client is the generation contract the agent drives its phases with.
type Client interface {
	// AnalyzeIntent produces an intent-analysis record for the request.
	AnalyzeIntent(ctx context.Context, text, contextSummary string) (Analysis, error)

	// CreatePlan produces an ordered step sequence for the analyzed
	// request, choosing from the available capability names.
	CreatePlan(ctx context.Context, text string, analysis Analysis, available []string) ([]PlanStep, error)

	// GenerateResponse turns prior step results into a natural-language
	// reply.
	GenerateResponse(ctx context.Context, text, contextSummary string, prior []StepResult) (string, error)

	// ExtractParameters pulls argument values for the named capability
	// out of the request text, guided by the declared parameter schema.
	ExtractParameters(ctx context.Context, text, capabilityName string, params []capability.Parameter) (map[string]any, error)
}
