// Package proactive turns a user's digital twin into ranked, deduplicated
// suggestions with an accept/dismiss lifecycle.
package proactive

import (
	"time"
)

// Type classifies a suggestion.
type Type string

// Suggestion types.
const (
	TypeTask     Type = "task"
	TypeTool     Type = "tool"
	TypeReminder Type = "reminder"
	TypeInsight  Type = "insight"
	TypeTip      Type = "tip"
)

// Priority orders suggestions for display.
type Priority string

// Priorities, highest first.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// rank returns the sort rank for a priority; lower sorts first.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Suggestion is an immutable-after-creation recommendation. Only the two
// lifecycle flags change after creation, and only under the engine's
// per-user lock. Once accepted or dismissed a suggestion is never
// re-offered.
type Suggestion struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Action      string         `json:"action,omitempty"`
	Priority    Priority       `json:"priority"`
	Context     map[string]any `json:"context,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`

	Shown    bool `json:"shown"`
	Accepted bool `json:"accepted"`
}
