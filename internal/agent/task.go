// Package agent implements the assistant's cognitive loop: each user
// request runs through analyze, plan, execute, and observe phases
// against a per-user world model. A Service multiplexes one Agent per
// user and exposes the operations callers drive the loop with.
package agent

import (
	"time"

	"github.com/maravicoffee/project-alfred/internal/generation"
	"github.com/maravicoffee/project-alfred/internal/proactive"
)

// Task lifecycle statuses.
const (
	TaskPending  = "pending"
	TaskComplete = "complete"
	TaskError    = "error"
)

// Task is one tracked unit of user work moving through the loop.
type Task struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt time.Time    `json:"completed_at,omitzero"`
	Result      *Observation `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// ExecutionResult aggregates the per-step outcomes of the execute
// phase. OverallSuccess is true only when every step succeeded.
type ExecutionResult struct {
	StepsCompleted int                     `json:"steps_completed"`
	Results        []generation.StepResult `json:"results"`
	OverallSuccess bool                    `json:"overall_success"`
}

// Observation is the observe phase's reflection on a finished task.
// Error is set only when the execution did not fully succeed.
type Observation struct {
	TaskComplete   bool                   `json:"task_complete"`
	Response       string                 `json:"response"`
	Confidence     float64                `json:"confidence"`
	FollowUpNeeded bool                   `json:"follow_up_needed"`
	Error          string                 `json:"error,omitempty"`
	Suggestions    []proactive.Suggestion `json:"suggestions"`
}

// TaskMetadata carries the intermediate phase products alongside a
// task's final response.
type TaskMetadata struct {
	Analysis    generation.Analysis   `json:"analysis"`
	Plan        []generation.PlanStep `json:"plan"`
	Execution   ExecutionResult       `json:"execution"`
	Observation Observation           `json:"observation"`
}

// TaskResult is the envelope ProcessTask returns to callers.
type TaskResult struct {
	Status   string        `json:"status"` // success or error
	TaskID   string        `json:"task_id"`
	Response string        `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
	Metadata *TaskMetadata `json:"metadata,omitempty"`
}

func newTask(id, description string, now time.Time) *Task {
	return &Task{
		ID:          id,
		Description: description,
		Status:      TaskPending,
		CreatedAt:   now,
	}
}
