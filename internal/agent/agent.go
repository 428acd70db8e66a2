package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maravicoffee/project-alfred/internal/capability"
	"github.com/maravicoffee/project-alfred/internal/generation"
	"github.com/maravicoffee/project-alfred/internal/proactive"
	"github.com/maravicoffee/project-alfred/internal/recovery"
	"github.com/maravicoffee/project-alfred/internal/twin"
)

// Agent states, one per loop phase plus idle.
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StatePlanning  State = "planning"
	StateExecuting State = "executing"
	StateObserving State = "observing"
)

// observationSuggestions caps how many fresh suggestions ride along on
// a task observation.
const observationSuggestions = 3

// Agent runs the cognitive loop for a single user. It is not safe for
// concurrent use; Service serializes tasks per user.
type Agent struct {
	userID   string
	world    *WorldModel
	state    State
	registry *capability.Registry
	twins    *twin.Store
	engine   *proactive.Engine
	gen      generation.Client
	breakers *recovery.BreakerSet
	tasks    []*Task
	logger   *zap.Logger
	newID    func() string
	now      func() time.Time
}

// New returns an idle agent for the user wired to the shared stores.
func New(userID string, registry *capability.Registry, twins *twin.Store, engine *proactive.Engine, gen generation.Client, breakers *recovery.BreakerSet, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		userID:   userID,
		world:    NewWorldModel(userID),
		state:    StateIdle,
		registry: registry,
		twins:    twins,
		engine:   engine,
		gen:      gen,
		breakers: breakers,
		logger:   logger.With(zap.String("user_id", userID)),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	return a
}

// State reports the agent's current loop phase.
func (a *Agent) State() State { return a.state }

// World exposes the agent's world model.
func (a *Agent) World() *WorldModel { return a.world }

// Tasks returns every task this agent has processed, oldest first.
func (a *Agent) Tasks() []*Task {
	out := make([]*Task, len(a.tasks))
	copy(out, a.tasks)
	return out
}

// ProcessTask runs one request through the full loop and returns the
// result envelope. Phase failures degrade to documented defaults; only
// context cancellation and panics surface as an error envelope.
func (a *Agent) ProcessTask(ctx context.Context, text string) (result TaskResult) {
	task := newTask(a.newID(), text, a.now())
	a.tasks = append(a.tasks, task)
	a.world.AddMessage(RoleUser, text, a.now())
	a.world.Capabilities = a.registry.Names()

	defer func() {
		a.transition(StateIdle)
		if r := recover(); r != nil {
			a.logger.Error("task panicked", zap.String("task_id", task.ID), zap.Any("panic", r))
			result = a.failTask(task, fmt.Sprintf("internal error: %v", r))
		}
	}()

	analysis := a.analyze(ctx, text)
	if err := ctx.Err(); err != nil {
		return a.failTask(task, err.Error())
	}

	plan := a.plan(ctx, text, analysis)
	if err := ctx.Err(); err != nil {
		return a.failTask(task, err.Error())
	}

	execution := a.execute(ctx, text, plan)
	if err := ctx.Err(); err != nil {
		return a.failTask(task, err.Error())
	}

	observation := a.observe(analysis, execution)

	task.Status = TaskComplete
	task.CompletedAt = a.now()
	task.Result = &observation
	a.world.AddMessage(RoleAssistant, observation.Response, a.now())

	a.logger.Info("task complete",
		zap.String("task_id", task.ID),
		zap.String("intent", analysis.Intent),
		zap.Bool("overall_success", execution.OverallSuccess),
		zap.Int("steps", execution.StepsCompleted))

	return TaskResult{
		Status:   "success",
		TaskID:   task.ID,
		Response: observation.Response,
		Metadata: &TaskMetadata{
			Analysis:    analysis,
			Plan:        plan,
			Execution:   execution,
			Observation: observation,
		},
	}
}

func (a *Agent) failTask(task *Task, msg string) TaskResult {
	task.Status = TaskError
	task.CompletedAt = a.now()
	task.Error = msg
	return TaskResult{Status: "error", TaskID: task.ID, Error: msg}
}

func (a *Agent) transition(next State) {
	if a.state == next {
		return
	}
	a.logger.Debug("state transition", zap.String("from", string(a.state)), zap.String("to", string(next)))
	a.state = next
}

// analyze classifies the request. A generation failure degrades to a
// plain respond_to_query analysis so the loop always proceeds.
func (a *Agent) analyze(ctx context.Context, text string) generation.Analysis {
	a.transition(StateAnalyzing)

	promptContext := a.world.ContextSummary()
	if enhancement := a.engine.PromptEnhancement(a.userID, text); enhancement != "" {
		promptContext += "\n" + enhancement
	}

	analysis, err := a.gen.AnalyzeIntent(ctx, text, promptContext)
	if err != nil {
		a.logger.Warn("intent analysis failed, using default", zap.Error(err))
		return generation.Analysis{
			Intent:     generation.IntentRespond,
			Complexity: "simple",
			Summary:    text,
		}
	}
	return analysis
}

// plan turns the analysis into ordered steps. A generation failure or
// an empty plan degrades to a single response step.
func (a *Agent) plan(ctx context.Context, text string, analysis generation.Analysis) []generation.PlanStep {
	a.transition(StatePlanning)

	plan, err := a.gen.CreatePlan(ctx, text, analysis, a.registry.Names())
	if err != nil || len(plan) == 0 {
		if err != nil {
			a.logger.Warn("planning failed, using default plan", zap.Error(err))
		}
		return []generation.PlanStep{{
			Step:        1,
			Action:      generation.ActionGenerateResponse,
			Description: "Respond directly to the request",
		}}
	}
	return plan
}

// execute runs every plan step in order, continuing past failures and
// recording each outcome.
func (a *Agent) execute(ctx context.Context, text string, plan []generation.PlanStep) ExecutionResult {
	a.transition(StateExecuting)

	exec := ExecutionResult{OverallSuccess: true}
	for _, step := range plan {
		var r generation.StepResult
		switch step.Action {
		case generation.ActionGenerateResponse:
			r = a.runResponseStep(ctx, text, step, exec.Results)
		case generation.ActionUseTool:
			r = a.runCapabilityStep(ctx, text, step)
		default:
			r = generation.StepResult{
				Step:  step.Step,
				Error: fmt.Sprintf("unknown action: %s", step.Action),
			}
		}
		exec.Results = append(exec.Results, r)
		exec.StepsCompleted++
		if !r.Success {
			exec.OverallSuccess = false
			a.logger.Warn("plan step failed",
				zap.Int("step", step.Step),
				zap.String("action", step.Action),
				zap.String("error", r.Error))
		}
	}
	return exec
}

// runResponseStep never fails: a generation error substitutes a
// generic acknowledgment.
func (a *Agent) runResponseStep(ctx context.Context, text string, step generation.PlanStep, prior []generation.StepResult) generation.StepResult {
	out, err := a.gen.GenerateResponse(ctx, text, a.world.ContextSummary(), prior)
	if err != nil {
		a.logger.Warn("response generation failed, using acknowledgment", zap.Error(err))
		out = fmt.Sprintf("I processed your request: %s", text)
	}
	return generation.StepResult{Step: step.Step, Success: true, Output: out}
}

func (a *Agent) runCapabilityStep(ctx context.Context, text string, step generation.PlanStep) generation.StepResult {
	r := generation.StepResult{Step: step.Step, Capability: step.Capability}

	if step.Capability == "" {
		r.Error = "no capability named for use_tool step"
		return r
	}
	if !a.registry.Has(step.Capability) {
		r.Error = fmt.Sprintf("capability not found: %s", step.Capability)
		return r
	}

	args := step.Parameters
	if len(args) == 0 {
		var schema []capability.Parameter
		if exec, ok := a.registry.Get(step.Capability); ok {
			schema = exec.Metadata().Parameters
		}
		extracted, err := a.gen.ExtractParameters(ctx, text, step.Capability, schema)
		if err != nil {
			a.logger.Warn("parameter extraction failed, invoking with no arguments",
				zap.String("capability", step.Capability), zap.Error(err))
			extracted = map[string]any{}
		}
		args = extracted
	}

	op := func(ctx context.Context) (any, error) {
		res := a.registry.Execute(ctx, step.Capability, args)
		if !res.Success {
			return nil, errors.New(res.Error)
		}
		return res.Output, nil
	}
	out, err := a.breakers.Wrap(step.Capability)(op)(ctx)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Success = true
	r.Output = out
	return r
}

// observe reflects on the finished execution: the user model learns
// from the interaction and fresh suggestions are generated. A fully
// successful execution answers with the first step output and attaches
// pending suggestions; any step failure yields the generic failure
// record with zero confidence and none attached.
func (a *Agent) observe(analysis generation.Analysis, execution ExecutionResult) Observation {
	a.transition(StateObserving)

	a.twins.Learn(a.userID, twin.Interaction{
		TaskType:         taskTypeForIntent(analysis.Intent),
		CapabilitiesUsed: usedCapabilities(execution.Results),
		Topics:           topicEntities(analysis.Entities),
		Intent:           analysis.Intent,
	})

	a.engine.Generate(a.userID, map[string]any{"intent": analysis.Intent})

	if !execution.OverallSuccess {
		return Observation{
			Response:       "I encountered an issue while processing your request.",
			Confidence:     0.0,
			FollowUpNeeded: true,
			Error:          "execution failed",
			Suggestions:    []proactive.Suggestion{},
		}
	}

	suggestions := a.engine.Pending(a.userID, observationSuggestions)
	if suggestions == nil {
		suggestions = []proactive.Suggestion{}
	}

	response := firstOutput(execution.Results)
	if response == "" {
		response = "Task completed successfully."
	}
	return Observation{
		TaskComplete: true,
		Response:     response,
		Confidence:   1.0,
		Suggestions:  suggestions,
	}
}

func taskTypeForIntent(intent string) string {
	switch intent {
	case generation.IntentCalculation:
		return "calculation"
	case generation.IntentDataAnalyze:
		return "data_analysis"
	case generation.IntentSearch:
		return "research"
	case generation.IntentFiles:
		return "file_management"
	case generation.IntentCode:
		return "code_execution"
	}
	return "general_query"
}

func usedCapabilities(results []generation.StepResult) []string {
	var names []string
	for _, r := range results {
		if r.Success && r.Capability != "" {
			names = append(names, r.Capability)
		}
	}
	return names
}

// topicEntities keeps only non-numeric entities; bare numbers make
// meaningless interest topics.
func topicEntities(entities []string) []string {
	var topics []string
	for _, e := range entities {
		if e == "" || numericEntity(e) {
			continue
		}
		topics = append(topics, e)
	}
	return topics
}

func numericEntity(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' {
			return false
		}
	}
	return true
}

// firstOutput returns the first successful step's output rendered as a
// string.
func firstOutput(results []generation.StepResult) string {
	for _, r := range results {
		if !r.Success || r.Output == nil {
			continue
		}
		if s, ok := r.Output.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", r.Output)
	}
	return ""
}
