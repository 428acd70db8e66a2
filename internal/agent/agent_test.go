package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/maravicoffee/project-alfred/internal/capability"
	"github.com/maravicoffee/project-alfred/internal/capability/builtin"
	"github.com/maravicoffee/project-alfred/internal/generation"
	"github.com/maravicoffee/project-alfred/internal/proactive"
	"github.com/maravicoffee/project-alfred/internal/recovery"
	"github.com/maravicoffee/project-alfred/internal/twin"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T, gen generation.Client, breakerOpts ...recovery.BreakerOption) *Service {
	t.Helper()
	registry := capability.NewRegistry(nil)
	registry.MustRegister(builtin.Echo())
	registry.MustRegister(builtin.Calculator())
	registry.MustRegister(builtin.DataAnalysis())

	twins := twin.NewStore(nil)
	engine := proactive.NewEngine(twins, nil)
	breakers := recovery.NewBreakerSet(nil, breakerOpts...)
	return NewService(registry, twins, engine, gen, breakers, nil)
}

// scriptedClient returns canned phase outputs and lets tests inject
// failures per operation.
type scriptedClient struct {
	analysis    generation.Analysis
	analysisErr error
	plan        []generation.PlanStep
	planErr     error
	response    string
	responseErr error
	paramsErr   error
}

func (c *scriptedClient) AnalyzeIntent(context.Context, string, string) (generation.Analysis, error) {
	return c.analysis, c.analysisErr
}

func (c *scriptedClient) CreatePlan(context.Context, string, generation.Analysis, []string) ([]generation.PlanStep, error) {
	return c.plan, c.planErr
}

func (c *scriptedClient) GenerateResponse(context.Context, string, string, []generation.StepResult) (string, error) {
	return c.response, c.responseErr
}

func (c *scriptedClient) ExtractParameters(context.Context, string, string, []capability.Parameter) (map[string]any, error) {
	if c.paramsErr != nil {
		return nil, c.paramsErr
	}
	return map[string]any{}, nil
}

func TestProcessTaskCalculation(t *testing.T) {
	svc := newTestService(t, generation.NewRuleClient())

	result := svc.ProcessTask(context.Background(), "alice", "What's 42 + 58?")

	assert.Equal(t, "success", result.Status)
	assert.NotEmpty(t, result.TaskID)
	assert.Contains(t, result.Response, "100")

	require.NotNil(t, result.Metadata)
	assert.Equal(t, generation.IntentCalculation, result.Metadata.Analysis.Intent)

	require.Len(t, result.Metadata.Plan, 2)
	step := result.Metadata.Plan[0]
	assert.Equal(t, "calculator", step.Capability)
	assert.Equal(t, "add", step.Parameters["operation"])
	assert.Equal(t, 42.0, step.Parameters["a"])
	assert.Equal(t, 58.0, step.Parameters["b"])

	assert.True(t, result.Metadata.Execution.OverallSuccess)
	assert.True(t, result.Metadata.Observation.TaskComplete)
	assert.Equal(t, 1.0, result.Metadata.Observation.Confidence)
	assert.Empty(t, result.Metadata.Observation.Error)
}

func TestProcessTaskUnregisteredCapability(t *testing.T) {
	svc := newTestService(t, &scriptedClient{
		analysis: generation.Analysis{Intent: "book_flight", RequiresTools: true},
		plan: []generation.PlanStep{
			{Step: 1, Action: generation.ActionUseTool, Capability: "flight_booking"},
		},
		response: "done",
	})

	result := svc.ProcessTask(context.Background(), "bob", "Book me a flight")

	// The task still completes; the failure is recorded per step.
	assert.Equal(t, "success", result.Status)
	require.NotNil(t, result.Metadata)
	assert.False(t, result.Metadata.Execution.OverallSuccess)
	assert.False(t, result.Metadata.Observation.TaskComplete)
	assert.True(t, result.Metadata.Observation.FollowUpNeeded)
	assert.Equal(t, "execution failed", result.Metadata.Observation.Error)

	require.Len(t, result.Metadata.Execution.Results, 1)
	assert.Equal(t, "capability not found: flight_booking", result.Metadata.Execution.Results[0].Error)
}

func TestProcessTaskUnknownAction(t *testing.T) {
	svc := newTestService(t, &scriptedClient{
		analysis: generation.Analysis{Intent: "respond_to_query"},
		plan: []generation.PlanStep{
			{Step: 1, Action: "teleport"},
			{Step: 2, Action: generation.ActionGenerateResponse},
		},
		response: "all done",
	})

	result := svc.ProcessTask(context.Background(), "carol", "do something odd")

	assert.Equal(t, "success", result.Status)
	require.Len(t, result.Metadata.Execution.Results, 2)
	assert.Equal(t, "unknown action: teleport", result.Metadata.Execution.Results[0].Error)
	// Later steps still run after a failure, but the failed step makes
	// the whole execution report as failed.
	assert.True(t, result.Metadata.Execution.Results[1].Success)
	assert.Contains(t, result.Response, "encountered an issue")
}

func TestProcessTaskGenerationFailuresDegrade(t *testing.T) {
	boom := errors.New("backend unavailable")
	svc := newTestService(t, &scriptedClient{
		analysisErr: boom,
		planErr:     boom,
		responseErr: boom,
	})

	result := svc.ProcessTask(context.Background(), "dave", "hello there")

	assert.Equal(t, "success", result.Status)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, generation.IntentRespond, result.Metadata.Analysis.Intent)
	require.Len(t, result.Metadata.Plan, 1)
	assert.Equal(t, generation.ActionGenerateResponse, result.Metadata.Plan[0].Action)
	assert.Contains(t, result.Response, "hello there")
	assert.True(t, result.Metadata.Execution.OverallSuccess)
}

func TestProcessTaskCancelledContext(t *testing.T) {
	svc := newTestService(t, generation.NewRuleClient())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.ProcessTask(ctx, "erin", "What's 1 + 1?")

	assert.Equal(t, "error", result.Status)
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, result.Metadata)
}

func TestProcessTaskCapabilityFailureRecorded(t *testing.T) {
	svc := newTestService(t, &scriptedClient{
		analysis: generation.Analysis{Intent: "perform_calculation", RequiresTools: true},
		plan: []generation.PlanStep{
			{Step: 1, Action: generation.ActionUseTool, Capability: "calculator",
				Parameters: map[string]any{"operation": "divide", "a": 1.0, "b": 0.0}},
		},
		response: "ignored",
	})

	result := svc.ProcessTask(context.Background(), "frank", "divide one by zero")

	assert.Equal(t, "success", result.Status)
	require.Len(t, result.Metadata.Execution.Results, 1)
	assert.False(t, result.Metadata.Execution.Results[0].Success)
	assert.Contains(t, result.Metadata.Execution.Results[0].Error, "division by zero")
}

func TestObservationAfterFailedStep(t *testing.T) {
	// A later successful step must not soften the failure record: the
	// observation reports the generic failure, zero confidence, and no
	// suggestions, even though step 2 produced output.
	svc := newTestService(t, &scriptedClient{
		analysis: generation.Analysis{Intent: "perform_calculation", RequiresTools: true},
		plan: []generation.PlanStep{
			{Step: 1, Action: generation.ActionUseTool, Capability: "calculator",
				Parameters: map[string]any{"operation": "divide", "a": 1.0, "b": 0.0}},
			{Step: 2, Action: generation.ActionGenerateResponse},
		},
		response: "here is a partial answer anyway",
	})

	result := svc.ProcessTask(context.Background(), "leo", "divide one by zero, then summarize")

	require.NotNil(t, result.Metadata)
	require.Len(t, result.Metadata.Execution.Results, 2)
	assert.False(t, result.Metadata.Execution.Results[0].Success)
	assert.True(t, result.Metadata.Execution.Results[1].Success)

	obs := result.Metadata.Observation
	assert.False(t, obs.TaskComplete)
	assert.Equal(t, 0.0, obs.Confidence)
	assert.Equal(t, "execution failed", obs.Error)
	assert.Equal(t, "I encountered an issue while processing your request.", obs.Response)
	assert.True(t, obs.FollowUpNeeded)
	assert.Empty(t, obs.Suggestions)
	assert.Equal(t, obs.Response, result.Response)
}

func TestObservationEmptyOutputCompletionMessage(t *testing.T) {
	svc := newTestService(t, &scriptedClient{
		analysis: generation.Analysis{Intent: "respond_to_query"},
		plan: []generation.PlanStep{
			{Step: 1, Action: generation.ActionGenerateResponse},
		},
		response: "",
	})

	result := svc.ProcessTask(context.Background(), "mia", "say nothing")

	assert.True(t, result.Metadata.Observation.TaskComplete)
	assert.Equal(t, "Task completed successfully.", result.Response)
}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	client := &scriptedClient{
		analysis: generation.Analysis{Intent: "perform_calculation", RequiresTools: true},
		plan: []generation.PlanStep{
			{Step: 1, Action: generation.ActionUseTool, Capability: "calculator",
				Parameters: map[string]any{"operation": "divide", "a": 1.0, "b": 0.0}},
		},
		response: "ignored",
	}
	svc := newTestService(t, client, recovery.WithThreshold(2))

	ctx := context.Background()
	svc.ProcessTask(ctx, "grace", "divide by zero")
	svc.ProcessTask(ctx, "grace", "divide by zero")

	// Third attempt is rejected without reaching the capability.
	result := svc.ProcessTask(ctx, "grace", "divide by zero")
	require.Len(t, result.Metadata.Execution.Results, 1)
	assert.Contains(t, result.Metadata.Execution.Results[0].Error, recovery.ErrCircuitOpen.Error())

	status := svc.BreakerStatus()
	assert.Equal(t, "open", status["calculator"])
}

func TestObserveUpdatesProfile(t *testing.T) {
	svc := newTestService(t, generation.NewRuleClient())

	svc.ProcessTask(context.Background(), "heidi", "What's 2 + 3?")

	profile := svc.Profile("heidi")
	assert.Equal(t, 1, profile.TotalMessages)
	assert.Equal(t, 1, profile.TaskTypes.Count("calculation"))
	assert.Equal(t, 1, profile.CapabilityUsage.Count("calculator"))
	assert.Equal(t, generation.IntentCalculation, profile.LastIntent)
}

func TestWorldModelAccumulates(t *testing.T) {
	svc := newTestService(t, generation.NewRuleClient())

	ctx := context.Background()
	svc.ProcessTask(ctx, "ivan", "What's 1 + 2?")
	svc.ProcessTask(ctx, "ivan", "What's 3 + 4?")

	sess := svc.session("ivan")
	world := sess.agent.World()
	// Two user turns and two assistant replies.
	require.Len(t, world.Messages, 4)
	assert.Equal(t, RoleUser, world.Messages[0].Role)
	assert.Equal(t, RoleAssistant, world.Messages[1].Role)

	summary := world.ContextSummary()
	assert.Contains(t, summary, "Recent conversation:")
	assert.Contains(t, summary, "calculator")
}

func TestAgentStateReturnsToIdle(t *testing.T) {
	svc := newTestService(t, generation.NewRuleClient())

	assert.Equal(t, StateIdle, svc.AgentState("judy"))
	svc.ProcessTask(context.Background(), "judy", "What's 5 + 5?")
	assert.Equal(t, StateIdle, svc.AgentState("judy"))
}

func TestConcurrentUsersIsolated(t *testing.T) {
	svc := newTestService(t, generation.NewRuleClient())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", n)
			for j := 0; j < 5; j++ {
				result := svc.ProcessTask(context.Background(), user, fmt.Sprintf("What's %d + %d?", n, j))
				assert.Equal(t, "success", result.Status)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, svc.Users(), 8)
	for _, user := range svc.Users() {
		assert.Equal(t, 5, svc.Profile(user).TotalMessages)
	}
}

func TestTasksRecorded(t *testing.T) {
	svc := newTestService(t, generation.NewRuleClient())

	svc.ProcessTask(context.Background(), "kim", "What's 6 + 7?")

	sess := svc.session("kim")
	tasks := sess.agent.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskComplete, tasks[0].Status)
	assert.Equal(t, "What's 6 + 7?", tasks[0].Description)
	assert.False(t, tasks[0].CompletedAt.IsZero())
	require.NotNil(t, tasks[0].Result)
}
