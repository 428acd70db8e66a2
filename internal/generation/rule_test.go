package generation

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeIntentCalculation(t *testing.T) {
	c := NewRuleClient()

	a, err := c.AnalyzeIntent(context.Background(), "What's 42 + 58?", "")
	require.NoError(t, err)

	assert.Equal(t, IntentCalculation, a.Intent)
	assert.True(t, a.RequiresTools)
	assert.Equal(t, []string{"42", "58"}, a.Entities)
}

func TestAnalyzeIntentSearch(t *testing.T) {
	c := NewRuleClient()

	a, err := c.AnalyzeIntent(context.Background(), "Search for weather in Lisbon", "")
	require.NoError(t, err)

	assert.Equal(t, IntentSearch, a.Intent)
	assert.True(t, a.RequiresTools)
	assert.Equal(t, []string{"weather in lisbon"}, a.Entities)
}

func TestAnalyzeIntentDataAnalysis(t *testing.T) {
	c := NewRuleClient()

	a, err := c.AnalyzeIntent(context.Background(), "What is the average of 10, 20 and 30?", "")
	require.NoError(t, err)

	assert.Equal(t, IntentDataAnalyze, a.Intent)
	assert.True(t, a.RequiresTools)
}

func TestAnalyzeIntentFiles(t *testing.T) {
	c := NewRuleClient()

	a, err := c.AnalyzeIntent(context.Background(), "Please read the file notes.txt", "")
	require.NoError(t, err)

	assert.Equal(t, IntentFiles, a.Intent)
	assert.Contains(t, a.Entities, "notes.txt")
}

func TestAnalyzeIntentDefault(t *testing.T) {
	c := NewRuleClient()

	a, err := c.AnalyzeIntent(context.Background(), "Tell me a story about dragons", "")
	require.NoError(t, err)

	assert.Equal(t, IntentRespond, a.Intent)
	assert.False(t, a.RequiresTools)
	assert.Equal(t, "simple", a.Complexity)
}

func TestCreatePlanCalculator(t *testing.T) {
	c := NewRuleClient()
	ctx := context.Background()

	a, err := c.AnalyzeIntent(ctx, "What's 42 + 58?", "")
	require.NoError(t, err)

	plan, err := c.CreatePlan(ctx, "What's 42 + 58?", a, []string{"echo", "calculator"})
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, ActionUseTool, plan[0].Action)
	assert.Equal(t, "calculator", plan[0].Capability)
	assert.Equal(t, "add", plan[0].Parameters["operation"])
	assert.Equal(t, 42.0, plan[0].Parameters["a"])
	assert.Equal(t, 58.0, plan[0].Parameters["b"])

	assert.Equal(t, ActionGenerateResponse, plan[1].Action)
}

func TestCreatePlanCapabilityUnavailable(t *testing.T) {
	c := NewRuleClient()
	ctx := context.Background()

	a, err := c.AnalyzeIntent(ctx, "What's 2 * 3?", "")
	require.NoError(t, err)

	plan, err := c.CreatePlan(ctx, "What's 2 * 3?", a, []string{"echo"})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, ActionGenerateResponse, plan[0].Action)
}

func TestCreatePlanPlainQuery(t *testing.T) {
	c := NewRuleClient()
	ctx := context.Background()

	a, err := c.AnalyzeIntent(ctx, "How are you today?", "")
	require.NoError(t, err)

	plan, err := c.CreatePlan(ctx, "How are you today?", a, []string{"calculator"})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, ActionGenerateResponse, plan[0].Action)
	assert.Empty(t, plan[0].Capability)
}

func TestGenerateResponseUsesPriorOutput(t *testing.T) {
	c := NewRuleClient()

	out, err := c.GenerateResponse(context.Background(), "What's 42 + 58?", "", []StepResult{
		{Step: 1, Capability: "calculator", Success: true, Output: 100.0},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "100")
}

func TestGenerateResponseSkipsFailedSteps(t *testing.T) {
	c := NewRuleClient()

	out, err := c.GenerateResponse(context.Background(), "read nothing.txt and report", "", []StepResult{
		{Step: 1, Capability: "file_operations", Success: false, Error: "file not found"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "I looked into your request")
}

func TestExtractParametersDataAnalysis(t *testing.T) {
	c := NewRuleClient()

	params, err := c.ExtractParameters(context.Background(), "Sum 1, 2 and 3 for me", "data_analysis", nil)
	require.NoError(t, err)

	assert.Equal(t, "sum", params["operation"])
	assert.Equal(t, []any{1.0, 2.0, 3.0}, params["data"])
}

func TestExtractParametersFileWrite(t *testing.T) {
	c := NewRuleClient()

	params, err := c.ExtractParameters(context.Background(), `Write "hello" to greeting.txt`, "file_operations", nil)
	require.NoError(t, err)

	assert.Equal(t, "write", params["operation"])
	assert.Equal(t, "greeting.txt", params["path"])
	assert.Equal(t, "hello", params["content"])
}

func TestSummaryTruncatesOnRuneBoundary(t *testing.T) {
	c := NewRuleClient()

	// One ASCII byte then two-byte runes puts byte 100 inside a rune.
	text := "a" + strings.Repeat("é", 60)
	a, err := c.AnalyzeIntent(context.Background(), text, "")
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(a.Summary))
	assert.LessOrEqual(t, len(a.Summary), 100)
	assert.NotEmpty(t, a.Summary)
}

func TestExtractParametersUnknownCapability(t *testing.T) {
	c := NewRuleClient()

	params, err := c.ExtractParameters(context.Background(), "anything", "teleporter", nil)
	require.NoError(t, err)
	assert.Empty(t, params)
}
