package generation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/maravicoffee/project-alfred/internal/capability"
)

// Intents the rule client recognizes.
const (
	IntentCalculation = "perform_calculation"
	IntentDataAnalyze = "analyze_data"
	IntentSearch      = "search_web"
	IntentFiles       = "manage_files"
	IntentCode        = "execute_code"
	IntentRespond     = "respond_to_query"
)

var (
	arithmeticRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(\+|-|\*|x|/|plus|minus|times|divided by|over)\s*(-?\d+(?:\.\d+)?)`)
	numberRe     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	fileNameRe   = regexp.MustCompile(`[\w][\w.-]*\.[A-Za-z0-9]+`)
	quotedRe     = regexp.MustCompile(`["']([^"']+)["']`)
)

var operatorWords = map[string]string{
	"+": "add", "plus": "add",
	"-": "subtract", "minus": "subtract",
	"*": "multiply", "x": "multiply", "times": "multiply",
	"/": "divide", "divided by": "divide", "over": "divide",
}

var searchLeads = []string{
	"search for", "search", "look up", "find out about", "find",
	"what is the latest on", "google",
}

var statWords = []string{"average", "mean", "sum", "total", "maximum", "max", "minimum", "min", "count"}

// RuleClient is a deterministic keyword and regex transducer satisfying
// Client. It never returns an error, which makes it suitable both as a
// standalone offline backend and as a fallback behind a remote one.
type RuleClient struct{}

// NewRuleClient returns a ready RuleClient.
func NewRuleClient() *RuleClient { return &RuleClient{} }

var _ Client = (*RuleClient)(nil)

// AnalyzeIntent classifies the request by surface keywords and shape.
func (c *RuleClient) AnalyzeIntent(_ context.Context, text, _ string) (Analysis, error) {
	lower := strings.ToLower(text)

	a := Analysis{
		Intent:     IntentRespond,
		Complexity: "simple",
		Summary:    summarize(text),
	}

	switch {
	case hasStatRequest(lower):
		a.Intent = IntentDataAnalyze
		a.RequiresTools = true
		a.Entities = numberRe.FindAllString(lower, -1)
		a.Complexity = "medium"
	case arithmeticRe.MatchString(lower):
		a.Intent = IntentCalculation
		a.RequiresTools = true
		m := arithmeticRe.FindStringSubmatch(lower)
		a.Entities = []string{m[1], m[3]}
	case hasSearchLead(lower):
		a.Intent = IntentSearch
		a.RequiresTools = true
		if q := searchQuery(lower); q != "" {
			a.Entities = []string{q}
		}
	case hasFileRequest(lower):
		a.Intent = IntentFiles
		a.RequiresTools = true
		a.Entities = fileNameRe.FindAllString(text, -1)
		a.Complexity = "medium"
	case hasCodeRequest(lower):
		a.Intent = IntentCode
		a.RequiresTools = true
		a.Complexity = "complex"
	}

	return a, nil
}

// CreatePlan maps each recognized intent to a capability step followed
// by a response step. Unrecognized intents, or intents whose capability
// is not registered, get a single response step.
func (c *RuleClient) CreatePlan(ctx context.Context, text string, analysis Analysis, available []string) ([]PlanStep, error) {
	capName := capabilityForIntent(analysis.Intent)
	if capName == "" || !containsName(available, capName) {
		return []PlanStep{responseStep(1)}, nil
	}

	params, _ := c.ExtractParameters(ctx, text, capName, nil)
	return []PlanStep{
		{
			Step:        1,
			Action:      ActionUseTool,
			Capability:  capName,
			Description: fmt.Sprintf("Run %s for the request", capName),
			Parameters:  params,
		},
		responseStep(2),
	}, nil
}

// GenerateResponse composes a reply from the successful prior step
// outputs, or acknowledges the request when there are none.
func (c *RuleClient) GenerateResponse(_ context.Context, text, _ string, prior []StepResult) (string, error) {
	var parts []string
	for _, r := range prior {
		if !r.Success || r.Output == nil {
			continue
		}
		parts = append(parts, formatOutput(r.Output))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("I looked into your request: %s", summarize(text)), nil
	}
	if len(parts) == 1 {
		return fmt.Sprintf("Here is the result: %s", parts[0]), nil
	}
	return "Here is what I found: " + strings.Join(parts, "; "), nil
}

// ExtractParameters parses capability arguments out of the request
// text. Unknown capabilities yield an empty map.
func (c *RuleClient) ExtractParameters(_ context.Context, text, capabilityName string, _ []capability.Parameter) (map[string]any, error) {
	lower := strings.ToLower(text)

	switch capabilityName {
	case "calculator":
		m := arithmeticRe.FindStringSubmatch(lower)
		if m == nil {
			return map[string]any{}, nil
		}
		a, _ := strconv.ParseFloat(m[1], 64)
		b, _ := strconv.ParseFloat(m[3], 64)
		return map[string]any{
			"operation": operatorWords[m[2]],
			"a":         a,
			"b":         b,
		}, nil

	case "data_analysis":
		nums := numberRe.FindAllString(lower, -1)
		data := make([]any, 0, len(nums))
		for _, n := range nums {
			v, err := strconv.ParseFloat(n, 64)
			if err != nil {
				continue
			}
			data = append(data, v)
		}
		return map[string]any{
			"operation": statOperation(lower),
			"data":      data,
		}, nil

	case "web_search":
		return map[string]any{"query": searchQuery(lower)}, nil

	case "file_operations":
		params := map[string]any{"operation": fileOperation(lower)}
		if name := fileNameRe.FindString(text); name != "" {
			params["path"] = name
		}
		if m := quotedRe.FindStringSubmatch(text); m != nil {
			params["content"] = m[1]
		}
		return params, nil

	case "code_execution":
		return map[string]any{"code": codeBody(text)}, nil

	case "echo":
		return map[string]any{"message": text}, nil
	}

	return map[string]any{}, nil
}

func responseStep(n int) PlanStep {
	return PlanStep{
		Step:        n,
		Action:      ActionGenerateResponse,
		Description: "Compose a reply for the user",
	}
}

func capabilityForIntent(intent string) string {
	switch intent {
	case IntentCalculation:
		return "calculator"
	case IntentDataAnalyze:
		return "data_analysis"
	case IntentSearch:
		return "web_search"
	case IntentFiles:
		return "file_operations"
	case IntentCode:
		return "code_execution"
	}
	return ""
}

func hasStatRequest(lower string) bool {
	if len(numberRe.FindAllString(lower, -1)) < 2 {
		return false
	}
	for _, w := range statWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func hasSearchLead(lower string) bool {
	for _, lead := range searchLeads {
		if strings.HasPrefix(lower, lead+" ") || strings.Contains(lower, " "+lead+" ") {
			return true
		}
	}
	return false
}

func hasFileRequest(lower string) bool {
	if strings.Contains(lower, "file") {
		for _, verb := range []string{"read", "write", "save", "list", "open", "create"} {
			if strings.Contains(lower, verb) {
				return true
			}
		}
	}
	return false
}

func hasCodeRequest(lower string) bool {
	if !strings.Contains(lower, "run") && !strings.Contains(lower, "execute") {
		return false
	}
	for _, w := range []string{"code", "script", "python", "program"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// searchQuery strips the recognized lead phrase and trailing
// punctuation to leave the bare query.
func searchQuery(lower string) string {
	q := lower
	// Longest leads first so "search for" wins over "search".
	leads := append([]string(nil), searchLeads...)
	sort.Slice(leads, func(i, j int) bool { return len(leads[i]) > len(leads[j]) })
	for _, lead := range leads {
		if idx := strings.Index(q, lead+" "); idx >= 0 {
			q = q[idx+len(lead)+1:]
			break
		}
	}
	return strings.Trim(strings.TrimSpace(q), "?.!")
}

func statOperation(lower string) string {
	switch {
	case strings.Contains(lower, "average"), strings.Contains(lower, "mean"):
		return "average"
	case strings.Contains(lower, "maximum"), strings.Contains(lower, "max"):
		return "max"
	case strings.Contains(lower, "minimum"), strings.Contains(lower, "min"):
		return "min"
	case strings.Contains(lower, "count"):
		return "count"
	}
	return "sum"
}

func fileOperation(lower string) string {
	switch {
	case strings.Contains(lower, "write"), strings.Contains(lower, "save"), strings.Contains(lower, "create"):
		return "write"
	case strings.Contains(lower, "list"):
		return "list"
	}
	return "read"
}

// codeBody returns a fenced code block body when present, otherwise the
// text itself.
func codeBody(text string) string {
	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}
	return text
}

func containsName(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

// summarize truncates to at most 100 bytes without splitting a rune.
func summarize(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= 100 {
		return text
	}
	cut := 100
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func formatOutput(out any) string {
	switch v := out.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
