package proactive

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maravicoffee/project-alfred/internal/twin"
)

// Behavioral thresholds for insight and tip generation.
const (
	capabilityExplorerThreshold = 3  // distinct capabilities before the explorer insight
	milestoneMessageThreshold   = 50 // total messages before the milestone insight
	onboardingMessageThreshold  = 20 // tips only show below this message count
)

// Engine generates, filters, and tracks suggestions per user. Pending and
// history lists live behind per-user locks so sessions for different
// users never contend.
type Engine struct {
	mu    sync.RWMutex
	users map[string]*userSuggestions

	twins  *twin.Store
	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

type userSuggestions struct {
	mu      sync.Mutex
	pending []*Suggestion
	history []*Suggestion
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a suggestion engine reading profiles from twins.
func NewEngine(twins *twin.Store, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		users:  make(map[string]*userSuggestions),
		twins:  twins,
		newID:  func() string { return "sug_" + uuid.NewString() },
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) user(userID string) *userSuggestions {
	e.mu.RLock()
	u, ok := e.users[userID]
	e.mu.RUnlock()
	if ok {
		return u
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if u, ok := e.users[userID]; ok {
		return u
	}
	u = &userSuggestions{}
	e.users[userID] = u
	return u
}

// Generate runs the four suggestion generators against the user's profile,
// filters by the profile's suggestion-frequency preference, stores the
// survivors in the pending list, and returns them. It returns nothing when
// the user has no profile yet or has proactivity turned off.
func (e *Engine) Generate(userID string, context map[string]any) []Suggestion {
	profile, ok := e.twins.Get(userID)
	if !ok || !profile.Proactive() {
		return nil
	}

	var generated []*Suggestion
	generated = append(generated, e.suggestCapabilities(profile)...)
	generated = append(generated, e.suggestTasks(profile)...)
	generated = append(generated, e.generateInsights(profile)...)
	generated = append(generated, e.generateTips(profile)...)

	generated = filterByFrequency(profile.SuggestionFrequency(), generated)
	if len(generated) == 0 {
		return nil
	}

	u := e.user(userID)
	u.mu.Lock()
	u.pending = append(u.pending, generated...)
	u.mu.Unlock()

	e.logger.Debug("generated suggestions",
		zap.String("user_id", userID),
		zap.Int("count", len(generated)))

	out := make([]Suggestion, len(generated))
	for i, s := range generated {
		out[i] = *s
	}
	return out
}

func (e *Engine) suggestion(t Type, priority Priority, title, description, action string, context map[string]any) *Suggestion {
	return &Suggestion{
		ID:          e.newID(),
		Type:        t,
		Title:       title,
		Description: description,
		Action:      action,
		Priority:    priority,
		Context:     context,
		CreatedAt:   e.now(),
	}
}

// suggestCapabilities recommends related capabilities based on usage
// affinity and recent-topic triggers.
func (e *Engine) suggestCapabilities(p *twin.Profile) []*Suggestion {
	var out []*Suggestion
	common := p.MostUsedCapabilities(3)

	if contains(common, "calculator") && !contains(common, "data_analysis") {
		out = append(out, e.suggestion(TypeTool, PriorityLow,
			"Try Data Analysis",
			"Since you use the calculator often, you might find the data analysis capability helpful for working with datasets.",
			"Use data_analysis",
			map[string]any{"related_capability": "calculator"}))
	}

	if contains(common, "file_operations") && !contains(common, "code_execution") {
		out = append(out, e.suggestion(TypeTool, PriorityLow,
			"Execute Code Directly",
			"You can run code directly instead of saving it to files first. Try the code execution capability.",
			"Use code_execution",
			map[string]any{"related_capability": "file_operations"}))
	}

	if hasSearchIntent(p.RecentTopics) && !contains(common, "web_search") {
		out = append(out, e.suggestion(TypeTool, PriorityMedium,
			"Search the Web",
			"Looking for information? I can search the web for you.",
			"Search for: [your query]",
			map[string]any{"trigger": "search_intent"}))
	}

	return out
}

// suggestTasks recommends related tasks when a task type is common.
func (e *Engine) suggestTasks(p *twin.Profile) []*Suggestion {
	var out []*Suggestion
	common := p.CommonTaskTypes(3)

	if contains(common, "calculation") {
		out = append(out, e.suggestion(TypeTask, PriorityLow,
			"Analyze Your Data",
			"I notice you do calculations often. Would you like me to analyze a dataset for you?",
			"Analyze data: [provide numbers]",
			map[string]any{"pattern": "calculation"}))
	}

	if contains(common, "file_management") {
		out = append(out, e.suggestion(TypeTask, PriorityLow,
			"Organize Your Workspace",
			"Want me to help organize your files? I can list, rename, or categorize them.",
			"List all files",
			map[string]any{"pattern": "file_management"}))
	}

	return out
}

// generateInsights surfaces observations about the user's own behavior.
func (e *Engine) generateInsights(p *twin.Profile) []*Suggestion {
	var out []*Suggestion

	if peaks := p.PeakActivityHours(); len(peaks) > 0 {
		parts := make([]string, len(peaks))
		for i, h := range peaks {
			parts[i] = fmt.Sprintf("%d", h)
		}
		out = append(out, e.suggestion(TypeInsight, PriorityLow,
			"Your Peak Hours",
			fmt.Sprintf("You're most active around %s:00. I'm here whenever you need me!", strings.Join(parts, ", ")),
			"",
			map[string]any{"peak_hours": peaks}))
	}

	if used := len(p.CapabilitiesUsed); used >= capabilityExplorerThreshold {
		out = append(out, e.suggestion(TypeInsight, PriorityLow,
			"Capability Explorer",
			fmt.Sprintf("You've used %d different capabilities! You're making great use of what I can do.", used),
			"",
			map[string]any{"capabilities_count": used}))
	}

	if p.TotalMessages >= milestoneMessageThreshold {
		out = append(out, e.suggestion(TypeInsight, PriorityLow,
			"Milestone Reached",
			fmt.Sprintf("We've exchanged %d messages! Our collaboration is growing.", p.TotalMessages),
			"",
			map[string]any{"messages": p.TotalMessages}))
	}

	return out
}

// generateTips offers onboarding and feature-discovery hints.
func (e *Engine) generateTips(p *twin.Profile) []*Suggestion {
	var out []*Suggestion

	if p.TotalMessages < onboardingMessageThreshold {
		out = append(out, e.suggestion(TypeTip, PriorityLow,
			"Pro Tip: Natural Language",
			"You can ask me anything in natural language. No need for specific commands!",
			"",
			map[string]any{"tip_type": "beginner"}))
	}

	if !p.CapabilitiesUsed["web_search"] {
		out = append(out, e.suggestion(TypeTip, PriorityLow,
			"Did You Know?",
			"I can search the web for you. Just ask me to find information on any topic!",
			"",
			map[string]any{"feature": "web_search"}))
	}

	if !p.CapabilitiesUsed["code_execution"] {
		out = append(out, e.suggestion(TypeTip, PriorityLow,
			"Code Execution",
			"I can run scripts for you. Try asking me to execute some code!",
			"",
			map[string]any{"feature": "code_execution"}))
	}

	return out
}

// filterByFrequency is the sole gate on suggestion volume: "rare" keeps
// only high priority, "moderate" keeps high and medium, "frequent" keeps
// everything.
func filterByFrequency(frequency string, suggestions []*Suggestion) []*Suggestion {
	switch frequency {
	case "rare":
		return filterPriority(suggestions, PriorityHigh)
	case "moderate":
		return filterPriority(suggestions, PriorityHigh, PriorityMedium)
	default:
		return suggestions
	}
}

func filterPriority(suggestions []*Suggestion, keep ...Priority) []*Suggestion {
	var out []*Suggestion
	for _, s := range suggestions {
		for _, p := range keep {
			if s.Priority == p {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Pending returns up to limit not-yet-shown suggestions sorted by priority
// (stable on insertion order within a tier) and marks them shown. Shown
// state is sticky: a suggestion is never returned twice.
func (e *Engine) Pending(userID string, limit int) []Suggestion {
	if limit <= 0 {
		return nil
	}

	u := e.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	var unshown []*Suggestion
	for _, s := range u.pending {
		if !s.Shown {
			unshown = append(unshown, s)
		}
	}
	sort.SliceStable(unshown, func(i, j int) bool {
		return unshown[i].Priority.rank() < unshown[j].Priority.rank()
	})

	if limit < len(unshown) {
		unshown = unshown[:limit]
	}

	out := make([]Suggestion, len(unshown))
	for i, s := range unshown {
		s.Shown = true
		out[i] = *s
	}
	return out
}

// Accept marks the suggestion accepted and moves it from the pending list
// into the user's history. No-op if the id is unknown.
func (e *Engine) Accept(userID, suggestionID string) {
	u := e.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	for i, s := range u.pending {
		if s.ID == suggestionID {
			s.Accepted = true
			u.history = append(u.history, s)
			u.pending = append(u.pending[:i], u.pending[i+1:]...)
			return
		}
	}
}

// Dismiss removes the suggestion from the pending list outright. No-op if
// the id is unknown.
func (e *Engine) Dismiss(userID, suggestionID string) {
	u := e.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	for i, s := range u.pending {
		if s.ID == suggestionID {
			u.pending = append(u.pending[:i], u.pending[i+1:]...)
			return
		}
	}
}

// History returns the user's accepted suggestions, oldest first.
func (e *Engine) History(userID string) []Suggestion {
	u := e.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]Suggestion, len(u.history))
	for i, s := range u.history {
		out[i] = *s
	}
	return out
}

// PromptEnhancement returns a personalization digest for embedding into
// the analyze phase's context, or "" when the user has no profile yet.
func (e *Engine) PromptEnhancement(userID, text string) string {
	if _, ok := e.twins.Get(userID); !ok {
		return ""
	}

	p := e.twins.Personalization(userID)

	capabilities := "None yet"
	if len(p.CommonCapabilities) > 0 {
		capabilities = strings.Join(p.CommonCapabilities, ", ")
	}
	interests := "Learning"
	if len(p.Interests) > 0 {
		interests = strings.Join(p.Interests, ", ")
	}
	recent := "New conversation"
	if len(p.RecentTopics) > 0 {
		topics := p.RecentTopics
		if len(topics) > 3 {
			topics = topics[:3]
		}
		recent = strings.Join(topics, ", ")
	}

	return strings.TrimSpace(fmt.Sprintf(`User Context:
- Communication style: %s
- Preferred response length: %s
- Common capabilities: %s
- Interests: %s
- Recent topics: %s`,
		p.CommunicationStyle, p.ResponseLength, capabilities, interests, recent))
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func hasSearchIntent(topics []string) bool {
	for _, topic := range topics {
		lower := strings.ToLower(topic)
		if strings.Contains(lower, "search") || strings.Contains(lower, "find") {
			return true
		}
	}
	return false
}
