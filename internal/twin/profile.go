// Package twin maintains the digital twin: one learned behavioral profile
// per user, updated from every interaction and served to the agent and the
// suggestion engine for personalization.
package twin

import (
	"sort"
	"time"
)

// Preference keys with recognized semantics. The preference namespace is
// unconstrained; callers own the keys they use.
const (
	PrefCommunicationStyle  = "communication_style"  // casual, professional, balanced
	PrefResponseLength      = "response_length"      // brief, medium, detailed
	PrefProactivityLevel    = "proactivity_level"    // low, medium, high
	PrefLearningEnabled     = "learning_enabled"     // bool
	PrefSuggestionFrequency = "suggestion_frequency" // rare, moderate, frequent
)

// maxRecentTopics bounds the transient topic window, newest first.
const maxRecentTopics = 10

// Profile is a user's digital twin: explicit preferences, learned
// patterns, an interaction summary, and transient context. Counters only
// ever increase; mutation happens exclusively through Store.Learn and
// Store.SetPreference.
type Profile struct {
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`

	// Explicit preferences, seeded with defaults at creation.
	Preferences map[string]any `json:"preferences"`

	// Learned patterns.
	ActiveHours     []int       `json:"active_hours"` // observation sequence, not a histogram
	TaskTypes       *CounterSet `json:"task_types"`
	CapabilityUsage *CounterSet `json:"capability_usage"`
	TopicInterests  *CounterSet `json:"topic_interests"`

	// Interaction history summary.
	TotalMessages    int             `json:"total_messages"`
	CapabilitiesUsed map[string]bool `json:"capabilities_used"` // distinct capabilities ever used
	FirstInteraction time.Time       `json:"first_interaction"`
	LastInteraction  time.Time       `json:"last_interaction"`

	// Transient context.
	RecentTopics []string `json:"recent_topics"` // newest first, capped at maxRecentTopics
	LastIntent   string   `json:"last_intent"`
}

func newProfile(userID string, now time.Time) *Profile {
	return &Profile{
		UserID:      userID,
		CreatedAt:   now,
		LastUpdated: now,
		Preferences: map[string]any{
			PrefCommunicationStyle:  "balanced",
			PrefResponseLength:      "medium",
			PrefProactivityLevel:    "medium",
			PrefLearningEnabled:     true,
			PrefSuggestionFrequency: "moderate",
		},
		TaskTypes:        NewCounterSet(),
		CapabilityUsage:  NewCounterSet(),
		TopicInterests:   NewCounterSet(),
		CapabilitiesUsed: make(map[string]bool),
	}
}

func (p *Profile) stringPref(key, fallback string) string {
	if v, ok := p.Preferences[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// CommunicationStyle returns the preferred communication style.
func (p *Profile) CommunicationStyle() string {
	return p.stringPref(PrefCommunicationStyle, "balanced")
}

// ResponseLength returns the preferred response length.
func (p *Profile) ResponseLength() string {
	return p.stringPref(PrefResponseLength, "medium")
}

// SuggestionFrequency returns how often suggestions should surface.
func (p *Profile) SuggestionFrequency() string {
	return p.stringPref(PrefSuggestionFrequency, "moderate")
}

// Proactive reports whether the assistant should volunteer suggestions
// for this user.
func (p *Profile) Proactive() bool {
	level := p.stringPref(PrefProactivityLevel, "medium")
	return level == "medium" || level == "high"
}

// LearningEnabled reports whether learning updates apply to this profile.
func (p *Profile) LearningEnabled() bool {
	if v, ok := p.Preferences[PrefLearningEnabled]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return true
}

// MostUsedCapabilities returns the top-k capabilities by usage count.
func (p *Profile) MostUsedCapabilities(k int) []string {
	return p.CapabilityUsage.Top(k)
}

// CommonTaskTypes returns the top-k task types by frequency.
func (p *Profile) CommonTaskTypes(k int) []string {
	return p.TaskTypes.Top(k)
}

// TopTopicInterests returns the top-k discussed topics.
func (p *Profile) TopTopicInterests(k int) []string {
	return p.TopicInterests.Top(k)
}

// PeakActivityHours returns the top-3 hours of day by observation count,
// ties broken by first observation.
func (p *Profile) PeakActivityHours() []int {
	if len(p.ActiveHours) == 0 {
		return nil
	}

	counts := make(map[int]int)
	var order []int
	for _, h := range p.ActiveHours {
		if counts[h] == 0 {
			order = append(order, h)
		}
		counts[h]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > 3 {
		order = order[:3]
	}
	return order
}

// clone returns a deep copy safe to hand out without holding locks.
func (p *Profile) clone() *Profile {
	out := *p

	out.Preferences = make(map[string]any, len(p.Preferences))
	for k, v := range p.Preferences {
		out.Preferences[k] = v
	}
	out.ActiveHours = append([]int(nil), p.ActiveHours...)
	out.TaskTypes = p.TaskTypes.clone()
	out.CapabilityUsage = p.CapabilityUsage.clone()
	out.TopicInterests = p.TopicInterests.clone()
	out.CapabilitiesUsed = make(map[string]bool, len(p.CapabilitiesUsed))
	for k := range p.CapabilitiesUsed {
		out.CapabilitiesUsed[k] = true
	}
	out.RecentTopics = append([]string(nil), p.RecentTopics...)

	return &out
}
