package agent

import (
	"fmt"
	"strings"
	"time"
)

// Message roles in the world model's conversation log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// contextWindow is how many trailing messages feed prompt context.
const contextWindow = 5

// Message is one conversation turn recorded in the world model.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// WorldModel is an agent's private view of one user's session: the
// conversation so far, accumulated context, and the capability names
// the agent can currently reach. It is not safe for concurrent use;
// the owning session serializes access.
type WorldModel struct {
	UserID       string         `json:"user_id"`
	Messages     []Message      `json:"messages"`
	Context      map[string]any `json:"context"`
	Preferences  map[string]any `json:"preferences"`
	Capabilities []string       `json:"capabilities"`
}

// NewWorldModel returns an empty world model for the user.
func NewWorldModel(userID string) *WorldModel {
	return &WorldModel{
		UserID:      userID,
		Context:     make(map[string]any),
		Preferences: make(map[string]any),
	}
}

// AddMessage appends one conversation turn.
func (w *WorldModel) AddMessage(role, content string, now time.Time) {
	w.Messages = append(w.Messages, Message{Role: role, Content: content, Timestamp: now})
}

// RecentMessages returns up to n trailing messages, oldest first.
func (w *WorldModel) RecentMessages(n int) []Message {
	if n <= 0 || len(w.Messages) == 0 {
		return nil
	}
	if n > len(w.Messages) {
		n = len(w.Messages)
	}
	out := make([]Message, n)
	copy(out, w.Messages[len(w.Messages)-n:])
	return out
}

// ContextSummary renders the trailing conversation window and the
// available capabilities as a compact prompt preamble.
func (w *WorldModel) ContextSummary() string {
	var b strings.Builder
	recent := w.RecentMessages(contextWindow)
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "- %s: %s\n", m.Role, m.Content)
		}
	}
	if len(w.Capabilities) > 0 {
		fmt.Fprintf(&b, "Available capabilities: %s\n", strings.Join(w.Capabilities, ", "))
	}
	return b.String()
}
