package agent

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/maravicoffee/project-alfred/internal/capability"
	"github.com/maravicoffee/project-alfred/internal/generation"
	"github.com/maravicoffee/project-alfred/internal/proactive"
	"github.com/maravicoffee/project-alfred/internal/recovery"
	"github.com/maravicoffee/project-alfred/internal/twin"
)

// Service owns one Agent per user and serializes each user's tasks.
// Different users' tasks run concurrently.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session

	registry *capability.Registry
	twins    *twin.Store
	engine   *proactive.Engine
	gen      generation.Client
	breakers *recovery.BreakerSet
	logger   *zap.Logger
}

type session struct {
	mu    sync.Mutex
	agent *Agent
}

// NewService wires a service over the shared stores. A nil logger is
// replaced with a no-op one.
func NewService(registry *capability.Registry, twins *twin.Store, engine *proactive.Engine, gen generation.Client, breakers *recovery.BreakerSet, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: make(map[string]*session),
		registry: registry,
		twins:    twins,
		engine:   engine,
		gen:      gen,
		breakers: breakers,
		logger:   logger,
	}
}

func (s *Service) session(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{agent: New(userID, s.registry, s.twins, s.engine, s.gen, s.breakers, s.logger)}
		s.sessions[userID] = sess
	}
	return sess
}

// ProcessTask runs one request through the user's agent.
func (s *Service) ProcessTask(ctx context.Context, userID, text string) TaskResult {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.agent.ProcessTask(ctx, text)
}

// AgentState reports the loop phase of the user's agent, idle when the
// user has no session yet.
func (s *Service) AgentState(userID string) State {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return StateIdle
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.agent.State()
}

// Capabilities lists the registered capability metadata in
// registration order.
func (s *Service) Capabilities() []capability.Metadata {
	return s.registry.List()
}

// Profile returns a snapshot of the user's learned profile, creating a
// default one for new users.
func (s *Service) Profile(userID string) *twin.Profile {
	return s.twins.GetOrCreate(userID)
}

// SetPreference records an explicit user preference.
func (s *Service) SetPreference(userID, key string, value any) {
	s.twins.SetPreference(userID, key, value)
}

// Suggestions returns up to limit pending suggestions for the user.
func (s *Service) Suggestions(userID string, limit int) []proactive.Suggestion {
	return s.engine.Pending(userID, limit)
}

// AcceptSuggestion marks a pending suggestion accepted.
func (s *Service) AcceptSuggestion(userID, suggestionID string) {
	s.engine.Accept(userID, suggestionID)
}

// DismissSuggestion removes a pending suggestion.
func (s *Service) DismissSuggestion(userID, suggestionID string) {
	s.engine.Dismiss(userID, suggestionID)
}

// BreakerStatus reports every circuit breaker's state, keyed by
// capability name.
func (s *Service) BreakerStatus() map[string]string {
	return s.breakers.Status()
}

// Users lists every user with an active session, sorted.
func (s *Service) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}
