package twin

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Interaction captures what the agent learned from one completed task.
type Interaction struct {
	TaskType         string
	CapabilitiesUsed []string
	Topics           []string
	Intent           string
}

// Personalization is the context bundle embedded into generation prompts.
type Personalization struct {
	CommunicationStyle string   `json:"communication_style"`
	ResponseLength     string   `json:"response_length"`
	CommonCapabilities []string `json:"common_capabilities"`
	CommonTasks        []string `json:"common_tasks"`
	Interests          []string `json:"interests"`
	RecentTopics       []string `json:"recent_topics"`
	ProactivityEnabled bool     `json:"proactivity_enabled"`
}

// Store maintains one Profile per user. Entries carry their own lock so
// sessions for different users never contend; reads return deep copies so
// callers can inspect a profile without holding anything.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*profileEntry

	now    func() time.Time
	logger *zap.Logger
}

type profileEntry struct {
	mu      sync.Mutex
	profile *Profile
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty profile store.
func NewStore(logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		profiles: make(map[string]*profileEntry),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// entry returns the per-user entry, creating it (and a default profile)
// on first reference.
func (s *Store) entry(userID string) *profileEntry {
	s.mu.RLock()
	e, ok := s.profiles[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.profiles[userID]; ok {
		return e
	}
	e = &profileEntry{profile: newProfile(userID, s.now())}
	s.profiles[userID] = e
	s.logger.Debug("created user profile", zap.String("user_id", userID))
	return e
}

// GetOrCreate returns a copy of the user's profile, creating a default
// profile on first reference. Idempotent.
func (s *Store) GetOrCreate(userID string) *Profile {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.clone()
}

// Get returns a copy of the profile, or false if the user has never been
// seen.
func (s *Store) Get(userID string) (*Profile, bool) {
	s.mu.RLock()
	e, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.clone(), true
}

// Users returns the ids of all known profiles.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	return ids
}

// Learn applies a learning update from one interaction. It is a no-op
// when the user has disabled learning; otherwise it bumps the relevant
// counters, records the active hour, refreshes the interaction summary,
// and rolls the recent-topic window.
func (s *Store) Learn(userID string, in Interaction) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profile
	if !p.LearningEnabled() {
		return
	}

	now := s.now()
	p.LastUpdated = now
	if p.FirstInteraction.IsZero() {
		p.FirstInteraction = now
	}
	p.LastInteraction = now
	p.TotalMessages++

	if in.TaskType != "" {
		p.TaskTypes.Inc(in.TaskType)
	}
	for _, name := range in.CapabilitiesUsed {
		p.CapabilityUsage.Inc(name)
		p.CapabilitiesUsed[name] = true
	}
	for _, topic := range in.Topics {
		p.TopicInterests.Inc(topic)
	}

	p.ActiveHours = append(p.ActiveHours, now.Hour())

	if in.Intent != "" {
		p.LastIntent = in.Intent
	}
	if len(in.Topics) > 0 {
		p.RecentTopics = append(append([]string(nil), in.Topics...), p.RecentTopics...)
		if len(p.RecentTopics) > maxRecentTopics {
			p.RecentTopics = p.RecentTopics[:maxRecentTopics]
		}
	}
}

// SetPreference overwrites one preference entry. The key namespace is
// unconstrained; callers are responsible for using recognized keys.
func (s *Store) SetPreference(userID, key string, value any) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.profile.Preferences[key] = value
	e.profile.LastUpdated = s.now()
}

// Personalization builds the prompt-personalization bundle for a user,
// creating the profile if needed.
func (s *Store) Personalization(userID string) Personalization {
	p := s.GetOrCreate(userID)

	recent := p.RecentTopics
	if len(recent) > 5 {
		recent = recent[:5]
	}

	return Personalization{
		CommunicationStyle: p.CommunicationStyle(),
		ResponseLength:     p.ResponseLength(),
		CommonCapabilities: p.MostUsedCapabilities(3),
		CommonTasks:        p.CommonTaskTypes(3),
		Interests:          p.TopTopicInterests(3),
		RecentTopics:       recent,
		ProactivityEnabled: p.Proactive(),
	}
}

// restore installs a profile loaded from a snapshot, replacing any
// in-memory profile for the same user.
func (s *Store) restore(p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = &profileEntry{profile: p}
}
