package twin

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SnapshotStore persists profile snapshots to SQLite so learned behavior
// survives process restarts. Profiles are stored as JSON rows keyed by
// user id; the in-memory Store remains the source of truth while the
// process runs.
type SnapshotStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSnapshotStore opens (creating if necessary) the snapshot database
// at path.
func OpenSnapshotStore(path string, logger *zap.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize snapshot schema: %w", err)
	}

	return &SnapshotStore{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (ss *SnapshotStore) Close() error {
	return ss.db.Close()
}

// Save writes a snapshot of every profile in the store.
func (ss *SnapshotStore) Save(store *Store) error {
	const upsert = `
	INSERT INTO profiles (user_id, payload, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

	for _, userID := range store.Users() {
		profile, ok := store.Get(userID)
		if !ok {
			continue
		}
		payload, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("marshal profile %s: %w", userID, err)
		}
		if _, err := ss.db.Exec(upsert, userID, string(payload), profile.LastUpdated.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("save profile %s: %w", userID, err)
		}
	}

	ss.logger.Debug("saved profile snapshots", zap.Int("count", len(store.Users())))
	return nil
}

// Load restores all persisted profiles into the store, replacing any
// in-memory profile with the same user id.
func (ss *SnapshotStore) Load(store *Store) error {
	rows, err := ss.db.Query(`SELECT user_id, payload FROM profiles`)
	if err != nil {
		return fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var userID, payload string
		if err := rows.Scan(&userID, &payload); err != nil {
			return fmt.Errorf("scan snapshot: %w", err)
		}

		var profile Profile
		if err := json.Unmarshal([]byte(payload), &profile); err != nil {
			ss.logger.Warn("skipping corrupt profile snapshot",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if profile.TaskTypes == nil {
			profile.TaskTypes = NewCounterSet()
		}
		if profile.CapabilityUsage == nil {
			profile.CapabilityUsage = NewCounterSet()
		}
		if profile.TopicInterests == nil {
			profile.TopicInterests = NewCounterSet()
		}
		if profile.CapabilitiesUsed == nil {
			profile.CapabilitiesUsed = make(map[string]bool)
		}
		if profile.Preferences == nil {
			profile.Preferences = make(map[string]any)
		}

		store.restore(&profile)
		count++
	}

	ss.logger.Info("restored profile snapshots", zap.Int("count", count))
	return rows.Err()
}
