// Package history keeps a bounded, time-ordered log of inventory snapshots
// and update events, persisted through a durable key-value port, and answers
// windowed aggregation queries over it.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tracklab/stocktrack/internal/inventory"
	"github.com/tracklab/stocktrack/internal/storage"
)

const (
	stateKey  = "history/state"
	eventsKey = "history/events"

	// DefaultMaxSnapshots caps the snapshot log at roughly a quarter of daily observations.
	DefaultMaxSnapshots = 90
	// DefaultMaxEvents caps the human-readable change log.
	DefaultMaxEvents = 10
)

// UpdateEvent is one entry of the lightweight change log, recorded whenever
// a snapshot is accepted.
type UpdateEvent struct {
	ID           string    `json:"id"`
	ObservedAt   time.Time `json:"observedAt"`
	ProductCount int       `json:"productCount"`
	TotalStock   int       `json:"totalStock"`
}

// state is the unit of durable persistence for the snapshot log. Snapshots
// and the fingerprint live in one KV value so a write either lands whole or
// not at all; they can never disagree after a crash.
type state struct {
	Snapshots       []inventory.Snapshot `json:"snapshots"`
	LastFingerprint string               `json:"lastFingerprint"`
}

// Store is the history store. All mutation is serialized by an internal
// mutex and persisted synchronously before the in-memory state advances, so
// overlapping poll cycles see each append's effect, and a failed persist
// leaves the store exactly as it was.
type Store struct {
	kv           storage.KV
	maxSnapshots int
	maxEvents    int
	logger       *slog.Logger

	mu     sync.Mutex
	loaded bool
	st     state
	events []UpdateEvent
}

// Option configures a Store.
type Option func(*Store)

// WithRetention overrides the snapshot and event caps. Non-positive values
// keep the defaults.
func WithRetention(maxSnapshots, maxEvents int) Option {
	return func(s *Store) {
		if maxSnapshots > 0 {
			s.maxSnapshots = maxSnapshots
		}
		if maxEvents > 0 {
			s.maxEvents = maxEvents
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store over the given KV port. Prior persisted state is read
// lazily on first use; its absence is a valid empty store.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:           kv,
		maxSnapshots: DefaultMaxSnapshots,
		maxEvents:    DefaultMaxEvents,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load eagerly reads persisted state. Calling it is optional; every accessor
// loads on demand. It exists so startup can fail fast on a broken store.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoaded()
}

// ensureLoaded reads both KV keys once. Callers must hold mu.
func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	raw, ok, err := s.kv.Get(stateKey)
	if err != nil {
		return fmt.Errorf("loading history state: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &s.st); err != nil {
			return fmt.Errorf("decoding history state: %w", err)
		}
	}

	raw, ok, err = s.kv.Get(eventsKey)
	if err != nil {
		return fmt.Errorf("loading update events: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &s.events); err != nil {
			return fmt.Errorf("decoding update events: %w", err)
		}
	}

	s.loaded = true
	return nil
}

// Append records snap if fingerprint differs from the stored one. It returns
// true when the snapshot was appended, false when the inventory is unchanged.
// The accept decision is made here, under the lock, against the persisted
// fingerprint, never against a value the caller read before fetching.
func (s *Store) Append(snap inventory.Snapshot, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return false, err
	}

	if !inventory.Changed(fingerprint, s.st.LastFingerprint) {
		return false, nil
	}

	// An overlapping cycle that fetched before the newest snapshot was taken
	// delivers a stale observation; dropping it keeps the log time-ordered.
	if n := len(s.st.Snapshots); n > 0 && snap.TakenAt.Before(s.st.Snapshots[n-1].TakenAt) {
		s.logger.Warn("dropping out-of-order snapshot",
			"takenAt", snap.TakenAt, "newest", s.st.Snapshots[n-1].TakenAt)
		return false, nil
	}

	next := state{
		Snapshots:       append(slices.Clone(s.st.Snapshots), snap),
		LastFingerprint: fingerprint,
	}
	if over := len(next.Snapshots) - s.maxSnapshots; over > 0 {
		next.Snapshots = next.Snapshots[over:]
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("encoding history state: %w", err)
	}
	if err := s.kv.Set(stateKey, raw); err != nil {
		// In-memory state untouched; a retry sees the pre-append fingerprint.
		return false, fmt.Errorf("persisting history state: %w", err)
	}

	s.st = next
	return true, nil
}

// RecordEvent prepends ev to the change log (most recent first), truncates
// to the event cap, and persists.
func (s *Store) RecordEvent(ev UpdateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}

	next := make([]UpdateEvent, 0, len(s.events)+1)
	next = append(next, ev)
	next = append(next, s.events...)
	if len(next) > s.maxEvents {
		next = next[:s.maxEvents]
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding update events: %w", err)
	}
	if err := s.kv.Set(eventsKey, raw); err != nil {
		return fmt.Errorf("persisting update events: %w", err)
	}

	s.events = next
	return nil
}

// Snapshots returns a copy of the retained snapshot log, oldest first.
func (s *Store) Snapshots() ([]inventory.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	return slices.Clone(s.st.Snapshots), nil
}

// Events returns a copy of the change log, most recent first.
func (s *Store) Events() ([]UpdateEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	return slices.Clone(s.events), nil
}

// Latest returns the newest retained snapshot, if any.
func (s *Store) Latest() (inventory.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return inventory.Snapshot{}, false, err
	}
	if len(s.st.Snapshots) == 0 {
		return inventory.Snapshot{}, false, nil
	}
	return s.st.Snapshots[len(s.st.Snapshots)-1], true, nil
}

// LastFingerprint returns the stored fingerprint, empty before the first append.
func (s *Store) LastFingerprint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return "", err
	}
	return s.st.LastFingerprint, nil
}

// Len returns the number of retained snapshots.
func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(s.st.Snapshots), nil
}
