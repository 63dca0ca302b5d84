package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/models"
)

const persistTimeout = 5 * time.Second

// Snapshot is the state published to subscribers after every write.
type Snapshot struct {
	Revision uint64                `json:"revision"`
	Config   models.TrainingConfig `json:"config"`
	Changed  []string              `json:"changed"`
}

// ConfigStore holds the shared TrainingConfig. Writes merge a partial mapping
// into a fresh copy and swap it in whole; readers never see a half-applied
// update. There is no validation and the last writer wins.
type ConfigStore struct {
	mu       sync.Mutex
	current  models.TrainingConfig
	revision atomic.Uint64

	subs   map[int]chan Snapshot
	nextID int

	log *logrus.Entry
}

// New creates a store seeded with initial (which may be nil).
func New(initial models.TrainingConfig, log *logrus.Entry) *ConfigStore {
	if initial == nil {
		initial = models.TrainingConfig{}
	}
	return &ConfigStore{
		current: initial.Clone(),
		subs:    make(map[int]chan Snapshot),
		log:     log,
	}
}

// Read returns a copy of the current configuration.
func (s *ConfigStore) Read() models.TrainingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Revision returns the revision of the latest write.
func (s *ConfigStore) Revision() uint64 {
	return s.revision.Load()
}

// Update merges partial into the current configuration and notifies subscribers.
// A nil value removes the key.
func (s *ConfigStore) Update(partial map[string]interface{}) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	changed := make([]string, 0, len(partial))
	for k, v := range partial {
		if v == nil {
			delete(next, k)
		} else {
			next[k] = v
		}
		changed = append(changed, k)
	}
	sort.Strings(changed)

	return s.commitLocked(next, changed)
}

// Replace swaps the whole configuration.
func (s *ConfigStore) Replace(cfg models.TrainingConfig) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(cfg)
}

// Restore swaps in a persisted configuration and continues numbering after
// its revision, so the next snapshots outrank the stored one.
func (s *ConfigStore) Restore(cfg models.TrainingConfig, revision uint64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if revision > s.revision.Load() {
		s.revision.Store(revision)
	}
	return s.replaceLocked(cfg)
}

func (s *ConfigStore) replaceLocked(cfg models.TrainingConfig) Snapshot {
	if cfg == nil {
		cfg = models.TrainingConfig{}
	}
	keys := make(map[string]struct{}, len(cfg)+len(s.current))
	for k := range cfg {
		keys[k] = struct{}{}
	}
	for k := range s.current {
		keys[k] = struct{}{}
	}
	changed := make([]string, 0, len(keys))
	for k := range keys {
		changed = append(changed, k)
	}
	sort.Strings(changed)

	return s.commitLocked(cfg.Clone(), changed)
}

func (s *ConfigStore) commitLocked(next models.TrainingConfig, changed []string) Snapshot {
	s.current = next
	snap := Snapshot{
		Revision: s.revision.Inc(),
		Config:   next,
		Changed:  changed,
	}

	for id, ch := range s.subs {
		// Keep only the newest snapshot for slow readers.
		select {
		case ch <- s.copyFor(snap):
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.copyFor(snap):
		default:
			if s.log != nil {
				s.log.WithField("subscriber", id).Warn("dropping config snapshot for slow subscriber")
			}
		}
	}

	return s.copyFor(snap)
}

func (s *ConfigStore) copyFor(snap Snapshot) Snapshot {
	snap.Config = snap.Config.Clone()
	return snap
}

// Subscribe returns a channel receiving every snapshot written after the call.
// The channel is closed by the returned cancel function.
func (s *ConfigStore) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, buffer)
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// Load seeds the store from a persister. A missing snapshot is not an error.
func (s *ConfigStore) Load(ctx context.Context, p interfaces.ConfigPersister) (bool, error) {
	cfg, revision, err := p.LoadConfig(ctx)
	if errors.Is(err, interfaces.ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.Restore(cfg, revision)
	return true, nil
}

// Persist writes every snapshot to p, in order, until ctx is done.
// Failures are logged and the loop keeps going.
func (s *ConfigStore) Persist(ctx context.Context, p interfaces.ConfigPersister) {
	updates, cancel := s.Subscribe(16)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			saveCtx, done := context.WithTimeout(ctx, persistTimeout)
			err := p.SaveConfig(saveCtx, snap.Revision, snap.Config)
			done()
			if err != nil && s.log != nil {
				s.log.WithError(err).WithField("revision", snap.Revision).Warn("failed to persist config snapshot")
			}
		}
	}
}
