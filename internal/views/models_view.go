package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/models"
)

const bannerKey = "banner"

// Banner is the transient notice shown after a save.
type Banner struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ModelsState is what the model registry page renders.
type ModelsState struct {
	Models        []models.ModelEntry `json:"models"`
	UsingDefaults bool                `json:"using_defaults"`
	Banner        *Banner             `json:"banner"`
}

// ModelsView edits the model-path registry and saves it to the trainer.
type ModelsView struct {
	trainer interfaces.TrainingBackend
	actions actionLog
	log     *logrus.Entry

	mu            sync.RWMutex
	entries       []models.ModelEntry
	usingDefaults bool

	mounted atomic.Bool
	banners *cache.Cache
}

func NewModelsView(trainer interfaces.TrainingBackend, recorder interfaces.ActionRecorder, bannerTTL time.Duration, log *logrus.Entry) *ModelsView {
	if bannerTTL <= 0 {
		bannerTTL = 3 * time.Second
	}
	return &ModelsView{
		trainer:       trainer,
		actions:       actionLog{recorder: recorder, log: log},
		log:           log,
		entries:       models.DefaultModelEntries(),
		usingDefaults: true,
		banners:       cache.New(bannerTTL, 2*bannerTTL),
	}
}

// Mount fetches the saved registry once. An error or an empty list keeps
// the built-in defaults.
func (v *ModelsView) Mount(ctx context.Context) {
	if !v.mounted.CompareAndSwap(false, true) {
		return
	}

	list, err := v.trainer.GetModels(ctx)
	if err != nil {
		if v.log != nil {
			v.log.WithError(err).Debug("no saved model registry, using defaults")
		}
		return
	}
	if len(list) == 0 {
		return
	}

	v.mu.Lock()
	v.entries = uniqueIDs(list)
	v.usingDefaults = false
	v.mu.Unlock()
}

// uniqueIDs gives a fresh id to every entry whose id is blank or already taken.
func uniqueIDs(list []models.ModelEntry) []models.ModelEntry {
	seen := make(map[string]bool, len(list))
	out := make([]models.ModelEntry, len(list))
	for i, e := range list {
		if e.ID == "" || seen[e.ID] {
			e.ID = newID()
		}
		seen[e.ID] = true
		out[i] = e
	}
	return out
}

func (v *ModelsView) State() ModelsState {
	v.mu.RLock()
	st := ModelsState{
		Models:        append([]models.ModelEntry{}, v.entries...),
		UsingDefaults: v.usingDefaults,
	}
	v.mu.RUnlock()

	if b, ok := v.banners.Get(bannerKey); ok {
		banner := b.(Banner)
		st.Banner = &banner
	}
	return st
}

// Add appends entry, filling a fresh id and local/image when left blank.
func (v *ModelsView) Add(entry models.ModelEntry) (models.ModelEntry, error) {
	entry.ID = newID()
	if entry.Storage == "" {
		entry.Storage = models.StorageLocal
	}
	if entry.Category == "" {
		entry.Category = models.CategoryImage
	}
	if err := entry.Validate(); err != nil {
		return models.ModelEntry{}, fmt.Errorf("%w: %v", ErrInvalidModelEntry, err)
	}

	v.mu.Lock()
	v.entries = append(v.entries, entry)
	v.mu.Unlock()
	return entry, nil
}

func (v *ModelsView) Update(id string, patch models.ModelEntryPatch) (models.ModelEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, e := range v.entries {
		if e.ID != id {
			continue
		}
		next := patch.Apply(e)
		if err := next.Validate(); err != nil {
			return models.ModelEntry{}, fmt.Errorf("%w: %v", ErrInvalidModelEntry, err)
		}
		v.entries[i] = next
		return next, nil
	}
	return models.ModelEntry{}, fmt.Errorf("model %s: %w", id, ErrNotFound)
}

func (v *ModelsView) Remove(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, e := range v.entries {
		if e.ID == id {
			v.entries = append(v.entries[:i:i], v.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("model %s: %w", id, ErrNotFound)
}

// ResetDefaults replaces the list with the built-in entries. Nothing is
// saved until Save is called.
func (v *ModelsView) ResetDefaults() {
	v.mu.Lock()
	v.entries = models.DefaultModelEntries()
	v.usingDefaults = true
	v.mu.Unlock()
}

// Save posts the whole list and leaves a banner describing the outcome.
func (v *ModelsView) Save(ctx context.Context) error {
	v.mu.RLock()
	list := append([]models.ModelEntry{}, v.entries...)
	v.mu.RUnlock()

	start := time.Now()
	err := v.trainer.SaveModels(ctx, list)
	v.actions.record(ctx, "save_models", "", start, err)
	if err != nil {
		if v.log != nil {
			v.log.WithError(err).Warn("failed to save model registry")
		}
		v.banners.SetDefault(bannerKey, Banner{Kind: "error", Message: fmt.Sprintf("Failed to save models: %v", err)})
		return err
	}

	v.mu.Lock()
	v.usingDefaults = false
	v.mu.Unlock()
	v.banners.SetDefault(bannerKey, Banner{Kind: "success", Message: "Models saved"})
	return nil
}
