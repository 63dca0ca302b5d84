package views

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/models"
	"Trainer-Console/server/internal/store"
)

// DataState is the dataset parameter form.
type DataState struct {
	Resolution                string `json:"resolution"`
	BatchSize                 int    `json:"batch_size"`
	GradientAccumulationSteps int    `json:"gradient_accumulation_steps"`
	DataloaderThreads         int    `json:"dataloader_threads"`
	LatentCaching             bool   `json:"latent_caching"`
}

func dataStateFrom(cfg models.TrainingConfig) DataState {
	return DataState{
		Resolution:                cfg.String(models.KeyResolution, "512"),
		BatchSize:                 cfg.Int(models.KeyBatchSize, 1),
		GradientAccumulationSteps: cfg.Int(models.KeyGradientAccumulation, 1),
		DataloaderThreads:         cfg.Int(models.KeyDataloaderThreads, 2),
		LatentCaching:             cfg.Bool(models.KeyLatentCaching, true),
	}
}

// DataView keeps a local shadow of the dataset fields. A sync goroutine
// copies store snapshots into the shadow; edits update the shadow and push
// only the edited key back. Snapshots older than the last push are ignored
// so a stale notification cannot roll back a fresh edit.
type DataView struct {
	store ConfigStore
	log   *logrus.Entry

	mu        sync.RWMutex
	state     DataState
	pushed    uint64
	cancel    func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewDataView seeds the shadow from the store and starts the sync goroutine.
func NewDataView(cs ConfigStore, log *logrus.Entry) *DataView {
	updates, cancel := cs.Subscribe(4)
	v := &DataView{
		store:  cs,
		log:    log,
		state:  dataStateFrom(cs.Read()),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go v.sync(updates)
	return v
}

func (v *DataView) sync(updates <-chan store.Snapshot) {
	defer close(v.done)
	for snap := range updates {
		next := dataStateFrom(snap.Config)
		v.mu.Lock()
		if snap.Revision >= v.pushed && next != v.state {
			v.state = next
		}
		v.mu.Unlock()
	}
}

// State returns the current shadow.
func (v *DataView) State() DataState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// SetField updates one shadow field and writes it to the store.
func (v *DataView) SetField(name string, raw interface{}) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var value interface{}
	switch name {
	case models.KeyResolution:
		s, err := parseString(raw)
		if err != nil {
			return err
		}
		v.state.Resolution = s
		value = s
	case models.KeyBatchSize:
		v.state.BatchSize = parseIntOr(raw, 0)
		value = v.state.BatchSize
	case models.KeyGradientAccumulation:
		v.state.GradientAccumulationSteps = parseIntOr(raw, 0)
		value = v.state.GradientAccumulationSteps
	case models.KeyDataloaderThreads:
		v.state.DataloaderThreads = parseIntOr(raw, 0)
		value = v.state.DataloaderThreads
	case models.KeyLatentCaching:
		v.state.LatentCaching = parseBoolOr(raw, v.state.LatentCaching)
		value = v.state.LatentCaching
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	snap := v.store.Update(map[string]interface{}{name: value})
	v.pushed = snap.Revision
	return nil
}

// Close stops the sync goroutine and waits for it to exit.
func (v *DataView) Close() {
	v.closeOnce.Do(func() {
		v.cancel()
		<-v.done
	})
}
