package views

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/models"
)

// EmbeddingsView edits the list stored under the embeddings key. The store
// holds the list; every mutation rewrites it whole.
type EmbeddingsView struct {
	store ConfigStore
	log   *logrus.Entry

	mu sync.Mutex
}

func NewEmbeddingsView(cs ConfigStore, log *logrus.Entry) *EmbeddingsView {
	return &EmbeddingsView{store: cs, log: log}
}

// NewEmbedding returns an entry with the form defaults and a fresh id.
func NewEmbedding() models.Embedding {
	tokens := 1
	return models.Embedding{
		UUID:                  newID(),
		ModelName:             "",
		Placeholder:           "<embedding>",
		Train:                 true,
		StopTrainingAfter:     nil,
		StopTrainingAfterUnit: models.TimeUnitNever,
		TokenCount:            &tokens,
		InitialEmbeddingText:  "*",
		IsOutputEmbedding:     false,
	}
}

// List returns the stored entries in order. A missing or malformed value
// reads as an empty list.
func (v *EmbeddingsView) List() []models.Embedding {
	list := []models.Embedding{}
	if _, err := v.store.Read().Decode(models.KeyEmbeddings, &list); err != nil {
		if v.log != nil {
			v.log.WithError(err).Warn("stored embeddings are malformed, showing an empty list")
		}
		return []models.Embedding{}
	}
	return list
}

// Add appends a default entry and returns it.
func (v *EmbeddingsView) Add() models.Embedding {
	v.mu.Lock()
	defer v.mu.Unlock()

	e := NewEmbedding()
	v.save(append(v.List(), e))
	return e
}

// Remove deletes the entry with id.
func (v *EmbeddingsView) Remove(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	list := v.List()
	out := make([]models.Embedding, 0, len(list))
	found := false
	for _, e := range list {
		if e.UUID == id {
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		return fmt.Errorf("embedding %s: %w", id, ErrNotFound)
	}
	v.save(out)
	return nil
}

// Update applies patch to the entry with id and returns the result.
func (v *EmbeddingsView) Update(id string, patch models.EmbeddingPatch) (models.Embedding, error) {
	if patch.StopTrainingAfterUnit != nil && !patch.StopTrainingAfterUnit.Valid() {
		return models.Embedding{}, fmt.Errorf("%w: %q", ErrInvalidTimeUnit, *patch.StopTrainingAfterUnit)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	list := v.List()
	for i, e := range list {
		if e.UUID != id {
			continue
		}
		list[i] = patch.Apply(e)
		v.save(list)
		return list[i], nil
	}
	return models.Embedding{}, fmt.Errorf("embedding %s: %w", id, ErrNotFound)
}

// DisableAll clears the train flag on every entry.
func (v *EmbeddingsView) DisableAll() []models.Embedding {
	v.mu.Lock()
	defer v.mu.Unlock()

	list := v.List()
	for i := range list {
		list[i].Train = false
	}
	v.save(list)
	return list
}

func (v *EmbeddingsView) save(list []models.Embedding) {
	out := make([]models.Embedding, len(list))
	copy(out, list)
	v.store.Update(map[string]interface{}{models.KeyEmbeddings: out})
}
