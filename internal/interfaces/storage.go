package interfaces

import (
	"context"
	"errors"

	"Trainer-Console/server/internal/models"
)

// ErrNoSnapshot is returned by ConfigPersister.LoadConfig when nothing was saved yet.
var ErrNoSnapshot = errors.New("no config snapshot stored")

// ConfigPersister keeps TrainingConfig snapshots across restarts.
// LoadConfig also returns the revision the snapshot was saved under.
type ConfigPersister interface {
	SaveConfig(ctx context.Context, revision uint64, cfg models.TrainingConfig) error
	LoadConfig(ctx context.Context) (models.TrainingConfig, uint64, error)
}

// ActionRecorder keeps a log of backend actions triggered from the console.
type ActionRecorder interface {
	RecordAction(ctx context.Context, record *models.ActionRecord) error
	RecentActions(ctx context.Context, limit int) ([]models.ActionRecord, error)
}

// PromptAssistant rewrites a short playground prompt into a fuller one.
type PromptAssistant interface {
	EnhancePrompt(ctx context.Context, prompt string, mode models.GenerationMode) (string, error)
}
