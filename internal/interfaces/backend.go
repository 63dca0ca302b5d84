package interfaces

import (
	"context"

	"Trainer-Console/server/internal/models"
)

// TrainingBackend is the trainer's REST surface used by the settings views.
type TrainingBackend interface {
	// Backup asks the trainer to write a backup now
	Backup(ctx context.Context) error

	// Save asks the trainer to save the model now
	Save(ctx context.Context) error

	// GetModels returns the persisted model registry (may be empty)
	GetModels(ctx context.Context) ([]models.ModelEntry, error)

	// SaveModels replaces the persisted model registry
	SaveModels(ctx context.Context, entries []models.ModelEntry) error
}

// InferenceBackend is the inference playground's REST surface.
type InferenceBackend interface {
	LoadModel(ctx context.Context, req *models.LoadModelRequest) error
	UnloadModel(ctx context.Context) error
	GetStatus(ctx context.Context) (*models.InferenceStatus, error)
	GetGallery(ctx context.Context, limit int) ([]models.GeneratedImage, error)
	Generate(ctx context.Context, params *models.GenerateParams) (*models.GenerateResponse, error)
	CancelGeneration(ctx context.Context) error
	DeleteImage(ctx context.Context, id string) error
	ClearGallery(ctx context.Context) error

	// ImageURL returns the URL a browser can fetch the image from
	ImageURL(id string) string
}
