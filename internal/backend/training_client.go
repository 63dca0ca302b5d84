package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/models"
)

// TrainingClient talks to the trainer's training and settings endpoints.
type TrainingClient struct {
	restClient
}

type modelsEnvelope struct {
	Models []models.ModelEntry `json:"models"`
}

// NewTrainingClient creates a client for the trainer at baseURL.
func NewTrainingClient(baseURL string, timeout time.Duration, log *logrus.Entry) *TrainingClient {
	return &TrainingClient{restClient: newRESTClient(baseURL, timeout, log)}
}

// Backup triggers POST /api/training/backup.
func (c *TrainingClient) Backup(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/training/backup", nil, nil)
}

// Save triggers POST /api/training/save.
func (c *TrainingClient) Save(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/training/save", nil, nil)
}

// GetModels fetches the persisted model registry.
func (c *TrainingClient) GetModels(ctx context.Context) ([]models.ModelEntry, error) {
	var env modelsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/settings/models", nil, &env); err != nil {
		return nil, err
	}
	return env.Models, nil
}

// SaveModels replaces the persisted model registry with entries.
func (c *TrainingClient) SaveModels(ctx context.Context, entries []models.ModelEntry) error {
	if entries == nil {
		entries = []models.ModelEntry{}
	}
	return c.do(ctx, http.MethodPost, "/api/settings/models", modelsEnvelope{Models: entries}, nil)
}
