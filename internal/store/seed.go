package store

import (
	"encoding/json"
	"fmt"
	"os"

	"Trainer-Console/server/internal/models"
)

// ReadSeedFile reads a trainer config JSON export used to seed the store.
// An empty path yields an empty configuration.
func ReadSeedFile(path string) (models.TrainingConfig, error) {
	if path == "" {
		return models.TrainingConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trainer config: %w", err)
	}

	cfg := models.TrainingConfig{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse trainer config %s: %w", path, err)
	}
	return cfg, nil
}
