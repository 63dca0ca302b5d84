package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9090
backend:
  trainer_url: http://trainer:8000
inference:
  poll_interval: 2s
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("INFERENCE_BACKEND_URL", "http://infer:9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Backend.TrainerURL != "http://trainer:8000" {
		t.Errorf("Unexpected trainer url %q", cfg.Backend.TrainerURL)
	}
	if cfg.Backend.InferenceURL != "http://infer:9000" {
		t.Errorf("Expected env override for inference url, got %q", cfg.Backend.InferenceURL)
	}
	if cfg.Inference.PollInterval != 2*time.Second {
		t.Errorf("Expected poll interval 2s, got %s", cfg.Inference.PollInterval)
	}
	if cfg.Inference.GalleryLimit != 50 {
		t.Errorf("Expected default gallery limit 50, got %d", cfg.Inference.GalleryLimit)
	}
	if cfg.Models.BannerTTL != 3*time.Second {
		t.Errorf("Expected default banner ttl 3s, got %s", cfg.Models.BannerTTL)
	}
	if cfg.Addr() != "0.0.0.0:9090" {
		t.Errorf("Unexpected addr %q", cfg.Addr())
	}
}

func TestInferenceURLFallsBackToTrainer(t *testing.T) {
	t.Setenv("INFERENCE_BACKEND_URL", "")
	t.Setenv("TRAINER_BACKEND_URL", "http://only-trainer:8000")
	cfg := Default()
	if cfg.Backend.InferenceURL != "http://only-trainer:8000" {
		t.Errorf("Expected inference url to follow trainer url, got %q", cfg.Backend.InferenceURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestValidateAssistNeedsCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Default()
	cfg.Assist.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error when assist has no key or base url")
	}
}
