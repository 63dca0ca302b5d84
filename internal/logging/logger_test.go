package logging

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/config"
)

func TestNewAppliesLevelAndFormat(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{Level: "debug", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closer.Close()

	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", logger.Formatter)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestNewRejectsBadFormat(t *testing.T) {
	if _, _, err := New(config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, closer, err := New(config.LoggingConfig{Level: "info", Output: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	Component(logger, "test").Info("hello")
	if err := closer.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
