package storage

import (
	"errors"
	"testing"

	"Trainer-Console/server/internal/interfaces"
)

func TestClampActionLimit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, defaultActionLimit},
		{-3, defaultActionLimit},
		{10, 10},
		{maxActionLimit + 1, maxActionLimit},
	}
	for _, c := range cases {
		if got := clampActionLimit(c.in); got != c.want {
			t.Errorf("clampActionLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRedisKeyPrefix(t *testing.T) {
	s := &RedisStore{prefix: "console"}
	if got := s.key(configSnapshotKey); got != "console:config:snapshot" {
		t.Errorf("Unexpected key %q", got)
	}
	s.prefix = ""
	if got := s.key(configSnapshotKey); got != "config:snapshot" {
		t.Errorf("Unexpected key without prefix %q", got)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	cfg, rev, err := decodeSnapshot(map[string]string{
		fieldData:     `{"batch_size": 4}`,
		fieldRevision: "57",
	})
	if err != nil {
		t.Fatalf("decodeSnapshot failed: %v", err)
	}
	if rev != 57 {
		t.Errorf("Expected revision 57, got %d", rev)
	}
	if cfg.Int("batch_size", 0) != 4 {
		t.Errorf("Expected batch_size 4, got %v", cfg["batch_size"])
	}

	if _, rev, err := decodeSnapshot(map[string]string{fieldData: `{}`}); err != nil || rev != 0 {
		t.Errorf("Expected revision 0 without a stored revision, got %d %v", rev, err)
	}
	if _, _, err := decodeSnapshot(map[string]string{}); !errors.Is(err, interfaces.ErrNoSnapshot) {
		t.Errorf("Expected ErrNoSnapshot, got %v", err)
	}
	if _, _, err := decodeSnapshot(map[string]string{fieldData: "{"}); err == nil {
		t.Error("Expected a parse error")
	}
}
