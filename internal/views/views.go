// Package views holds the server-side view-models of the control console.
// Each view reads its slice of the shared TrainingConfig with per-field
// defaults, coerces edits, writes back through the config store and, where
// needed, triggers backend actions.
package views

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/models"
	"Trainer-Console/server/internal/store"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownField      = errors.New("unknown field")
	ErrInvalidTimeUnit   = errors.New("invalid time unit")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidModelEntry = errors.New("invalid model entry")
	ErrLoadInProgress    = errors.New("a model load is already in progress")
	ErrAssistUnavailable = errors.New("prompt assist is not configured")
)

const recordTimeout = 2 * time.Second

// ConfigStore is the part of store.ConfigStore the views depend on.
type ConfigStore interface {
	Read() models.TrainingConfig
	Update(partial map[string]interface{}) store.Snapshot
	Subscribe(buffer int) (<-chan store.Snapshot, func())
}

func newID() string {
	return uuid.New().String()
}

// actionLog writes backend calls to the optional recorder.
type actionLog struct {
	recorder interfaces.ActionRecorder
	log      *logrus.Entry
}

func (a actionLog) record(ctx context.Context, action, target string, start time.Time, err error) {
	if a.recorder == nil {
		return
	}
	rec := &models.ActionRecord{
		Action:     action,
		Target:     target,
		OK:         err == nil,
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if rerr := a.recorder.RecordAction(recCtx, rec); rerr != nil && a.log != nil {
		a.log.WithError(rerr).WithField("action", action).Warn("failed to record action")
	}
}

// parseIntOr coerces a form value to int. Anything unparsable yields def.
func parseIntOr(raw interface{}, def int) int {
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return int(v)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		// Browsers send "12.0" from number inputs; keep the integer part.
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	}
	return def
}

// parseFloatOr coerces a form value to float64. NaN and infinities yield def.
func parseFloatOr(raw interface{}, def float64) float64 {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return def
}

// parseBoolOr coerces a checkbox value to bool.
func parseBoolOr(raw interface{}, def bool) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func parseString(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", fmt.Errorf("%w: expected text, got %T", ErrInvalidValue, raw)
}

func parseTimeUnit(raw interface{}) (models.TimeUnit, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrInvalidTimeUnit, raw)
	}
	u, err := models.ParseTimeUnit(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTimeUnit, err)
	}
	return u, nil
}
