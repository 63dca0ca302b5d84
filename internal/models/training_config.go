package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Well-known TrainingConfig keys read or written by the console.
const (
	KeyBackupAfter          = "backup_after"
	KeyBackupAfterUnit      = "backup_after_unit"
	KeyRollingBackup        = "rolling_backup"
	KeyRollingBackupCount   = "rolling_backup_count"
	KeyBackupBeforeSave     = "backup_before_save"
	KeySaveEvery            = "save_every"
	KeySaveEveryUnit        = "save_every_unit"
	KeyResolution           = "resolution"
	KeyBatchSize            = "batch_size"
	KeyGradientAccumulation = "gradient_accumulation_steps"
	KeyDataloaderThreads    = "dataloader_threads"
	KeyLatentCaching        = "latent_caching"
	KeyEmbeddings           = "embeddings"
	KeyBaseModelName        = "base_model_name"
	KeyModelType            = "model_type"
	KeyTrainingMethod       = "training_method"
	KeyOutputDestination    = "output_model_destination"
)

// TrainingConfig is the shared mapping of trainer-tunable settings.
// Values are treated as immutable once stored; writers always replace a key
// with a fresh value instead of mutating it in place.
type TrainingConfig map[string]interface{}

// Clone returns a shallow copy of the mapping.
func (c TrainingConfig) Clone() TrainingConfig {
	out := make(TrainingConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Has reports whether key is present and non-nil.
func (c TrainingConfig) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// Int reads key as an integer, returning def when absent or not integral.
func (c TrainingConfig) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return def
		}
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Float reads key as a float, returning def when absent or not numeric.
func (c TrainingConfig) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return def
}

// Bool reads key as a boolean, returning def when absent or not boolean.
func (c TrainingConfig) Bool(key string, def bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// String reads key as a string, returning def when absent.
// Numbers are formatted rather than rejected, so "resolution": 512 reads as "512".
func (c TrainingConfig) String(key string, def string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return def
}

// Decode copies the value stored at key into dst through a JSON round trip,
// which works whether the value is a typed Go value or a generic decoded one.
// It reports false when the key is absent.
func (c TrainingConfig) Decode(key string, dst interface{}) (bool, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return true, err
	}
	return true, json.Unmarshal(data, dst)
}
