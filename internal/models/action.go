package models

import (
	"time"
)

// ActionRecord is one backend side-effecting call made from the console.
type ActionRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Action     string    `gorm:"size:64;index" json:"action"` // "backup", "save", "load_model", ...
	Target     string    `gorm:"size:512" json:"target,omitempty"`
	OK         bool      `json:"ok"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
