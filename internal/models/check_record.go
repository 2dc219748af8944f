package models

import (
	"time"

	"gorm.io/gorm"
)

// CheckRecord is one completed reminder check cycle.
type CheckRecord struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Timestamp         time.Time      `gorm:"not null;index" json:"timestamp"`
	FrontmostApp      string         `gorm:"not null;default:'-'" json:"frontmost_app"`
	ActiveWorkContext bool           `gorm:"not null;default:false" json:"active_work_context"`
	TimerRunning      bool           `gorm:"not null;default:false" json:"timer_running"`
	Decision          string         `gorm:"not null;default:''" json:"decision"` // empty when the cycle ended before evaluation
	Notified          bool           `gorm:"not null;default:false" json:"notified"`
	ErrorCode         string         `gorm:"not null;default:''" json:"error_code,omitempty"`
	Message           string         `gorm:"not null;default:''" json:"message"`
	CreatedAt         time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// DecisionCount aggregates check records by decision.
type DecisionCount struct {
	Decision string `json:"decision"`
	Count    int64  `json:"count"`
}

// HistoryReport summarises recent check cycles.
type HistoryReport struct {
	Period        string          `json:"period"`
	Since         time.Time       `json:"since"`
	Records       []*CheckRecord  `json:"records"`
	Decisions     []DecisionCount `json:"decisions"`
	Notifications int64           `json:"notifications"`
	Errors        int64           `json:"errors"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
