package models

import "time"

// Credential stores the API token. There is a single row keyed by Name.
type Credential struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Secret    string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
