package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey lets scripts and devices (scales, watch apps) submit check-ins on
// behalf of a user without the session cookie.
type APIKey struct {
	gorm.Model
	UserID     uint       `json:"user_id"`
	User       User       `json:"user"`
	Key        string     `json:"key" gorm:"uniqueIndex"`
	Name       string     `json:"name"`
	ExpiresAt  *time.Time `json:"expires_at" gorm:"index"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
