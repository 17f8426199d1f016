package models

import "time"

// Streak holds one row per user. LastCountedDay is a calendar date stored as
// midnight UTC; nil means the user has never checked in.
type Streak struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentDays    int        `gorm:"not null;default:0" json:"current_days"`
	LastCountedDay *time.Time `json:"last_counted_day"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
