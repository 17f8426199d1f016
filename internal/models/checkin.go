package models

import (
	"time"

	"gorm.io/gorm"
)

type CheckInFields struct {
	WeightKg  *float64 `json:"weight_kg,omitempty"`
	Adherence *int     `json:"adherence,omitempty"`
	Notes     string   `json:"notes"`
}

// CheckIn is the user's daily record. There is at most one row per user and
// calendar day; resubmitting the same day updates it in place.
type CheckIn struct {
	gorm.Model
	UserID        uint      `json:"user_id" gorm:"uniqueIndex:idx_user_day;not null"`
	Day           time.Time `json:"day" gorm:"uniqueIndex:idx_user_day;not null"`
	User          User      `json:"-" gorm:"foreignKey:UserID"`
	CheckInFields `gorm:"embedded"`
	PhotoKey      string `json:"photo_key,omitempty"`
}
