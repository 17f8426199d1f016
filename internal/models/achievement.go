package models

import (
	"time"
)

// AchievementUnlock records that a user reached a milestone. The composite
// unique index is what makes unlocking idempotent.
type AchievementUnlock struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex:idx_user_achievement;not null" json:"user_id"`
	AchievementCode string    `gorm:"uniqueIndex:idx_user_achievement;size:32;not null" json:"achievement_code"`
	UnlockedAt      time.Time `gorm:"not null" json:"unlocked_at"`
}
