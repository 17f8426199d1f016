package models

import (
	"gorm.io/gorm"
)

// User is created on first Discord login; everything else in the service
// hangs off its ID.
type User struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex" json:"discord_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}
