package models

import (
	"time"

	"gorm.io/datatypes"
)

// PointsLedgerEntry is an immutable point delta. The primary key grows
// monotonically and is used as the pagination cursor.
type PointsLedgerEntry struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"index:idx_ledger_user;not null" json:"user_id"`
	Delta     int               `gorm:"not null" json:"delta"`
	Reason    string            `gorm:"size:32;not null" json:"reason"`
	Meta      datatypes.JSONMap `json:"meta,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (PointsLedgerEntry) TableName() string {
	return "points_ledger"
}
