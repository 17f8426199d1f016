package gamification

import (
	"context"
	"fmt"

	"github.com/coachlab/coach-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reason tags a ledger entry.
type Reason string

const (
	ReasonDailyCheckin Reason = "daily_checkin"
	ReasonFirstCheckin Reason = "first_checkin"
	ReasonStreak7      Reason = "streak_7"
	ReasonStreak30     Reason = "streak_30"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonDailyCheckin, ReasonFirstCheckin, ReasonStreak7, ReasonStreak30:
		return true
	}
	return false
}

// Ledger is the append-only points log. Entries are never updated or
// deleted; totals are summed from them.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Append(ctx context.Context, userID uint, delta int, reason Reason, meta map[string]any) (*models.PointsLedgerEntry, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: unknown reason %q", ErrInvalidInput, reason)
	}

	entry := models.PointsLedgerEntry{
		UserID: userID,
		Delta:  delta,
		Reason: string(reason),
	}
	if len(meta) > 0 {
		entry.Meta = datatypes.JSONMap(meta)
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// TotalPoints sums every delta of the user. Call it on the same transaction
// as the other reads it must agree with.
func (l *Ledger) TotalPoints(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := l.db.WithContext(ctx).
		Model(&models.PointsLedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(delta), 0)").
		Row().
		Scan(&total)
	return total, err
}

// Before returns up to limit entries newest first, starting strictly below
// beforeID. A zero beforeID starts at the newest entry.
func (l *Ledger) Before(ctx context.Context, userID uint, beforeID uint, limit int) ([]models.PointsLedgerEntry, error) {
	q := l.db.WithContext(ctx).Where("user_id = ?", userID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var entries []models.PointsLedgerEntry
	err := q.Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
