package gamification

import (
	"context"
	"errors"
	"time"

	"github.com/coachlab/coach-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreakState is the part of a streak row the counting rule looks at.
type StreakState struct {
	CurrentDays    int
	LastCountedDay time.Time
}

type Next struct {
	NewDays         int
	IsNewDayForUser bool
}

// ComputeNext applies the forward-only streak rule. day must be a value
// returned by Calendar.Day. A day before the last counted one resets the
// streak instead of being inserted into history.
func ComputeNext(existing *StreakState, day time.Time) Next {
	if existing == nil {
		return Next{NewDays: 1, IsNewDayForUser: true}
	}
	day = dateOf(day)
	last := dateOf(existing.LastCountedDay)
	switch {
	case day.Equal(last):
		return Next{NewDays: existing.CurrentDays, IsNewDayForUser: false}
	case day.Equal(last.AddDate(0, 0, 1)):
		return Next{NewDays: existing.CurrentDays + 1, IsNewDayForUser: true}
	default:
		return Next{NewDays: 1, IsNewDayForUser: true}
	}
}

// Streaks reads and writes streak rows. Bind it to a transaction with
// NewStreaks(tx) when the read has to hold a lock.
type Streaks struct {
	db *gorm.DB
}

func NewStreaks(db *gorm.DB) *Streaks {
	return &Streaks{db: db}
}

// Get returns nil when the user has no streak row yet.
func (s *Streaks) Get(ctx context.Context, userID uint) (*models.Streak, error) {
	var streak models.Streak
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// lockForUpdate makes sure the row exists and locks it until the enclosing
// transaction ends. Creating the row first means two first-ever check-ins
// contend on the same lock instead of both seeing "no row".
func (s *Streaks) lockForUpdate(ctx context.Context, userID uint) (*models.Streak, error) {
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&models.Streak{UserID: userID}).Error; err != nil {
		return nil, err
	}

	var streak models.Streak
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&streak).Error; err != nil {
		return nil, err
	}
	return &streak, nil
}

func (s *Streaks) save(ctx context.Context, streak *models.Streak) error {
	return s.db.WithContext(ctx).Model(streak).Updates(map[string]any{
		"current_days":     streak.CurrentDays,
		"last_counted_day": streak.LastCountedDay,
	}).Error
}

func stateOf(row *models.Streak) *StreakState {
	if row == nil || row.LastCountedDay == nil {
		return nil
	}
	return &StreakState{CurrentDays: row.CurrentDays, LastCountedDay: dateOf(*row.LastCountedDay)}
}
