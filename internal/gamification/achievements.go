package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coachlab/coach-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AchievementCode is the closed set of milestones a user can unlock.
type AchievementCode string

const (
	AchievementFirstCheckin AchievementCode = "first_checkin"
	AchievementStreak7      AchievementCode = "streak_7"
	AchievementStreak30     AchievementCode = "streak_30"
)

// Achievements lists every code in evaluation order.
var Achievements = []AchievementCode{
	AchievementFirstCheckin,
	AchievementStreak7,
	AchievementStreak30,
}

type Definition struct {
	Code        AchievementCode `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Points      int             `json:"points"`
	Reason      Reason          `json:"-"`
	// StreakDays is the streak length that unlocks the achievement, 0 when
	// it is not streak based.
	StreakDays int `json:"streak_days,omitempty"`
}

func (c AchievementCode) Definition() (Definition, bool) {
	switch c {
	case AchievementFirstCheckin:
		return Definition{
			Code:        c,
			Name:        "First Step",
			Description: "Logged your first daily check-in",
			Points:      50,
			Reason:      ReasonFirstCheckin,
		}, true
	case AchievementStreak7:
		return Definition{
			Code:        c,
			Name:        "One Week Strong",
			Description: "Checked in 7 days in a row",
			Points:      70,
			Reason:      ReasonStreak7,
			StreakDays:  7,
		}, true
	case AchievementStreak30:
		return Definition{
			Code:        c,
			Name:        "Habit Formed",
			Description: "Checked in 30 days in a row",
			Points:      150,
			Reason:      ReasonStreak30,
			StreakDays:  30,
		}, true
	}
	return Definition{}, false
}

func (c AchievementCode) Valid() bool {
	_, ok := c.Definition()
	return ok
}

// Registry is the per-user set of unlocked achievements. Unlocks are never
// revoked.
type Registry struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db, now: time.Now}
}

func (r *Registry) HasUnlocked(ctx context.Context, userID uint, code AchievementCode) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AchievementUnlock{}).
		Where("user_id = ? AND achievement_code = ?", userID, string(code)).
		Count(&count).Error
	return count > 0, err
}

// Unlock inserts the (user, code) pair. A pair that already exists is
// reported through alreadyUnlocked and is not an error.
func (r *Registry) Unlock(ctx context.Context, userID uint, code AchievementCode) (alreadyUnlocked bool, err error) {
	if userID == 0 {
		return false, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !code.Valid() {
		return false, fmt.Errorf("%w: unknown achievement %q", ErrInvalidInput, code)
	}

	unlock := models.AchievementUnlock{
		UserID:          userID,
		AchievementCode: string(code),
		UnlockedAt:      r.now().UTC(),
	}

	var inserted int64
	// Savepoint: a duplicate-key error must not abort the caller's
	// transaction.
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_code"}},
			DoNothing: true,
		}).Create(&unlock)
		inserted = res.RowsAffected
		return res.Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return inserted == 0, nil
}

// List returns the user's unlocks oldest first.
func (r *Registry) List(ctx context.Context, userID uint) ([]models.AchievementUnlock, error) {
	var unlocks []models.AchievementUnlock
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC, id ASC").
		Find(&unlocks).Error
	return unlocks, err
}
