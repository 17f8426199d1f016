package gamification

import (
	"context"
	"errors"
	"testing"

	"github.com/coachlab/coach-api/internal/models"
	"gorm.io/gorm"
)

func TestDefinitions(t *testing.T) {
	want := map[AchievementCode]struct {
		points int
		reason Reason
		days   int
	}{
		AchievementFirstCheckin: {50, ReasonFirstCheckin, 0},
		AchievementStreak7:      {70, ReasonStreak7, 7},
		AchievementStreak30:     {150, ReasonStreak30, 30},
	}

	if len(Achievements) != len(want) {
		t.Fatalf("expected %d achievements, got %d", len(want), len(Achievements))
	}
	for _, code := range Achievements {
		def, ok := code.Definition()
		if !ok {
			t.Fatalf("missing definition for %s", code)
		}
		w := want[code]
		if def.Points != w.points || def.Reason != w.reason || def.StreakDays != w.days {
			t.Errorf("%s: unexpected definition %+v", code, def)
		}
		if def.Name == "" || def.Description == "" {
			t.Errorf("%s: expected name and description", code)
		}
	}

	if AchievementCode("streak_100").Valid() {
		t.Error("expected unknown code to be invalid")
	}
}

func TestRegistryUnlock(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	ctx := context.Background()

	already, err := registry.Unlock(ctx, 1, AchievementStreak7)
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if already {
		t.Error("expected first unlock to be new")
	}

	already, err = registry.Unlock(ctx, 1, AchievementStreak7)
	if err != nil {
		t.Fatalf("second Unlock failed: %v", err)
	}
	if !already {
		t.Error("expected second unlock to report already unlocked")
	}

	var count int64
	db.Model(&models.AchievementUnlock{}).Where("user_id = ?", 1).Count(&count)
	if count != 1 {
		t.Errorf("expected one unlock row, got %d", count)
	}

	has, err := registry.HasUnlocked(ctx, 1, AchievementStreak7)
	if err != nil || !has {
		t.Errorf("expected HasUnlocked true, got %v (err %v)", has, err)
	}
	has, err = registry.HasUnlocked(ctx, 2, AchievementStreak7)
	if err != nil || has {
		t.Errorf("expected HasUnlocked false for other user, got %v (err %v)", has, err)
	}
}

func TestRegistryUnlockInsideTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := NewRegistry(db).Unlock(ctx, 1, AchievementFirstCheckin); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	// A duplicate inside an outer transaction must leave it usable.
	err := db.Transaction(func(tx *gorm.DB) error {
		already, err := NewRegistry(tx).Unlock(ctx, 1, AchievementFirstCheckin)
		if err != nil {
			return err
		}
		if !already {
			t.Error("expected duplicate inside transaction to be reported")
		}
		_, err = NewLedger(tx).Append(ctx, 1, 10, ReasonDailyCheckin, nil)
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if got := ledgerSum(t, db, 1); got != 10 {
		t.Errorf("expected ledger write to commit, got sum %d", got)
	}
}

func TestRegistryUnlockInvalid(t *testing.T) {
	registry := NewRegistry(newTestDB(t))
	ctx := context.Background()

	if _, err := registry.Unlock(ctx, 0, AchievementStreak7); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing user, got %v", err)
	}
	if _, err := registry.Unlock(ctx, 1, AchievementCode("nope")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown code, got %v", err)
	}
}
