package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/coachlab/coach-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPruneExpiredAPIKeys(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	db.AutoMigrate(&models.User{}, &models.APIKey{})

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	db.Create(&models.APIKey{UserID: 1, Key: "expired", ExpiresAt: &past})
	db.Create(&models.APIKey{UserID: 1, Key: "live", ExpiresAt: &future})
	db.Create(&models.APIKey{UserID: 1, Key: "forever"})

	n, err := PruneExpiredAPIKeys(context.Background(), db, now)
	if err != nil {
		t.Fatalf("PruneExpiredAPIKeys returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned key, got %d", n)
	}

	var keys []models.APIKey
	db.Order("key").Find(&keys)
	if len(keys) != 2 || keys[0].Key != "forever" || keys[1].Key != "live" {
		t.Errorf("unexpected remaining keys %+v", keys)
	}
}

func TestStart(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sched, err := Start(db, time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer sched.Shutdown()

	if len(sched.Jobs()) != 1 {
		t.Errorf("expected one job, got %d", len(sched.Jobs()))
	}
}
