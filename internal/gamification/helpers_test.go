package gamification

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coachlab/coach-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. The single connection keeps
// the memory database alive and serializes concurrent transactions the way a
// row lock would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Streak{}, &models.PointsLedgerEntry{}, &models.AchievementUnlock{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func mustDate(t *testing.T, cal Calendar, s string) time.Time {
	t.Helper()
	d, err := cal.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func ledgerSum(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var entries []models.PointsLedgerEntry
	if err := db.Where("user_id = ?", userID).Find(&entries).Error; err != nil {
		t.Fatalf("failed to load ledger: %v", err)
	}
	var sum int64
	for _, e := range entries {
		sum += int64(e.Delta)
	}
	return sum
}
