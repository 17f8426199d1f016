package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coachlab/coach-api/internal/config"
	"github.com/coachlab/coach-api/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestHandler(t *testing.T) (*AuthHandler, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.APIKey{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{JWTSecret: "test-secret"}
	return NewAuthHandler(cfg, db, nil), db
}

func statusOf(err error) int {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se.GetStatus()
	}
	return 0
}

func TestHandleMe(t *testing.T) {
	handler, db := newTestHandler(t)

	user := models.User{
		DiscordID: "123456",
		Username:  "testuser",
		Email:     "test@example.com",
		Avatar:    "avatar_url",
	}
	db.Create(&user)

	t.Run("Authenticated", func(t *testing.T) {
		token, _ := handler.GenerateToken(user.ID)
		input := &AuthInput{
			Cookie: "theme=dark; auth_token=" + token,
		}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}

		if resp.Body.Username != user.Username {
			t.Errorf("expected username %s, got %s", user.Username, resp.Body.Username)
		}
		if resp.Body.Email != user.Email {
			t.Errorf("expected email %s, got %s", user.Email, resp.Body.Email)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		input := &AuthInput{}
		_, err := handler.HandleMe(context.Background(), input)
		if err == nil {
			t.Fatal("expected error for unauthenticated request, got nil")
		}
		if statusOf(err) != 401 {
			t.Errorf("expected 401, got %d", statusOf(err))
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewAuthHandler(&config.Config{JWTSecret: "other-secret"}, db, nil)
		token, _ := other.GenerateToken(user.ID)
		_, err := handler.HandleMe(context.Background(), &AuthInput{Cookie: "auth_token=" + token})
		if statusOf(err) != 401 {
			t.Errorf("expected 401 for foreign token, got %v", err)
		}
	})
}

func TestAuthorizeAPIKey(t *testing.T) {
	handler, db := newTestHandler(t)

	user := models.User{DiscordID: "42", Username: "scale"}
	db.Create(&user)

	past := time.Now().Add(-time.Hour)
	db.Create(&models.APIKey{UserID: user.ID, Key: "valid-key", Name: "scale"})
	db.Create(&models.APIKey{UserID: user.ID, Key: "expired-key", Name: "old", ExpiresAt: &past})

	t.Run("Valid", func(t *testing.T) {
		userID, err := handler.Authorize(context.Background(), "", "valid-key")
		if err != nil {
			t.Fatalf("Authorize returned error: %v", err)
		}
		if userID != user.ID {
			t.Errorf("expected user %d, got %d", user.ID, userID)
		}

		var key models.APIKey
		db.Where(&models.APIKey{Key: "valid-key"}).First(&key)
		if key.LastUsedAt == nil {
			t.Error("expected last_used_at to be recorded")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		_, err := handler.Authorize(context.Background(), "", "expired-key")
		if statusOf(err) != 401 {
			t.Errorf("expected 401 for expired key, got %v", err)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := handler.Authorize(context.Background(), "", "nope")
		if statusOf(err) != 401 {
			t.Errorf("expected 401 for unknown key, got %v", err)
		}
	})
}

func TestAuthorizeAPIKey_LastUsedFailure(t *testing.T) {
	handler, db := newTestHandler(t)
	core, logs := observer.New(zap.WarnLevel)
	handler.logger = zap.New(core)

	user := models.User{DiscordID: "43", Username: "watch"}
	db.Create(&user)
	db.Create(&models.APIKey{UserID: user.ID, Key: "watch-key", Name: "watch"})

	db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		tx.AddError(errors.New("database is read-only"))
	})

	userID, err := handler.Authorize(context.Background(), "", "watch-key")
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if userID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, userID)
	}

	entries := logs.FilterMessage("Failed to record API key use").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if entries[0].ContextMap()["error"] != "database is read-only" {
		t.Errorf("expected the update error to be logged, got %v", entries[0].ContextMap())
	}
}
