package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coachlab/coach-api/internal/auth"
	"github.com/coachlab/coach-api/internal/config"
	"github.com/coachlab/coach-api/internal/database"
	"github.com/coachlab/coach-api/internal/gamification"
	"github.com/coachlab/coach-api/internal/guard"
	"github.com/coachlab/coach-api/internal/models"
	"github.com/danielgtaylor/huma/v2/humatest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakePhotoStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *fakePhotoStore) Put(_ context.Context, key, _ string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	return nil
}

func (s *fakePhotoStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakePhotoStore) URL(key string) string {
	return "https://photos.test/" + key
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []gamification.Result
}

func (n *fakeNotifier) NotifyAchievements(_ models.User, res gamification.Result) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, res)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	api      humatest.TestAPI
	auth     *auth.AuthHandler
	checkIns *CheckInHandler
	guard    *guard.MemoryGuard
	photos   *fakePhotoStore
	notifier *fakeNotifier
	user     models.User
	cookie   string
}

// now is 12:00 on 2026-03-10 in the default calendar zone.
var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T, opts gamification.Options) *testEnv {
	t.Helper()
	db := newTestDB(t)

	user := models.User{DiscordID: "111", Username: "athlete"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	authHandler := auth.NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db, nil)
	token, err := authHandler.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	env := &testEnv{
		db:       db,
		auth:     authHandler,
		guard:    guard.NewMemoryGuard(),
		photos:   &fakePhotoStore{objects: map[string][]byte{}},
		notifier: &fakeNotifier{},
		user:     user,
		cookie:   "Cookie: auth_token=" + token,
	}

	engine := gamification.NewEngine(db, gamification.NewCalendar(gamification.DefaultDayOffset), nil, opts)
	env.checkIns = NewCheckInHandler(db, engine, authHandler, env.guard, env.photos, env.notifier, nil)
	env.checkIns.now = func() time.Time { return testNow }

	_, api := humatest.New(t)
	RegisterAPI(api, Handlers{
		Auth:         authHandler,
		CheckIns:     env.checkIns,
		Gamification: NewGamificationHandler(gamification.NewQuery(db), authHandler, nil),
		Achievements: NewAchievementHandler(db, authHandler),
		APIKeys:      NewAPIKeyHandler(db, authHandler),
	})
	env.api = api
	return env
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("failed to decode %s: %v", body, err)
	}
	return out
}

type checkInBody struct {
	CheckIn      CheckInView         `json:"checkin"`
	Gamification gamification.Result `json:"gamification"`
}
