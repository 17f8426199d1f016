package handlers

import (
	"net/http"
	"testing"

	"github.com/coachlab/coach-api/internal/gamification"
)

func TestHandleCatalog(t *testing.T) {
	env := newTestEnv(t, gamification.Options{})

	t.Run("Anonymous", func(t *testing.T) {
		resp := env.api.Get("/achievements")
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
		views := decode[[]AchievementView](t, resp.Body.Bytes())
		if len(views) != len(gamification.Achievements) {
			t.Fatalf("expected %d achievements, got %d", len(gamification.Achievements), len(views))
		}
		for i, v := range views {
			if v.Code != gamification.Achievements[i] {
				t.Errorf("expected %s at %d, got %s", gamification.Achievements[i], i, v.Code)
			}
			if v.UnlockedAt != nil {
				t.Errorf("expected no unlock time for anonymous caller on %s", v.Code)
			}
		}
	})

	t.Run("SignedIn", func(t *testing.T) {
		if resp := env.api.Post("/checkins", env.cookie, map[string]any{}); resp.Code != http.StatusOK {
			t.Fatalf("check-in failed: %d", resp.Code)
		}

		resp := env.api.Get("/achievements", env.cookie)
		views := decode[[]AchievementView](t, resp.Body.Bytes())
		for _, v := range views {
			unlocked := v.UnlockedAt != nil
			if want := v.Code == gamification.AchievementFirstCheckin; unlocked != want {
				t.Errorf("%s: expected unlocked=%v, got %v", v.Code, want, unlocked)
			}
		}
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		resp := env.api.Get("/achievements", "Cookie: auth_token=garbage")
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.Code)
		}
	})
}
