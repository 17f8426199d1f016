package handlers

import (
	"context"
	"time"

	"github.com/coachlab/coach-api/internal/auth"
	"github.com/coachlab/coach-api/internal/gamification"
	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"
)

type AchievementHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewAchievementHandler(db *gorm.DB, authHandler *auth.AuthHandler) *AchievementHandler {
	return &AchievementHandler{db: db, authHandler: authHandler}
}

type AchievementView struct {
	gamification.Definition
	UnlockedAt *time.Time `json:"unlocked_at,omitempty" doc:"Set when the caller has unlocked it"`
}

type AchievementCatalogRequest struct {
	auth.AuthInput
}

type AchievementCatalogResponse struct {
	Body []AchievementView
}

// HandleCatalog lists every achievement. Anonymous callers get the bare
// catalog; signed-in callers also see their unlock times.
func (h *AchievementHandler) HandleCatalog(ctx context.Context, input *AchievementCatalogRequest) (*AchievementCatalogResponse, error) {
	unlockedAt := map[gamification.AchievementCode]time.Time{}
	if input.Cookie != "" || input.APIKey != "" {
		userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
		if err != nil {
			return nil, err
		}
		unlocks, err := gamification.NewRegistry(h.db).List(ctx, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to load achievements")
		}
		for _, u := range unlocks {
			unlockedAt[gamification.AchievementCode(u.AchievementCode)] = u.UnlockedAt
		}
	}

	response := make([]AchievementView, 0, len(gamification.Achievements))
	for _, code := range gamification.Achievements {
		def, _ := code.Definition()
		view := AchievementView{Definition: def}
		if at, ok := unlockedAt[code]; ok {
			view.UnlockedAt = &at
		}
		response = append(response, view)
	}
	return &AchievementCatalogResponse{Body: response}, nil
}
