package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coachlab/coach-api/internal/auth"
	"github.com/coachlab/coach-api/internal/gamification"
	"github.com/coachlab/coach-api/internal/guard"
	"github.com/coachlab/coach-api/internal/models"
	"github.com/coachlab/coach-api/internal/notifier"
	"github.com/coachlab/coach-api/internal/storage"
	"github.com/danielgtaylor/huma/v2"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	submissionTTL    = 30 * time.Second
	defaultListLimit = 30
	maxPhotoBytes    = 8 << 20
)

type CheckInHandler struct {
	db          *gorm.DB
	engine      *gamification.Engine
	authHandler *auth.AuthHandler
	guard       guard.Guard
	photos      storage.PhotoStore
	notifier    notifier.Notifier
	policy      *bluemonday.Policy
	logger      *zap.Logger
	now         func() time.Time
}

// NewCheckInHandler wires the check-in workflow. photos and notifier may be
// nil: uploads then answer 503 and unlocks are not announced.
func NewCheckInHandler(db *gorm.DB, engine *gamification.Engine, authHandler *auth.AuthHandler, g guard.Guard, photos storage.PhotoStore, n notifier.Notifier, logger *zap.Logger) *CheckInHandler {
	if g == nil {
		g = guard.NewMemoryGuard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInHandler{
		db:          db,
		engine:      engine,
		authHandler: authHandler,
		guard:       g,
		photos:      photos,
		notifier:    n,
		policy:      bluemonday.StrictPolicy(),
		logger:      logger,
		now:         time.Now,
	}
}

type CheckInView struct {
	ID        uint     `json:"id"`
	Day       string   `json:"day" doc:"Calendar day of the check-in"`
	WeightKg  *float64 `json:"weight_kg,omitempty"`
	Adherence *int     `json:"adherence,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	PhotoURL  string   `json:"photo_url,omitempty"`
}

func (h *CheckInHandler) view(c models.CheckIn) CheckInView {
	v := CheckInView{
		ID:        c.ID,
		Day:       gamification.FormatDay(c.Day),
		WeightKg:  c.WeightKg,
		Adherence: c.Adherence,
		Notes:     c.Notes,
	}
	if c.PhotoKey != "" && h.photos != nil {
		v.PhotoURL = h.photos.URL(c.PhotoKey)
	}
	return v
}

type CheckInRequest struct {
	auth.AuthInput
	Body struct {
		Date      string   `json:"date,omitempty" required:"false" pattern:"^[0-9]{4}-[0-9]{2}-[0-9]{2}$" doc:"Calendar day (YYYY-MM-DD), defaults to today"`
		WeightKg  *float64 `json:"weight_kg,omitempty" required:"false" minimum:"20" maximum:"400" doc:"Body weight in kilograms"`
		Adherence *int     `json:"adherence,omitempty" required:"false" minimum:"0" maximum:"10" doc:"Self-rated plan adherence"`
		Notes     string   `json:"notes,omitempty" required:"false" maxLength:"2000" doc:"Free text for the coach"`
	}
}

type CheckInResponse struct {
	Body struct {
		CheckIn      CheckInView         `json:"checkin"`
		Gamification gamification.Result `json:"gamification"`
	}
}

func (h *CheckInHandler) HandleCheckIn(ctx context.Context, input *CheckInRequest) (*CheckInResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}

	cal := h.engine.Calendar()
	today := cal.Day(h.now())
	at := h.now()
	if input.Body.Date != "" {
		at, err = cal.ParseDate(input.Body.Date)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
	}
	day := cal.Day(at)
	if day.After(today) {
		return nil, huma.Error422UnprocessableEntity("Check-in date cannot be in the future")
	}

	release, err := h.guard.Acquire(ctx, fmt.Sprintf("checkin:%d:%s", userID, gamification.FormatDay(day)), submissionTTL)
	switch {
	case errors.Is(err, guard.ErrBusy):
		return nil, huma.Error409Conflict("A check-in for this day is already being processed")
	case err != nil:
		// Fail open, the (user, day) unique index still holds.
		h.logger.Warn("Submission guard unavailable", zap.Uint("user_id", userID), zap.Error(err))
	default:
		defer release()
	}

	ev := gamification.Event{UserID: userID, Date: at}
	checkIn := models.CheckIn{}
	var result *gamification.Result
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.FirstOrInit(&checkIn, models.CheckIn{UserID: userID, Day: day}).Error; err != nil {
			return err
		}
		created := checkIn.ID == 0
		checkIn.CheckInFields = models.CheckInFields{
			WeightKg:  input.Body.WeightKg,
			Adherence: input.Body.Adherence,
			Notes:     strings.TrimSpace(h.policy.Sanitize(input.Body.Notes)),
		}
		if err := tx.Save(&checkIn).Error; err != nil {
			return err
		}
		if !created {
			// Editing a day that was already confirmed changes no rewards.
			var err error
			result, err = currentResult(ctx, tx, userID)
			return err
		}
		var err error
		result, err = h.engine.OnDailyCheckinTx(ctx, tx, ev)
		return err
	})
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, huma.Error409Conflict("A check-in for this day is already being processed")
	case errors.Is(err, gamification.ErrBackdated):
		return nil, huma.Error409Conflict("Days before the last counted day cannot be checked in")
	case errors.Is(err, gamification.ErrInvalidInput):
		return nil, huma.Error400BadRequest(err.Error())
	case err != nil:
		h.logger.Error("Failed to record check-in", zap.Uint("user_id", userID), zap.Error(err))
		return nil, huma.Error503ServiceUnavailable("Check-in could not be recorded. Please retry.")
	}
	h.engine.LogResult(ev, result)

	if len(result.Unlocked) > 0 {
		h.announce(ctx, userID, *result)
	}

	res := &CheckInResponse{}
	res.Body.CheckIn = h.view(checkIn)
	res.Body.Gamification = *result
	return res, nil
}

// currentResult reports the stored streak without awarding anything.
func currentResult(ctx context.Context, tx *gorm.DB, userID uint) (*gamification.Result, error) {
	streak, err := gamification.NewStreaks(tx).Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &gamification.Result{Unlocked: []gamification.AchievementCode{}}
	if streak != nil {
		res.StreakDays = streak.CurrentDays
	}
	return res, nil
}

func (h *CheckInHandler) announce(ctx context.Context, userID uint, result gamification.Result) {
	if h.notifier == nil {
		return
	}
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		h.logger.Warn("Failed to load user for notification", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	if err := h.notifier.NotifyAchievements(user, result); err != nil {
		h.logger.Warn("Failed to send notification", zap.Uint("user_id", userID), zap.Error(err))
	}
}

type ListCheckInsRequest struct {
	auth.AuthInput
	Limit int `query:"limit" minimum:"1" maximum:"366" default:"30" doc:"Number of most recent check-ins"`
}

type ListCheckInsResponse struct {
	Body []CheckInView
}

func (h *CheckInHandler) HandleList(ctx context.Context, input *ListCheckInsRequest) (*ListCheckInsResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var checkIns []models.CheckIn
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day DESC").
		Limit(limit).
		Find(&checkIns).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list check-ins")
	}

	response := make([]CheckInView, 0, len(checkIns))
	for _, c := range checkIns {
		response = append(response, h.view(c))
	}
	return &ListCheckInsResponse{Body: response}, nil
}

type UploadPhotoRequest struct {
	auth.AuthInput
	ID          uint   `path:"id"`
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

type CheckInViewResponse struct {
	Body CheckInView
}

func (h *CheckInHandler) HandleUploadPhoto(ctx context.Context, input *UploadPhotoRequest) (*CheckInViewResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}
	if h.photos == nil {
		return nil, huma.Error503ServiceUnavailable("Photo storage is not configured")
	}
	ext, ok := storage.ExtensionFor(input.ContentType)
	if !ok {
		return nil, huma.NewError(http.StatusUnsupportedMediaType, "Photos must be JPEG, PNG, WebP or HEIC")
	}
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("Photo is empty")
	}

	var checkIn models.CheckIn
	if err := h.db.WithContext(ctx).Where("id = ? AND user_id = ?", input.ID, userID).First(&checkIn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Check-in not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load check-in")
	}

	key := storage.PhotoKey(userID, checkIn.Day, ext)
	if err := h.photos.Put(ctx, key, input.ContentType, input.RawBody); err != nil {
		h.logger.Error("Failed to upload photo", zap.Uint("checkin_id", checkIn.ID), zap.Error(err))
		return nil, huma.Error502BadGateway("Failed to store photo")
	}
	previous := checkIn.PhotoKey
	if err := h.db.WithContext(ctx).Model(&checkIn).Update("photo_key", key).Error; err != nil {
		if delErr := h.photos.Delete(ctx, key); delErr != nil {
			h.logger.Warn("Failed to delete unrecorded photo", zap.String("key", key), zap.Error(delErr))
		}
		return nil, huma.Error500InternalServerError("Failed to record photo")
	}
	checkIn.PhotoKey = key
	if previous != "" && previous != key {
		if err := h.photos.Delete(ctx, previous); err != nil {
			h.logger.Warn("Failed to delete replaced photo", zap.String("key", previous), zap.Error(err))
		}
	}

	return &CheckInViewResponse{Body: h.view(checkIn)}, nil
}
