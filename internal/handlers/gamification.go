package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/coachlab/coach-api/internal/auth"
	"github.com/coachlab/coach-api/internal/gamification"
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

type GamificationHandler struct {
	query       *gamification.Query
	authHandler *auth.AuthHandler
	logger      *zap.Logger
}

func NewGamificationHandler(query *gamification.Query, authHandler *auth.AuthHandler, logger *zap.Logger) *GamificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GamificationHandler{query: query, authHandler: authHandler, logger: logger}
}

type SummaryRequest struct {
	auth.AuthInput
}

type SummaryResponse struct {
	Body *gamification.Summary
}

func (h *GamificationHandler) HandleSummary(ctx context.Context, input *SummaryRequest) (*SummaryResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}

	summary, err := h.query.Summary(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load gamification summary", zap.Uint("user_id", userID), zap.Error(err))
		return nil, huma.Error500InternalServerError("Failed to load summary")
	}
	return &SummaryResponse{Body: summary}, nil
}

type PointsRequest struct {
	auth.AuthInput
	Take   int    `query:"take" minimum:"1" maximum:"100" default:"20" doc:"Page size"`
	Cursor string `query:"cursor" doc:"Opaque cursor from the previous page"`
}

type PointsEntry struct {
	ID        uint           `json:"id"`
	Delta     int            `json:"delta"`
	Reason    string         `json:"reason"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type PointsResponse struct {
	Body struct {
		Items      []PointsEntry `json:"items"`
		NextCursor string        `json:"next_cursor,omitempty"`
	}
}

func (h *GamificationHandler) HandlePoints(ctx context.Context, input *PointsRequest) (*PointsResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}

	page, err := h.query.ListPoints(ctx, userID, gamification.PageRequest{Take: input.Take, Cursor: input.Cursor})
	if errors.Is(err, gamification.ErrInvalidInput) {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if err != nil {
		h.logger.Error("Failed to list points", zap.Uint("user_id", userID), zap.Error(err))
		return nil, huma.Error500InternalServerError("Failed to list points")
	}

	res := &PointsResponse{}
	res.Body.Items = make([]PointsEntry, 0, len(page.Items))
	for _, e := range page.Items {
		res.Body.Items = append(res.Body.Items, PointsEntry{
			ID:        e.ID,
			Delta:     e.Delta,
			Reason:    e.Reason,
			Meta:      e.Meta,
			CreatedAt: e.CreatedAt,
		})
	}
	res.Body.NextCursor = page.NextCursor
	return res, nil
}
