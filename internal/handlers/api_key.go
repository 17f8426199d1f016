package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/coachlab/coach-api/internal/auth"
	"github.com/coachlab/coach-api/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"
)

// APIKeyHandler manages keys for devices and scripts that submit check-ins
// without a browser session.
type APIKeyHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
	now         func() time.Time
}

func NewAPIKeyHandler(db *gorm.DB, authHandler *auth.AuthHandler) *APIKeyHandler {
	return &APIKeyHandler{db: db, authHandler: authHandler, now: time.Now}
}

type CreateAPIKeyInput struct {
	auth.AuthInput
	Body struct {
		Name      string     `json:"name" minLength:"1" maxLength:"64" doc:"Label shown in the key list, e.g. the device name"`
		ExpiresAt *time.Time `json:"expires_at,omitempty" required:"false" doc:"Keys without expiry stay valid until deleted"`
	}
}

type APIKeyResponse struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key" doc:"Full key on creation, masked afterwards"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func toAPIKeyResponse(k models.APIKey, key string) APIKeyResponse {
	return APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		Key:        key,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
		LastUsedAt: k.LastUsedAt,
	}
}

func maskKey(key string) string {
	if len(key) > 4 {
		return "..." + key[len(key)-4:]
	}
	return key
}

type CreateAPIKeyOutput struct {
	Body APIKeyResponse
}

func (h *APIKeyHandler) HandleCreate(ctx context.Context, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}
	if input.Body.ExpiresAt != nil && !input.Body.ExpiresAt.After(h.now()) {
		return nil, huma.Error422UnprocessableEntity("expires_at must be in the future")
	}

	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate key")
	}
	key := hex.EncodeToString(keyBytes)

	apiKey := models.APIKey{
		UserID:    userID,
		Key:       key,
		Name:      input.Body.Name,
		ExpiresAt: input.Body.ExpiresAt,
	}

	if err := h.db.WithContext(ctx).Create(&apiKey).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create API key")
	}

	return &CreateAPIKeyOutput{Body: toAPIKeyResponse(apiKey, key)}, nil
}

type ListAPIKeysInput struct {
	auth.AuthInput
}

type ListAPIKeysOutput struct {
	Body []APIKeyResponse
}

func (h *APIKeyHandler) HandleList(ctx context.Context, input *ListAPIKeysInput) (*ListAPIKeysOutput, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}

	var apiKeys []models.APIKey
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&apiKeys).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list API keys")
	}

	response := make([]APIKeyResponse, 0, len(apiKeys))
	for _, k := range apiKeys {
		response = append(response, toAPIKeyResponse(k, maskKey(k.Key)))
	}

	return &ListAPIKeysOutput{Body: response}, nil
}

type DeleteAPIKeyInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *APIKeyHandler) HandleDelete(ctx context.Context, input *DeleteAPIKeyInput) (*struct{}, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}

	res := h.db.WithContext(ctx).Unscoped().Where("id = ? AND user_id = ?", input.ID, userID).Delete(&models.APIKey{})
	if res.Error != nil {
		return nil, huma.Error500InternalServerError("Failed to delete API key")
	}
	if res.RowsAffected == 0 {
		return nil, huma.Error404NotFound("API key not found")
	}

	return nil, nil
}
