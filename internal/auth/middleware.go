package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coachlab/coach-api/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthInput is embedded in every authenticated huma input.
type AuthInput struct {
	Cookie string `header:"Cookie" doc:"Session cookie set by the Discord login"`
	APIKey string `header:"X-API-KEY" doc:"API key for scripts and devices"`
}

type claims struct {
	userID    uint
	expiresAt time.Time
}

func (h *AuthHandler) parseToken(tokenString string) (*claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userIDFloat, ok := mapClaims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return nil, errors.New("invalid token claims")
	}

	c := &claims{userID: uint(userIDFloat)}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		c.expiresAt = exp.Time
	}
	return c, nil
}

// Authorize resolves the calling user. An API key wins over the cookie.
func (h *AuthHandler) Authorize(ctx context.Context, cookieHeader, apiKey string) (uint, error) {
	if apiKey != "" {
		return h.authorizeAPIKey(ctx, apiKey)
	}

	if cookieHeader == "" {
		return 0, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	cookies, err := http.ParseCookie(cookieHeader)
	if err != nil {
		return 0, huma.Error400BadRequest("Malformed cookie header")
	}
	for _, c := range cookies {
		if c.Name != TokenCookieName {
			continue
		}
		parsed, err := h.parseToken(c.Value)
		if err != nil {
			return 0, huma.Error401Unauthorized("Unauthorized: Invalid token")
		}
		return parsed.userID, nil
	}
	return 0, huma.Error401Unauthorized("Unauthorized: No token found")
}

func (h *AuthHandler) authorizeAPIKey(ctx context.Context, key string) (uint, error) {
	var keyModel models.APIKey
	err := h.db.WithContext(ctx).Where(&models.APIKey{Key: key}).First(&keyModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, huma.Error401Unauthorized("Unauthorized: Invalid API Key")
	}
	if err != nil {
		return 0, huma.Error500InternalServerError("Failed to check API key")
	}
	if keyModel.ExpiresAt != nil && time.Now().After(*keyModel.ExpiresAt) {
		return 0, huma.Error401Unauthorized("Unauthorized: API Key expired")
	}

	if err := h.db.WithContext(ctx).Model(&keyModel).Update("last_used_at", time.Now()).Error; err != nil {
		h.logger.Warn("Failed to record API key use", zap.Uint("api_key_id", keyModel.ID), zap.Error(err))
	}
	return keyModel.UserID, nil
}

// SessionMiddleware slides the session: a valid cookie past half of its
// lifetime is replaced with a fresh one. It never rejects a request;
// Authorize does that per operation.
func (h *AuthHandler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(TokenCookieName); err == nil {
			if parsed, err := h.parseToken(cookie.Value); err == nil && !parsed.expiresAt.IsZero() {
				if time.Until(parsed.expiresAt) < TokenDuration/2 {
					if newToken, err := h.GenerateToken(parsed.userID); err == nil {
						h.setTokenCookie(w, newToken)
					}
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

type UserResponse struct {
	ID        uint   `json:"id"`
	DiscordID string `json:"discord_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}

type MeOutput struct {
	Body UserResponse
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeOutput, error) {
	userID, err := h.Authorize(ctx, input.Cookie, input.APIKey)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, huma.Error404NotFound("User not found")
	}

	return &MeOutput{Body: UserResponse{
		ID:        user.ID,
		DiscordID: user.DiscordID,
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar,
	}}, nil
}
