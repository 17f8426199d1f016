package handlers

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/coachlab/coach-api/internal/auth"
	"github.com/coachlab/coach-api/internal/config"
	"github.com/coachlab/coach-api/internal/ratelimit"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth         *auth.AuthHandler
	CheckIns     *CheckInHandler
	Gamification *GamificationHandler
	Achievements *AchievementHandler
	APIKeys      *APIKeyHandler
}

func RegisterRoutes(r *chi.Mux, cfg *config.Config, h Handlers, limiter *ratelimit.Limiter, trustedProxies []netip.Prefix, logger *zap.Logger) huma.API {
	r.Use(middleware.RequestID)
	r.Use(ratelimit.TrustedRealIP(trustedProxies))
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{cfg.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-API-KEY"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(h.Auth.SessionMiddleware)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/auth/discord/login", h.Auth.HandleLogin)
	r.Get("/auth/discord/callback", h.Auth.HandleCallback)

	config := huma.DefaultConfig("Coach API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.TokenCookieName,
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)
	RegisterAPI(api, h)
	return api
}

func secured(o *huma.Operation) {
	o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
}

// RegisterAPI adds the JSON operations to api.
func RegisterAPI(api huma.API, h Handlers) {
	huma.Get(api, "/me", h.Auth.HandleMe, secured)

	huma.Post(api, "/checkins", h.CheckIns.HandleCheckIn, secured)
	huma.Get(api, "/checkins", h.CheckIns.HandleList, secured)
	huma.Put(api, "/checkins/{id}/photo", h.CheckIns.HandleUploadPhoto, secured, func(o *huma.Operation) {
		o.MaxBodyBytes = maxPhotoBytes
	})

	huma.Get(api, "/me/gamification", h.Gamification.HandleSummary, secured)
	huma.Get(api, "/me/points", h.Gamification.HandlePoints, secured)
	huma.Get(api, "/achievements", h.Achievements.HandleCatalog)

	huma.Post(api, "/api-keys", h.APIKeys.HandleCreate, secured)
	huma.Get(api, "/api-keys", h.APIKeys.HandleList, secured)
	huma.Delete(api, "/api-keys/{id}", h.APIKeys.HandleDelete, secured)
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
