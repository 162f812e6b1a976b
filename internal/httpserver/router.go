package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"chatserver/internal/config"
	"chatserver/internal/domain"
	"chatserver/internal/metrics"
	"chatserver/internal/security"
	"chatserver/internal/service"
	"chatserver/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and
// middleware.
func NewRouter(
	cfg *config.Config,
	repos *domain.Repositories,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(RateLimit(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	authSvc := service.NewAuthService(repos.Users, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(repos.Users)
	msgSvc := service.NewMessageService(repos.Messages, repos.Media)
	groupSvc := service.NewGroupService(repos.Groups, repos.GroupMessages, repos.Users)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName + " API",
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
			r.Post("/refresh-token", handleRefreshToken(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, repos.Users))

			r.Post("/auth/logout", handleLogout(authSvc))
			r.Get("/auth/user", handleCurrentUser())
			r.Get("/auth/users", handleListUsers(userSvc))
			r.Post("/auth/upload-profile", handleUploadProfile(userSvc, cfg.UploadDir))

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", handleCreateGroup(groupSvc))
				r.Get("/", handleListGroups(groupSvc))
				r.Get("/{groupID}/messages", handleListGroupMessages(groupSvc))
				r.Post("/messages/{messageID}/seen", handleMarkGroupMessageSeen(groupSvc))
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", handleCreateMessage(msgSvc))
				r.Get("/{senderID}/{receiverID}", handleListMessages(msgSvc))
				r.Post("/{messageID}/seen", handleMarkMessageSeen(msgSvc))
			})

			r.Post("/media/upload", handleMediaUpload(repos.Media, cfg.UploadDir))
		})
	})

	// Uploaded files are public once their generated name is known.
	r.Get("/uploads/{filename}", handleServeUpload(cfg.UploadDir))

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, repos.Users, msgSvc, groupSvc, cfg.CORSOrigins))

	return r
}
