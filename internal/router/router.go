package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/JumajiCa/ChatDVC/internal/handlers"
	"github.com/JumajiCa/ChatDVC/internal/middleware"
	"github.com/JumajiCa/ChatDVC/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	portalHandler *handlers.PortalHandler,
	askHandler *handlers.AskHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// Each portal call drives a real browser (20 req/min per user)
	portalLimiter := middleware.NewRateLimiter(20, time.Minute)
	askLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Profile Routes ────
		r.Route("/profile", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", profileHandler.Get)
			r.Put("/", profileHandler.Update)
		})

		// ──── Portal Routes ────
		r.Route("/portal", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(portalLimiter.Middleware)
			r.Post("/login", portalHandler.Login)
			r.Post("/2fa", portalHandler.SubmitCode)
			r.Get("/data", portalHandler.Data)
			r.Get("/status", portalHandler.Status)
			r.Delete("/session", portalHandler.CloseSession)
		})

		// ──── Counselor Chat ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(askLimiter.Middleware)
			r.Post("/ask", askHandler.Ask)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
