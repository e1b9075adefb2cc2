package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JumajiCa/ChatDVC/internal/config"
	"github.com/JumajiCa/ChatDVC/internal/database"
	"github.com/JumajiCa/ChatDVC/internal/handlers"
	"github.com/JumajiCa/ChatDVC/internal/logger"
	"github.com/JumajiCa/ChatDVC/internal/middleware"
	"github.com/JumajiCa/ChatDVC/internal/portal"
	"github.com/JumajiCa/ChatDVC/internal/repository"
	"github.com/JumajiCa/ChatDVC/internal/router"
	"github.com/JumajiCa/ChatDVC/internal/security"
	"github.com/JumajiCa/ChatDVC/internal/services"
	"github.com/JumajiCa/ChatDVC/internal/websocket"
)

func main() {
	log := logger.Logger
	log.Info("🚀 Starting ChatDVC backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logger.Init(cfg.Env)
	log.Info("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Info("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Info("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Info("✓ Database migrations applied")

	// ──── Step 5: Load Credential Key ────
	cipher, err := security.LoadCredentialCipher(cfg.CredentialsKey, cfg.CredentialsKeyFile)
	if err != nil {
		log.Fatalf("✗ Credential key unavailable: %v", err)
	}
	log.Info("✓ Credential cipher ready")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)

	// ──── Step 6: Initialize Gemini Client ────
	assistant, err := services.NewAssistantService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer assistant.Close()
	log.Infof("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	// ──── Step 7: Initialize Portal Session Manager ────
	var cookies portal.CookieStore
	switch cfg.PortalCookieStore {
	case "redis":
		cookies = portal.NewRedisCookieStore(redisClients.Store, cfg.PortalCookieTTL)
	default:
		fileStore, err := portal.NewFileCookieStore(cfg.PortalCookieDir)
		if err != nil {
			log.Fatalf("✗ Cookie directory unavailable: %v", err)
		}
		cookies = fileStore
	}

	portalManager := portal.NewManager(portal.ManagerConfig{
		Launcher: &portal.RodLauncher{Headless: cfg.PortalHeadless, Bin: cfg.PortalBrowserBin},
		Store:    cookies,
		Pages:    portal.NewPages(cfg.PortalBaseURL),
		Timings:  portal.DefaultTimings(),
		Term:     cfg.PortalTerm,
		Events:   websocket.NewRedisPublisher(redisClients.PubSub),
	})
	log.Infof("✓ Portal manager ready (%s, term %s, %s cookies)", cfg.PortalBaseURL, cfg.PortalTerm, cfg.PortalCookieStore)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClients.Store, jwtAuth)
	counselorService := services.NewCounselorService(profileRepo, cipher, portalManager, assistant)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileRepo, cipher)
	portalHandler := handlers.NewPortalHandler(portalManager, profileRepo, cipher)
	askHandler := handlers.NewAskHandler(counselorService)

	// ──── Step 8: Start Idle Session Reaper ────
	reaper := services.NewSessionReaper(portalManager, cfg.PortalIdleTimeout)
	if reaper.Start() {
		log.Infof("✓ Session reaper started (idle timeout %s)", cfg.PortalIdleTimeout)
	} else {
		log.Info("✓ Session reaper disabled")
	}

	// ──── Step 9: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Info("✓ WebSocket hub started")

	// ──── Step 10: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		profileHandler,
		portalHandler,
		askHandler,
		wsHub,
		cfg.FrontendURL,
	)

	// Portal logins wait on real page loads, so the write timeout is generous.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		reaper.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		portalManager.Shutdown()
	}()

	log.Infof("✓ ChatDVC backend ready on http://localhost:%s", cfg.Port)
	log.Infof("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Infof("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-shutdownDone
	log.Info("✓ Shutdown complete")
}
