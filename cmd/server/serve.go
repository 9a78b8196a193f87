package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/safeharbor-backend/internal/auth"
	"github.com/AnshRaj112/safeharbor-backend/internal/handlers"
	"github.com/AnshRaj112/safeharbor-backend/internal/llm"
	"github.com/AnshRaj112/safeharbor-backend/internal/middleware"
	"github.com/AnshRaj112/safeharbor-backend/internal/routes"
	"github.com/AnshRaj112/safeharbor-backend/internal/services"
)

const (
	shutdownTimeout = 15 * time.Second

	// Per-user budget across all authenticated endpoints.
	userRequestsPerMinute = 120
	userRequestBurst      = 30
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := connect(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := a.migrate(migrateCtx); err != nil {
		zap.L().Warn("⚠️  schema setup incomplete", zap.Error(err))
	} else {
		zap.L().Info("✅ Postgres tables and MongoDB indexes ensured")
	}
	cancel()

	provider, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}
	zap.L().Info("✅ LLM provider ready", zap.String("provider", provider.Name()))

	hub := services.NewHub()
	companion := services.NewCompanion(provider, a.chats,
		services.WithHistoryCache(services.NewRedisHistoryCache(a.redis)),
		services.WithEventPublisher(services.NewRedisEventPublisher(a.redis)),
		services.WithSessionTracker(a.sessions),
		services.WithSafetyRecorder(a.safety),
		services.WithHistoryLimit(cfg.Chat.HistoryLimit),
		services.WithModelTimeout(cfg.LLM.Timeout()),
	)

	h := &handlers.Handler{
		Companion:      companion,
		Tokens:         auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, auth.NewRedisSessionStore(a.redis)),
		Users:          a.users,
		Messages:       a.chats,
		Sessions:       a.sessions,
		Journals:       a.journals,
		Goals:          a.goals,
		CheckIns:       a.checkIns,
		Library:        a.content,
		Hub:            hub,
		ChatLimiter:    middleware.NewChatLimiter(cfg.Chat.RatePerMinute, cfg.Chat.RateBurst),
		UserLimiter:    middleware.PerMinute(userRequestsPerMinute, userRequestBurst),
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.CloudinaryEnabled() {
		uploader, err := services.NewImageUploader(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			zap.L().Warn("Failed to initialize Cloudinary, uploads disabled", zap.Error(err))
		} else {
			h.Uploader = uploader
			zap.L().Info("✅ Cloudinary service initialized")
		}
	} else {
		zap.L().Warn("Cloudinary credentials not found, uploads disabled")
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		zap.L().Info("✅ Production security enabled")
	} else {
		r.Use(middleware.NewRedisRateLimiter(a.redis).Middleware)
	}
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx, a.redis)
	})
	g.Go(func() error {
		zap.L().Info("🚀 Safe Harbor backend running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
