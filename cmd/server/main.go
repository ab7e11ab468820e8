package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/onurbyrmv0/chat-relay/internal/backup"
	"github.com/onurbyrmv0/chat-relay/internal/config"
	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/internal/handler"
	"github.com/onurbyrmv0/chat-relay/internal/history"
	"github.com/onurbyrmv0/chat-relay/internal/hub"
	"github.com/onurbyrmv0/chat-relay/internal/registry"
	"github.com/onurbyrmv0/chat-relay/internal/repository"
	"github.com/onurbyrmv0/chat-relay/internal/service"
	"github.com/onurbyrmv0/chat-relay/internal/urlmeta"
	"github.com/onurbyrmv0/chat-relay/pkg/database"
	"github.com/onurbyrmv0/chat-relay/pkg/jwt"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
	"github.com/onurbyrmv0/chat-relay/pkg/middleware"
	"github.com/onurbyrmv0/chat-relay/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithLogger(ctx, logger)

	// Database. Open never pings, so an unreachable server does not
	// kill startup: the relay runs degraded on the fallback ring until
	// it comes back.
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid database configuration")
	}
	if err := database.AutoMigrate(db,
		&domain.MessageModel{},
		&domain.UserModel{},
		&domain.RoomModel{},
	); err != nil {
		logger.Warn().Err(err).Msg("migrations failed, database may be unreachable")
	}

	// Core relay.
	reg := registry.NewMemoryRegistry()
	broadcaster := hub.NewHub(reg)
	ring := history.NewRing(cfg.History.FallbackDepth)
	durable := history.NewGormStore(db)

	relay := service.NewRelayService(
		reg, broadcaster, durable, ring,
		cfg.Admin.Secret, cfg.History.Window, cfg.History.RetryInterval,
	)
	relay.Start(ctx)

	// Auth and persistence for the REST surface.
	tokens, err := jwt.NewManager(cfg.Auth.AccessDuration, cfg.Auth.RefreshDuration, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token manager")
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tokens.CleanupExpiredRevocations()
			}
		}
	}()

	users := repository.NewGormUserRepository(db)
	rooms := repository.NewGormRoomRepository(db)
	if err := users.SeedAdmin(ctx, cfg.Admin.Nickname, cfg.Admin.Password); err != nil {
		logger.Warn().Err(err).Msg("failed to seed admin account")
	}

	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// HTTP surface.
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(logger))

	wsHandler := handler.NewWSHandler(ctx, broadcaster, relay, cfg.WebSocket)
	router.GET("/ws", wsHandler.Handle)

	httpHandler := handler.NewHTTPHandler(users, rooms, relay, broadcaster, tokens, store, urlmeta.NewFetcher(5*time.Second))
	httpHandler.RegisterRoutes(router, middleware.NewAuthMiddleware(tokens))

	// Scheduled backups.
	if cfg.Backup.Enabled {
		scheduler := backup.NewScheduler(cfg.Database, cfg.Backup.Dir)
		if err := scheduler.Start(cfg.Backup.Schedule); err != nil {
			logger.Fatal().Err(err).Msg("failed to start backup scheduler")
		}
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("chat relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("shutdown complete")
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case "s3":
		return storage.NewS3Storage(ctx, cfg.S3)
	default:
		return storage.NewLocalStorage(cfg.Local)
	}
}
