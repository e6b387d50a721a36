// Package main is the entry point for the gacha bot and its HTTP side server.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gacha-bot/internal/achievement"
	"gacha-bot/internal/bot"
	"gacha-bot/internal/cache"
	"gacha-bot/internal/config"
	"gacha-bot/internal/handler"
	"gacha-bot/internal/metrics"
	"gacha-bot/internal/pkg/db"
	"gacha-bot/internal/repository"
	"gacha-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Achievements are read once; unlock rows reference the synced descriptors
	registry, err := achievement.LoadRegistry(cfg.Achievements.Dir, cfg.Achievements.Milestones)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load achievements")
	}
	if err := repository.NewAchievementRepository(dbPool).Sync(ctx, registry.Achievements()); err != nil {
		log.Fatal().Err(err).Msg("Failed to sync achievements")
	}
	log.Info().Int("count", registry.Count()).Msg("Achievements registered")

	m := metrics.New()

	appCache, err := cache.New(ctx, &cfg.Cache, &cfg.Redis, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	if closer, ok := appCache.(io.Closer); ok {
		defer closer.Close()
	}

	// Initialize repositories
	playerRepo := repository.NewPlayerRepository(dbPool)
	catalogRepo := repository.NewCatalogRepository(dbPool)

	// Initialize services
	playerService := service.NewPlayerService(playerRepo)
	gachaService := service.NewGachaService(
		playerRepo,
		catalogRepo,
		service.PostgresBatches(dbPool),
		achievement.NewEngine(registry),
		appCache,
		m,
		service.WithLockTimeout(cfg.Gacha.LockTimeout),
	)
	catalogService := service.NewCatalogService(catalogRepo, appCache, cfg.Cache.CatalogTTL)
	dashboardService := service.NewDashboardService(
		repository.NewDashboardStore(dbPool),
		appCache,
		cfg.Cache.DashboardTTL,
		cfg.Cache.NegativeTTL,
		cfg.Gacha.CurrencyPerPull,
	)
	assetService := service.NewAssetService(repository.NewAssetRepository(dbPool), appCache, cfg.Cache.AssetTTL)

	// HTTP side server: images, metrics, health
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(
		handler.NewAssetHandler(assetService, cfg.HTTP.AssetMaxAge),
		m.Handler(),
		dbPool.HealthCheck,
	)
	httpServer := handler.NewHTTPServer(&cfg.HTTP, router)

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server is starting...")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:            cfg,
		PlayerService:     playerService,
		GachaService:      gachaService,
		CatalogService:    catalogService,
		DashboardService:  dashboardService,
		AchievementsTotal: registry.Count(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shut down")
	}

	dbPool.LogStats("Shut down gracefully")
}
