package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-distribution/internal/config"
	"github.com/fairyhunter13/coupon-distribution/internal/handler"
	"github.com/fairyhunter13/coupon-distribution/internal/metrics"
	"github.com/fairyhunter13/coupon-distribution/internal/repository"
	"github.com/fairyhunter13/coupon-distribution/internal/service"
	"github.com/fairyhunter13/coupon-distribution/internal/validator"
	"github.com/fairyhunter13/coupon-distribution/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.ConnectRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "Coupon Distribution",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    64 * 1024, // request bodies are a few small JSON fields
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
	}))

	validate := validator.New()

	couponRepo := repository.NewCouponRepository(pool)
	claimRepo := repository.NewClaimRepository(pool)

	claimService := service.NewClaimService(couponRepo, claimRepo, service.UUIDGenerator{}, service.ClaimConfig{
		Cooldown:      cfg.Claim.Cooldown(),
		QueryTimeout:  cfg.DB.QueryTimeout,
		StampAttempts: cfg.Claim.StampAttempts,
	})

	handlers := handler.Handlers{
		Health: handler.NewHealthHandler(pool, cfg.DB.QueryTimeout),
		Claim:  handler.NewClaimHandler(claimService, validate, cfg.Server.TrustProxyHeaders),
	}
	if cfg.Admin.Enabled() {
		couponService := service.NewCouponService(pool, couponRepo, claimRepo, cfg.DB.QueryTimeout)
		handlers.Coupon = handler.NewCouponHandler(couponService, validate)
	} else {
		log.Warn().Msg("ADMIN_PASSWORD_HASH not set, admin API disabled")
	}

	opts := handler.RouteOptions{
		ClaimRateLimit:    cfg.Claim.RateLimit,
		TrustProxy:        cfg.Server.TrustProxyHeaders,
		AdminUsername:     cfg.Admin.Username,
		AdminPasswordHash: cfg.Admin.PasswordHash,
	}
	if cfg.Server.MetricsEnabled {
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			log.Fatal().Err(err).Msg("failed to register metrics")
		}
		opts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	handler.RegisterRoutes(app, handlers, opts)

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Int("cooldown_minutes", cfg.Claim.CooldownMinutes).
			Bool("admin_enabled", cfg.Admin.Enabled()).
			Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Waits for in-flight requests
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close the pool only after the server stopped, even if shutdown timed out
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
