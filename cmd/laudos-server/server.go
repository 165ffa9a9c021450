package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/blua/laudos/internal/config"
	"github.com/blua/laudos/internal/domain/patient"
	"github.com/blua/laudos/internal/domain/profile"
	"github.com/blua/laudos/internal/domain/report"
	"github.com/blua/laudos/internal/platform/auth"
	"github.com/blua/laudos/internal/platform/db"
	"github.com/blua/laudos/internal/platform/middleware"
	"github.com/blua/laudos/internal/platform/postgrest"
	"github.com/blua/laudos/internal/platform/reporting"
	"github.com/blua/laudos/internal/platform/telemetry"
	"github.com/blua/laudos/internal/platform/webhook"
	"github.com/blua/laudos/internal/platform/websocket"
)

const (
	deliveryLogSize = 500
	sweepInterval   = 5 * time.Minute
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// stores holds the repositories of the selected backend. pool is nil for
// the REST backend.
type stores struct {
	patients patient.Repository
	profiles profile.Repository
	reports  report.Store
	pool     *pgxpool.Pool
}

func restStores(cfg *config.Config) *stores {
	c := postgrest.New(cfg.StoreURL, cfg.StoreAPIKey)
	return &stores{
		patients: patient.NewRepoREST(c),
		profiles: profile.NewRepoREST(c),
		reports:  report.NewStoreREST(c),
	}
}

func pgStores(pool *pgxpool.Pool) *stores {
	return &stores{
		patients: patient.NewRepoPG(pool),
		profiles: profile.NewRepoPG(pool),
		reports:  report.NewStorePG(pool),
		pool:     pool,
	}
}

// server is the assembled application.
type server struct {
	echo    *echo.Echo
	editors *report.Registry
}

func buildServer(cfg *config.Config, logger zerolog.Logger, st *stores, metrics *telemetry.Metrics) *server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))

	jwtCfg := auth.JWTConfig{SigningKey: []byte(cfg.AuthJWTSecret), Skipper: auth.AuthSkipper}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	rateCfg := middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, BurstSize: cfg.RateLimitBurst}
	if rateCfg.RequestsPerSecond <= 0 {
		rateCfg = middleware.DefaultRateLimitConfig()
	}
	rateCfg.IdleTTL = middleware.DefaultRateLimitConfig().IdleTTL

	e.GET("/", auth.BannerHandler)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", metrics.Handler())
	if st.pool != nil {
		e.GET("/health/db", db.HealthHandler(st.pool))
	}

	authGroup := e.Group("/api/auth")
	auth.NewPlaceholderHandler(logger).RegisterRoutes(authGroup)

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateCfg))

	patientSvc := patient.NewService(st.patients)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	profileSvc := profile.NewService(st.profiles)
	profile.NewHandler(profileSvc).RegisterRoutes(apiV1)

	deliveries := webhook.NewRingLog(deliveryLogSize)
	dispatcher := webhook.NewDispatcher(cfg.ReportWebhookURL, deliveries, logger,
		webhook.WithHTTPClient(&http.Client{Timeout: cfg.WebhookTimeout}),
		webhook.WithSecret(cfg.ReportWebhookSecret),
		webhook.WithMetrics(metrics),
	)
	if !dispatcher.Configured() {
		logger.Warn().Msg("REPORT_WEBHOOK_URL is not set; final report generation will fail")
	}
	webhook.NewHandler(deliveries).RegisterRoutes(apiV1)

	hub := websocket.NewHub(logger)
	websocket.NewHandler(hub, cfg.CORSOrigins, logger).RegisterRoutes(apiV1)

	editors := report.NewRegistry(cfg.EditorIdleTTL, logger, metrics)
	sync := report.NewSynchronizer(st.reports, logger, metrics)
	pipeline := report.NewPipeline(sync, st.reports, dispatcher, profileSvc, logger, metrics)
	reportSvc := report.NewService(editors, sync, pipeline, patientSvc, report.WithNotifier(hub))
	report.NewHandler(reportSvc).RegisterRoutes(apiV1)

	if st.pool != nil {
		reporting.NewHandler(st.pool).RegisterRoutes(apiV1)
	}

	return &server{echo: e, editors: editors}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := restStores(cfg)
	if cfg.UsePostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		st = pgStores(pool)
		logger.Info().Msg("using postgres backend")
	} else {
		logger.Info().Str("store_url", cfg.StoreURL).Msg("using REST store backend")
	}

	srv := buildServer(cfg, logger, st, telemetry.New())
	go srv.editors.Run(ctx, sweepInterval)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Int("open_editors", srv.editors.Len()).Msg("server stopped")
	return nil
}
