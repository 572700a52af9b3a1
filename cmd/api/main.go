package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sazaba/wppai-server-sub000/internal/api/router"
	"github.com/sazaba/wppai-server-sub000/internal/appointments"
	"github.com/sazaba/wppai-server-sub000/internal/catalog"
	appconfig "github.com/sazaba/wppai-server-sub000/internal/config"
	"github.com/sazaba/wppai-server-sub000/internal/conversation"
	"github.com/sazaba/wppai-server-sub000/internal/observability/metrics"
	"github.com/sazaba/wppai-server-sub000/internal/schedule"
	"github.com/sazaba/wppai-server-sub000/internal/tenantcfg"
	"github.com/sazaba/wppai-server-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to reach redis", "error", err)
		os.Exit(1)
	}

	schedMetrics := metrics.NewSchedulingMetrics(nil)

	apptRepo := appointments.NewRepository(pool)
	apptSvc := appointments.NewService(pool, apptRepo, logger, schedMetrics)

	defaults := tenantcfg.Defaults{
		Timezone:           cfg.DefaultTimezone,
		BufferMin:          cfg.DefaultBufferMin,
		MinNoticeHours:     cfg.DefaultMinNoticeHours,
		BookingWindowDays:  cfg.DefaultBookingWindowDays,
		ServiceDurationMin: cfg.DefaultServiceDurationMin,
	}
	cfgRepo := tenantcfg.NewRepository(pool, defaults)
	catalogRepo := catalog.NewRepository(pool)

	hoursProvider := schedule.NewHoursProvider(tenantcfg.NewHoursSource(cfgRepo))
	conflicts := schedule.NewConflictChecker(apptRepo)
	slotFinder := schedule.NewSlotFinder(hoursProvider, conflicts, apptRepo, nil)

	sessions := conversation.NewSessionStore(redisClient, cfg.SessionTTL)
	machine := conversation.NewMachine(sessions, catalogRepo, cfgRepo, slotFinder, apptSvc,
		logger, schedMetrics, cfg.DefaultServiceDurationMin)

	routerCfg := &router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(machine, logger),
		ScheduleHandler:     tenantcfg.NewHandler(cfgRepo, logger),
		CatalogHandler:      catalog.NewHandler(catalogRepo, logger),
		AppointmentsHandler: appointments.NewHandler(apptSvc, cfgRepo, logger),
		MetricsHandler:      promhttp.Handler(),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSec:     10,
		RateLimitBurst:      30,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
