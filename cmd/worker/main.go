package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/cliniccare-api/internal/app"
	"github.com/jwalitptl/cliniccare-api/internal/config"
	"github.com/jwalitptl/cliniccare-api/internal/email"
	"github.com/jwalitptl/cliniccare-api/internal/handler/health"
	"github.com/jwalitptl/cliniccare-api/internal/worker"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
	"github.com/jwalitptl/cliniccare-api/pkg/messaging/redis"
	outbox "github.com/jwalitptl/cliniccare-api/pkg/worker"
)

func newMailer(cfg config.SMTPConfig, l *logger.Logger) email.Service {
	if !cfg.Enabled {
		l.Info("SMTP disabled, reminders will only be logged")
		return email.NewLogService(l)
	}
	mailer, err := email.NewSMTPService(cfg)
	if err != nil {
		l.Fatal(err, "failed to configure SMTP")
	}
	return mailer
}

// serveHealth exposes liveness, readiness and metrics for the worker process.
func serveHealth(port int, checks []health.Check) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(checks...).RegisterRoutes(engine.Group(""))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(initCtx, cfg, logger)
	if err != nil {
		initCancel()
		logger.Fatal(err, "failed to initialize dependencies")
	}
	defer a.Close()

	broker, err := redis.NewRedisBroker(initCtx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, logger.Zerolog())
	initCancel()
	if err != nil {
		logger.Fatal(err, "failed to create Redis broker")
	}
	defer broker.Close()

	processor, err := outbox.NewOutboxProcessor(a.Outbox, broker, outbox.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, logger, a.Metrics)
	if err != nil {
		logger.Fatal(err, "failed to create outbox processor")
	}

	reminders := worker.NewReminderJob(a.Patients, a.Policies, newMailer(cfg.SMTP, logger),
		cfg.SMTP.RatePerSecond, logger, a.Metrics)
	scheduler, err := a.Scheduler(worker.WithJobs(reminders))
	if err != nil {
		logger.Fatal(err, "failed to create sweep scheduler")
	}

	cleanup := worker.NewAuditCleanupWorker(a.Audit, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval, logger)

	srv := serveHealth(cfg.Server.WorkerPort, a.HealthChecks())
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health server failed")
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	if cfg.Sweep.Enabled {
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatal(err, "failed to start sweep scheduler")
		}
		logger.Info("Sweep scheduler started", "timezone", cfg.Sweep.Timezone)
	} else {
		logger.Warn("Card sweep disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker")

	cancel()
	scheduler.Stop()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "health server forced to shutdown")
	}

	logger.Info("Worker exited")
}
