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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/cliniccare-api/internal/app"
	"github.com/jwalitptl/cliniccare-api/internal/config"
	"github.com/jwalitptl/cliniccare-api/internal/handler/appointment"
	auditHandler "github.com/jwalitptl/cliniccare-api/internal/handler/audit"
	"github.com/jwalitptl/cliniccare-api/internal/handler/auth"
	"github.com/jwalitptl/cliniccare-api/internal/handler/card"
	"github.com/jwalitptl/cliniccare-api/internal/handler/health"
	"github.com/jwalitptl/cliniccare-api/internal/handler/patient"
	promHandler "github.com/jwalitptl/cliniccare-api/internal/handler/prometheus"
	"github.com/jwalitptl/cliniccare-api/internal/handler/report"
	"github.com/jwalitptl/cliniccare-api/internal/handler/user"
	"github.com/jwalitptl/cliniccare-api/internal/middleware"
	"github.com/jwalitptl/cliniccare-api/internal/repository/postgres"
	"github.com/jwalitptl/cliniccare-api/internal/router"
	appointmentService "github.com/jwalitptl/cliniccare-api/internal/service/appointment"
	authService "github.com/jwalitptl/cliniccare-api/internal/service/auth"
	cardService "github.com/jwalitptl/cliniccare-api/internal/service/card"
	patientService "github.com/jwalitptl/cliniccare-api/internal/service/patient"
	jwtauth "github.com/jwalitptl/cliniccare-api/pkg/auth"
	"github.com/jwalitptl/cliniccare-api/pkg/security"
	"github.com/jwalitptl/cliniccare-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Log)

	if err := validator.Register(); err != nil {
		logger.Fatal(err, "failed to register validators")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal(err, "failed to initialize dependencies")
	}
	defer a.Close()

	// Services
	jwtSvc := jwtauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authService.NewService(postgres.NewUserRepository(a.Base), jwtSvc, security.NewBcryptHasher(0), a.Audit, logger)
	patientSvc := patientService.NewService(a.Patients, a.Users, a.Policies, a.Events, a.Audit,
		patientService.WithClock(a.Clock))
	cardSvc := cardService.NewService(a.Patients, postgres.NewCardPaymentRepository(a.DB), a.Users, a.Policies, a.Events, a.Audit,
		cardService.WithClock(a.Clock))
	appointmentSvc := appointmentService.NewService(postgres.NewAppointmentRepository(a.DB), a.Patients, a.Users, a.Events, a.Audit,
		appointmentService.WithClock(a.Clock))

	// The api process never runs the timer; the scheduler only serves manual sweeps.
	scheduler, err := a.Scheduler()
	if err != nil {
		logger.Fatal(err, "failed to create sweep scheduler")
	}

	metricsHandler, err := promHandler.New("cliniccare_http", prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		logger.Fatal(err, "failed to register http metrics")
	}

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig:     middleware.CORSConfigFrom(cfg.CORS),
		SecurityConfig: middleware.DefaultSecurityConfig(),
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = &middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RequestsPerSecond,
			Burst: cfg.RateLimit.Burst,
		}
	}

	r := router.NewRouter(middleware.NewAuthMiddleware(authSvc), router.Handlers{
		Health:      health.NewHandler(a.HealthChecks()...),
		Metrics:     metricsHandler,
		Auth:        auth.NewHandler(authSvc, a.Users),
		User:        user.NewHandler(a.Users),
		Patient:     patient.NewHandler(patientSvc),
		Card:        card.NewHandler(cardSvc, scheduler),
		Appointment: appointment.NewHandler(appointmentSvc),
		Audit:       auditHandler.NewHandler(a.Audit),
		Report:      report.NewHandler(patientSvc),
	}, routerConfig)
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "server forced to shutdown")
	}
	scheduler.Stop()

	logger.Info("Server exited")
}
