// Package app builds the dependencies shared by the api and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"

	"github.com/jwalitptl/cliniccare-api/internal/config"
	"github.com/jwalitptl/cliniccare-api/internal/handler/health"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	firestorerepo "github.com/jwalitptl/cliniccare-api/internal/repository/firestore"
	"github.com/jwalitptl/cliniccare-api/internal/repository/postgres"
	redisrepo "github.com/jwalitptl/cliniccare-api/internal/repository/redis"
	"github.com/jwalitptl/cliniccare-api/internal/service/audit"
	"github.com/jwalitptl/cliniccare-api/internal/service/card"
	"github.com/jwalitptl/cliniccare-api/internal/service/event"
	"github.com/jwalitptl/cliniccare-api/internal/service/user"
	"github.com/jwalitptl/cliniccare-api/internal/worker"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
	"github.com/jwalitptl/cliniccare-api/pkg/messaging/redis"
	"github.com/jwalitptl/cliniccare-api/pkg/metrics"
	"github.com/jwalitptl/cliniccare-api/pkg/security"
)

const metricsNamespace = "cliniccare"

type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	// Clock reads the current time in the clinic's zone, shared with the sweep.
	Clock func() time.Time

	DB        *sqlx.DB
	Redis     *goredis.Client
	Firestore *firestore.Client

	Patients repository.PatientRepository
	Outbox   repository.OutboxRepository
	Base     postgres.BaseRepository

	Events   *event.Service
	Audit    *audit.Service
	Users    *user.Service
	Policies *card.PolicyStore
}

// NewLogger builds the component logger and points the global zerolog logger,
// used by the HTTP middleware, at the same output.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Level),
		Output: os.Stdout,
		JSON:   cfg.JSON,
	})
	log.Logger = *l.Zerolog()
	return l
}

// New connects to Postgres, Redis and, when configured, Firestore. On error
// everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, l *logger.Logger) (a *App, err error) {
	a = &App{
		Config:  cfg,
		Logger:  l,
		Metrics: metrics.NewMetrics(metricsNamespace, ""),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.DB, err = postgres.NewDB(cfg.Database); err != nil {
		return nil, err
	}
	if err = postgres.Migrate(ctx, a.DB); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a.Redis, err = redis.NewClient(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		return nil, err
	}

	switch cfg.Storage.Patients {
	case config.StorageFirestore:
		if a.Firestore, err = firestorerepo.NewClient(ctx, cfg.Firebase); err != nil {
			return nil, err
		}
		a.Patients = firestorerepo.NewPatientRepository(a.Firestore)
	default:
		a.Patients = postgres.NewPatientRepository(a.DB)
	}
	l.Info("Patient storage selected", "backend", cfg.Storage.Patients)

	loc, err := cfg.Sweep.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid clinic timezone: %w", err)
	}
	a.Clock = cardpolicy.ClockIn(loc)

	a.Base = postgres.NewBaseRepository(a.DB)
	a.Outbox = postgres.NewOutboxRepository(a.Base)
	a.Events = event.NewService(a.Outbox, l)
	a.Audit = audit.NewService(postgres.NewAuditRepository(a.Base), l)
	a.Users = user.NewService(postgres.NewUserRepository(a.Base), security.NewBcryptHasher(0), a.Audit)
	a.Policies = card.NewPolicyStore(postgres.NewCardPolicyRepository(a.DB),
		card.WithDefaultValidity(cfg.Card.DefaultValidityDays))
	return a, nil
}

// Scheduler wires the card sweep to the Redis last-run marker.
func (a *App) Scheduler(opts ...worker.SchedulerOption) (*worker.Scheduler, error) {
	sweeper := worker.NewCardSweeper(a.Patients, a.Events, a.Audit, a.Logger, a.Metrics)
	return worker.NewScheduler(sweeper, a.Config.Sweep, redisrepo.NewSweepStateStore(a.Redis),
		a.Logger, a.Metrics, opts...)
}

// HealthChecks probes every backing store in use.
func (a *App) HealthChecks() []health.Check {
	checks := []health.Check{
		{Name: "postgres", Probe: a.DB.PingContext},
		{Name: "redis", Probe: func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }},
	}
	if a.Firestore != nil {
		checks = append(checks, health.Check{Name: "firestore", Probe: func(ctx context.Context) error {
			_, err := a.Firestore.Collections(ctx).Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		}})
	}
	return checks
}

func (a *App) Close() {
	if a.Firestore != nil {
		if err := a.Firestore.Close(); err != nil {
			a.Logger.Error(err, "Failed to close firestore client")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error(err, "Failed to close redis client")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error(err, "Failed to close database")
		}
	}
}
