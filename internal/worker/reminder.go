package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/cliniccare-api/internal/email"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
	"github.com/jwalitptl/cliniccare-api/pkg/metrics"
)

type PolicyProvider interface {
	Policy(ctx context.Context) (*model.CardPolicy, error)
}

// ReminderJob emails patients whose card expires within the clinic's
// reminder window. Sending is throttled to stay under relay limits.
type ReminderJob struct {
	patients repository.PatientRepository
	policies PolicyProvider
	mailer   email.Service
	limiter  *rate.Limiter
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewReminderJob(
	patients repository.PatientRepository,
	policies PolicyProvider,
	mailer email.Service,
	perSecond float64,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ReminderJob {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &ReminderJob{
		patients: patients,
		policies: policies,
		mailer:   mailer,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With("component", "card_reminders"),
		metrics:  metrics,
	}
}

func (j *ReminderJob) Name() string { return "card_expiry_reminders" }

func (j *ReminderJob) Run(ctx context.Context, now time.Time) error {
	policy, err := j.policies.Policy(ctx)
	if err != nil {
		return fmt.Errorf("failed to load card policy: %w", err)
	}

	patients, err := j.patients.List(ctx, &model.PatientFilters{})
	if err != nil {
		return fmt.Errorf("failed to list patients: %w", err)
	}

	var sent, failed int
	for _, p := range patients {
		if p.Email == nil || *p.Email == "" {
			continue
		}
		a := cardpolicy.Describe(p.Card(), now)
		if !a.ExpiringSoon(policy.PaymentReminderDays) {
			continue
		}

		if err := j.limiter.Wait(ctx); err != nil {
			return err
		}

		err := j.mailer.SendCardExpiryReminder(ctx, *p.Email, email.CardExpiryReminder{
			PatientName:   p.FullName(),
			PatientNumber: p.PatientNumber,
			ExpiryDate:    p.CardExpiryDate.In(now.Location()),
			DaysLeft:      a.DaysUntilExpiry,
		})
		if err != nil {
			failed++
			j.metrics.RemindersSent.WithLabelValues("failed").Inc()
			j.logger.Error(err, "Failed to send card expiry reminder", "patient_id", p.ID.String())
			continue
		}
		sent++
		j.metrics.RemindersSent.WithLabelValues("sent").Inc()
	}

	j.logger.Info("Card expiry reminders sent", "sent", sent, "failed", failed)
	return nil
}
