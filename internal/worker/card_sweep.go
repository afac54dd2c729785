package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	"github.com/jwalitptl/cliniccare-api/internal/service/audit"
	"github.com/jwalitptl/cliniccare-api/internal/service/event"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
	"github.com/jwalitptl/cliniccare-api/pkg/metrics"
)

// SweepResult summarises one deactivation sweep.
type SweepResult struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Scanned     int           `json:"scanned"`
	Deactivated int           `json:"deactivated"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
}

// CardSweeper downgrades daily-activation cards that were not confirmed today.
// It only ever writes card_status = inactive.
type CardSweeper struct {
	patients repository.PatientRepository
	events   *event.Service
	auditor  *audit.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewCardSweeper(
	patients repository.PatientRepository,
	events *event.Service,
	auditor *audit.Service,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *CardSweeper {
	return &CardSweeper{
		patients: patients,
		events:   events,
		auditor:  auditor,
		logger:   logger.With("component", "card_sweep"),
		metrics:  metrics,
	}
}

type deactivatedEvent struct {
	PatientID           uuid.UUID               `json:"patient_id"`
	PatientNumber       string                  `json:"patient_number"`
	PreviousStatus      cardpolicy.StoredStatus `json:"previous_status"`
	LastDailyActivation *time.Time              `json:"last_daily_activation,omitempty"`
	SweptAt             time.Time               `json:"swept_at"`
}

// Run sweeps every flagged patient as of now. A failed patient write is logged
// and counted; only a failure to list patients aborts the run. The write
// re-checks the card, so a patient suspended or confirmed after the listing is
// counted as skipped.
func (s *CardSweeper) Run(ctx context.Context, now time.Time) (result SweepResult, err error) {
	result = SweepResult{StartedAt: now}
	dayStart := cardpolicy.StartOfDay(now)
	started := time.Now()
	defer func() {
		result.Duration = time.Since(started)
		s.metrics.SweepDuration.Observe(result.Duration.Seconds())
	}()

	patients, err := s.patients.List(ctx, &model.PatientFilters{DailyActivationOnly: true})
	if err != nil {
		return result, fmt.Errorf("failed to list patients for sweep: %w", err)
	}

	for _, p := range patients {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Scanned++

		if !s.shouldDeactivate(p, now) {
			result.Skipped++
			continue
		}

		changed, err := s.patients.DeactivateLapsed(ctx, p.ID, dayStart)
		if err != nil {
			result.Failed++
			s.metrics.SweepFailures.Inc()
			s.logger.Error(err, "Failed to deactivate card",
				"patient_id", p.ID.String(),
				"patient_number", p.PatientNumber)
			continue
		}
		if !changed {
			result.Skipped++
			s.logger.Debug("Card changed since listing",
				"patient_id", p.ID.String(),
				"patient_number", p.PatientNumber)
			continue
		}

		result.Deactivated++
		s.metrics.SweepDeactivated.Inc()

		s.events.EmitBestEffort(ctx, model.EventCardDeactivated, deactivatedEvent{
			PatientID:           p.ID,
			PatientNumber:       p.PatientNumber,
			PreviousStatus:      p.CardStatus,
			LastDailyActivation: p.LastDailyActivation,
			SweptAt:             now,
		})
		s.auditor.Record(ctx, model.AuditActionCardSweep, model.AuditEntityPatient, p.ID, map[string]interface{}{
			"previous_status": p.CardStatus,
			"card_status":     cardpolicy.StatusInactive,
		})
	}

	s.logger.Info("Card sweep finished",
		"scanned", result.Scanned,
		"deactivated", result.Deactivated,
		"failed", result.Failed)
	return result, nil
}

// shouldDeactivate skips cards already inactive and suspended cards, whose
// stored status is authoritative.
func (s *CardSweeper) shouldDeactivate(p *model.Patient, now time.Time) bool {
	switch p.CardStatus {
	case cardpolicy.StatusInactive, cardpolicy.StatusSuspended:
		return false
	case cardpolicy.StatusActive, cardpolicy.StatusExpired:
	}
	return cardpolicy.NeedsDailyActivation(p.Card(), now)
}
