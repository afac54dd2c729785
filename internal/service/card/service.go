package card

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
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

// DoctorLookup resolves an assigned doctor.
type DoctorLookup interface {
	RequireDoctor(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Service runs the card lifecycle writes: full activation, daily activation and
// suspension. The nightly downgrade lives in the worker.
type Service struct {
	patients repository.PatientRepository
	payments repository.CardPaymentRepository
	doctors  DoctorLookup
	policies *PolicyStore
	events   *event.Service
	auditor  *audit.Service
	now      func() time.Time
}

func NewService(
	patients repository.PatientRepository,
	payments repository.CardPaymentRepository,
	doctors DoctorLookup,
	policies *PolicyStore,
	events *event.Service,
	auditor *audit.Service,
	opts ...Option,
) *Service {
	s := &Service{
		patients: patients,
		payments: payments,
		doctors:  doctors,
		policies: policies,
		events:   events,
		auditor:  auditor,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for card decisions. It should read time in the
// clinic's zone.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type cardEvent struct {
	PatientID     uuid.UUID                 `json:"patient_id"`
	PatientNumber string                    `json:"patient_number"`
	Status        cardpolicy.StoredStatus   `json:"card_status"`
	State         cardpolicy.EffectiveState `json:"effective_state"`
	ExpiryDate    *time.Time                `json:"card_expiry_date,omitempty"`
	Reason        string                    `json:"reason,omitempty"`
}

func (s *Service) emit(ctx context.Context, eventType string, p *model.Patient, now time.Time, reason string) {
	s.events.EmitBestEffort(ctx, eventType, cardEvent{
		PatientID:     p.ID,
		PatientNumber: p.PatientNumber,
		Status:        p.CardStatus,
		State:         cardpolicy.Evaluate(p.Card(), now),
		ExpiryDate:    p.CardExpiryDate,
		Reason:        reason,
	})
}

// Activate performs a full activation: a new validity period, an assigned
// doctor, and a recorded payment. The payment is informational.
func (s *Service) Activate(ctx context.Context, patientID uuid.UUID, req *model.ActivateCardRequest) (*model.PatientView, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	doctor, err := s.doctors.RequireDoctor(ctx, req.AssignedDoctorID)
	if err != nil {
		return nil, err
	}

	validity := req.ValidityDays
	if validity == 0 {
		policy, err := s.policies.Policy(ctx)
		if err != nil {
			return nil, err
		}
		validity = policy.CardValidityDays
	}

	now := s.now()
	stamp := now.UTC()
	expiry := stamp.AddDate(0, 0, validity)

	patient.CardStatus = cardpolicy.StatusActive
	patient.CardExpiryDate = &expiry
	patient.CardActivatedDate = &stamp
	patient.LastDailyActivation = &stamp
	patient.LastPaymentDate = &stamp
	patient.PaymentDueDate = &expiry
	patient.AssignedDoctorID = &doctor.ID
	if req.DailyActivationRequired != nil {
		patient.DailyActivationRequired = *req.DailyActivationRequired
	}

	if err := s.patients.UpdateCard(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to activate card: %w", err)
	}

	payment := &model.CardPayment{
		PatientID:    patient.ID,
		Amount:       req.PaymentAmount,
		Method:       req.PaymentMethod,
		Notes:        req.Notes,
		ValidityDays: validity,
	}
	if actor, ok := audit.ActorFrom(ctx); ok {
		payment.RecordedBy = &actor.UserID
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record card payment: %w", err)
	}

	s.emit(ctx, model.EventCardActivated, patient, now, "")
	s.auditor.Record(ctx, model.AuditActionCardActivate, model.AuditEntityPatient, patient.ID, map[string]interface{}{
		"validity_days":      validity,
		"card_expiry_date":   expiry,
		"assigned_doctor_id": doctor.ID,
		"payment_amount":     req.PaymentAmount,
		"payment_method":     req.PaymentMethod,
	})

	view := model.NewPatientView(patient, now)
	return &view, nil
}

// DailyActivate confirms the patient for today. It cannot revive an expired or
// suspended card and leaves the expiry date untouched.
func (s *Service) DailyActivate(ctx context.Context, patientID uuid.UUID) (*model.PatientView, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	now := s.now()
	switch state := cardpolicy.Evaluate(patient.Card(), now); state {
	case cardpolicy.StateExpired, cardpolicy.StateSuspended:
		return nil, apperrors.Conflict(fmt.Sprintf("card is %s; a full activation is required", state), nil)
	case cardpolicy.StateActive, cardpolicy.StateNeedsDailyActivation:
	}

	stamp := now.UTC()
	patient.CardStatus = cardpolicy.StatusActive
	patient.LastDailyActivation = &stamp

	if err := s.patients.UpdateCard(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to record daily activation: %w", err)
	}

	s.emit(ctx, model.EventCardDailyActivated, patient, now, "")
	s.auditor.Record(ctx, model.AuditActionCardDaily, model.AuditEntityPatient, patient.ID, map[string]interface{}{
		"last_daily_activation": stamp,
	})

	view := model.NewPatientView(patient, now)
	return &view, nil
}

func (s *Service) Suspend(ctx context.Context, patientID uuid.UUID, reason string) (*model.PatientView, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	now := s.now()
	previous := patient.CardStatus
	patient.CardStatus = cardpolicy.StatusSuspended

	if err := s.patients.UpdateCard(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to suspend card: %w", err)
	}

	s.emit(ctx, model.EventCardSuspended, patient, now, reason)
	s.auditor.Record(ctx, model.AuditActionCardSuspend, model.AuditEntityPatient, patient.ID, map[string]interface{}{
		"previous_status": previous,
		"reason":          reason,
	})

	view := model.NewPatientView(patient, now)
	return &view, nil
}

// Assess returns the card view of a patient the viewer is allowed to see.
func (s *Service) Assess(ctx context.Context, viewer cardpolicy.Viewer, patientID uuid.UUID) (*model.CardDetails, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	now := s.now()
	if !viewer.CanSee(patient, now) {
		return nil, apperrors.NotFound("patient", nil)
	}

	policy, err := s.policies.Policy(ctx)
	if err != nil {
		return nil, err
	}

	a := cardpolicy.Describe(patient.Card(), now)
	return &model.CardDetails{
		PatientID:     patient.ID,
		PatientNumber: patient.PatientNumber,
		PatientName:   patient.FullName(),
		Assessment:    a,
		ExpiringSoon:  a.ExpiringSoon(policy.PaymentReminderDays),
	}, nil
}

func (s *Service) Payments(ctx context.Context, patientID uuid.UUID) ([]*model.CardPayment, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	payments, err := s.payments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list card payments: %w", err)
	}
	return payments, nil
}

func (s *Service) GetPolicy(ctx context.Context) (*model.CardPolicy, error) {
	return s.policies.Policy(ctx)
}

func (s *Service) UpdatePolicy(ctx context.Context, req *model.UpdateCardPolicyRequest) (*model.CardPolicy, error) {
	policy, err := s.policies.Policy(ctx)
	if err != nil {
		return nil, err
	}

	if req.CardValidityDays != nil {
		policy.CardValidityDays = *req.CardValidityDays
	}
	if req.GracePeriodDays != nil {
		policy.GracePeriodDays = *req.GracePeriodDays
	}
	if req.AutoSuspend != nil {
		policy.AutoSuspend = *req.AutoSuspend
	}
	if req.PaymentReminderDays != nil {
		policy.PaymentReminderDays = *req.PaymentReminderDays
	}

	switch {
	case policy.CardValidityDays < 1:
		return nil, apperrors.BadRequest("card_validity_days must be at least 1", nil)
	case policy.GracePeriodDays < 0:
		return nil, apperrors.BadRequest("grace_period_days must not be negative", nil)
	case policy.PaymentReminderDays < 0:
		return nil, apperrors.BadRequest("payment_reminder_days must not be negative", nil)
	}

	if err := s.policies.Save(ctx, policy); err != nil {
		return nil, err
	}

	s.events.EmitBestEffort(ctx, model.EventCardPolicyUpdated, policy)
	s.auditor.Record(ctx, model.AuditActionPolicyUpdate, model.AuditEntityCardPolicy, policy.ID, req)
	return policy, nil
}
