package appointment

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

const (
	DefaultDuration   = 30 * time.Minute
	MaxAdvanceBooking = 90 * 24 * time.Hour
)

type DoctorLookup interface {
	RequireDoctor(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type Service struct {
	repo     repository.AppointmentRepository
	patients repository.PatientRepository
	doctors  DoctorLookup
	events   *event.Service
	auditor  *audit.Service
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for card decisions. It should read time in the
// clinic's zone.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo repository.AppointmentRepository, patients repository.PatientRepository, doctors DoctorLookup,
	events *event.Service, auditor *audit.Service, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		patients: patients,
		doctors:  doctors,
		events:   events,
		auditor:  auditor,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type appointmentEvent struct {
	AppointmentID uuid.UUID               `json:"appointment_id"`
	PatientID     uuid.UUID               `json:"patient_id"`
	DoctorID      uuid.UUID               `json:"doctor_id"`
	StartTime     time.Time               `json:"start_time"`
	Status        model.AppointmentStatus `json:"status"`
}

func newAppointmentEvent(a *model.Appointment) appointmentEvent {
	return appointmentEvent{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		StartTime:     a.StartTime,
		Status:        a.Status,
	}
}

// Book schedules a visit. The patient's card must be ACTIVE at booking time and
// the doctor's slot must be free.
func (s *Service) Book(ctx context.Context, viewer cardpolicy.Viewer, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	now := s.now()

	duration := DefaultDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}
	start := req.StartTime.UTC()
	end := start.Add(duration)

	if start.Before(now) {
		return nil, apperrors.BadRequest("appointment cannot be scheduled in the past", nil)
	}
	if start.Sub(now) > MaxAdvanceBooking {
		return nil, apperrors.BadRequest("appointment is too far in advance", nil)
	}

	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if !viewer.CanSee(patient, now) {
		return nil, apperrors.NotFound("patient", nil)
	}
	if state := cardpolicy.Evaluate(patient.Card(), now); !state.Usable() {
		return nil, apperrors.Conflict(fmt.Sprintf("patient card is %s", state), nil)
	}

	if _, err := s.doctors.RequireDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	busy, err := s.repo.HasConflict(ctx, req.DoctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to check doctor availability: %w", err)
	}
	if busy {
		return nil, apperrors.Conflict("doctor already has an appointment in this slot", nil)
	}

	createdBy, err := uuid.Parse(viewer.ID)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	a := &model.Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		StartTime: start,
		EndTime:   end,
		Status:    model.AppointmentStatusScheduled,
		Reason:    req.Reason,
		Notes:     req.Notes,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.events.EmitBestEffort(ctx, model.EventAppointmentBooked, newAppointmentEvent(a))
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityAppointment, a.ID, req)
	return a, nil
}

// List returns appointments. Doctors only ever see their own.
func (s *Service) List(ctx context.Context, viewer cardpolicy.Viewer, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}
	if viewer.Role == cardpolicy.RoleDoctor {
		id, err := uuid.Parse(viewer.ID)
		if err != nil {
			return nil, apperrors.Unauthorized(err)
		}
		filters.DoctorID = &id
	}

	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) UpdateStatus(ctx context.Context, viewer cardpolicy.Viewer, id uuid.UUID, req *model.UpdateAppointmentStatusRequest) (*model.Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if viewer.Role == cardpolicy.RoleDoctor && a.DoctorID.String() != viewer.ID {
		return nil, apperrors.Forbidden("appointment belongs to another doctor")
	}
	if !a.Status.CanTransitionTo(req.Status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot move appointment from %s to %s", a.Status, req.Status), nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status, req.Notes); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	previous := a.Status
	a.Status = req.Status
	if req.Notes != nil {
		a.Notes = req.Notes
	}

	s.events.EmitBestEffort(ctx, model.EventAppointmentUpdated, newAppointmentEvent(a))
	s.auditor.Record(ctx, model.AuditActionStatusChange, model.AuditEntityAppointment, a.ID, map[string]interface{}{
		"from": previous,
		"to":   a.Status,
	})
	return a, nil
}
