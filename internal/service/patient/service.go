package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	"github.com/jwalitptl/cliniccare-api/internal/service/audit"
	"github.com/jwalitptl/cliniccare-api/internal/service/event"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

type DoctorLookup interface {
	RequireDoctor(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type PolicyProvider interface {
	Policy(ctx context.Context) (*model.CardPolicy, error)
}

type Service struct {
	repo     repository.PatientRepository
	doctors  DoctorLookup
	policies PolicyProvider
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

func NewService(repo repository.PatientRepository, doctors DoctorLookup, policies PolicyProvider,
	events *event.Service, auditor *audit.Service, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
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

type patientEvent struct {
	PatientID     uuid.UUID               `json:"patient_id"`
	PatientNumber string                  `json:"patient_number"`
	Status        cardpolicy.StoredStatus `json:"card_status"`
	ExpiryDate    *time.Time              `json:"card_expiry_date,omitempty"`
}

// Register creates the patient with a card that is active from now for the
// requested or clinic default validity.
func (s *Service) Register(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientView, error) {
	if req.AssignedDoctorID != nil {
		if _, err := s.doctors.RequireDoctor(ctx, *req.AssignedDoctorID); err != nil {
			return nil, err
		}
	}

	validity := req.CardValidityDays
	if validity == 0 {
		policy, err := s.policies.Policy(ctx)
		if err != nil {
			return nil, err
		}
		validity = policy.CardValidityDays
	}

	number := strings.TrimSpace(req.PatientNumber)
	if number == "" {
		n, err := s.repo.NextPatientNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate patient number: %w", err)
		}
		number = n
	}

	dailyRequired := true
	if req.DailyActivationRequired != nil {
		dailyRequired = *req.DailyActivationRequired
	}

	now := s.now()
	stamp := now.UTC()
	expiry := stamp.AddDate(0, 0, validity)

	p := &model.Patient{
		Base:                    model.Base{ID: uuid.New()},
		PatientNumber:           number,
		FirstName:               req.FirstName,
		LastName:                req.LastName,
		DateOfBirth:             req.DateOfBirth,
		Gender:                  req.Gender,
		Phone:                   req.Phone,
		Email:                   req.Email,
		Address:                 req.Address,
		EmergencyContactName:    req.EmergencyContactName,
		EmergencyContactPhone:   req.EmergencyContactPhone,
		MedicalHistory:          req.MedicalHistory,
		Allergies:               req.Allergies,
		AssignedDoctorID:        req.AssignedDoctorID,
		CardStatus:              cardpolicy.StatusActive,
		CardExpiryDate:          &expiry,
		CardActivatedDate:       &stamp,
		DailyActivationRequired: dailyRequired,
		LastDailyActivation:     &stamp,
		PaymentDueDate:          &expiry,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.events.EmitBestEffort(ctx, model.EventPatientRegistered, patientEvent{
		PatientID:     p.ID,
		PatientNumber: p.PatientNumber,
		Status:        p.CardStatus,
		ExpiryDate:    p.CardExpiryDate,
	})
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityPatient, p.ID, map[string]interface{}{
		"patient_number": p.PatientNumber,
		"validity_days":  validity,
	})

	view := model.NewPatientView(p, now)
	return &view, nil
}

// Get returns the patient if the viewer may see it. Hidden patients read as not found.
func (s *Service) Get(ctx context.Context, viewer cardpolicy.Viewer, id uuid.UUID) (*model.PatientView, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	now := s.now()
	if !viewer.CanSee(p, now) {
		return nil, apperrors.NotFound("patient", nil)
	}

	view := model.NewPatientView(p, now)
	return &view, nil
}

// List returns the patients the viewer may see, newest first.
func (s *Service) List(ctx context.Context, viewer cardpolicy.Viewer, filters *model.PatientFilters) ([]model.PatientView, error) {
	patients, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	now := s.now()
	visible := cardpolicy.VisiblePatients(patients, viewer, now)

	views := make([]model.PatientView, 0, len(visible))
	for _, p := range visible {
		views = append(views, model.NewPatientView(p, now))
	}
	return views, nil
}

func (s *Service) Search(ctx context.Context, viewer cardpolicy.Viewer, term string) ([]model.PatientView, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.BadRequest("search term is required", nil)
	}
	return s.List(ctx, viewer, &model.PatientFilters{SearchTerm: term})
}

// Update changes demographic fields. Card fields are only written by card operations.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.PatientView, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	applyUpdate(p, req)

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.events.EmitBestEffort(ctx, model.EventPatientUpdated, patientEvent{
		PatientID:     p.ID,
		PatientNumber: p.PatientNumber,
		Status:        p.CardStatus,
		ExpiryDate:    p.CardExpiryDate,
	})
	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityPatient, p.ID, req)

	view := model.NewPatientView(p, s.now())
	return &view, nil
}

func applyUpdate(p *model.Patient, req *model.UpdatePatientRequest) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}

	setString(&p.FirstName, req.FirstName)
	setString(&p.LastName, req.LastName)
	setString(&p.Phone, req.Phone)
	setString(&p.Address, req.Address)
	setString(&p.EmergencyContactName, req.EmergencyContactName)
	setString(&p.EmergencyContactPhone, req.EmergencyContactPhone)
	if req.DateOfBirth != nil {
		p.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender != nil {
		p.Gender = *req.Gender
	}
	if req.Email != nil {
		p.Email = req.Email
	}
	if req.MedicalHistory != nil {
		p.MedicalHistory = req.MedicalHistory
	}
	if req.Allergies != nil {
		p.Allergies = req.Allergies
	}
}
