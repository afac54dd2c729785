package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository is implemented by the Postgres and Firestore stores.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// Update writes demographic fields only.
		Update(ctx context.Context, patient *model.Patient) error
		// UpdateCard writes every card lifecycle field.
		UpdateCard(ctx context.Context, patient *model.Patient) error
		// DeactivateLapsed stores card_status inactive only if, at write time, the
		// card is flagged, neither inactive nor suspended, and was not confirmed
		// on or after dayStart. It reports whether the card changed.
		DeactivateLapsed(ctx context.Context, id uuid.UUID, dayStart time.Time) (bool, error)
		// List returns patients newest first.
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
		NextPatientNumber(ctx context.Context) (string, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, notes *string) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// HasConflict reports a scheduled appointment for the doctor overlapping [start, end).
		HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error)
	}

	CardPolicyRepository interface {
		Get(ctx context.Context) (*model.CardPolicy, error)
		Upsert(ctx context.Context, policy *model.CardPolicy) error
	}

	CardPaymentRepository interface {
		Create(ctx context.Context, payment *model.CardPayment) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.CardPayment, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ProcessPending locks up to limit pending events and records the outcome of
		// handle for each one in the same transaction.
		ProcessPending(ctx context.Context, limit int, handle func(context.Context, *model.OutboxEvent) error) (processed, failed int, err error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// SweepStateStore remembers when the deactivation sweep last completed.
	SweepStateStore interface {
		LastRun(ctx context.Context) (time.Time, bool, error)
		SetLastRun(ctx context.Context, at time.Time) error
	}
)
