// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
)

var (
	_ repository.PatientRepository     = (*PatientRepository)(nil)
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.AppointmentRepository = (*AppointmentRepository)(nil)
	_ repository.CardPolicyRepository  = (*CardPolicyRepository)(nil)
	_ repository.CardPaymentRepository = (*CardPaymentRepository)(nil)
	_ repository.AuditRepository       = (*AuditRepository)(nil)
	_ repository.OutboxRepository      = (*OutboxRepository)(nil)
	_ repository.SweepStateStore       = (*SweepStateStore)(nil)
)

type PatientRepository struct{ mock.Mock }

func (m *PatientRepository) Create(ctx context.Context, p *model.Patient) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Patient)
	return p, args.Error(1)
}

func (m *PatientRepository) Update(ctx context.Context, p *model.Patient) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PatientRepository) UpdateCard(ctx context.Context, p *model.Patient) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PatientRepository) DeactivateLapsed(ctx context.Context, id uuid.UUID, dayStart time.Time) (bool, error) {
	args := m.Called(ctx, id, dayStart)
	return args.Bool(0), args.Error(1)
}

func (m *PatientRepository) List(ctx context.Context, f *model.PatientFilters) ([]*model.Patient, error) {
	args := m.Called(ctx, f)
	ps, _ := args.Get(0).([]*model.Patient)
	return ps, args.Error(1)
}

func (m *PatientRepository) NextPatientNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type UserRepository struct{ mock.Mock }

func (m *UserRepository) Create(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepository) List(ctx context.Context, f *model.UserFilters) ([]*model.User, error) {
	args := m.Called(ctx, f)
	us, _ := args.Get(0).([]*model.User)
	return us, args.Error(1)
}

func (m *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type AppointmentRepository struct{ mock.Mock }

func (m *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Appointment)
	return a, args.Error(1)
}

func (m *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, s model.AppointmentStatus, notes *string) error {
	return m.Called(ctx, id, s, notes).Error(0)
}

func (m *AppointmentRepository) List(ctx context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	args := m.Called(ctx, f)
	as, _ := args.Get(0).([]*model.Appointment)
	return as, args.Error(1)
}

func (m *AppointmentRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error) {
	args := m.Called(ctx, doctorID, start, end)
	return args.Bool(0), args.Error(1)
}

type CardPolicyRepository struct{ mock.Mock }

func (m *CardPolicyRepository) Get(ctx context.Context) (*model.CardPolicy, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*model.CardPolicy)
	return p, args.Error(1)
}

func (m *CardPolicyRepository) Upsert(ctx context.Context, p *model.CardPolicy) error {
	return m.Called(ctx, p).Error(0)
}

type CardPaymentRepository struct{ mock.Mock }

func (m *CardPaymentRepository) Create(ctx context.Context, p *model.CardPayment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *CardPaymentRepository) ListByPatient(ctx context.Context, id uuid.UUID) ([]*model.CardPayment, error) {
	args := m.Called(ctx, id)
	ps, _ := args.Get(0).([]*model.CardPayment)
	return ps, args.Error(1)
}

type AuditRepository struct{ mock.Mock }

func (m *AuditRepository) Create(ctx context.Context, l *model.AuditLog) error {
	return m.Called(ctx, l).Error(0)
}

func (m *AuditRepository) List(ctx context.Context, f *model.AuditFilters) ([]*model.AuditLog, error) {
	args := m.Called(ctx, f)
	ls, _ := args.Get(0).([]*model.AuditLog)
	return ls, args.Error(1)
}

func (m *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type OutboxRepository struct{ mock.Mock }

func (m *OutboxRepository) Create(ctx context.Context, e *model.OutboxEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *OutboxRepository) ProcessPending(ctx context.Context, limit int, handle func(context.Context, *model.OutboxEvent) error) (int, int, error) {
	args := m.Called(ctx, limit, handle)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type SweepStateStore struct{ mock.Mock }

func (m *SweepStateStore) LastRun(ctx context.Context) (time.Time, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *SweepStateStore) SetLastRun(ctx context.Context, at time.Time) error {
	return m.Called(ctx, at).Error(0)
}

// EventTypes returns the event types passed to Create, in call order.
func (m *OutboxRepository) EventTypes() []string {
	var types []string
	for _, c := range m.Calls {
		if c.Method == "Create" {
			types = append(types, c.Arguments.Get(1).(*model.OutboxEvent).EventType)
		}
	}
	return types
}
