package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cliniccare-api/internal/email"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository/mocks"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
	"github.com/jwalitptl/cliniccare-api/pkg/metrics"
)

type fixedPolicy struct{ reminderDays int }

func (p fixedPolicy) Policy(context.Context) (*model.CardPolicy, error) {
	policy := model.DefaultCardPolicy()
	policy.PaymentReminderDays = p.reminderDays
	return policy, nil
}

type fakeMailer struct {
	sent []string
	fail map[string]bool
}

func (m *fakeMailer) SendCardExpiryReminder(_ context.Context, to string, _ email.CardExpiryReminder) error {
	if m.fail[to] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *fakeMailer) SendCustom(context.Context, string, string, string) error { return nil }

func reminderPatient(addr string, status cardpolicy.StoredStatus, expiresIn time.Duration) *model.Patient {
	expiry := sweepNow.Add(expiresIn)
	p := &model.Patient{
		Base:           model.Base{ID: uuid.New()},
		PatientNumber:  "P" + addr,
		FirstName:      "Test",
		CardStatus:     status,
		CardExpiryDate: &expiry,
	}
	if addr != "" {
		e := addr + "@example.test"
		p.Email = &e
	}
	return p
}

func TestReminderJob_Run(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.PatientRepository{}
	repo.On("List", ctx, &model.PatientFilters{}).Return([]*model.Patient{
		reminderPatient("soon", cardpolicy.StatusActive, 3*24*time.Hour),
		reminderPatient("later", cardpolicy.StatusActive, 30*24*time.Hour),
		reminderPatient("expired", cardpolicy.StatusActive, -time.Hour),
		reminderPatient("suspended", cardpolicy.StatusSuspended, 24*time.Hour),
		reminderPatient("", cardpolicy.StatusActive, 24*time.Hour),
		reminderPatient("bounce", cardpolicy.StatusInactive, 2*24*time.Hour),
	}, nil)

	mailer := &fakeMailer{fail: map[string]bool{"bounce@example.test": true}}
	m := metrics.New("test")
	job := NewReminderJob(repo, fixedPolicy{reminderDays: 5}, mailer, 0, logger.Nop(), m)

	require.NoError(t, job.Run(ctx, sweepNow))
	assert.Equal(t, []string{"soon@example.test"}, mailer.sent)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemindersSent.WithLabelValues("sent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemindersSent.WithLabelValues("failed")))
}

func TestReminderJob_ListFailure(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.PatientRepository{}
	repo.On("List", ctx, &model.PatientFilters{}).Return(nil, errors.New("db down"))

	job := NewReminderJob(repo, fixedPolicy{reminderDays: 5}, &fakeMailer{}, 0, logger.Nop(), metrics.New("test"))
	assert.ErrorContains(t, job.Run(ctx, sweepNow), "db down")
}
