package email

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/cliniccare-api/internal/config"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	c.sent = append(c.sent, m...)
	return c.err
}

func TestSMTPService_SendCardExpiryReminder(t *testing.T) {
	capture := &captureSender{}
	svc := &smtpService{from: "clinic@example.test", dialer: capture}

	err := svc.SendCardExpiryReminder(context.Background(), "amina@example.test", CardExpiryReminder{
		PatientName:   "Amina Otieno",
		PatientNumber: "P000042",
		ExpiryDate:    time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
		DaysLeft:      3,
	})
	require.NoError(t, err)
	require.Len(t, capture.sent, 1)

	m := capture.sent[0]
	assert.Equal(t, []string{"amina@example.test"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Your clinic card P000042 expires soon"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "14 March 2024")
}

func TestSMTPService_SendError(t *testing.T) {
	svc := &smtpService{from: "clinic@example.test", dialer: &captureSender{err: errors.New("relay refused")}}
	err := svc.SendCustom(context.Background(), "x@example.test", "s", "b")
	assert.ErrorContains(t, err, "relay refused")
}

func TestNewSMTPServiceRequiresHost(t *testing.T) {
	_, err := NewSMTPService(config.SMTPConfig{From: "clinic@example.test"})
	assert.Error(t, err)

	svc, err := NewSMTPService(config.SMTPConfig{Host: "smtp.example.test", Port: 587, From: "clinic@example.test"})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
