package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/cliniccare-api/internal/config"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
)

type Service interface {
	SendCardExpiryReminder(ctx context.Context, to string, reminder CardExpiryReminder) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

type CardExpiryReminder struct {
	PatientName   string
	PatientNumber string
	ExpiryDate    time.Time
	DaysLeft      int
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	from   string
	dialer sender
}

// NewSMTPService sends mail through the configured SMTP relay.
func NewSMTPService(cfg config.SMTPConfig) (Service, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("SMTP host and from address are required")
	}
	return &smtpService{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

func (s *smtpService) SendCardExpiryReminder(ctx context.Context, to string, r CardExpiryReminder) error {
	subject := fmt.Sprintf("Your clinic card %s expires soon", r.PatientNumber)
	if r.DaysLeft <= 0 {
		subject = fmt.Sprintf("Your clinic card %s expires today", r.PatientNumber)
	}
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Your clinic card <strong>%s</strong> expires on %s (%d day(s) left).</p>"+
			"<p>Please visit reception to renew it before your next appointment.</p>",
		r.PatientName, r.PatientNumber, r.ExpiryDate.Format("2 January 2006"), r.DaysLeft)
	return s.SendCustom(ctx, to, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logService struct {
	logger *logger.Logger
}

// NewLogService only logs. Used when SMTP is disabled.
func NewLogService(logger *logger.Logger) Service {
	return &logService{logger: logger.With("component", "email")}
}

func (s *logService) SendCardExpiryReminder(_ context.Context, to string, r CardExpiryReminder) error {
	s.logger.Info("SMTP disabled, reminder not sent", "to", to, "patient_number", r.PatientNumber, "days_left", r.DaysLeft)
	return nil
}

func (s *logService) SendCustom(_ context.Context, to string, subject string, _ string) error {
	s.logger.Info("SMTP disabled, email not sent", "to", to, "subject", subject)
	return nil
}
