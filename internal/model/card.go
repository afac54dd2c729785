package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

// Clinic-wide card policy defaults.
const (
	DefaultCardValidityDays    = 30
	DefaultGracePeriodDays     = 7
	DefaultAutoSuspend         = true
	DefaultPaymentReminderDays = 5
)

// CardPolicy holds the clinic's card settings. GracePeriodDays and AutoSuspend are
// recorded for reporting; no transition reads them.
type CardPolicy struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	CardValidityDays    int       `db:"card_validity_days" json:"card_validity_days"`
	GracePeriodDays     int       `db:"grace_period_days" json:"grace_period_days"`
	AutoSuspend         bool      `db:"auto_suspend" json:"auto_suspend"`
	PaymentReminderDays int       `db:"payment_reminder_days" json:"payment_reminder_days"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

func DefaultCardPolicy() *CardPolicy {
	return &CardPolicy{
		CardValidityDays:    DefaultCardValidityDays,
		GracePeriodDays:     DefaultGracePeriodDays,
		AutoSuspend:         DefaultAutoSuspend,
		PaymentReminderDays: DefaultPaymentReminderDays,
	}
}

type UpdateCardPolicyRequest struct {
	CardValidityDays    *int  `json:"card_validity_days" binding:"omitempty,min=1,max=3650"`
	GracePeriodDays     *int  `json:"grace_period_days" binding:"omitempty,min=0,max=365"`
	AutoSuspend         *bool `json:"auto_suspend"`
	PaymentReminderDays *int  `json:"payment_reminder_days" binding:"omitempty,min=0,max=365"`
}

type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodInsurance PaymentMethod = "insurance"
)

// CardPayment records the payment taken at a full activation. Informational only.
type CardPayment struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	PatientID    uuid.UUID     `db:"patient_id" json:"patient_id"`
	Amount       float64       `db:"amount" json:"amount"`
	Method       PaymentMethod `db:"method" json:"method"`
	Notes        *string       `db:"notes" json:"notes,omitempty"`
	ValidityDays int           `db:"validity_days" json:"validity_days"`
	RecordedBy   *uuid.UUID    `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

type ActivateCardRequest struct {
	AssignedDoctorID        uuid.UUID     `json:"assigned_doctor_id" binding:"required"`
	ValidityDays            int           `json:"validity_days" binding:"omitempty,min=1,max=3650"`
	PaymentAmount           float64       `json:"payment_amount" binding:"gte=0"`
	PaymentMethod           PaymentMethod `json:"payment_method" binding:"required,oneof=cash card insurance"`
	Notes                   *string       `json:"notes"`
	DailyActivationRequired *bool         `json:"daily_activation_required"`
}

type SuspendCardRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CardDetails is the card view of one patient.
type CardDetails struct {
	PatientID     uuid.UUID             `json:"patient_id"`
	PatientNumber string                `json:"patient_number"`
	PatientName   string                `json:"patient_name"`
	Assessment    cardpolicy.Assessment `json:"assessment"`
	ExpiringSoon  bool                  `json:"expiring_soon"`
}
