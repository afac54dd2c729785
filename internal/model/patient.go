package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Patient is a clinic patient together with the card fields that gate access.
// CardStatus is a cache maintained by card operations and the nightly sweep; access
// decisions go through Card() and cardpolicy.Evaluate.
type Patient struct {
	Base
	PatientNumber         string     `db:"patient_number" json:"patient_number"`
	FirstName             string     `db:"first_name" json:"first_name"`
	LastName              string     `db:"last_name" json:"last_name"`
	DateOfBirth           time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender                Gender     `db:"gender" json:"gender"`
	Phone                 string     `db:"phone" json:"phone"`
	Email                 *string    `db:"email" json:"email,omitempty"`
	Address               string     `db:"address" json:"address"`
	EmergencyContactName  string     `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone string     `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	MedicalHistory        *string    `db:"medical_history" json:"medical_history,omitempty"`
	Allergies             *string    `db:"allergies" json:"allergies,omitempty"`
	AssignedDoctorID      *uuid.UUID `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty"`

	CardStatus              cardpolicy.StoredStatus `db:"card_status" json:"card_status"`
	CardExpiryDate          *time.Time              `db:"card_expiry_date" json:"card_expiry_date"`
	CardActivatedDate       *time.Time              `db:"card_activated_date" json:"card_activated_date,omitempty"`
	DailyActivationRequired bool                    `db:"daily_activation_required" json:"daily_activation_required"`
	LastDailyActivation     *time.Time              `db:"last_daily_activation" json:"last_daily_activation,omitempty"`
	LastPaymentDate         *time.Time              `db:"last_payment_date" json:"last_payment_date,omitempty"`
	PaymentDueDate          *time.Time              `db:"payment_due_date" json:"payment_due_date,omitempty"`
}

// Card projects the lifecycle fields for the policy evaluator.
func (p *Patient) Card() cardpolicy.Card {
	return cardpolicy.Card{
		Status:                  p.CardStatus,
		ExpiryDate:              p.CardExpiryDate,
		ActivatedDate:           p.CardActivatedDate,
		DailyActivationRequired: p.DailyActivationRequired,
		LastDailyActivation:     p.LastDailyActivation,
	}
}

func (p *Patient) AssignedDoctor() string {
	if p.AssignedDoctorID == nil {
		return ""
	}
	return p.AssignedDoctorID.String()
}

// FormatPatientNumber renders the clinic-facing patient number.
func FormatPatientNumber(n int64) string {
	return fmt.Sprintf("P%06d", n)
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// PatientView is a patient as returned to staff: the record plus its live card state.
type PatientView struct {
	*Patient
	EffectiveState cardpolicy.EffectiveState `json:"effective_card_state"`
}

func NewPatientView(p *Patient, asOf time.Time) PatientView {
	return PatientView{Patient: p, EffectiveState: cardpolicy.Evaluate(p.Card(), asOf)}
}

type CreatePatientRequest struct {
	PatientNumber           string     `json:"patient_number"`
	FirstName               string     `json:"first_name" binding:"required"`
	LastName                string     `json:"last_name" binding:"required"`
	DateOfBirth             time.Time  `json:"date_of_birth" binding:"required"`
	Gender                  Gender     `json:"gender" binding:"required,oneof=male female other"`
	Phone                   string     `json:"phone" binding:"required"`
	Email                   *string    `json:"email" binding:"omitempty,email"`
	Address                 string     `json:"address" binding:"required"`
	EmergencyContactName    string     `json:"emergency_contact_name" binding:"required"`
	EmergencyContactPhone   string     `json:"emergency_contact_phone" binding:"required"`
	MedicalHistory          *string    `json:"medical_history"`
	Allergies               *string    `json:"allergies"`
	AssignedDoctorID        *uuid.UUID `json:"assigned_doctor_id"`
	CardValidityDays        int        `json:"card_validity_days" binding:"omitempty,min=1,max=3650"`
	DailyActivationRequired *bool      `json:"daily_activation_required"`
}

// UpdatePatientRequest carries demographic changes only. Card fields are changed
// through the card endpoints.
type UpdatePatientRequest struct {
	FirstName             *string    `json:"first_name"`
	LastName              *string    `json:"last_name"`
	DateOfBirth           *time.Time `json:"date_of_birth"`
	Gender                *Gender    `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone                 *string    `json:"phone"`
	Email                 *string    `json:"email" binding:"omitempty,email"`
	Address               *string    `json:"address"`
	EmergencyContactName  *string    `json:"emergency_contact_name"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone"`
	MedicalHistory        *string    `json:"medical_history"`
	Allergies             *string    `json:"allergies"`
}

type PatientFilters struct {
	SearchTerm       string
	CardStatus       cardpolicy.StoredStatus
	AssignedDoctorID *uuid.UUID
	// DailyActivationOnly restricts the list to cards flagged for daily activation.
	DailyActivationOnly bool
}
