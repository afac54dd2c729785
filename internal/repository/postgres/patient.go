package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

const patientColumns = `id, patient_number, first_name, last_name, date_of_birth, gender, phone, email,
	address, emergency_contact_name, emergency_contact_phone, medical_history, allergies,
	assigned_doctor_id, card_status, card_expiry_date, card_activated_date,
	daily_activation_required, last_daily_activation, last_payment_date, payment_due_date,
	created_at, updated_at`

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `INSERT INTO patients (` + patientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23)`

	now := time.Now().UTC()
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = now
	patient.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.PatientNumber,
		patient.FirstName,
		patient.LastName,
		patient.DateOfBirth,
		patient.Gender,
		patient.Phone,
		patient.Email,
		patient.Address,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
		patient.MedicalHistory,
		patient.Allergies,
		patient.AssignedDoctorID,
		patient.CardStatus,
		patient.CardExpiryDate,
		patient.CardActivatedDate,
		patient.DailyActivationRequired,
		patient.LastDailyActivation,
		patient.LastPaymentDate,
		patient.PaymentDueDate,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	return translate(err, "patient", "failed to create patient")
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, translate(err, "patient", "failed to get patient")
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients SET
			first_name = $1, last_name = $2, date_of_birth = $3, gender = $4, phone = $5,
			email = $6, address = $7, emergency_contact_name = $8, emergency_contact_phone = $9,
			medical_history = $10, allergies = $11, updated_at = $12
		WHERE id = $13`

	patient.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query,
		patient.FirstName,
		patient.LastName,
		patient.DateOfBirth,
		patient.Gender,
		patient.Phone,
		patient.Email,
		patient.Address,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
		patient.MedicalHistory,
		patient.Allergies,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return translate(err, "patient", "failed to update patient")
	}
	return requireRow(res, "patient")
}

func (r *patientRepository) UpdateCard(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients SET
			card_status = $1, card_expiry_date = $2, card_activated_date = $3,
			daily_activation_required = $4, last_daily_activation = $5, assigned_doctor_id = $6,
			last_payment_date = $7, payment_due_date = $8, updated_at = $9
		WHERE id = $10`

	patient.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query,
		patient.CardStatus,
		patient.CardExpiryDate,
		patient.CardActivatedDate,
		patient.DailyActivationRequired,
		patient.LastDailyActivation,
		patient.AssignedDoctorID,
		patient.LastPaymentDate,
		patient.PaymentDueDate,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return translate(err, "patient", "failed to update patient card")
	}
	return requireRow(res, "patient")
}

const deactivateLapsedQuery = `
	UPDATE patients SET card_status = $1, updated_at = $2
	WHERE id = $3
	  AND daily_activation_required
	  AND card_status NOT IN ('inactive', 'suspended')
	  AND (last_daily_activation IS NULL OR last_daily_activation < $4)`

func (r *patientRepository) DeactivateLapsed(ctx context.Context, id uuid.UUID, dayStart time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, deactivateLapsedQuery, cardpolicy.StatusInactive, time.Now().UTC(), id, dayStart)
	if err != nil {
		return false, translate(err, "patient", "failed to deactivate card")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters != nil {
		if term := strings.TrimSpace(filters.SearchTerm); term != "" {
			p := arg("%" + term + "%")
			where = append(where, fmt.Sprintf(
				"(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR patient_number ILIKE %[1]s OR phone ILIKE %[1]s)", p))
		}
		if filters.CardStatus != "" {
			where = append(where, "card_status = "+arg(filters.CardStatus))
		}
		if filters.AssignedDoctorID != nil {
			where = append(where, "assigned_doctor_id = "+arg(*filters.AssignedDoctorID))
		}
		if filters.DailyActivationOnly {
			where = append(where, "daily_activation_required = TRUE")
		}
	}

	query := `SELECT ` + patientColumns + ` FROM patients`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) NextPatientNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT nextval('patient_number_seq')`); err != nil {
		return "", fmt.Errorf("failed to allocate patient number: %w", err)
	}
	return model.FormatPatientNumber(n), nil
}
