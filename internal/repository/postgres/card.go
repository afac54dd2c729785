package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
)

// clinicPolicyID is the primary key of the single clinic-wide policy row.
var clinicPolicyID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type cardPolicyRepository struct {
	db *sqlx.DB
}

func NewCardPolicyRepository(db *sqlx.DB) repository.CardPolicyRepository {
	return &cardPolicyRepository{db: db}
}

// Get returns the clinic policy, or NotFound when none has been saved yet.
func (r *cardPolicyRepository) Get(ctx context.Context) (*model.CardPolicy, error) {
	query := `
		SELECT id, card_validity_days, grace_period_days, auto_suspend, payment_reminder_days,
			created_at, updated_at
		FROM card_policies
		WHERE id = $1
	`
	var policy model.CardPolicy
	if err := r.db.GetContext(ctx, &policy, query, clinicPolicyID); err != nil {
		return nil, translate(err, "card policy", "failed to get card policy")
	}
	return &policy, nil
}

func (r *cardPolicyRepository) Upsert(ctx context.Context, policy *model.CardPolicy) error {
	query := `
		INSERT INTO card_policies (
			id, card_validity_days, grace_period_days, auto_suspend, payment_reminder_days,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE SET
			card_validity_days = EXCLUDED.card_validity_days,
			grace_period_days = EXCLUDED.grace_period_days,
			auto_suspend = EXCLUDED.auto_suspend,
			payment_reminder_days = EXCLUDED.payment_reminder_days,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	policy.ID = clinicPolicyID
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		policy.ID,
		policy.CardValidityDays,
		policy.GracePeriodDays,
		policy.AutoSuspend,
		policy.PaymentReminderDays,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save card policy: %w", err)
	}
	return nil
}

type cardPaymentRepository struct {
	db *sqlx.DB
}

func NewCardPaymentRepository(db *sqlx.DB) repository.CardPaymentRepository {
	return &cardPaymentRepository{db: db}
}

func (r *cardPaymentRepository) Create(ctx context.Context, payment *model.CardPayment) error {
	query := `
		INSERT INTO card_payments (
			id, patient_id, amount, method, notes, validity_days, recorded_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.PatientID,
		payment.Amount,
		payment.Method,
		payment.Notes,
		payment.ValidityDays,
		payment.RecordedBy,
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record card payment: %w", err)
	}
	return nil
}

func (r *cardPaymentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.CardPayment, error) {
	query := `
		SELECT id, patient_id, amount, method, notes, validity_days, recorded_by, created_at
		FROM card_payments
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var payments []*model.CardPayment
	if err := r.db.SelectContext(ctx, &payments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list card payments: %w", err)
	}
	return payments, nil
}
