package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var patientRowColumns = []string{
	"id", "patient_number", "first_name", "last_name", "date_of_birth", "gender", "phone", "email",
	"address", "emergency_contact_name", "emergency_contact_phone", "medical_history", "allergies",
	"assigned_doctor_id", "card_status", "card_expiry_date", "card_activated_date",
	"daily_activation_required", "last_daily_activation", "last_payment_date", "payment_due_date",
	"created_at", "updated_at",
}

func addPatientRow(rows *sqlmock.Rows, id uuid.UUID, number string, status cardpolicy.StoredStatus, expiry, lastDaily time.Time) *sqlmock.Rows {
	created := expiry.AddDate(0, 0, -30)
	return rows.AddRow(
		id.String(), number, "Amina", "Otieno", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), "female", "+254700000001", nil,
		"Moi Avenue", "Baraka Otieno", "+254700000002", nil, nil,
		nil, string(status), expiry, created,
		true, lastDaily, created, expiry,
		created, created,
	)
}

func TestPatientRepository_Get(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)

	id := uuid.New()
	expiry := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	lastDaily := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	rows := addPatientRow(sqlmock.NewRows(patientRowColumns), id, "P000042", cardpolicy.StatusActive, expiry, lastDaily)
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(rows)

	p, err := repo.Get(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, p.ID)
	assert.Equal(t, "P000042", p.PatientNumber)
	assert.Equal(t, cardpolicy.StatusActive, p.CardStatus)
	require.NotNil(t, p.CardExpiryDate)
	assert.True(t, expiry.Equal(*p.CardExpiryDate))
	assert.True(t, p.DailyActivationRequired)
	assert.Nil(t, p.AssignedDoctorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_GetNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = $1")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_CreateDuplicateNumber(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patients")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &model.Patient{PatientNumber: "P000001"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_DeactivateLapsed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)
	id := uuid.New()
	dayStart := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(deactivateLapsedQuery)).
		WithArgs("inactive", sqlmock.AnyArg(), id, dayStart).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.DeactivateLapsed(context.Background(), id, dayStart)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_DeactivateLapsedGuardsConcurrentChanges(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)
	id := uuid.New()
	dayStart := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

	// Suspended or confirmed after the sweep listed the card: no row matches.
	mock.ExpectExec(`UPDATE patients SET card_status = \$1, updated_at = \$2\s+WHERE id = \$3\s+` +
		`AND daily_activation_required\s+` +
		`AND card_status NOT IN \('inactive', 'suspended'\)\s+` +
		`AND \(last_daily_activation IS NULL OR last_daily_activation < \$4\)`).
		WithArgs("inactive", sqlmock.AnyArg(), id, dayStart).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.DeactivateLapsed(context.Background(), id, dayStart)
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_UpdateCard(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)

	now := time.Now().UTC()
	expiry := now.AddDate(0, 0, 30)
	doctor := uuid.New()
	p := &model.Patient{
		Base:                    model.Base{ID: uuid.New()},
		CardStatus:              cardpolicy.StatusActive,
		CardExpiryDate:          &expiry,
		CardActivatedDate:       &now,
		DailyActivationRequired: true,
		LastDailyActivation:     &now,
		AssignedDoctorID:        &doctor,
		LastPaymentDate:         &now,
		PaymentDueDate:          &expiry,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE patients SET")).
		WithArgs("active", expiry, now, true, now, doctor, now, expiry, sqlmock.AnyArg(), p.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateCard(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_ListDailyActivation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)

	expiry := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(patientRowColumns)
	addPatientRow(rows, uuid.New(), "P000002", cardpolicy.StatusActive, expiry, expiry.AddDate(0, 0, -20))
	addPatientRow(rows, uuid.New(), "P000001", cardpolicy.StatusInactive, expiry, expiry.AddDate(0, 0, -25))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE daily_activation_required = TRUE ORDER BY created_at DESC")).
		WillReturnRows(rows)

	patients, err := repo.List(context.Background(), &model.PatientFilters{DailyActivationOnly: true})
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "P000002", patients[0].PatientNumber)
	assert.Equal(t, cardpolicy.StatusInactive, patients[1].CardStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_ListSearch(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)
	doctor := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("first_name ILIKE $1")).
		WithArgs("%oti%", doctor).
		WillReturnRows(sqlmock.NewRows(patientRowColumns))

	patients, err := repo.List(context.Background(), &model.PatientFilters{SearchTerm: " oti ", AssignedDoctorID: &doctor})
	require.NoError(t, err)
	assert.Empty(t, patients)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_NextPatientNumber(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('patient_number_seq')")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(17)))

	n, err := repo.NextPatientNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "P000017", n)
	require.NoError(t, mock.ExpectationsWereMet())
}
