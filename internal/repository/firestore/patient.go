// Package firestore stores patients in a Cloud Firestore collection. It is the
// document-store alternative to the Postgres patient repository and keeps the
// same snake_case field names.
package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jwalitptl/cliniccare-api/internal/config"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

const (
	patientsCollection = "patients"
	countersCollection = "counters"
	patientCounterDoc  = "patients"
)

// NewClient opens a Firestore client through the Firebase app. Without a
// credentials file the default application credentials are used.
func NewClient(ctx context.Context, cfg config.FirebaseConfig) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}
	return client, nil
}

type patientDoc struct {
	PatientNumber           string     `firestore:"patient_number"`
	FirstName               string     `firestore:"first_name"`
	LastName                string     `firestore:"last_name"`
	DateOfBirth             time.Time  `firestore:"date_of_birth"`
	Gender                  string     `firestore:"gender"`
	Phone                   string     `firestore:"phone"`
	Email                   *string    `firestore:"email"`
	Address                 string     `firestore:"address"`
	EmergencyContactName    string     `firestore:"emergency_contact_name"`
	EmergencyContactPhone   string     `firestore:"emergency_contact_phone"`
	MedicalHistory          *string    `firestore:"medical_history"`
	Allergies               *string    `firestore:"allergies"`
	AssignedDoctorID        string     `firestore:"assigned_doctor_id"`
	CardStatus              string     `firestore:"card_status"`
	CardExpiryDate          *time.Time `firestore:"card_expiry_date"`
	CardActivatedDate       *time.Time `firestore:"card_activated_date"`
	DailyActivationRequired bool       `firestore:"daily_activation_required"`
	LastDailyActivation     *time.Time `firestore:"last_daily_activation"`
	LastPaymentDate         *time.Time `firestore:"last_payment_date"`
	PaymentDueDate          *time.Time `firestore:"payment_due_date"`
	CreatedAt               time.Time  `firestore:"created_at"`
	UpdatedAt               time.Time  `firestore:"updated_at"`
}

func toDoc(p *model.Patient) patientDoc {
	return patientDoc{
		PatientNumber:           p.PatientNumber,
		FirstName:               p.FirstName,
		LastName:                p.LastName,
		DateOfBirth:             p.DateOfBirth,
		Gender:                  string(p.Gender),
		Phone:                   p.Phone,
		Email:                   p.Email,
		Address:                 p.Address,
		EmergencyContactName:    p.EmergencyContactName,
		EmergencyContactPhone:   p.EmergencyContactPhone,
		MedicalHistory:          p.MedicalHistory,
		Allergies:               p.Allergies,
		AssignedDoctorID:        p.AssignedDoctor(),
		CardStatus:              string(p.CardStatus),
		CardExpiryDate:          p.CardExpiryDate,
		CardActivatedDate:       p.CardActivatedDate,
		DailyActivationRequired: p.DailyActivationRequired,
		LastDailyActivation:     p.LastDailyActivation,
		LastPaymentDate:         p.LastPaymentDate,
		PaymentDueDate:          p.PaymentDueDate,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}

func fromDoc(id string, d patientDoc) (*model.Patient, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid patient document id %q: %w", id, err)
	}

	p := &model.Patient{
		Base:                    model.Base{ID: pid, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt},
		PatientNumber:           d.PatientNumber,
		FirstName:               d.FirstName,
		LastName:                d.LastName,
		DateOfBirth:             d.DateOfBirth,
		Gender:                  model.Gender(d.Gender),
		Phone:                   d.Phone,
		Email:                   d.Email,
		Address:                 d.Address,
		EmergencyContactName:    d.EmergencyContactName,
		EmergencyContactPhone:   d.EmergencyContactPhone,
		MedicalHistory:          d.MedicalHistory,
		Allergies:               d.Allergies,
		CardStatus:              cardpolicy.StoredStatus(d.CardStatus),
		CardExpiryDate:          d.CardExpiryDate,
		CardActivatedDate:       d.CardActivatedDate,
		DailyActivationRequired: d.DailyActivationRequired,
		LastDailyActivation:     d.LastDailyActivation,
		LastPaymentDate:         d.LastPaymentDate,
		PaymentDueDate:          d.PaymentDueDate,
	}
	if d.AssignedDoctorID != "" {
		doctor, err := uuid.Parse(d.AssignedDoctorID)
		if err != nil {
			return nil, fmt.Errorf("invalid assigned doctor on patient %s: %w", id, err)
		}
		p.AssignedDoctorID = &doctor
	}
	return p, nil
}

// translate maps gRPC status codes onto application errors.
func translate(err error, msg string) error {
	switch status.Code(err) {
	case codes.OK:
		return nil
	case codes.NotFound:
		return apperrors.NotFound("patient", err)
	case codes.AlreadyExists:
		return apperrors.Conflict("patient already exists", err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

type patientRepository struct {
	client *firestore.Client
}

func NewPatientRepository(client *firestore.Client) repository.PatientRepository {
	return &patientRepository{client: client}
}

func (r *patientRepository) patients() *firestore.CollectionRef {
	return r.client.Collection(patientsCollection)
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	_, err := r.patients().Doc(patient.ID.String()).Create(ctx, toDoc(patient))
	return translate(err, "failed to create patient")
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	snap, err := r.patients().Doc(id.String()).Get(ctx)
	if err != nil {
		return nil, translate(err, "failed to get patient")
	}

	var d patientDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode patient %s: %w", id, err)
	}
	return fromDoc(snap.Ref.ID, d)
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	_, err := r.patients().Doc(patient.ID.String()).Update(ctx, []firestore.Update{
		{Path: "first_name", Value: patient.FirstName},
		{Path: "last_name", Value: patient.LastName},
		{Path: "date_of_birth", Value: patient.DateOfBirth},
		{Path: "gender", Value: string(patient.Gender)},
		{Path: "phone", Value: patient.Phone},
		{Path: "email", Value: patient.Email},
		{Path: "address", Value: patient.Address},
		{Path: "emergency_contact_name", Value: patient.EmergencyContactName},
		{Path: "emergency_contact_phone", Value: patient.EmergencyContactPhone},
		{Path: "medical_history", Value: patient.MedicalHistory},
		{Path: "allergies", Value: patient.Allergies},
		{Path: "updated_at", Value: patient.UpdatedAt},
	})
	return translate(err, "failed to update patient")
}

func (r *patientRepository) UpdateCard(ctx context.Context, patient *model.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	_, err := r.patients().Doc(patient.ID.String()).Update(ctx, []firestore.Update{
		{Path: "card_status", Value: string(patient.CardStatus)},
		{Path: "card_expiry_date", Value: patient.CardExpiryDate},
		{Path: "card_activated_date", Value: patient.CardActivatedDate},
		{Path: "daily_activation_required", Value: patient.DailyActivationRequired},
		{Path: "last_daily_activation", Value: patient.LastDailyActivation},
		{Path: "assigned_doctor_id", Value: patient.AssignedDoctor()},
		{Path: "last_payment_date", Value: patient.LastPaymentDate},
		{Path: "payment_due_date", Value: patient.PaymentDueDate},
		{Path: "updated_at", Value: patient.UpdatedAt},
	})
	return translate(err, "failed to update patient card")
}

func (r *patientRepository) DeactivateLapsed(ctx context.Context, id uuid.UUID, dayStart time.Time) (bool, error) {
	ref := r.patients().Doc(id.String())

	var changed bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var d patientDoc
		if err := snap.DataTo(&d); err != nil {
			return fmt.Errorf("failed to decode patient %s: %w", id, err)
		}
		p, err := fromDoc(snap.Ref.ID, d)
		if err != nil {
			return err
		}
		if !lapsed(p, dayStart) {
			return nil
		}

		changed = true
		return tx.Update(ref, []firestore.Update{
			{Path: "card_status", Value: string(cardpolicy.StatusInactive)},
			{Path: "updated_at", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return false, translate(err, "failed to deactivate card")
	}
	return changed, nil
}

func lapsed(p *model.Patient, dayStart time.Time) bool {
	switch p.CardStatus {
	case cardpolicy.StatusInactive, cardpolicy.StatusSuspended:
		return false
	case cardpolicy.StatusActive, cardpolicy.StatusExpired:
	}
	return cardpolicy.NeedsDailyActivation(p.Card(), dayStart)
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	q := r.patients().Query
	var term string

	if filters != nil {
		if filters.DailyActivationOnly {
			q = q.Where("daily_activation_required", "==", true)
		}
		if filters.CardStatus != "" {
			q = q.Where("card_status", "==", string(filters.CardStatus))
		}
		if filters.AssignedDoctorID != nil {
			q = q.Where("assigned_doctor_id", "==", filters.AssignedDoctorID.String())
		}
		term = strings.ToLower(strings.TrimSpace(filters.SearchTerm))
	}
	q = q.OrderBy("created_at", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var patients []*model.Patient
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list patients: %w", err)
		}

		var d patientDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode patient %s: %w", snap.Ref.ID, err)
		}
		// Firestore has no substring match; search is applied client side.
		if term != "" && !matches(d, term) {
			continue
		}

		p, err := fromDoc(snap.Ref.ID, d)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, nil
}

func matches(d patientDoc, term string) bool {
	for _, field := range []string{d.FirstName, d.LastName, d.PatientNumber, d.Phone} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (r *patientRepository) NextPatientNumber(ctx context.Context) (string, error) {
	ref := r.client.Collection(countersCollection).Doc(patientCounterDoc)

	var next int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			next = 1
		case err != nil:
			return err
		default:
			current, err := snap.DataAt("next")
			if err != nil {
				return err
			}
			n, ok := current.(int64)
			if !ok {
				return fmt.Errorf("patient counter has unexpected type %T", current)
			}
			next = n + 1
		}
		return tx.Set(ref, map[string]interface{}{"next": next})
	})
	if err != nil {
		return "", fmt.Errorf("failed to allocate patient number: %w", err)
	}
	return model.FormatPatientNumber(next), nil
}
