package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/middleware"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Register(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PatientView), args.Error(1)
}

func (m *mockService) Get(ctx context.Context, viewer cardpolicy.Viewer, id uuid.UUID) (*model.PatientView, error) {
	args := m.Called(ctx, viewer, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PatientView), args.Error(1)
}

func (m *mockService) List(ctx context.Context, viewer cardpolicy.Viewer, filters *model.PatientFilters) ([]model.PatientView, error) {
	args := m.Called(ctx, viewer, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PatientView), args.Error(1)
}

func (m *mockService) Search(ctx context.Context, viewer cardpolicy.Viewer, term string) ([]model.PatientView, error) {
	args := m.Called(ctx, viewer, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PatientView), args.Error(1)
}

func (m *mockService) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.PatientView, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PatientView), args.Error(1)
}

var doctor = &model.TokenClaims{UserID: uuid.New(), Role: cardpolicy.RoleDoctor}

func newRouter(svc Service, claims *model.TokenClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(handler.ContextClaims, claims)
		}
	})

	h := NewHandler(svc)
	r.POST("/patients", h.CreatePatient)
	r.GET("/patients", h.ListPatients)
	r.GET("/patients/search", h.SearchPatients)
	r.GET("/patients/:id", h.GetPatient)
	r.PUT("/patients/:id", h.UpdatePatient)
	return r
}

func view(number string, state cardpolicy.EffectiveState) model.PatientView {
	return model.PatientView{
		Patient:        &model.Patient{Base: model.Base{ID: uuid.New()}, PatientNumber: number},
		EffectiveState: state,
	}
}

func TestHandler_ListPatientsPassesViewerAndFilters(t *testing.T) {
	svc := &mockService{}
	doctorFilter := uuid.New()
	svc.On("List", mock.Anything, doctor.Viewer(), &model.PatientFilters{
		SearchTerm:       "otieno",
		CardStatus:       cardpolicy.StatusActive,
		AssignedDoctorID: &doctorFilter,
	}).Return([]model.PatientView{
		view("P1", cardpolicy.StateActive),
		view("P2", cardpolicy.StateActive),
		view("P3", cardpolicy.StateActive),
	}, nil)

	w := httptest.NewRecorder()
	url := "/patients?q=otieno&card_status=active&page_size=2&assigned_doctor_id=" + doctorFilter.String()
	newRouter(svc, doctor).ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Items      []map[string]interface{} `json:"items"`
			Pagination struct {
				Total int `json:"total"`
			} `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.Items, 2)
	assert.Equal(t, 3, body.Data.Pagination.Total)
	assert.Equal(t, "ACTIVE", body.Data.Items[0]["effective_card_state"])
	svc.AssertExpectations(t)
}

func TestHandler_ListPatientsRejectsBadFilters(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"unknown card status", "/patients?card_status=frozen"},
		{"bad doctor id", "/patients?assigned_doctor_id=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			w := httptest.NewRecorder()
			newRouter(svc, doctor).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_GetPatientHiddenReadsAsNotFound(t *testing.T) {
	svc := &mockService{}
	id := uuid.New()
	svc.On("Get", mock.Anything, doctor.Viewer(), id).Return(nil, apperrors.NotFound("patient", nil))

	w := httptest.NewRecorder()
	newRouter(svc, doctor).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	newRouter(svc, doctor).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CreatePatient(t *testing.T) {
	svc := &mockService{}
	created := view("P000001", cardpolicy.StateActive)
	svc.On("Register", mock.Anything, mock.MatchedBy(func(req *model.CreatePatientRequest) bool {
		return req.FirstName == "Amina" && req.Gender == model.GenderFemale
	})).Return(&created, nil)

	body := `{
		"first_name": "Amina",
		"last_name": "Otieno",
		"date_of_birth": "1990-05-01T00:00:00Z",
		"gender": "female",
		"phone": "+254700000001",
		"address": "Ngong Road",
		"emergency_contact_name": "Baraka",
		"emergency_contact_phone": "+254700000002"
	}`
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newRouter(svc, &model.TokenClaims{Role: cardpolicy.RoleReceptionist}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"patient_number":"P000001"`)
}

func TestHandler_CreatePatientValidation(t *testing.T) {
	svc := &mockService{}
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(`{"first_name":"Amina","gender":"unknown"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newRouter(svc, doctor).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestHandler_SearchPatients(t *testing.T) {
	svc := &mockService{}
	svc.On("Search", mock.Anything, doctor.Viewer(), "otieno").Return([]model.PatientView{}, nil)

	w := httptest.NewRecorder()
	newRouter(svc, doctor).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/search?q=otieno", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
