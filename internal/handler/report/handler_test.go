package report

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/middleware"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

type stubLister struct {
	views  []model.PatientView
	err    error
	viewer cardpolicy.Viewer
}

func (s *stubLister) List(_ context.Context, viewer cardpolicy.Viewer, _ *model.PatientFilters) ([]model.PatientView, error) {
	s.viewer = viewer
	return s.views, s.err
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(handler.ContextClaims, &model.TokenClaims{Role: cardpolicy.RoleReceptionist})
	})
	r.GET("/reports/cards", h.CardReport)
	return r
}

func TestHandler_CardReport(t *testing.T) {
	expiry := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	daily := time.Date(2024, 3, 10, 8, 15, 0, 0, time.UTC)
	doctorID := uuid.New()
	lister := &stubLister{views: []model.PatientView{{
		Patient: &model.Patient{
			PatientNumber:           "P000007",
			FirstName:               "Amina",
			LastName:                "Otieno",
			Phone:                   "+254700000001",
			CardStatus:              cardpolicy.StatusActive,
			CardExpiryDate:          &expiry,
			DailyActivationRequired: true,
			LastDailyActivation:     &daily,
			AssignedDoctorID:        &doctorID,
		},
		EffectiveState: cardpolicy.StateNeedsDailyActivation,
	}}}

	h := NewHandler(lister)
	h.now = func() time.Time { return time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC) }

	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/cards", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="card-report-20240311.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, cardpolicy.RoleReceptionist, lister.viewer.Role)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{cardSheet}, f.GetSheetList())
	rows, err := f.GetRows(cardSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Patient Number", rows[0][0])
	assert.Equal(t, []string{
		"P000007",
		"Amina Otieno",
		"+254700000001",
		"active",
		"NEEDS_DAILY_ACTIVATION",
		"2024-04-10",
		"2024-03-10 08:15",
		"TRUE",
		doctorID.String(),
	}, rows[1])
}

func TestHandler_CardReportListFailure(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(NewHandler(&stubLister{err: errors.New("db down")})).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/cards", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
