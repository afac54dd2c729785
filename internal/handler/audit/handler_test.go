package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cliniccare-api/internal/middleware"
	"github.com/jwalitptl/cliniccare-api/internal/model"
)

type stubService struct {
	filters *model.AuditFilters
}

func (s *stubService) List(_ context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	s.filters = filters
	return []*model.AuditLog{}, nil
}

func serve(svc Service, url string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/audit-logs", NewHandler(svc).ListLogs)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestHandler_ListLogs(t *testing.T) {
	svc := &stubService{}
	entity := uuid.New()

	w := serve(svc, "/audit-logs?entity_type=patient&limit=20&entity_id="+entity.String())
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filters)
	assert.Equal(t, "patient", svc.filters.EntityType)
	assert.Equal(t, entity, *svc.filters.EntityID)
	assert.Nil(t, svc.filters.UserID)
	assert.Equal(t, 20, svc.filters.Limit)
}

func TestHandler_ListLogsRejectsBadQuery(t *testing.T) {
	for _, url := range []string{"/audit-logs?user_id=nope", "/audit-logs?limit=0", "/audit-logs?limit=ten"} {
		svc := &stubService{}
		w := serve(svc, url)
		assert.Equal(t, http.StatusBadRequest, w.Code, url)
		assert.Nil(t, svc.filters, url)
	}
}
