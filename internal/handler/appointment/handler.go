package appointment

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
	"github.com/jwalitptl/cliniccare-api/pkg/httputil"
)

type Service interface {
	Book(ctx context.Context, viewer cardpolicy.Viewer, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	List(ctx context.Context, viewer cardpolicy.Viewer, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, viewer cardpolicy.Viewer, id uuid.UUID, req *model.UpdateAppointmentStatusRequest) (*model.Appointment, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	appointment, err := h.service.Book(c.Request.Context(), handler.Viewer(c), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(appointment))
}

// ListAppointments filters on doctor_id, patient_id, status and the RFC 3339
// range from/to.
func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{Status: model.AppointmentStatus(c.Query("status"))}

	var err error
	if filters.DoctorID, err = optionalUUID(c, "doctor_id"); err != nil {
		handler.Fail(c, err)
		return
	}
	if filters.PatientID, err = optionalUUID(c, "patient_id"); err != nil {
		handler.Fail(c, err)
		return
	}
	if filters.From, err = optionalTime(c, "from"); err != nil {
		handler.Fail(c, err)
		return
	}
	if filters.To, err = optionalTime(c, "to"); err != nil {
		handler.Fail(c, err)
		return
	}

	appointments, err := h.service.List(c.Request.Context(), handler.Viewer(c), filters)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	page, pageSize := httputil.ParsePagination(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(httputil.Paginate(appointments, page, pageSize)))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	appointment, err := h.service.UpdateStatus(c.Request.Context(), handler.Viewer(c), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

func optionalUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.BadRequest("invalid "+key, err)
	}
	return &id, nil
}

func optionalTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.BadRequest("invalid "+key, err)
	}
	return &t, nil
}
