package patient

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
	"github.com/jwalitptl/cliniccare-api/pkg/httputil"
)

type Service interface {
	Register(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientView, error)
	Get(ctx context.Context, viewer cardpolicy.Viewer, id uuid.UUID) (*model.PatientView, error)
	List(ctx context.Context, viewer cardpolicy.Viewer, filters *model.PatientFilters) ([]model.PatientView, error)
	Search(ctx context.Context, viewer cardpolicy.Viewer, term string) ([]model.PatientView, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.PatientView, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	patient, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(patient))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	patient, err := h.service.Get(c.Request.Context(), handler.Viewer(c), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

// ListPatients returns one page of the patients visible to the caller.
// Filters: card_status, assigned_doctor_id, q.
func (h *Handler) ListPatients(c *gin.Context) {
	filters := &model.PatientFilters{SearchTerm: c.Query("q")}

	if raw := c.Query("card_status"); raw != "" {
		status := cardpolicy.StoredStatus(raw)
		if !status.Valid() {
			handler.Fail(c, apperrors.BadRequest("invalid card_status", nil))
			return
		}
		filters.CardStatus = status
	}
	if raw := c.Query("assigned_doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.Fail(c, apperrors.BadRequest("invalid assigned_doctor_id", err))
			return
		}
		filters.AssignedDoctorID = &id
	}

	patients, err := h.service.List(c.Request.Context(), handler.Viewer(c), filters)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	page, pageSize := httputil.ParsePagination(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(httputil.Paginate(patients, page, pageSize)))
}

func (h *Handler) SearchPatients(c *gin.Context) {
	patients, err := h.service.Search(c.Request.Context(), handler.Viewer(c), c.Query("q"))
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.UpdatePatientRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	patient, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}
