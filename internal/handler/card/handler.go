package card

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/worker"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

type Service interface {
	Activate(ctx context.Context, patientID uuid.UUID, req *model.ActivateCardRequest) (*model.PatientView, error)
	DailyActivate(ctx context.Context, patientID uuid.UUID) (*model.PatientView, error)
	Suspend(ctx context.Context, patientID uuid.UUID, reason string) (*model.PatientView, error)
	Assess(ctx context.Context, viewer cardpolicy.Viewer, patientID uuid.UUID) (*model.CardDetails, error)
	Payments(ctx context.Context, patientID uuid.UUID) ([]*model.CardPayment, error)
	GetPolicy(ctx context.Context) (*model.CardPolicy, error)
	UpdatePolicy(ctx context.Context, req *model.UpdateCardPolicyRequest) (*model.CardPolicy, error)
}

// SweepRunner runs the deactivation sweep on demand.
type SweepRunner interface {
	RunNow(ctx context.Context) (worker.SweepResult, error)
}

type Handler struct {
	service Service
	sweeps  SweepRunner
}

func NewHandler(service Service, sweeps SweepRunner) *Handler {
	return &Handler{service: service, sweeps: sweeps}
}

func (h *Handler) GetCard(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	details, err := h.service.Assess(c.Request.Context(), handler.Viewer(c), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(details))
}

func (h *Handler) Activate(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.ActivateCardRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	patient, err := h.service.Activate(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) DailyActivate(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	patient, err := h.service.DailyActivate(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) Suspend(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.SuspendCardRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	patient, err := h.service.Suspend(c.Request.Context(), id, req.Reason)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) ListPayments(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	payments, err := h.service.Payments(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(payments))
}

func (h *Handler) GetPolicy(c *gin.Context) {
	policy, err := h.service.GetPolicy(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(policy))
}

func (h *Handler) UpdatePolicy(c *gin.Context) {
	var req model.UpdateCardPolicyRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	policy, err := h.service.UpdatePolicy(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(policy))
}

func (h *Handler) RunSweep(c *gin.Context) {
	result, err := h.sweeps.RunNow(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
