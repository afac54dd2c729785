package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

type Service interface {
	List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListLogs filters on entity_type, entity_id, user_id and limit.
func (h *Handler) ListLogs(c *gin.Context) {
	filters := &model.AuditFilters{EntityType: c.Query("entity_type")}

	for key, dst := range map[string]**uuid.UUID{
		"entity_id": &filters.EntityID,
		"user_id":   &filters.UserID,
	} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.Fail(c, apperrors.BadRequest("invalid "+key, err))
			return
		}
		*dst = &id
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			handler.Fail(c, apperrors.BadRequest("invalid limit", err))
			return
		}
		filters.Limit = limit
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}
