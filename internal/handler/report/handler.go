package report

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PatientLister is satisfied by the patient service.
type PatientLister interface {
	List(ctx context.Context, viewer cardpolicy.Viewer, filters *model.PatientFilters) ([]model.PatientView, error)
}

type Handler struct {
	patients PatientLister
	now      func() time.Time
}

func NewHandler(patients PatientLister) *Handler {
	return &Handler{patients: patients, now: time.Now}
}

// CardReport streams an xlsx workbook of every patient the caller may see.
func (h *Handler) CardReport(c *gin.Context) {
	filters := &model.PatientFilters{CardStatus: cardpolicy.StoredStatus(c.Query("card_status"))}

	patients, err := h.patients.List(c.Request.Context(), handler.Viewer(c), filters)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	buf, err := buildCardWorkbook(patients)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	filename := fmt.Sprintf("card-report-%s.xlsx", h.now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
