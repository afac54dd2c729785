// Package handler holds what the HTTP handlers share: the response envelope
// and accessors for the authenticated caller.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
	"github.com/jwalitptl/cliniccare-api/pkg/validator"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope of every JSON body the API writes.
type Response struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Data      interface{}            `json:"data,omitempty"`
	Errors    []validator.FieldError `json:"errors,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: statusSuccess, Data: data}
}

func NewErrorResponse(message string) *Response {
	return &Response{Status: statusError, Message: message}
}

// ContextClaims is the gin context key holding *model.TokenClaims.
const ContextClaims = "claims"

func Claims(c *gin.Context) (*model.TokenClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*model.TokenClaims)
	return claims, ok
}

// Viewer returns the caller as seen by the visibility rules. Without claims
// the zero viewer is returned, which sees nothing.
func Viewer(c *gin.Context) cardpolicy.Viewer {
	claims, ok := Claims(c)
	if !ok {
		return cardpolicy.Viewer{}
	}
	return claims.Viewer()
}

func ParseID(c *gin.Context, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("invalid "+param, err)
	}
	return id, nil
}

// BindJSON binds and validates the body. Validation failures keep their field
// details for the error middleware.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return apperrors.BadRequest("invalid request body", err)
	}
	return nil
}

// Fail hands err to the error middleware.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
