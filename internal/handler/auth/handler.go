package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/service/audit"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

type LoginService interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
}

type ProfileService interface {
	Profile(ctx context.Context, id uuid.UUID) (*model.UserProfile, error)
}

type Handler struct {
	svc   LoginService
	users ProfileService
}

func NewHandler(svc LoginService, users ProfileService) *Handler {
	return &Handler{svc: svc, users: users}
}

// RegisterRoutes mounts the unauthenticated endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	ctx := audit.WithActor(c.Request.Context(), audit.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	tokens, err := h.svc.Login(ctx, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

// Me returns the caller with the navigation sections of their role.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := handler.Claims(c)
	if !ok {
		handler.Fail(c, apperrors.Unauthorized(nil))
		return
	}

	profile, err := h.users.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}
