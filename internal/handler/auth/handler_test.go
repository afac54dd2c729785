package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/middleware"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/service/audit"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
)

type stubLogin struct {
	actor audit.Actor
}

func (s *stubLogin) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	s.actor, _ = audit.ActorFrom(ctx)
	if req.Password != "correct-horse" {
		return nil, apperrors.Unauthorized(nil)
	}
	return &model.TokenResponse{AccessToken: "token"}, nil
}

type stubProfiles struct{}

func (stubProfiles) Profile(_ context.Context, id uuid.UUID) (*model.UserProfile, error) {
	return &model.UserProfile{
		User:     &model.User{Base: model.Base{ID: id}, Role: cardpolicy.RoleDoctor},
		Sections: cardpolicy.RoleDoctor.Sections(),
	}, nil
}

func newRouter(login *stubLogin, claims *model.TokenClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())

	h := NewHandler(login, stubProfiles{})
	h.RegisterRoutes(r.Group(""))

	protected := r.Group("")
	protected.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(handler.ContextClaims, claims)
		}
	})
	h.RegisterProtectedRoutes(protected)
	return r
}

func login(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "front-desk/1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Login(t *testing.T) {
	svc := &stubLogin{}
	r := newRouter(svc, nil)

	w := login(r, `{"email":"desk@clinic.test","password":"correct-horse"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)
	assert.Equal(t, "front-desk/1.0", svc.actor.UserAgent)

	w = login(r, `{"email":"desk@clinic.test","password":"wrong-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = login(r, `{"email":"not-an-email","password":"correct-horse"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Me(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(&stubLogin{}, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	claims := &model.TokenClaims{UserID: uuid.New(), Role: cardpolicy.RoleDoctor}
	w = httptest.NewRecorder()
	newRouter(&stubLogin{}, claims).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), claims.UserID.String())
}
