package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/service/audit"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token, stores the claims in the gin context
// and puts the caller on the request context for auditing.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			abortWith(c, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims, err := m.tokens.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(handler.ContextClaims, claims)
		c.Request = c.Request.WithContext(audit.WithActor(c.Request.Context(), audit.Actor{
			UserID:    claims.UserID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}))
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles.
func (m *AuthMiddleware) RequireRoles(roles ...cardpolicy.Role) gin.HandlerFunc {
	allowed := make(map[cardpolicy.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := handler.Claims(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			abortWith(c, http.StatusForbidden, "permission denied")
			return
		}
		c.Next()
	}
}
