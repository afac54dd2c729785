package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository/mocks"
	"github.com/jwalitptl/cliniccare-api/internal/service/audit"
	"github.com/jwalitptl/cliniccare-api/pkg/auth"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
	"github.com/jwalitptl/cliniccare-api/pkg/security"
)

type fixture struct {
	svc    *Service
	users  *mocks.UserRepository
	audits *mocks.AuditRepository
	user   *model.User
}

func setup(t *testing.T, status string) fixture {
	t.Helper()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        "reception@clinic.test",
		Role:         cardpolicy.RoleReceptionist,
		Status:       status,
		PasswordHash: hash,
	}

	users := &mocks.UserRepository{}
	users.On("GetByEmail", mock.Anything, "reception@clinic.test").Return(user, nil).Maybe()
	users.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, apperrors.NotFound("user", nil)).Maybe()

	audits := &mocks.AuditRepository{}
	audits.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := NewService(users, auth.NewJWTService("secret", "test", time.Hour), hasher,
		audit.NewService(audits, logger.Nop()), logger.Nop())
	return fixture{svc: svc, users: users, audits: audits, user: user}
}

func TestService_Login(t *testing.T) {
	f := setup(t, model.UserStatusActive)
	f.users.On("UpdateLastLogin", mock.Anything, f.user.ID, mock.AnythingOfType("time.Time")).Return(nil)

	resp, err := f.svc.Login(context.Background(), &model.LoginRequest{Email: "Reception@Clinic.test", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.NotNil(t, resp.User.LastLoginAt)

	claims, err := f.svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
	assert.Equal(t, cardpolicy.RoleReceptionist, claims.Role)

	f.audits.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(l *model.AuditLog) bool {
		return l.Action == model.AuditActionLogin && l.UserID != nil && *l.UserID == f.user.ID
	}))
}

func TestService_LoginFailures(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		f := setup(t, model.UserStatusActive)
		_, err := f.svc.Login(context.Background(), &model.LoginRequest{Email: "reception@clinic.test", Password: "nope-nope"})
		assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	})

	t.Run("unknown email", func(t *testing.T) {
		f := setup(t, model.UserStatusActive)
		_, err := f.svc.Login(context.Background(), &model.LoginRequest{Email: "ghost@clinic.test", Password: "password123"})
		assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	})

	t.Run("inactive account", func(t *testing.T) {
		f := setup(t, model.UserStatusInactive)
		_, err := f.svc.Login(context.Background(), &model.LoginRequest{Email: "reception@clinic.test", Password: "password123"})
		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	})
}

func TestService_ValidateTokenRejectsGarbage(t *testing.T) {
	f := setup(t, model.UserStatusActive)
	_, err := f.svc.ValidateToken(context.Background(), "garbage")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}
