package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staffForm struct {
	Email  string `json:"email" validate:"required,email"`
	Role   string `json:"role" validate:"required,clinicrole"`
	Method string `json:"payment_method" validate:"oneof=cash card insurance"`
	Days   int    `json:"validity_days" validate:"min=1"`
}

func TestConfigureAndErrors(t *testing.T) {
	v := validator.New()
	require.NoError(t, Configure(v))

	ok := staffForm{Email: "a@b.co", Role: "triage_officer", Method: "cash", Days: 30}
	assert.NoError(t, v.Struct(ok))

	err := v.Struct(staffForm{Email: "nope", Role: "janitor", Method: "barter", Days: 0})
	require.Error(t, err)

	got := Errors(err)
	assert.ElementsMatch(t, []FieldError{
		{Field: "email", Message: "must be a valid email"},
		{Field: "role", Message: "must be a known staff role"},
		{Field: "payment_method", Message: "must be one of: cash card insurance"},
		{Field: "validity_days", Message: "must be at least 1"},
	}, got)
}

func TestErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Errors(errors.New("EOF")))
}

func TestRegisterIsIdempotent(t *testing.T) {
	require.NoError(t, Register())
	require.NoError(t, Register())
}
