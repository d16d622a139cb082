package validator

import (
	"testing"

	auth "hoponhopoff/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegister(t *testing.T) {
	ok := auth.RegisterInput{
		Username:  "tour.fan_01",
		Email:     "fan@example.com",
		Password:  "sunset cruise",
		Password2: "sunset cruise",
	}
	require.NoError(t, ValidateRegister(ok))

	tests := []struct {
		name  string
		in    func() auth.RegisterInput
		field string
	}{
		{"missing username", func() auth.RegisterInput { in := ok; in.Username = ""; return in }, "username"},
		{"username with space", func() auth.RegisterInput { in := ok; in.Username = "tour fan"; return in }, "username"},
		{"bad email", func() auth.RegisterInput { in := ok; in.Email = "not-an-email"; return in }, "email"},
		{"short password", func() auth.RegisterInput { in := ok; in.Password = "short"; return in }, "password"},
		{"weak password", func() auth.RegisterInput { in := ok; in.Password = "password123"; return in }, "password"},
		{"missing confirmation", func() auth.RegisterInput { in := ok; in.Password2 = ""; return in }, "password2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.in())
			require.ErrorIs(t, err, ErrInvalidInput)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin(auth.LoginInput{Username: "alice", Password: "x"}))

	err := ValidateLogin(auth.LoginInput{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)
	assert.Equal(t, "invalid input: password: this field is required, username: this field is required", err.Error())
}

func TestValidatePasswordFlows(t *testing.T) {
	assert.NoError(t, ValidateChangePassword(auth.ChangePasswordInput{OldPassword: "old", NewPassword: "harbour lights"}))
	assert.ErrorIs(t, ValidateChangePassword(auth.ChangePasswordInput{OldPassword: "old", NewPassword: "qwerty"}), ErrInvalidInput)

	assert.NoError(t, ValidatePasswordResetRequest("alice@example.com"))
	assert.ErrorIs(t, ValidatePasswordResetRequest(""), ErrInvalidInput)

	assert.NoError(t, ValidatePasswordResetConfirm(auth.ConfirmPasswordResetInput{Token: "abc", NewPassword: "harbour lights"}))
	assert.ErrorIs(t, ValidatePasswordResetConfirm(auth.ConfirmPasswordResetInput{NewPassword: "harbour lights"}), ErrInvalidInput)
}

func TestValidateProfile(t *testing.T) {
	phone := "+84 28 1234 5678"
	assert.NoError(t, ValidateProfile(auth.ProfileInput{PhoneNumber: &phone}))

	long := "+84 28 1234 5678 0000 1111"
	assert.ErrorIs(t, ValidateProfile(auth.ProfileInput{PhoneNumber: &long}), ErrInvalidInput)
}

func TestValidateCodes(t *testing.T) {
	assert.NoError(t, ValidateCreateRole(auth.CreateRoleInput{Name: "Guide", Code: "guide"}))
	assert.ErrorIs(t, ValidateCreateRole(auth.CreateRoleInput{Name: "Guide", Code: "Guide Team"}), ErrInvalidInput)

	assert.NoError(t, ValidateCreatePermission(auth.CreatePermissionInput{Name: "Export", Code: "can_export", Module: "report", Action: "export"}))
	assert.ErrorIs(t, ValidateCreatePermission(auth.CreatePermissionInput{Name: "Export", Code: "can_export"}), ErrInvalidInput)

	assert.NoError(t, ValidateCode("code", "view_tour"))
	assert.ErrorIs(t, ValidateCode("code", ""), ErrInvalidInput)
}
