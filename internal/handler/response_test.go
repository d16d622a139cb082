package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	auth "hoponhopoff/internal/usecase/auth_usecase"
	"hoponhopoff/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"bad request", fmt.Errorf("%w: password fields didn't match", auth.ErrBadRequest), http.StatusBadRequest, "bad request: password fields didn't match"},
		{"reset token", auth.ErrInvalidOrExpiredToken, http.StatusBadRequest, "invalid or expired token"},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"token", auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token"},
		{"expired", auth.ErrTokenExpired, http.StatusUnauthorized, "token has expired"},
		{"no principal", auth.ErrUnauthorized, http.StatusUnauthorized, "authentication credentials were not provided"},
		{"no header", auth.ErrNoCredentials, http.StatusUnauthorized, "authentication credentials were not provided"},
		{"inactive", auth.ErrUserInactive, http.StatusUnauthorized, "user inactive or deleted"},
		{"header detail", &auth.HeaderError{Msg: "Invalid token header. No credentials provided."}, http.StatusUnauthorized, "Invalid token header. No credentials provided."},
		{"user", auth.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{"wrapped not found", fmt.Errorf("%w: role staff", auth.ErrNotFound), http.StatusNotFound, "not found: role staff"},
		{"conflict", auth.ErrConflict, http.StatusConflict, "conflict"},
		{"delivery", fmt.Errorf("send: %w", auth.ErrDelivery), http.StatusInternalServerError, "failed to send email"},
		{"unknown", errors.New("db: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, writeError(c, tc.err))
			assert.Equal(t, tc.status, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.msg, body.Error)
		})
	}
}

func TestWriteError_ValidationDetails(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	err := &validator.ValidationError{Fields: map[string]string{"email": "Enter a valid email address."}}
	require.NoError(t, writeError(c, fmt.Errorf("register: %w", err)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid input", body.Error)
	assert.Equal(t, "Enter a valid email address.", body.Details["email"])
}
