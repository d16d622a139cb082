package handler

import (
	"errors"
	"fmt"
	"net/http"

	"hoponhopoff/internal/logging"
	auth "hoponhopoff/internal/usecase/auth_usecase"
	"hoponhopoff/internal/validator"

	"github.com/labstack/echo/v4"
)

// 共通レスポンス {"success": true, "data": ...} / {"success": false, "error": "..."}
type Response struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	Total   *int              `json:"total,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func okList[T any](c echo.Context, items []T) error {
	total := len(items)
	return c.JSON(http.StatusOK, Response{Success: true, Data: items, Total: &total})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, Response{Success: false, Error: msg})
}

type message struct {
	Message string `json:"message"`
}

// usecaseのエラーをステータスに変換する
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid input", Details: ve.Fields})
	}

	switch {
	case errors.Is(err, auth.ErrBadRequest),
		errors.Is(err, auth.ErrInvalidOrExpiredToken):
		return fail(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrNoCredentials),
		errors.Is(err, auth.ErrMalformedHeader),
		errors.Is(err, auth.ErrUserInactive):
		return fail(c, http.StatusUnauthorized, err.Error())

	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrNotFound):
		return fail(c, http.StatusNotFound, err.Error())

	case errors.Is(err, auth.ErrConflict):
		return fail(c, http.StatusConflict, err.Error())

	case errors.Is(err, auth.ErrDelivery):
		return fail(c, http.StatusInternalServerError, auth.ErrDelivery.Error())
	}

	//500
	ctx := c.Request().Context()
	logging.FromContext(ctx).ErrorContext(ctx, "unhandled error", "error", err)
	return fail(c, http.StatusInternalServerError, "internal server error")
}

// JSONが壊れているときは400
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", auth.ErrBadRequest)
	}
	return nil
}
