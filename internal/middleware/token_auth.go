package middleware

import (
	"context"
	"errors"
	"net/http"

	auth "hoponhopoff/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

const CtxPrincipalKey = "principal" // auth.Principal

// ヘッダを検証してprincipalを返す（auth.Authenticator）
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (auth.Principal, error)
	Keyword() string
}

// Authorization: Token <key> の検証ミドルウェア。
// 成功したらprincipalをcontextに1回だけ保存する。
func TokenAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := a.Authenticate(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				msg, ok := authErrorMessage(err)
				if !ok {
					return c.JSON(http.StatusInternalServerError, errorJSON("internal server error"))
				}
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, a.Keyword())
				return c.JSON(http.StatusUnauthorized, errorJSON(msg))
			}

			c.Set(CtxPrincipalKey, p)
			return next(c)
		}
	}
}

// contextからprincipalを取り出す
func PrincipalFrom(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(CtxPrincipalKey).(auth.Principal)
	if !ok || !p.Authenticated() {
		return auth.Principal{}, false
	}
	return p, true
}

// 401にするエラーとメッセージ。falseはDBエラーなど。
func authErrorMessage(err error) (string, bool) {
	var he *auth.HeaderError
	switch {
	case errors.As(err, &he):
		return he.Msg, true
	case errors.Is(err, auth.ErrNoCredentials):
		return "Authentication credentials were not provided.", true
	case errors.Is(err, auth.ErrMalformedHeader):
		return "Invalid token header.", true
	case errors.Is(err, auth.ErrInvalidToken):
		return "Invalid token.", true
	case errors.Is(err, auth.ErrTokenExpired):
		return "Token has expired.", true
	case errors.Is(err, auth.ErrUserInactive):
		return "User inactive or deleted.", true
	default:
		return "", false
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Success: false, Error: msg}
}
