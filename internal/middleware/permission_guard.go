package middleware

import (
	"context"
	"net/http"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/logging"

	"github.com/labstack/echo/v4"
)

// auth.PermissionResolver
type PermissionChecker interface {
	HasPermission(ctx context.Context, user *model.User, code string) (bool, error)
}

// "METHOD /route/pattern" -> 必要な権限コード
type PermissionTable map[string]string

func (t PermissionTable) Lookup(method string, path string) (string, bool) {
	code, ok := t[method+" "+path]
	return code, ok
}

// 表にあるルートだけ権限を確認する。表にないルートは素通り。
// principalなしは401、権限なしは403。TokenAuthの後ろに置く。
func PermissionGuard(checker PermissionChecker, table PermissionTable) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			code, ok := table.Lookup(c.Request().Method, c.Path())
			if !ok {
				return next(c)
			}

			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("Authentication credentials were not provided."))
			}

			ctx := c.Request().Context()
			granted, err := checker.HasPermission(ctx, p.User, code)
			if err != nil {
				logging.FromContext(ctx).ErrorContext(ctx, "permission check failed", "user_id", p.User.ID, "permission", code, "error", err)
				return c.JSON(http.StatusInternalServerError, errorJSON("internal server error"))
			}
			if !granted {
				return c.JSON(http.StatusForbidden, errorJSON("You do not have permission to perform this action."))
			}

			return next(c)
		}
	}
}
