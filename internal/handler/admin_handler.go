package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"hoponhopoff/internal/middleware"
	"hoponhopoff/internal/usecase"
	auth "hoponhopoff/internal/usecase/auth_usecase"
	"hoponhopoff/internal/validator"

	"github.com/labstack/echo/v4"
)

// ルートごとに必要な権限。PermissionGuardがこの表だけを見る。
var RoutePermissions = middleware.PermissionTable{
	"POST /admin/roles":                         auth.PermManageRole,
	"POST /admin/permissions":                   auth.PermManageRole,
	"GET /admin/permissions":                    auth.PermManageRole,
	"POST /admin/roles/:code/permissions":       auth.PermManageRole,
	"PUT /admin/users/:id/role":                 auth.PermAssignRole,
	"POST /admin/users/:id/permissions":         auth.PermGrantPermission,
	"DELETE /admin/users/:id/permissions/:code": auth.PermGrantPermission,
	"GET /admin/users/:id/permissions/:code":    auth.PermViewUser,
}

// /admin 配下（ロール・権限の管理）
type AdminHandler struct {
	rbac     *auth.RBACUsecase
	authn    middleware.Authenticator
	resolver middleware.PermissionChecker
}

func NewAdminHandler(rbac *auth.RBACUsecase, authn middleware.Authenticator, resolver middleware.PermissionChecker) *AdminHandler {
	return &AdminHandler{rbac: rbac, authn: authn, resolver: resolver}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	// /admin 配下は全部「Token必須 + RoutePermissionsの権限」
	admin := e.Group(
		"/admin",
		middleware.TokenAuth(h.authn),
		middleware.PermissionGuard(h.resolver, RoutePermissions),
	)

	admin.POST("/roles", h.createRole)
	admin.POST("/permissions", h.createPermission)
	admin.GET("/permissions", h.listPermissions)
	admin.POST("/roles/:code/permissions", h.grantRolePermission)
	admin.PUT("/users/:id/role", h.assignRole)
	admin.POST("/users/:id/permissions", h.grantUserPermission)
	admin.DELETE("/users/:id/permissions/:code", h.revokeUserPermission)
	admin.GET("/users/:id/permissions/:code", h.checkUserPermission)
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type createPermissionRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Module      string `json:"module"`
	Action      string `json:"action"`
}

type permissionRequest struct {
	Permission string `json:"permission"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) createRole(c echo.Context) error {
	var req createRoleRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in := auth.CreateRoleInput{Name: req.Name, Code: req.Code, Description: req.Description}
	if err := validator.ValidateCreateRole(in); err != nil {
		return writeError(c, err)
	}

	role, err := h.rbac.CreateRole(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusCreated, role)
}

func (h *AdminHandler) createPermission(c echo.Context) error {
	var req createPermissionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in := auth.CreatePermissionInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Module:      req.Module,
		Action:      req.Action,
	}
	if err := validator.ValidateCreatePermission(in); err != nil {
		return writeError(c, err)
	}

	perm, err := h.rbac.CreatePermission(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusCreated, perm)
}

func (h *AdminHandler) listPermissions(c echo.Context) error {
	perms, err := h.rbac.ListPermissions(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return okList(c, perms)
}

func (h *AdminHandler) grantRolePermission(c echo.Context) error {
	var req permissionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := validator.ValidateCode("permission", req.Permission); err != nil {
		return writeError(c, err)
	}

	if err := h.rbac.GrantRolePermission(c.Request().Context(), c.Param("code"), req.Permission); err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, message{Message: "Permission granted to role."})
}

func (h *AdminHandler) assignRole(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req roleRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := validator.ValidateCode("role", req.Role); err != nil {
		return writeError(c, err)
	}

	if err := h.rbac.AssignRole(c.Request().Context(), userID, req.Role); err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, message{Message: "Role assigned."})
}

func (h *AdminHandler) grantUserPermission(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req permissionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := validator.ValidateCode("permission", req.Permission); err != nil {
		return writeError(c, err)
	}

	if err := h.rbac.GrantUserPermission(c.Request().Context(), userID, req.Permission); err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, message{Message: "Permission granted to user."})
}

func (h *AdminHandler) revokeUserPermission(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.rbac.RevokeUserPermission(c.Request().Context(), userID, c.Param("code")); err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, message{Message: "Permission revoked."})
}

func (h *AdminHandler) checkUserPermission(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}

	code := c.Param("code")
	granted, err := h.rbac.CheckPermission(c.Request().Context(), userID, code)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, usecase.PermissionCheckDTO{Code: code, Granted: granted})
}

func parseUserID(c echo.Context) (int64, error) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: invalid user id", auth.ErrBadRequest)
	}
	return userID, nil
}
