package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/repository"
)

type CreateRoleInput struct {
	Name        string
	Code        string
	Description string
}

type CreatePermissionInput struct {
	Name        string
	Code        string
	Description string
	Module      string
	Action      string
}

// ロール・権限の管理（/admin）
type RBACUsecase struct {
	roles    repository.RoleRepository
	users    repository.UserRepository
	resolver *PermissionResolver
	logger   *slog.Logger
}

func NewRBACUsecase(
	roles repository.RoleRepository,
	users repository.UserRepository,
	resolver *PermissionResolver,
	logger *slog.Logger,
) *RBACUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RBACUsecase{roles: roles, users: users, resolver: resolver, logger: logger}
}

func (u *RBACUsecase) CreateRole(ctx context.Context, in CreateRoleInput) (*model.Role, error) {
	u.logger.InfoContext(ctx, "creating role", "code", in.Code)

	role := &model.Role{Name: in.Name, Code: in.Code, Description: in.Description, IsActive: true}
	if err := u.roles.CreateRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: role already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	u.logger.InfoContext(ctx, "role created", "role_id", role.ID, "code", role.Code)
	return role, nil
}

func (u *RBACUsecase) CreatePermission(ctx context.Context, in CreatePermissionInput) (*model.Permission, error) {
	u.logger.InfoContext(ctx, "creating permission", "code", in.Code, "module", in.Module, "action", in.Action)

	perm := &model.Permission{
		Name:        in.Name,
		Code:        in.Code,
		Description: in.Description,
		Module:      in.Module,
		Action:      in.Action,
		IsActive:    true,
	}
	if err := u.roles.CreatePermission(ctx, perm); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: permission already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create permission: %w", err)
	}

	u.logger.InfoContext(ctx, "permission created", "permission_id", perm.ID, "code", perm.Code)
	return perm, nil
}

func (u *RBACUsecase) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	perms, err := u.roles.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

func (u *RBACUsecase) GrantRolePermission(ctx context.Context, roleCode string, permCode string) error {
	role, err := u.role(ctx, roleCode)
	if err != nil {
		return err
	}
	perm, err := u.permission(ctx, permCode)
	if err != nil {
		return err
	}

	if err := u.roles.GrantRolePermission(ctx, role.ID, perm.ID); err != nil {
		return fmt.Errorf("grant role permission: %w", err)
	}
	u.logger.InfoContext(ctx, "permission granted to role", "role", role.Code, "permission", perm.Code)
	return nil
}

// 1ユーザー1ロール。既存のロールは差し替え。
func (u *RBACUsecase) AssignRole(ctx context.Context, userID int64, roleCode string) error {
	u.logger.InfoContext(ctx, "assigning role to user", "user_id", userID, "role", roleCode)

	if _, err := u.user(ctx, userID); err != nil {
		return err
	}
	role, err := u.role(ctx, roleCode)
	if err != nil {
		return err
	}

	if err := u.roles.AssignUserRole(ctx, userID, role.ID); err != nil {
		return fmt.Errorf("assign user role: %w", err)
	}
	u.logger.InfoContext(ctx, "role assigned", "user_id", userID, "role", role.Code)
	return nil
}

func (u *RBACUsecase) GrantUserPermission(ctx context.Context, userID int64, permCode string) error {
	if _, err := u.user(ctx, userID); err != nil {
		return err
	}
	perm, err := u.permission(ctx, permCode)
	if err != nil {
		return err
	}

	if err := u.roles.GrantUserPermission(ctx, userID, perm.ID); err != nil {
		return fmt.Errorf("grant user permission: %w", err)
	}
	u.logger.InfoContext(ctx, "permission granted to user", "user_id", userID, "permission", perm.Code)
	return nil
}

func (u *RBACUsecase) RevokeUserPermission(ctx context.Context, userID int64, permCode string) error {
	if _, err := u.user(ctx, userID); err != nil {
		return err
	}
	perm, err := u.permission(ctx, permCode)
	if err != nil {
		return err
	}

	if err := u.roles.RevokeUserPermission(ctx, userID, perm.ID); err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return fmt.Errorf("%w: permission is not granted to the user", ErrNotFound)
		}
		return fmt.Errorf("revoke user permission: %w", err)
	}
	u.logger.InfoContext(ctx, "permission revoked from user", "user_id", userID, "permission", perm.Code)
	return nil
}

func (u *RBACUsecase) CheckPermission(ctx context.Context, userID int64, code string) (bool, error) {
	user, err := u.user(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.resolver.HasPermission(ctx, user, code)
}

func (u *RBACUsecase) user(ctx context.Context, userID int64) (*model.User, error) {
	user, ok, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (u *RBACUsecase) role(ctx context.Context, code string) (*model.Role, error) {
	role, ok, err := u.roles.FindRoleByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: role %q", ErrNotFound, code)
	}
	return role, nil
}

func (u *RBACUsecase) permission(ctx context.Context, code string) (*model.Permission, error) {
	perm, ok, err := u.roles.FindPermissionByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find permission: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: permission %q", ErrNotFound, code)
	}
	return perm, nil
}
