package auth

import (
	"context"
	"fmt"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/repository"
)

// ユーザー直接付与 → ロール付与 の順で判定する。
// 直接付与は追加だけで、拒否の上書きはない。
type PermissionResolver struct {
	perms repository.PermissionRepository
}

func NewPermissionResolver(perms repository.PermissionRepository) *PermissionResolver {
	return &PermissionResolver{perms: perms}
}

func (r *PermissionResolver) HasPermission(ctx context.Context, user *model.User, code string) (bool, error) {
	if user == nil || !user.IsActive {
		return false, nil
	}

	direct, err := r.perms.HasUserPermission(ctx, user.ID, code)
	if err != nil {
		return false, fmt.Errorf("check user permission: %w", err)
	}
	if direct {
		return true, nil
	}

	role, ok, err := r.perms.FindUserRole(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("find user role: %w", err)
	}
	if !ok {
		return false, nil
	}

	granted, err := r.perms.HasRolePermission(ctx, role.ID, code)
	if err != nil {
		return false, fmt.Errorf("check role permission: %w", err)
	}
	return granted, nil
}
