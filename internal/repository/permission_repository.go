package repository

import (
	"context"
	"errors"

	"hoponhopoff/internal/domain/model"
)

// 取り消し対象の付与が無い
var ErrPermissionNotFound = errors.New("permission not found")

// 権限判定で使う読み取り専用の約束。
type PermissionRepository interface {
	//user_permissionに(user, code)があるか
	HasUserPermission(ctx context.Context, userID int64, code string) (bool, error)

	//ユーザーに割り当てられたロール（なければfalse）
	FindUserRole(ctx context.Context, userID int64) (*model.Role, bool, error)

	//role_permissionに(role, code)があるか
	HasRolePermission(ctx context.Context, roleID int64, code string) (bool, error)

	//直接付与された権限コードの一覧（プロフィール表示用）
	ListUserPermissionCodes(ctx context.Context, userID int64) ([]string, error)
}

// ロール・権限の管理（管理画面・初期データ投入）
type RoleRepository interface {
	CreateRole(ctx context.Context, role *model.Role) error
	FindRoleByCode(ctx context.Context, code string) (*model.Role, bool, error)
	CreatePermission(ctx context.Context, perm *model.Permission) error
	FindPermissionByCode(ctx context.Context, code string) (*model.Permission, bool, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)

	// 既に付与済みなら何もしない
	GrantRolePermission(ctx context.Context, roleID int64, permissionID int64) error
	GrantUserPermission(ctx context.Context, userID int64, permissionID int64) error
	RevokeUserPermission(ctx context.Context, userID int64, permissionID int64) error

	// 1ユーザー1ロールなので、既存があれば差し替える
	AssignUserRole(ctx context.Context, userID int64, roleID int64) error
}
