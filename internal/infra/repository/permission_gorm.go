package repository

import (
	"context"
	"errors"
	"time"

	"hoponhopoff/internal/domain/model"
	repo "hoponhopoff/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type permissionGormRepository struct {
	db *gorm.DB
}

func NewPermissionGormRepository(db *gorm.DB) repo.PermissionRepository {
	return &permissionGormRepository{db: db}
}

// user_permission + permission をjoinして存在確認
func (r *permissionGormRepository) HasUserPermission(ctx context.Context, userID int64, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.UserPermission{}).
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ? AND permissions.code = ?", userID, code).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *permissionGormRepository) FindUserRole(ctx context.Context, userID int64) (*model.Role, bool, error) {
	var role model.Role

	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		First(&role).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &role, true, nil
}

func (r *permissionGormRepository) HasRolePermission(ctx context.Context, roleID int64, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id = ? AND permissions.code = ?", roleID, code).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *permissionGormRepository) ListUserPermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	codes := []string{}
	err := r.db.WithContext(ctx).
		Model(&model.Permission{}).
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.code").
		Pluck("permissions.code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

type roleGormRepository struct {
	db *gorm.DB
}

func NewRoleGormRepository(db *gorm.DB) repo.RoleRepository {
	return &roleGormRepository{db: db}
}

func (r *roleGormRepository) CreateRole(ctx context.Context, role *model.Role) error {
	return translateWriteErr(r.db.WithContext(ctx).Create(role).Error)
}

func (r *roleGormRepository) FindRoleByCode(ctx context.Context, code string) (*model.Role, bool, error) {
	var role model.Role

	err := r.db.WithContext(ctx).Where("code = ?", code).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &role, true, nil
}

func (r *roleGormRepository) CreatePermission(ctx context.Context, perm *model.Permission) error {
	return translateWriteErr(r.db.WithContext(ctx).Create(perm).Error)
}

func (r *roleGormRepository) FindPermissionByCode(ctx context.Context, code string) (*model.Permission, bool, error) {
	var perm model.Permission

	err := r.db.WithContext(ctx).Where("code = ?", code).First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &perm, true, nil
}

// module, action順
func (r *roleGormRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := r.db.WithContext(ctx).Order("module, action").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *roleGormRepository) GrantRolePermission(ctx context.Context, roleID int64, permissionID int64) error {
	rp := model.RolePermission{RoleID: roleID, PermissionID: permissionID, CreatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
			DoNothing: true,
		}).
		Create(&rp).Error
}

func (r *roleGormRepository) GrantUserPermission(ctx context.Context, userID int64, permissionID int64) error {
	up := model.UserPermission{UserID: userID, PermissionID: permissionID, CreatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
			DoNothing: true,
		}).
		Create(&up).Error
}

func (r *roleGormRepository) RevokeUserPermission(ctx context.Context, userID int64, permissionID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&model.UserPermission{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrPermissionNotFound
	}
	return nil
}

// user_idで衝突したらrole_idを上書き
func (r *roleGormRepository) AssignUserRole(ctx context.Context, userID int64, roleID int64) error {
	ur := model.UserRole{UserID: userID, RoleID: roleID, CreatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role_id", "created_at"}),
		}).
		Create(&ur).Error
}
