package model

import "time"

// ロール（admin / staff / customer など）。
type Role struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Code        string    `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// 権限。module + action の組で一意。
// 例: module=tour, action=create, code=can_create_tour
type Permission struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Code        string    `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Description string    `gorm:"type:text" json:"description"`
	Module      string    `gorm:"size:50;not null;uniqueIndex:idx_permission_module_action" json:"module"`
	Action      string    `gorm:"size:50;not null;uniqueIndex:idx_permission_module_action" json:"action"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ロールに付与された権限（デフォルトの付与テーブル）。
type RolePermission struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	RoleID       int64     `gorm:"not null;uniqueIndex:idx_role_permission"`
	PermissionID int64     `gorm:"not null;uniqueIndex:idx_role_permission"`
	CreatedAt    time.Time `gorm:"not null"`
}

// ユーザーへ直接付与された権限。ロールより先に見る。
// 追加のみで、ロールの権限を取り消すことはできない。
type UserPermission struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	UserID       int64     `gorm:"not null;uniqueIndex:idx_user_permission"`
	PermissionID int64     `gorm:"not null;uniqueIndex:idx_user_permission"`
	CreatedAt    time.Time `gorm:"not null"`
}

// ユーザーのロール。1ユーザー1ロール。
type UserRole struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"not null;uniqueIndex"`
	RoleID    int64     `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}
