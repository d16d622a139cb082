package model

import "time"

// ログインするアカウント。
// username / email はどちらも一意。
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string `gorm:"size:150" json:"first_name"`
	LastName     string `gorm:"size:150" json:"last_name"`

	//停止ユーザーは認証・権限チェックすべてで弾く
	IsActive    bool `gorm:"not null" json:"is_active"`
	IsStaff     bool `gorm:"not null" json:"is_staff"`
	IsSuperuser bool `gorm:"not null" json:"is_superuser"`

	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"date_joined"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ユーザーごとに最大1件のプロフィール。
type Profile struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	PhoneNumber string     `gorm:"size:20" json:"phone_number"`
	Country     string     `gorm:"size:100" json:"country"`
	Address     string     `gorm:"type:text" json:"address"`
	State       string     `gorm:"size:100" json:"state"`
	AvatarURL   string     `gorm:"size:500" json:"avatar_url"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth"`
	Gender      string     `gorm:"size:20" json:"gender"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
