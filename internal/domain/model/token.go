package model

import "time"

// ベアラートークン。ユーザーにつき1件。
// 有効期限は保存しない（created_at + TTL で毎回計算する）。
type AccessToken struct {
	Key       string    `gorm:"primaryKey;size:40" json:"key"`
	UserID    int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AccessToken) TableName() string { return "authtoken_token" }

// 作成からttlを過ぎたか
func (t *AccessToken) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.CreatedAt) > ttl
}

// アクセストークン再発行用。ユーザーと1対1。
type RefreshToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"size:50;not null;uniqueIndex" json:"key"`
	UserID    int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

func (RefreshToken) TableName() string { return "auth_refresh_token" }

func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// パスワード再設定トークン。
// 行は複数残りうるが、有効なのは最新の1件だけ（新規発行時に古いものは消す）。
type PasswordResetToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Token     string    `gorm:"size:50;not null;uniqueIndex" json:"token"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

func (PasswordResetToken) TableName() string { return "auth_password_reset_token" }

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
