package repository

import (
	"context"
	"errors"

	"hoponhopoff/internal/domain/model"
)

// 削除対象のトークンがない
var ErrTokenNotFound = errors.New("token not found")

// アクセストークンの保存・取得・削除
type AccessTokenRepository interface {
	// user_idで既存を探し、なければtokenを保存する。
	// 同時に作られた場合は一意制約で負けた側が勝った行を読み直す。
	// 戻り値のboolは新規作成したかどうか。
	GetOrCreate(ctx context.Context, token *model.AccessToken) (*model.AccessToken, bool, error)
	FindByKey(ctx context.Context, key string) (*model.AccessToken, bool, error)
	FindByUserID(ctx context.Context, userID int64) (*model.AccessToken, bool, error)
	DeleteByKey(ctx context.Context, key string) error
	DeleteByUserID(ctx context.Context, userID int64) error
}

// リフレッシュトークン（ユーザーと1対1）
type RefreshTokenRepository interface {
	GetOrCreate(ctx context.Context, token *model.RefreshToken) (*model.RefreshToken, bool, error)
	FindByKey(ctx context.Context, key string) (*model.RefreshToken, bool, error)
	DeleteByID(ctx context.Context, tokenID int64) error
	DeleteByUserID(ctx context.Context, userID int64) error
}

// パスワード再設定トークン
type PasswordResetTokenRepository interface {
	Create(ctx context.Context, token *model.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*model.PasswordResetToken, bool, error)
	DeleteByID(ctx context.Context, tokenID int64) error
	// 0件でもエラーにしない
	DeleteAllByUserID(ctx context.Context, userID int64) (int64, error)
}
