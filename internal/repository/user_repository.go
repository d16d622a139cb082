package repository

import (
	"context"
	"errors"

	"hoponhopoff/internal/domain/model"
)

var (
	// ユーザーが見つかりませんを統一
	ErrUserNotFound = errors.New("user not found")

	// 一意制約違反（username / email / token key の重複など）
	ErrDuplicate = errors.New("duplicate key")
)

// 保存・取得を約束
// Find系は (値, 見つかったか, エラー) を返す。見つからないのはエラーではない。
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, bool, error)
	FindByUsername(ctx context.Context, username string) (*model.User, bool, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, bool, error)
	// 最終ログインなどの更新
	Update(ctx context.Context, user *model.User) error
	// パスワードハッシュだけ差し替える
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	Count(ctx context.Context) (int64, error)
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	FindByUserID(ctx context.Context, userID int64) (*model.Profile, bool, error)
	Update(ctx context.Context, profile *model.Profile) error
}
