package repository

import (
	"context"
	"errors"

	"hoponhopoff/internal/domain/model"
	repo "hoponhopoff/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// user_id衝突時は何もしない（既存行を読み直す）
var onUserConflictDoNothing = clause.OnConflict{
	Columns:   []clause.Column{{Name: "user_id"}},
	DoNothing: true,
}

type accessTokenGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewAccessTokenRepository(db *gorm.DB) repo.AccessTokenRepository {
	return &accessTokenGormRepository{db: db}
}

// user_idに1件だけ。INSERT ... ON CONFLICT (user_id) DO NOTHING で競合を吸収する。
func (r *accessTokenGormRepository) GetOrCreate(ctx context.Context, token *model.AccessToken) (*model.AccessToken, bool, error) {
	existing, ok, err := r.FindByUserID(ctx, token.UserID)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return existing, false, nil
	}

	res := r.db.WithContext(ctx).Clauses(onUserConflictDoNothing).Create(token)
	if res.Error != nil {
		return nil, false, translateWriteErr(res.Error)
	}

	// 0件 = 別リクエストが先に作った
	if res.RowsAffected == 0 {
		winner, ok, err := r.FindByUserID(ctx, token.UserID)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, repo.ErrTokenNotFound
		}
		return winner, false, nil
	}

	return token, true, nil
}

// keyで1件検索します。
func (r *accessTokenGormRepository) FindByKey(ctx context.Context, key string) (*model.AccessToken, bool, error) {
	var token model.AccessToken

	err := r.db.WithContext(ctx).
		Where(map[string]any{"key": key}).
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &token, true, nil
}

func (r *accessTokenGormRepository) FindByUserID(ctx context.Context, userID int64) (*model.AccessToken, bool, error) {
	var token model.AccessToken

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &token, true, nil
}

func (r *accessTokenGormRepository) DeleteByKey(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).
		Where(map[string]any{"key": key}).
		Delete(&model.AccessToken{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrTokenNotFound
	}
	return nil
}

func (r *accessTokenGormRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.AccessToken{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrTokenNotFound
	}
	return nil
}

type refreshTokenGormRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) repo.RefreshTokenRepository {
	return &refreshTokenGormRepository{db: db}
}

func (r *refreshTokenGormRepository) GetOrCreate(ctx context.Context, token *model.RefreshToken) (*model.RefreshToken, bool, error) {
	existing, ok, err := r.findByUserID(ctx, token.UserID)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return existing, false, nil
	}

	res := r.db.WithContext(ctx).Clauses(onUserConflictDoNothing).Create(token)
	if res.Error != nil {
		return nil, false, translateWriteErr(res.Error)
	}

	if res.RowsAffected == 0 {
		winner, ok, err := r.findByUserID(ctx, token.UserID)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, repo.ErrTokenNotFound
		}
		return winner, false, nil
	}

	return token, true, nil
}

func (r *refreshTokenGormRepository) findByUserID(ctx context.Context, userID int64) (*model.RefreshToken, bool, error) {
	var token model.RefreshToken

	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &token, true, nil
}

func (r *refreshTokenGormRepository) FindByKey(ctx context.Context, key string) (*model.RefreshToken, bool, error) {
	var token model.RefreshToken

	err := r.db.WithContext(ctx).Where(map[string]any{"key": key}).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &token, true, nil
}

// 指定IDのリフレッシュトークンを削除。
func (r *refreshTokenGormRepository) DeleteByID(ctx context.Context, tokenID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", tokenID).
		Delete(&model.RefreshToken{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrTokenNotFound
	}

	return nil
}

func (r *refreshTokenGormRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.RefreshToken{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrTokenNotFound
	}

	return nil
}

type passwordResetTokenGormRepository struct {
	db *gorm.DB
}

func NewPasswordResetTokenRepository(db *gorm.DB) repo.PasswordResetTokenRepository {
	return &passwordResetTokenGormRepository{db: db}
}

func (r *passwordResetTokenGormRepository) Create(ctx context.Context, token *model.PasswordResetToken) error {
	return translateWriteErr(r.db.WithContext(ctx).Create(token).Error)
}

func (r *passwordResetTokenGormRepository) FindByToken(ctx context.Context, token string) (*model.PasswordResetToken, bool, error) {
	var t model.PasswordResetToken

	err := r.db.WithContext(ctx).Where("token = ?", token).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &t, true, nil
}

func (r *passwordResetTokenGormRepository) DeleteByID(ctx context.Context, tokenID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", tokenID).
		Delete(&model.PasswordResetToken{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrTokenNotFound
	}
	return nil
}

// 指定ユーザーの再設定トークンを全削除します。
func (r *passwordResetTokenGormRepository) DeleteAllByUserID(ctx context.Context, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.PasswordResetToken{})

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
