package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/repository"
)

// トークン種別ごとの有効期間
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
	Reset   time.Duration
}

// アクセス・リフレッシュ・再設定トークンの発行と失効。
type TokenIssuer struct {
	users   repository.UserRepository
	access  repository.AccessTokenRepository
	refresh repository.RefreshTokenRepository
	resets  repository.PasswordResetTokenRepository
	tx      repository.TransactionManager
	keys    KeyGenerator
	clock   Clock
	ttl     TokenTTL
}

func NewTokenIssuer(
	users repository.UserRepository,
	access repository.AccessTokenRepository,
	refresh repository.RefreshTokenRepository,
	resets repository.PasswordResetTokenRepository,
	tx repository.TransactionManager,
	keys KeyGenerator,
	clock Clock,
	ttl TokenTTL,
) *TokenIssuer {
	return &TokenIssuer{
		users:   users,
		access:  access,
		refresh: refresh,
		resets:  resets,
		tx:      tx,
		keys:    keys,
		clock:   clock,
		ttl:     ttl,
	}
}

func (i *TokenIssuer) TTL() TokenTTL { return i.ttl }

// 既存の有効なトークンがあればそのまま返す。
// 期限切れの行は消して作り直す（認証で弾かれるトークンは返さない）。
func (i *TokenIssuer) IssueAccessToken(ctx context.Context, user *model.User) (*model.AccessToken, error) {
	key, err := i.keys.NewKey()
	if err != nil {
		return nil, fmt.Errorf("generate access key: %w", err)
	}
	now := i.clock.Now()

	tok, created, err := i.access.GetOrCreate(ctx, &model.AccessToken{Key: key, UserID: user.ID, CreatedAt: now})
	if err != nil {
		return nil, fmt.Errorf("get or create access token: %w", err)
	}
	if created || !tok.Expired(now, i.ttl.Access) {
		return tok, nil
	}

	if err := i.access.DeleteByKey(ctx, tok.Key); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		return nil, fmt.Errorf("delete expired access token: %w", err)
	}
	tok, _, err = i.access.GetOrCreate(ctx, &model.AccessToken{Key: key, UserID: user.ID, CreatedAt: now})
	if err != nil {
		return nil, fmt.Errorf("recreate access token: %w", err)
	}
	return tok, nil
}

// 期限切れのリフレッシュトークンは返さない
func (i *TokenIssuer) IssueRefreshToken(ctx context.Context, user *model.User) (*model.RefreshToken, error) {
	key, err := i.keys.NewKey()
	if err != nil {
		return nil, fmt.Errorf("generate refresh key: %w", err)
	}
	now := i.clock.Now()
	fresh := func() *model.RefreshToken {
		return &model.RefreshToken{Key: key, UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(i.ttl.Refresh)}
	}

	tok, created, err := i.refresh.GetOrCreate(ctx, fresh())
	if err != nil {
		return nil, fmt.Errorf("get or create refresh token: %w", err)
	}
	if created || !tok.Expired(now) {
		return tok, nil
	}

	if err := i.refresh.DeleteByID(ctx, tok.ID); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		return nil, fmt.Errorf("delete expired refresh token: %w", err)
	}
	tok, _, err = i.refresh.GetOrCreate(ctx, fresh())
	if err != nil {
		return nil, fmt.Errorf("recreate refresh token: %w", err)
	}
	return tok, nil
}

// リフレッシュトークンから持ち主のアクセストークンを取得（なければ作成）する。
func (i *TokenIssuer) RotateAccessToken(ctx context.Context, refreshKey string) (*model.AccessToken, error) {
	rt, ok, err := i.refresh.FindByKey(ctx, refreshKey)
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if !ok {
		return nil, ErrInvalidToken
	}

	//期限切れはその場で消す
	if rt.Expired(i.clock.Now()) {
		if err := i.refresh.DeleteByID(ctx, rt.ID); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
			return nil, fmt.Errorf("delete expired refresh token: %w", err)
		}
		return nil, ErrTokenExpired
	}

	user, ok, err := i.users.FindByID(ctx, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("find refresh token owner: %w", err)
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return i.IssueAccessToken(ctx, user)
}

// 重複チェックはせず、毎回新しい行を作る
func (i *TokenIssuer) IssueResetToken(ctx context.Context, user *model.User) (*model.PasswordResetToken, error) {
	key, err := i.keys.NewKey()
	if err != nil {
		return nil, fmt.Errorf("generate reset key: %w", err)
	}
	now := i.clock.Now()

	tok := &model.PasswordResetToken{
		Token:     key,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(i.ttl.Reset),
	}
	if err := i.resets.Create(ctx, tok); err != nil {
		return nil, fmt.Errorf("create reset token: %w", err)
	}
	return tok, nil
}

// ユーザーのトークンをすべて消す
func (i *TokenIssuer) RevokeAll(ctx context.Context, userID int64) error {
	return i.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		return revokeAll(ctx, r, userID)
	})
}

// トランザクション内から呼ぶ。もともと無いトークンはエラーにしない。
func revokeAll(ctx context.Context, r repository.TxRepos, userID int64) error {
	if err := r.AccessTokens().DeleteByUserID(ctx, userID); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		return fmt.Errorf("delete access token: %w", err)
	}
	if err := r.RefreshTokens().DeleteByUserID(ctx, userID); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if _, err := r.ResetTokens().DeleteAllByUserID(ctx, userID); err != nil {
		return fmt.Errorf("delete reset tokens: %w", err)
	}
	return nil
}
