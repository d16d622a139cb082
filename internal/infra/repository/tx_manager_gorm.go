package repository

import (
	"context"

	repo "hoponhopoff/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	users         repo.UserRepository
	profiles      repo.ProfileRepository
	accessTokens  repo.AccessTokenRepository
	refreshTokens repo.RefreshTokenRepository
	resetTokens   repo.PasswordResetTokenRepository
}

func (r *txReposGorm) Users() repo.UserRepository                     { return r.users }
func (r *txReposGorm) Profiles() repo.ProfileRepository               { return r.profiles }
func (r *txReposGorm) AccessTokens() repo.AccessTokenRepository       { return r.accessTokens }
func (r *txReposGorm) RefreshTokens() repo.RefreshTokenRepository     { return r.refreshTokens }
func (r *txReposGorm) ResetTokens() repo.PasswordResetTokenRepository { return r.resetTokens }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			users:         NewUserGormRepository(tx),
			profiles:      NewProfileGormRepository(tx),
			accessTokens:  NewAccessTokenRepository(tx),
			refreshTokens: NewRefreshTokenRepository(tx),
			resetTokens:   NewPasswordResetTokenRepository(tx),
		}
		return fn(r)
	})
}
