package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/repository"
	"hoponhopoff/internal/usecase"
)

// テンプレート名
const PasswordResetTemplate = "password_reset"

// 会員登録の入力
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Password2 string
	FirstName string
	LastName  string
}

// handlerからusecaseに渡す入力
type LoginInput struct {
	Username string
	Password string
}

type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

type ConfirmPasswordResetInput struct {
	Token       string
	NewPassword string
}

// nilの項目は変更しない
type ProfileInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Country     *string
	Address     *string
	State       *string
	AvatarURL   *string
	DateOfBirth *string // 2006-01-02
	Gender      *string
}

type SessionDeps struct {
	Users    repository.UserRepository
	Profiles repository.ProfileRepository
	Resets   repository.PasswordResetTokenRepository
	Perms    repository.PermissionRepository
	Tx       repository.TransactionManager
	Issuer   *TokenIssuer
	Hasher   PasswordHasher
	Verifier PasswordVerifier
	Notifier Notifier
	Clock    Clock
	Logger   *slog.Logger

	// メールのリンク先。?token=xxx を付ける
	PasswordResetURL string
}

// ログイン・ログアウト・リフレッシュ・パスワード変更/再設定の流れをまとめる。
type SessionUsecase struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	resets   repository.PasswordResetTokenRepository
	perms    repository.PermissionRepository
	tx       repository.TransactionManager
	issuer   *TokenIssuer
	hasher   PasswordHasher
	verifier PasswordVerifier
	notifier Notifier
	clock    Clock
	logger   *slog.Logger
	resetURL string

	// 存在しないユーザーでも照合するためのハッシュ（初回ログイン時に生成）
	dummyHash func() string
}

// DI
func NewSessionUsecase(d SessionDeps) *SessionUsecase {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hasher := d.Hasher
	return &SessionUsecase{
		dummyHash: sync.OnceValue(func() string {
			//失敗したら空文字。照合は必ず失敗する
			h, _ := hasher.Hash("hoponhopoff-unusable-password")
			return h
		}),
		users:    d.Users,
		profiles: d.Profiles,
		resets:   d.Resets,
		perms:    d.Perms,
		tx:       d.Tx,
		issuer:   d.Issuer,
		hasher:   d.Hasher,
		verifier: d.Verifier,
		notifier: d.Notifier,
		clock:    d.Clock,
		logger:   logger,
		resetURL: d.PasswordResetURL,
	}
}

// ユーザーと空のプロフィールを同じトランザクションで作る
func (u *SessionUsecase) Register(ctx context.Context, in RegisterInput) (usecase.UserDTO, error) {
	if in.Password != in.Password2 {
		return usecase.UserDTO{}, fmt.Errorf("%w: password fields didn't match", ErrBadRequest)
	}

	if _, ok, err := u.users.FindByUsername(ctx, in.Username); err != nil {
		return usecase.UserDTO{}, fmt.Errorf("find user by username: %w", err)
	} else if ok {
		return usecase.UserDTO{}, fmt.Errorf("%w: username already exists", ErrConflict)
	}
	if _, ok, err := u.users.FindByEmail(ctx, in.Email); err != nil {
		return usecase.UserDTO{}, fmt.Errorf("find user by email: %w", err)
	} else if ok {
		return usecase.UserDTO{}, fmt.Errorf("%w: email already exists", ErrConflict)
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return usecase.UserDTO{}, fmt.Errorf("hash password: %w", err)
	}

	now := u.clock.Now()
	user := &model.User{
		Username:     in.Username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hashed,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.Users().Create(ctx, user); err != nil {
			return err
		}
		return r.Profiles().Create(ctx, &model.Profile{UserID: user.ID, CreatedAt: now, UpdatedAt: now})
	})
	if err != nil {
		//事前チェックをすり抜けた同時登録
		if errors.Is(err, repository.ErrDuplicate) {
			return usecase.UserDTO{}, fmt.Errorf("%w: username or email already exists", ErrConflict)
		}
		return usecase.UserDTO{}, fmt.Errorf("create user: %w", err)
	}

	u.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return usecase.NewUserDTO(user), nil
}

// ユーザーなし・パスワード違い・停止ユーザーはすべて ErrInvalidCredentials
func (u *SessionUsecase) Login(ctx context.Context, in LoginInput) (usecase.LoginDTO, error) {
	user, ok, err := u.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return usecase.LoginDTO{}, fmt.Errorf("find user: %w", err)
	}
	if !ok {
		//ユーザー有無で応答時間が変わらないようにする
		u.verifier.Verify(in.Password, u.dummyHash())
		return usecase.LoginDTO{}, ErrInvalidCredentials
	}
	if !u.verifier.Verify(in.Password, user.PasswordHash) || !user.IsActive {
		return usecase.LoginDTO{}, ErrInvalidCredentials
	}

	//最終ログイン時刻更新
	now := u.clock.Now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		return usecase.LoginDTO{}, fmt.Errorf("update last login: %w", err)
	}

	access, err := u.issuer.IssueAccessToken(ctx, user)
	if err != nil {
		return usecase.LoginDTO{}, err
	}
	refresh, err := u.issuer.IssueRefreshToken(ctx, user)
	if err != nil {
		return usecase.LoginDTO{}, err
	}

	profile, err := u.profileOf(ctx, user)
	if err != nil {
		return usecase.LoginDTO{}, err
	}

	return usecase.LoginDTO{
		AccessToken:  access.Key,
		RefreshToken: refresh.Key,
		Profile:      profile,
	}, nil
}

func (u *SessionUsecase) Refresh(ctx context.Context, refreshKey string) (usecase.RefreshDTO, error) {
	if strings.TrimSpace(refreshKey) == "" {
		return usecase.RefreshDTO{}, fmt.Errorf("%w: refresh_token is required", ErrBadRequest)
	}

	access, err := u.issuer.RotateAccessToken(ctx, refreshKey)
	if err != nil {
		return usecase.RefreshDTO{}, err
	}
	return usecase.RefreshDTO{AccessToken: access.Key}, nil
}

// アクセス・リフレッシュトークンを消す。もう無い場合も成功扱い。
func (u *SessionUsecase) Logout(ctx context.Context, p Principal) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}

	err := u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.AccessTokens().DeleteByUserID(ctx, p.User.ID); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
			return err
		}
		if err := r.RefreshTokens().DeleteByUserID(ctx, p.User.ID); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// 古いトークンはすべて失効させ、新しい組を返す
func (u *SessionUsecase) ChangePassword(ctx context.Context, p Principal, in ChangePasswordInput) (usecase.TokenPairDTO, error) {
	if !p.Authenticated() {
		return usecase.TokenPairDTO{}, ErrUnauthorized
	}
	if !u.verifier.Verify(in.OldPassword, p.User.PasswordHash) {
		return usecase.TokenPairDTO{}, ErrInvalidCredentials
	}

	hashed, err := u.hasher.Hash(in.NewPassword)
	if err != nil {
		return usecase.TokenPairDTO{}, fmt.Errorf("hash password: %w", err)
	}

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.Users().UpdatePassword(ctx, p.User.ID, hashed); err != nil {
			return err
		}
		return revokeAll(ctx, r, p.User.ID)
	})
	if err != nil {
		return usecase.TokenPairDTO{}, fmt.Errorf("change password: %w", err)
	}
	p.User.PasswordHash = hashed

	access, err := u.issuer.IssueAccessToken(ctx, p.User)
	if err != nil {
		return usecase.TokenPairDTO{}, err
	}
	refresh, err := u.issuer.IssueRefreshToken(ctx, p.User)
	if err != nil {
		return usecase.TokenPairDTO{}, err
	}

	u.logger.InfoContext(ctx, "password changed", "user_id", p.User.ID)
	return usecase.TokenPairDTO{AccessToken: access.Key, RefreshToken: refresh.Key}, nil
}

// 未登録のメールには "user not found" を返す（アカウントの有無が分かってしまう）
func (u *SessionUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, ok, err := u.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: user with this email does not exist", ErrUserNotFound)
	}

	//前の再設定トークンは無効にする
	if _, err := u.resets.DeleteAllByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("delete old reset tokens: %w", err)
	}

	tok, err := u.issuer.IssueResetToken(ctx, user)
	if err != nil {
		return err
	}

	link, err := resetLink(u.resetURL, tok.Token)
	if err != nil {
		return fmt.Errorf("build reset link: %w", err)
	}

	data := map[string]any{
		"Username":   user.Username,
		"ResetLink":  link,
		"ExpiresAt":  tok.ExpiresAt.Format(time.RFC3339),
		"ExpiresMin": int(u.issuer.TTL().Reset.Minutes()),
	}
	if err := u.notifier.SendTemplatedEmail(ctx, user.Email, PasswordResetTemplate, data); err != nil {
		u.logger.ErrorContext(ctx, "password reset email failed", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	u.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// パスワードを更新し、再設定トークン・リフレッシュ・アクセストークンをすべて消す
func (u *SessionUsecase) ConfirmPasswordReset(ctx context.Context, in ConfirmPasswordResetInput) error {
	tok, ok, err := u.resets.FindByToken(ctx, in.Token)
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}
	if !ok {
		return ErrInvalidOrExpiredToken
	}
	if tok.Expired(u.clock.Now()) {
		if err := u.resets.DeleteByID(ctx, tok.ID); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
			return fmt.Errorf("delete expired reset token: %w", err)
		}
		return ErrInvalidOrExpiredToken
	}

	hashed, err := u.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		//先に消せた1件だけが再設定できる
		if err := r.ResetTokens().DeleteByID(ctx, tok.ID); err != nil {
			if errors.Is(err, repository.ErrTokenNotFound) {
				return ErrInvalidOrExpiredToken
			}
			return err
		}
		if err := r.Users().UpdatePassword(ctx, tok.UserID, hashed); err != nil {
			return err
		}
		//兄弟トークンとセッションはrevokeAllでまとめて消える
		return revokeAll(ctx, r, tok.UserID)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredToken) || errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("confirm password reset: %w", err)
	}

	u.logger.InfoContext(ctx, "password reset confirmed", "user_id", tok.UserID)
	return nil
}

func (u *SessionUsecase) Profile(ctx context.Context, p Principal) (usecase.ProfileDTO, error) {
	if !p.Authenticated() {
		return usecase.ProfileDTO{}, ErrUnauthorized
	}
	return u.profileOf(ctx, p.User)
}

func (u *SessionUsecase) UpdateProfile(ctx context.Context, p Principal, in ProfileInput) (usecase.ProfileDTO, error) {
	if !p.Authenticated() {
		return usecase.ProfileDTO{}, ErrUnauthorized
	}

	var dob *time.Time
	if in.DateOfBirth != nil && *in.DateOfBirth != "" {
		d, err := time.Parse(usecase.DateLayout, *in.DateOfBirth)
		if err != nil {
			return usecase.ProfileDTO{}, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrBadRequest)
		}
		dob = &d
	}

	now := u.clock.Now()
	user := *p.User
	setIf(&user.FirstName, in.FirstName)
	setIf(&user.LastName, in.LastName)
	user.UpdatedAt = now

	err := u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.Users().Update(ctx, &user); err != nil {
			return err
		}

		profile, ok, err := r.Profiles().FindByUserID(ctx, user.ID)
		if err != nil {
			return err
		}
		if !ok {
			profile = &model.Profile{UserID: user.ID, CreatedAt: now}
		}
		setIf(&profile.PhoneNumber, in.PhoneNumber)
		setIf(&profile.Country, in.Country)
		setIf(&profile.Address, in.Address)
		setIf(&profile.State, in.State)
		setIf(&profile.AvatarURL, in.AvatarURL)
		setIf(&profile.Gender, in.Gender)
		if in.DateOfBirth != nil {
			profile.DateOfBirth = dob
		}
		profile.UpdatedAt = now

		if !ok {
			return r.Profiles().Create(ctx, profile)
		}
		return r.Profiles().Update(ctx, profile)
	})
	if err != nil {
		return usecase.ProfileDTO{}, fmt.Errorf("update profile: %w", err)
	}

	*p.User = user
	return u.profileOf(ctx, p.User)
}

// プロフィールDTO（ロール名と直接付与の権限コード付き）
func (u *SessionUsecase) profileOf(ctx context.Context, user *model.User) (usecase.ProfileDTO, error) {
	profile, _, err := u.profiles.FindByUserID(ctx, user.ID)
	if err != nil {
		return usecase.ProfileDTO{}, fmt.Errorf("find profile: %w", err)
	}
	role, _, err := u.perms.FindUserRole(ctx, user.ID)
	if err != nil {
		return usecase.ProfileDTO{}, fmt.Errorf("find user role: %w", err)
	}
	codes, err := u.perms.ListUserPermissionCodes(ctx, user.ID)
	if err != nil {
		return usecase.ProfileDTO{}, fmt.Errorf("list user permissions: %w", err)
	}
	return usecase.NewProfileDTO(user, profile, role, codes), nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func resetLink(base string, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
