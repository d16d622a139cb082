package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/repository"
)

// 認証済みの呼び出し元。middlewareで1回だけ作り、usecaseへ明示的に渡す。
type Principal struct {
	User  *model.User
	Token *model.AccessToken
}

func (p Principal) Authenticated() bool {
	return p.User != nil
}

// Authorization: <Keyword> <key> を検証する。
type Authenticator struct {
	keyword string
	users   repository.UserRepository
	access  repository.AccessTokenRepository
	clock   Clock
	ttl     time.Duration
}

func NewAuthenticator(
	keyword string,
	users repository.UserRepository,
	access repository.AccessTokenRepository,
	clock Clock,
	accessTTL time.Duration,
) *Authenticator {
	return &Authenticator{
		keyword: keyword,
		users:   users,
		access:  access,
		clock:   clock,
		ttl:     accessTTL,
	}
}

// 401のWWW-Authenticateに使う
func (a *Authenticator) Keyword() string { return a.keyword }

func (a *Authenticator) Authenticate(ctx context.Context, header string) (Principal, error) {
	key, err := ParseAuthorizationHeader(header, a.keyword)
	if err != nil {
		return Principal{}, err
	}
	return a.AuthenticateKey(ctx, key)
}

func (a *Authenticator) AuthenticateKey(ctx context.Context, key string) (Principal, error) {
	tok, ok, err := a.access.FindByKey(ctx, key)
	if err != nil {
		return Principal{}, fmt.Errorf("find access token: %w", err)
	}
	if !ok {
		return Principal{}, ErrInvalidToken
	}

	user, ok, err := a.users.FindByID(ctx, tok.UserID)
	if err != nil {
		return Principal{}, fmt.Errorf("find token owner: %w", err)
	}
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	if !user.IsActive {
		return Principal{}, ErrUserInactive
	}

	//期限は created_at + TTL で計算する。切れていたら行を消す。
	if tok.Expired(a.clock.Now(), a.ttl) {
		if err := a.access.DeleteByKey(ctx, tok.Key); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
			return Principal{}, fmt.Errorf("delete expired access token: %w", err)
		}
		return Principal{}, ErrTokenExpired
	}

	return Principal{User: user, Token: tok}, nil
}

// キーワードは大文字小文字を区別しない。区切りはスペース1つだけ。
func ParseAuthorizationHeader(header string, keyword string) (string, error) {
	if header == "" {
		return "", ErrNoCredentials
	}

	parts := strings.SplitN(header, " ", 2)
	if !strings.EqualFold(parts[0], keyword) {
		return "", malformedHeader("Invalid token header. Expected keyword " + keyword + ".")
	}
	if len(parts) == 1 || parts[1] == "" {
		return "", malformedHeader("Invalid token header. No credentials provided.")
	}

	cred := parts[1]
	if strings.ContainsAny(cred, " \t\r\n\v\f") {
		return "", malformedHeader("Invalid token header. Token string should not contain spaces.")
	}
	for i := 0; i < len(cred); i++ {
		if cred[i] < 0x21 || cred[i] > 0x7e {
			return "", malformedHeader("Invalid token header. Token string should not contain invalid characters.")
		}
	}
	return cred, nil
}
