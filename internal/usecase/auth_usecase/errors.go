package auth

import "errors"

var (
	// 400 入力不正
	ErrBadRequest = errors.New("bad request")

	// 401 ユーザーなし・パスワード違い・停止ユーザーをまとめて同じエラーにする
	ErrInvalidCredentials = errors.New("invalid credentials")

	// トークンのライフサイクル
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token has expired")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// 401 保護された操作にprincipalがない
	ErrUnauthorized = errors.New("authentication credentials were not provided")

	// 404
	ErrUserNotFound = errors.New("user not found")
	ErrNotFound     = errors.New("not found")

	// 409 username / email / code の重複
	ErrConflict = errors.New("conflict")

	ErrUserInactive = errors.New("user inactive or deleted")

	// Authorizationヘッダ
	ErrNoCredentials   = errors.New("authentication credentials were not provided")
	ErrMalformedHeader = errors.New("invalid token header")

	// 500
	ErrDelivery = errors.New("failed to send email")
)

// ヘッダ不正の詳細メッセージを持つ。errors.Is(err, ErrMalformedHeader) で判定できる。
type HeaderError struct {
	Msg string
}

func (e *HeaderError) Error() string { return e.Msg }

func (e *HeaderError) Unwrap() error { return ErrMalformedHeader }

func malformedHeader(msg string) error {
	return &HeaderError{Msg: msg}
}
