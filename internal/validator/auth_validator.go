package validator

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	auth "hoponhopoff/internal/usecase/auth_usecase"
)

// 入力が不正
var ErrInvalidInput = errors.New("invalid input")

// パスワード最低文字数
const MinPasswordLength = 8

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)
	codePattern     = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)
)

// 項目ごとのエラー。errors.Is(err, ErrInvalidInput) で判定できる。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

type fields map[string]string

func (f fields) required(name string, v string) bool {
	if strings.TrimSpace(v) == "" {
		f[name] = "this field is required"
		return false
	}
	return true
}

func (f fields) password(name string, v string) {
	if !f.required(name, v) {
		return
	}
	if len(v) < MinPasswordLength {
		f[name] = "password too short"
		return
	}
	if auth.IsWeakPassword(v) {
		f[name] = "password too common"
	}
}

func (f fields) email(name string, v string) {
	if f.required(name, v) && !auth.IsValidEmailFormat(v) {
		f[name] = "enter a valid email address"
	}
}

func (f fields) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func ValidateRegister(in auth.RegisterInput) error {
	f := fields{}
	if f.required("username", in.Username) && !usernamePattern.MatchString(in.Username) {
		f["username"] = "letters, digits and @/./+/-/_ only"
	}
	f.email("email", in.Email)
	f.password("password", in.Password)
	f.required("password2", in.Password2)
	if len(in.FirstName) > 150 {
		f["first_name"] = "too long"
	}
	if len(in.LastName) > 150 {
		f["last_name"] = "too long"
	}
	return f.err()
}

// ログインは形式チェックだけ（弱いパスワードでも照合はする）
func ValidateLogin(in auth.LoginInput) error {
	f := fields{}
	f.required("username", in.Username)
	f.required("password", in.Password)
	return f.err()
}

func ValidateChangePassword(in auth.ChangePasswordInput) error {
	f := fields{}
	f.required("old_password", in.OldPassword)
	f.password("new_password", in.NewPassword)
	return f.err()
}

func ValidatePasswordResetRequest(email string) error {
	f := fields{}
	f.email("email", email)
	return f.err()
}

func ValidatePasswordResetConfirm(in auth.ConfirmPasswordResetInput) error {
	f := fields{}
	f.required("token", in.Token)
	f.password("new_password", in.NewPassword)
	return f.err()
}

func ValidateProfile(in auth.ProfileInput) error {
	f := fields{}
	limits := []struct {
		name string
		v    *string
		max  int
	}{
		{"first_name", in.FirstName, 150},
		{"last_name", in.LastName, 150},
		{"phone_number", in.PhoneNumber, 20},
		{"country", in.Country, 100},
		{"state", in.State, 100},
		{"avatar_url", in.AvatarURL, 500},
		{"gender", in.Gender, 20},
	}
	for _, l := range limits {
		if l.v != nil && len(*l.v) > l.max {
			f[l.name] = "too long"
		}
	}
	return f.err()
}

func ValidateCreateRole(in auth.CreateRoleInput) error {
	f := fields{}
	f.required("name", in.Name)
	if f.required("code", in.Code) {
		f.code("code", in.Code)
	}
	return f.err()
}

func ValidateCreatePermission(in auth.CreatePermissionInput) error {
	f := fields{}
	f.required("name", in.Name)
	if f.required("code", in.Code) {
		f.code("code", in.Code)
	}
	f.required("module", in.Module)
	f.required("action", in.Action)
	return f.err()
}

// ロール・権限コード（小文字英数とアンダースコア）
func ValidateCode(name string, code string) error {
	f := fields{}
	if f.required(name, code) {
		f.code(name, code)
	}
	return f.err()
}

func (f fields) code(name string, v string) {
	if !codePattern.MatchString(v) {
		f[name] = "lowercase letters, digits and underscore only"
	}
}
