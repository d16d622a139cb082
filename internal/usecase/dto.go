package usecase

import (
	"time"

	"hoponhopoff/internal/domain/model"
)

// レスポンスに出すユーザー（パスワードハッシュは持たない）
type UserDTO struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsActive    bool       `json:"is_active"`
	IsStaff     bool       `json:"is_staff"`
	DateJoined  time.Time  `json:"date_joined"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// プロフィール + ロール名 + 直接付与された権限コード
type ProfileDTO struct {
	User        UserDTO  `json:"user"`
	PhoneNumber string   `json:"phone_number"`
	Country     string   `json:"country"`
	Address     string   `json:"address"`
	State       string   `json:"state"`
	AvatarURL   string   `json:"avatar_url"`
	DateOfBirth *string  `json:"date_of_birth"`
	Gender      string   `json:"gender"`
	Role        *string  `json:"role"`
	Permissions []string `json:"permissions"`
}

type TokenPairDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginDTO struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	Profile      ProfileDTO `json:"profile"`
}

type RefreshDTO struct {
	AccessToken string `json:"access_token"`
}

type PermissionCheckDTO struct {
	Code    string `json:"code"`
	Granted bool   `json:"granted"`
}

const DateLayout = "2006-01-02"

func NewUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		DateJoined:  u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// profileやroleが無いときはnilでよい
func NewProfileDTO(u *model.User, p *model.Profile, role *model.Role, permissions []string) ProfileDTO {
	out := ProfileDTO{
		User:        NewUserDTO(u),
		Permissions: permissions,
	}
	if out.Permissions == nil {
		out.Permissions = []string{}
	}
	if role != nil {
		name := role.Name
		out.Role = &name
	}
	if p != nil {
		out.PhoneNumber = p.PhoneNumber
		out.Country = p.Country
		out.Address = p.Address
		out.State = p.State
		out.AvatarURL = p.AvatarURL
		out.Gender = p.Gender
		if p.DateOfBirth != nil {
			s := p.DateOfBirth.Format(DateLayout)
			out.DateOfBirth = &s
		}
	}
	return out
}
