package handler

import (
	"net/http"

	"hoponhopoff/internal/middleware"
	"hoponhopoff/internal/usecase"
	auth "hoponhopoff/internal/usecase/auth_usecase"
	"hoponhopoff/internal/validator"

	"github.com/labstack/echo/v4"
)

// /api 配下（会員登録・ログイン・トークン・パスワード・プロフィール）
type AuthHandler struct {
	session  *auth.SessionUsecase
	resolver middleware.PermissionChecker
	authn    middleware.Authenticator
}

// DIコンストラクタ
func NewAuthHandler(
	session *auth.SessionUsecase,
	resolver middleware.PermissionChecker,
	authn middleware.Authenticator,
) *AuthHandler {
	return &AuthHandler{session: session, resolver: resolver, authn: authn}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.POST("/token/refresh", h.refresh)
	api.POST("/password-reset", h.requestPasswordReset)
	api.POST("/password-reset/confirm", h.confirmPasswordReset)

	//Token必須
	tokenAuth := middleware.TokenAuth(h.authn)
	api.POST("/logout", h.logout, tokenAuth)
	api.POST("/change-password", h.changePassword, tokenAuth)
	api.GET("/profile", h.profile, tokenAuth)
	api.PUT("/profile", h.updateProfile, tokenAuth)
	api.GET("/me/permissions/:code", h.checkMyPermission, tokenAuth)
}

// POST /api/register のリクエストボディ。
type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// POST /api/login のリクエストボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// 送られてきた項目だけ更新する
type profileRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Country     *string `json:"country"`
	Address     *string `json:"address"`
	State       *string `json:"state"`
	AvatarURL   *string `json:"avatar_url"`
	DateOfBirth *string `json:"date_of_birth"`
	Gender      *string `json:"gender"`
}

func (h *AuthHandler) register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	in := auth.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := validator.ValidateRegister(in); err != nil {
		return writeError(c, err)
	}

	out, err := h.session.Register(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusCreated, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	in := auth.LoginInput{Username: req.Username, Password: req.Password}
	if err := validator.ValidateLogin(in); err != nil {
		return writeError(c, err)
	}

	out, err := h.session.Login(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AuthHandler) refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.session.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AuthHandler) logout(c echo.Context) error {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		return writeError(c, auth.ErrUnauthorized)
	}

	if err := h.session.Logout(c.Request().Context(), p); err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, message{Message: "Successfully logged out."})
}

func (h *AuthHandler) changePassword(c echo.Context) error {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		return writeError(c, auth.ErrUnauthorized)
	}

	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in := auth.ChangePasswordInput{OldPassword: req.OldPassword, NewPassword: req.NewPassword}
	if err := validator.ValidateChangePassword(in); err != nil {
		return writeError(c, err)
	}

	out, err := h.session.ChangePassword(c.Request().Context(), p, in)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AuthHandler) requestPasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := validator.ValidatePasswordResetRequest(req.Email); err != nil {
		return writeError(c, err)
	}

	if err := h.session.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, message{Message: "Password reset link sent to your email."})
}

func (h *AuthHandler) confirmPasswordReset(c echo.Context) error {
	var req passwordResetConfirmRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in := auth.ConfirmPasswordResetInput{Token: req.Token, NewPassword: req.NewPassword}
	if err := validator.ValidatePasswordResetConfirm(in); err != nil {
		return writeError(c, err)
	}

	if err := h.session.ConfirmPasswordReset(c.Request().Context(), in); err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, message{Message: "Password has been reset successfully."})
}

func (h *AuthHandler) profile(c echo.Context) error {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		return writeError(c, auth.ErrUnauthorized)
	}

	out, err := h.session.Profile(c.Request().Context(), p)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AuthHandler) updateProfile(c echo.Context) error {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		return writeError(c, auth.ErrUnauthorized)
	}

	var req profileRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in := auth.ProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
		Address:     req.Address,
		State:       req.State,
		AvatarURL:   req.AvatarURL,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
	}
	if err := validator.ValidateProfile(in); err != nil {
		return writeError(c, err)
	}

	out, err := h.session.UpdateProfile(c.Request().Context(), p, in)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

// 自分がその権限を持っているか
func (h *AuthHandler) checkMyPermission(c echo.Context) error {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		return writeError(c, auth.ErrUnauthorized)
	}

	code := c.Param("code")
	if err := validator.ValidateCode("code", code); err != nil {
		return writeError(c, err)
	}

	granted, err := h.resolver.HasPermission(c.Request().Context(), p.User, code)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, usecase.PermissionCheckDTO{Code: code, Granted: granted})
}
