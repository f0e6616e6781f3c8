package api

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/sentra-id/sentra/pkg/auth"
	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/tokengenerator"
	"github.com/sentra-id/sentra/pkg/user"
)

// AuthHandler serves registration, login, the two-factor challenge,
// refresh rotation and the credential-recovery flows.
type AuthHandler struct {
	*Handler
}

func NewAuthHandler(h *Handler) *AuthHandler {
	return &AuthHandler{Handler: h}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id,omitempty"`
}

type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Roles         []string  `json:"roles"`
	TenantID      string    `json:"tenant_id,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TwoFactorLoginRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

// TokenResponse carries a freshly minted pair. When two-factor is
// required no tokens exist yet and the caller must complete the
// challenge at /auth/login/2fa.
type TokenResponse struct {
	TwoFactorRequired bool   `json:"two_factor_required,omitempty"`
	UserID            string `json:"user_id,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
	TokenType         string `json:"token_type,omitempty"`
	ExpiresIn         int64  `json:"expires_in,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(u user.User) UserResponse {
	var resp UserResponse
	// Field names line up; copier spares us the manual mapping.
	_ = copier.Copy(&resp, &u)
	return resp
}

func (h *AuthHandler) tokenResponse(w http.ResponseWriter, result auth.LoginResult) TokenResponse {
	if result.TwoFactorRequired {
		return TokenResponse{
			TwoFactorRequired: true,
			UserID:            result.UserID.String(),
		}
	}
	pair := result.Tokens
	if h.cookies != nil {
		h.cookies.SetTokenPair(w, *pair)
	}
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(pair.AccessExpiry).Seconds()),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	u, err := h.issuer.Register(r.Context(), req.Email, req.Password, req.TenantID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toUserResponse(u))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	result, err := h.issuer.Login(r.Context(), req.Email, req.Password, deviceInfo(r, ""))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, h.tokenResponse(w, result))
}

func (h *AuthHandler) TwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorLoginRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		renderError(w, r, apperrors.InvalidInput("user_id", "must be a UUID"))
		return
	}

	result, err := h.issuer.VerifyTwoFactorLogin(r.Context(), userID, req.Code, deviceInfo(r, ""))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, h.tokenResponse(w, result))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	_ = decode(r, &req)
	raw := req.RefreshToken
	if raw == "" {
		if c, err := r.Cookie(tokengenerator.RefreshTokenCookieName); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		renderError(w, r, apperrors.InvalidInput("refresh_token", "missing"))
		return
	}

	pair, err := h.issuer.Refresh(r.Context(), raw)
	if err != nil {
		if h.cookies != nil {
			h.cookies.ClearTokenPair(w)
		}
		renderError(w, r, err)
		return
	}

	if h.cookies != nil {
		h.cookies.SetTokenPair(w, *pair)
	}
	render.JSON(w, r, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(pair.AccessExpiry).Seconds()),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.issuer.Logout(r.Context(), userID); err != nil {
		renderError(w, r, err)
		return
	}
	if h.cookies != nil {
		h.cookies.ClearTokenPair(w)
	}
	render.JSON(w, r, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.issuer.RequestPasswordReset(r.Context(), req.Email); err != nil {
		renderError(w, r, err)
		return
	}
	// Same response whether or not the account exists.
	render.JSON(w, r, MessageResponse{Message: "if the account exists, a reset email has been sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.issuer.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "password updated"})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		renderError(w, r, apperrors.InvalidInput("token", "missing"))
		return
	}

	u, err := h.issuer.VerifyEmail(r.Context(), token)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, toUserResponse(u))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req ChangePasswordRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.issuer.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "password changed"})
}

type DeactivateRequest struct {
	Reason string `json:"reason"`
}

func (h *AuthHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req DeactivateRequest
	_ = decode(r, &req)

	if err := h.issuer.DeactivateAccount(r.Context(), userID, req.Reason); err != nil {
		renderError(w, r, err)
		return
	}
	if h.cookies != nil {
		h.cookies.ClearTokenPair(w)
	}
	render.JSON(w, r, MessageResponse{Message: "account deactivated"})
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.issuer.DeleteAccount(r.Context(), userID); err != nil {
		renderError(w, r, err)
		return
	}
	if h.cookies != nil {
		h.cookies.ClearTokenPair(w)
	}
	render.JSON(w, r, MessageResponse{Message: "account deleted"})
}
