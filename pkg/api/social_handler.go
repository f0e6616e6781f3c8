package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// SocialHandler serves social sign-in and account linking. The identity
// assertion (provider, provider_id, email) is expected to arrive already
// verified by the deployment's provider integration.
type SocialHandler struct {
	*Handler
}

func NewSocialHandler(h *Handler) *SocialHandler {
	return &SocialHandler{Handler: h}
}

type SocialLoginRequest struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
}

func (req *SocialLoginRequest) validate() error {
	if req.Provider == "" {
		return apperrors.InvalidInput("provider", "must not be empty")
	}
	if req.ProviderID == "" {
		return apperrors.InvalidInput("provider_id", "must not be empty")
	}
	if req.Email == "" {
		return apperrors.InvalidInput("email", "must not be empty")
	}
	return nil
}

func (h *SocialHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req SocialLoginRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		renderError(w, r, err)
		return
	}

	result, err := h.issuer.SocialLogin(r.Context(), req.Provider, req.ProviderID, req.Email, deviceInfo(r, ""))
	if err != nil {
		renderError(w, r, err)
		return
	}

	auth := NewAuthHandler(h.Handler)
	render.JSON(w, r, auth.tokenResponse(w, result))
}

func (h *SocialHandler) Link(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req SocialLoginRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.issuer.LinkSocialAccount(r.Context(), userID, req.Provider, req.ProviderID, req.Email); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "social account linked"})
}

func (h *SocialHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	provider := chi.URLParam(r, "provider")
	if provider == "" {
		renderError(w, r, apperrors.InvalidInput("provider", "must not be empty"))
		return
	}

	if err := h.issuer.UnlinkSocialAccount(r.Context(), userID, provider); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "social account unlinked"})
}
