package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// TwoFactorHandler serves TOTP enrollment and backup-code management for
// an authenticated user.
type TwoFactorHandler struct {
	*Handler
}

func NewTwoFactorHandler(h *Handler) *TwoFactorHandler {
	return &TwoFactorHandler{Handler: h}
}

type TwoFactorSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

type TwoFactorCodeRequest struct {
	Code string `json:"code"`
}

type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

type TwoFactorStatusResponse struct {
	Enabled              bool `json:"enabled"`
	RemainingBackupCodes int  `json:"remaining_backup_codes,omitempty"`
}

func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	engine, err := h.issuer.TwoFactorEngine()
	if err != nil {
		renderError(w, r, err)
		return
	}

	claims, _ := ClaimsFromContext(r.Context())
	setup, err := engine.GenerateTotpSecret(r.Context(), userID, claims.Email)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, TwoFactorSetupResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
	})
}

// Enable turns on two-factor once the user proves possession of the
// enrolled secret. The response carries the backup codes exactly once.
func (h *TwoFactorHandler) Enable(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	engine, err := h.issuer.TwoFactorEngine()
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req TwoFactorCodeRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	codes, err := engine.EnableTwoFactor(r.Context(), userID, req.Code)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, BackupCodesResponse{BackupCodes: codes})
}

func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	engine, err := h.issuer.TwoFactorEngine()
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := engine.DisableTwoFactor(r.Context(), userID); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "two-factor disabled"})
}

func (h *TwoFactorHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	engine, err := h.issuer.TwoFactorEngine()
	if err != nil {
		renderError(w, r, err)
		return
	}

	codes, err := engine.RegenerateBackupCodes(r.Context(), userID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, BackupCodesResponse{BackupCodes: codes})
}

func (h *TwoFactorHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	engine, err := h.issuer.TwoFactorEngine()
	if err != nil {
		renderError(w, r, err)
		return
	}

	enabled, err := engine.IsEnabled(r.Context(), userID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	resp := TwoFactorStatusResponse{Enabled: enabled}
	if enabled {
		remaining, err := engine.RemainingBackupCodes(r.Context(), userID)
		if err != nil {
			renderError(w, r, err)
			return
		}
		resp.RemainingBackupCodes = remaining
	}
	render.JSON(w, r, resp)
}
