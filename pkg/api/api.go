// Package api exposes the HTTP surface: registration, login and the 2FA
// challenge, token refresh, account management, device management, the
// OAuth bridge endpoints and JWKS publication.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sentra-id/sentra/pkg/auth"
	"github.com/sentra-id/sentra/pkg/device"
	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/oauth"
	"github.com/sentra-id/sentra/pkg/tokengenerator"
)

// Handler carries the services the HTTP layer fronts.
type Handler struct {
	issuer  *auth.Issuer
	bridge  *oauth.Bridge
	codec   *tokengenerator.Codec
	cookies *tokengenerator.CookieSetter
}

func NewHandler(issuer *auth.Issuer, bridge *oauth.Bridge, codec *tokengenerator.Codec, cookies *tokengenerator.CookieSetter) *Handler {
	return &Handler{issuer: issuer, bridge: bridge, codec: codec, cookies: cookies}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// renderError maps structured errors onto HTTP statuses. Unstructured
// errors become opaque 500s; their detail stays in the logs.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.MapErrorCodeToHTTPStatus(code)

	message := "internal server error"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && code != apperrors.ErrCodeInternal {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: string(code), Message: message})
}

// decode parses a JSON body into dst.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidInput("body", "malformed JSON")
	}
	return nil
}

// deviceInfo builds the tracker input from request metadata.
func deviceInfo(r *http.Request, name string) *device.Info {
	ua := r.UserAgent()
	if ua == "" {
		return nil
	}
	return &device.Info{
		UserAgent: ua,
		IPAddress: r.RemoteAddr,
		Name:      name,
	}
}
