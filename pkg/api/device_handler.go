package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/sentra-id/sentra/pkg/device"
	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// DeviceHandler serves the authenticated user's device list.
type DeviceHandler struct {
	*Handler
}

func NewDeviceHandler(h *Handler) *DeviceHandler {
	return &DeviceHandler{Handler: h}
}

type DeviceResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name,omitempty"`
	OS         string    `json:"os,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	Type       string    `json:"type,omitempty"`
	LastActive time.Time `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type RenameDeviceRequest struct {
	Name string `json:"name"`
}

func toDeviceResponses(devices []device.Device) []DeviceResponse {
	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		var resp DeviceResponse
		_ = copier.Copy(&resp, &d)
		out = append(out, resp)
	}
	return out
}

// List returns the devices that still hold at least one live session.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	tracker, err := h.issuer.DeviceTracker()
	if err != nil {
		renderError(w, r, err)
		return
	}

	devices, err := tracker.GetUserDevices(r.Context(), userID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, toDeviceResponses(devices))
}

func (h *DeviceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	tracker, err := h.issuer.DeviceTracker()
	if err != nil {
		renderError(w, r, err)
		return
	}
	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		renderError(w, r, apperrors.InvalidInput("deviceID", "must be a UUID"))
		return
	}

	var req RenameDeviceRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.Name == "" {
		renderError(w, r, apperrors.InvalidInput("name", "must not be empty"))
		return
	}

	if err := tracker.RenameDevice(r.Context(), userID, deviceID, req.Name); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "device renamed"})
}

// Revoke kills every session bound to the device, blacklisting their
// refresh tokens so the rotation chains cannot continue.
func (h *DeviceHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	tracker, err := h.issuer.DeviceTracker()
	if err != nil {
		renderError(w, r, err)
		return
	}
	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		renderError(w, r, apperrors.InvalidInput("deviceID", "must be a UUID"))
		return
	}

	if err := tracker.RevokeDevice(r.Context(), userID, deviceID); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "device sessions revoked"})
}
