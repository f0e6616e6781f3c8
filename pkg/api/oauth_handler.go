package api

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/jwks"
	"github.com/sentra-id/sentra/pkg/oauth"
)

// OAuthHandler bridges first-party sessions into the authorization-code
// grant: an authenticated user mints a short-lived code, and the client
// redeems it at the token endpoint with its PKCE verifier.
type OAuthHandler struct {
	*Handler
}

func NewOAuthHandler(h *Handler) *OAuthHandler {
	return &OAuthHandler{Handler: h}
}

type AuthorizeRequest struct {
	ClientID            string `json:"client_id"`
	RedirectURI         string `json:"redirect_uri"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
	State               string `json:"state,omitempty"`
}

type AuthorizeResponse struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

// oauthError is the RFC 6749 error body used by the token endpoint.
type oauthError struct {
	Error string `json:"error"`
}

func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req AuthorizeRequest
	if err := decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.ClientID == "" {
		renderError(w, r, apperrors.InvalidInput("client_id", "must not be empty"))
		return
	}
	if req.RedirectURI == "" {
		renderError(w, r, apperrors.InvalidInput("redirect_uri", "must not be empty"))
		return
	}
	var method oauth.ChallengeMethod
	switch req.CodeChallengeMethod {
	case "S256":
		method = oauth.ChallengeS256
	case "plain":
		method = oauth.ChallengePlain
	case "":
		// PKCE is mandatory for this bridge
		renderError(w, r, apperrors.InvalidInput("code_challenge_method", "must be S256 or plain"))
		return
	default:
		renderError(w, r, apperrors.InvalidInput("code_challenge_method", "must be S256 or plain"))
		return
	}
	if req.CodeChallenge == "" {
		renderError(w, r, apperrors.InvalidInput("code_challenge", "must not be empty"))
		return
	}

	code, err := h.bridge.CreateAuthorizationCode(r.Context(), userID, req.ClientID, req.RedirectURI, req.CodeChallenge, method)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, AuthorizeResponse{Code: code, State: req.State})
}

// Token is the form-encoded token endpoint. Every redemption failure
// collapses to invalid_grant; the specific check that tripped is logged
// server-side only.
func (h *OAuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, oauthError{Error: "invalid_request"})
		return
	}
	if r.PostFormValue("grant_type") != "authorization_code" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, oauthError{Error: "unsupported_grant_type"})
		return
	}

	userID, err := h.bridge.ExchangeCode(
		r.Context(),
		r.PostFormValue("code"),
		r.PostFormValue("code_verifier"),
		r.PostFormValue("client_id"),
		r.PostFormValue("redirect_uri"),
	)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, oauthError{Error: "invalid_grant"})
		return
	}

	result, err := h.issuer.IssueSessionForUser(r.Context(), userID, deviceInfo(r, ""))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, oauthError{Error: "invalid_grant"})
		return
	}

	pair := result.Tokens
	render.JSON(w, r, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(pair.AccessExpiry).Seconds()),
	})
}

// JWKS publishes the verification key set for resource servers.
func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, jwks.NewSet(h.codec.KeyID(), h.codec.PublicKey()))
}
