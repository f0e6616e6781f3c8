package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/tokengenerator"
)

type contextKey string

const claimsContextKey contextKey = "access_claims"

// RequireAuth verifies the access token from the Authorization header or,
// failing that, the access_token cookie, and stores the claims on the
// request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			if c, err := r.Cookie(tokengenerator.AccessTokenCookieName); err == nil {
				raw = c.Value
			}
		}
		if raw == "" {
			renderError(w, r, apperrors.TokenInvalidOrExpired())
			return
		}

		claims, err := h.codec.ParseAccessToken(raw)
		if err != nil {
			renderError(w, r, apperrors.TokenInvalidOrExpired())
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ClaimsFromContext returns the verified access claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*tokengenerator.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*tokengenerator.AccessClaims)
	return claims, ok
}

// userIDFromContext extracts the authenticated user's ID.
func userIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, apperrors.TokenInvalidOrExpired()
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apperrors.TokenInvalidOrExpired()
	}
	return id, nil
}
