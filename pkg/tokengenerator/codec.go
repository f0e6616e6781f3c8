package tokengenerator

import (
	"crypto/rsa"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = 15 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// AccessClaims are the claims carried by an access token
type AccessClaims struct {
	Email    string   `json:"email,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims carried by a refresh token. The jti
// (RegisteredClaims.ID) identifies the token in the revocation cache.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenPair is a freshly minted access/refresh pair. RefreshJTI and the
// hash of the raw refresh token are what SessionIssuer persists; the raw
// tokens are returned to the caller once and never stored.
type TokenPair struct {
	AccessToken   string
	AccessExpiry  time.Time
	RefreshToken  string
	RefreshJTI    string
	RefreshExpiry time.Time
}

// Codec signs and verifies RS256 tokens. The key pair is immutable
// configuration injected at construction.
type Codec struct {
	privateKey    *rsa.PrivateKey
	keyID         string
	issuer        string
	audience      string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// CodecOption is a function that configures a Codec
type CodecOption func(*Codec)

// WithAccessTokenExpiry sets the access token expiry duration
func WithAccessTokenExpiry(expiry time.Duration) CodecOption {
	return func(c *Codec) {
		c.accessExpiry = expiry
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration
func WithRefreshTokenExpiry(expiry time.Duration) CodecOption {
	return func(c *Codec) {
		c.refreshExpiry = expiry
	}
}

// NewCodec creates a new Codec signing with the given RSA private key
func NewCodec(privateKey *rsa.PrivateKey, keyID, issuer, audience string, options ...CodecOption) *Codec {
	c := &Codec{
		privateKey:    privateKey,
		keyID:         keyID,
		issuer:        issuer,
		audience:      audience,
		accessExpiry:  DefaultAccessTokenExpiry,
		refreshExpiry: DefaultRefreshTokenExpiry,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// GenerateAccessToken creates a signed access token for the given identity
func (c *Codec) GenerateAccessToken(userID, email, tenantID string, roles []string) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		Email:    email,
		TenantID: tenantID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    c.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{c.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.keyID

	tokenString, err := token.SignedString(c.privateKey)
	if err != nil {
		slog.Error("Failed to sign access token", "err", err)
		return "", time.Time{}, err
	}

	return tokenString, claims.ExpiresAt.Time, nil
}

// GenerateRefreshToken creates a signed refresh token carrying only the
// subject and a random jti. Returns the raw token, its jti and expiry.
func (c *Codec) GenerateRefreshToken(userID string) (string, string, time.Time, error) {
	now := time.Now().UTC()
	jti := uuid.New().String()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    c.issuer,
			Subject:   userID,
			ID:        jti,
			Audience:  jwt.ClaimStrings{c.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.keyID

	tokenString, err := token.SignedString(c.privateKey)
	if err != nil {
		slog.Error("Failed to sign refresh token", "err", err)
		return "", "", time.Time{}, err
	}

	return tokenString, jti, claims.ExpiresAt.Time, nil
}

// GenerateTokenPair mints a matching access/refresh pair for a login or
// rotation.
func (c *Codec) GenerateTokenPair(userID, email, tenantID string, roles []string) (TokenPair, error) {
	accessToken, accessExpiry, err := c.GenerateAccessToken(userID, email, tenantID, roles)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, jti, refreshExpiry, err := c.GenerateRefreshToken(userID)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  refreshToken,
		RefreshJTI:    jti,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// ParseAccessToken parses and validates an access token. Wrong algorithm,
// wrong issuer or audience, a bad signature and expiry all collapse into
// the single invalid-or-expired category; the cause stays wrapped for
// logging only.
func (c *Codec) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, c.keyFunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTokenInvalidOrExpired, "invalid or expired token")
	}
	if !token.Valid {
		return nil, apperrors.TokenInvalidOrExpired()
	}
	return claims, nil
}

// ParseRefreshToken parses and validates a refresh token
func (c *Codec) ParseRefreshToken(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, c.keyFunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTokenInvalidOrExpired, "invalid or expired token")
	}
	if !token.Valid {
		return nil, apperrors.TokenInvalidOrExpired()
	}
	return claims, nil
}

func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return &c.privateKey.PublicKey, nil
}

// KeyID returns the key ID placed in token headers
func (c *Codec) KeyID() string {
	return c.keyID
}

// PublicKey returns the verification key
func (c *Codec) PublicKey() *rsa.PublicKey {
	return &c.privateKey.PublicKey
}
