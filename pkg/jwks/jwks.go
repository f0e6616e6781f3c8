// Package jwks publishes the token signing public key as an RFC 7517
// JSON Web Key Set so resource servers can verify access tokens without
// sharing secrets.
package jwks

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"
)

// JWKS is a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is a single RSA signing key in JWK form. Only public parameters
// are ever serialized.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// FromPublicKey renders an RSA public key as an RS256 signing JWK.
func FromPublicKey(kid string, key *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

// NewSet wraps the active signing key in a key set. Rotation would add
// the outgoing key here for its overlap window.
func NewSet(kid string, key *rsa.PublicKey) JWKS {
	return JWKS{Keys: []JWK{FromPublicKey(kid, key)}}
}
