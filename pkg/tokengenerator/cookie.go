package tokengenerator

import (
	"net/http"
	"time"
)

// Cookie names used when the HTTP layer delivers tokens via cookies
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
)

// CookieSetter writes and clears token cookies
type CookieSetter struct {
	Path     string
	Domain   string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// NewCookieSetter creates a cookie setter with the given attributes
func NewCookieSetter(domain string, httpOnly, secure bool, sameSite http.SameSite) *CookieSetter {
	return &CookieSetter{
		Path:     "/",
		Domain:   domain,
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: sameSite,
	}
}

// SetCookie sets a cookie with the given value and expiry
func (c *CookieSetter) SetCookie(w http.ResponseWriter, name, value string, expire time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     c.Path,
		Domain:   c.Domain,
		Value:    value,
		Expires:  expire,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ClearCookie clears a cookie
func (c *CookieSetter) ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     c.Path,
		Domain:   c.Domain,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// SetTokenPair writes both token cookies for a freshly issued pair
func (c *CookieSetter) SetTokenPair(w http.ResponseWriter, pair TokenPair) {
	c.SetCookie(w, AccessTokenCookieName, pair.AccessToken, pair.AccessExpiry)
	c.SetCookie(w, RefreshTokenCookieName, pair.RefreshToken, pair.RefreshExpiry)
}

// ClearTokenPair clears both token cookies on logout
func (c *CookieSetter) ClearTokenPair(w http.ResponseWriter) {
	c.ClearCookie(w, AccessTokenCookieName)
	c.ClearCookie(w, RefreshTokenCookieName)
}
