package auth

import (
	"net/http"
	"net/url"
	"time"
)

// CookieName is the cookie browser clients send the token in.
const CookieName = "auth_token"

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	Secure bool
	Domain string
}

// DeriveCookieSettings determines cookie security settings from the base URL.
// Plain-HTTP localhost gets an insecure host-only cookie; everything else is
// Secure. An explicit domain overrides the host-only default.
func DeriveCookieSettings(baseURL string, cookieDomain string) CookieSettings {
	parsedURL, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		return CookieSettings{Secure: true, Domain: cookieDomain}
	}

	secure := parsedURL.Scheme != "http"
	switch parsedURL.Hostname() {
	case "localhost", "127.0.0.1":
		return CookieSettings{Secure: secure}
	}
	return CookieSettings{Secure: secure, Domain: cookieDomain}
}

// TokenCookie builds the auth cookie for a freshly issued token.
func TokenCookie(token string, expiresAt time.Time, settings CookieSettings) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   settings.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
