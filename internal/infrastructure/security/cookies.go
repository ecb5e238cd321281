package security

import (
	"net/http"
	"time"
)

const DefaultSessionCookieName = "sid"

// cookieName applies the __Host- prefix for secure deployments so the
// browser refuses the cookie from subdomains or plain HTTP.
func cookieName(base string, secure bool) string {
	if base == "" {
		base = DefaultSessionCookieName
	}
	if secure {
		return "__Host-" + base
	}
	return base
}

func SetSessionCookie(w http.ResponseWriter, base, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(base, secure),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearSessionCookie(w http.ResponseWriter, base string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(base, secure),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func ReadSessionCookie(r *http.Request, base string) (string, error) {
	if c, err := r.Cookie(cookieName(base, true)); err == nil {
		return c.Value, nil
	}
	// plain name is only set by non-HTTPS local deployments
	c, err := r.Cookie(cookieName(base, false))
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
