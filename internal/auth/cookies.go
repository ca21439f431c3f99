package auth

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type cookieJar struct {
	secure bool
}

func (c cookieJar) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(name, value, int(ttl.Seconds())))
}

func (c cookieJar) setPair(w http.ResponseWriter, access, refresh string, accessTTL, refreshTTL time.Duration) {
	c.set(w, AccessCookie, access, accessTTL)
	c.set(w, RefreshCookie, refresh, refreshTTL)
}

func (c cookieJar) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshCookie, "", -1))
}

func (c cookieJar) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
