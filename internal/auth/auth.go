// Package auth gates the app behind a single shared password. The result
// of a successful login is kept in a signed cookie and surfaced to handlers
// as a Session value.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	CookieName    = "gastos_session"
	sessionMaxAge = 30 * 24 * time.Hour
)

// ErrWrongPassword is returned by Login for a mismatched password.
var ErrWrongPassword = errors.New("contraseña incorrecta")

// Session is the per-request authentication state.
type Session struct {
	Authenticated bool
	// Enabled reports whether a password is configured at all.
	Enabled bool
}

type cookiePayload struct {
	Auth     bool
	IssuedAt int64
}

// Gate checks passwords and issues session cookies.
type Gate struct {
	password []byte
	codec    *securecookie.SecureCookie
	secure   bool
	now      func() time.Time
	logger   *slog.Logger
}

// NewGate builds a gate. An empty password disables authentication and
// every request gets an authenticated session.
func NewGate(password, secret string, secureCookies bool, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		secure: secureCookies,
		now:    time.Now,
		logger: logger.With("component", "auth"),
	}
	if password == "" {
		return g
	}
	g.password = []byte(password)
	hashKey := sha256.Sum256([]byte(secret))
	g.codec = securecookie.New(hashKey[:], nil)
	g.codec.MaxAge(int(sessionMaxAge.Seconds()))
	return g
}

func (g *Gate) Enabled() bool { return len(g.password) > 0 }

// Session derives the authentication state of r.
func (g *Gate) Session(r *http.Request) Session {
	if !g.Enabled() {
		return Session{Authenticated: true}
	}
	s := Session{Enabled: true}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return s
	}
	var p cookiePayload
	if err := g.codec.Decode(CookieName, c.Value, &p); err != nil {
		g.logger.DebugContext(r.Context(), "Rejected session cookie", "error", err)
		return s
	}
	s.Authenticated = p.Auth
	return s
}

// Login compares password in constant time and sets the session cookie on
// success.
func (g *Gate) Login(w http.ResponseWriter, r *http.Request, password string) error {
	if !g.Enabled() {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(password), g.password) != 1 {
		g.logger.WarnContext(r.Context(), "Failed login attempt")
		return ErrWrongPassword
	}
	value, err := g.codec.Encode(CookieName, cookiePayload{Auth: true, IssuedAt: g.now().Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
	g.logger.InfoContext(r.Context(), "Session started")
	return nil
}

// Logout clears the session cookie.
func (g *Gate) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Require wraps handlers that need an authenticated session; others get
// onDenied, or a bare 401.
func (g *Gate) Require(next http.Handler, onDenied http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Session(r).Authenticated {
			next.ServeHTTP(w, r)
			return
		}
		if onDenied != nil {
			onDenied(w, r)
			return
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}
