package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/config"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminCookieName   = "museum_admin"
	defaultAdminTTL   = 8 * time.Hour
	minSessionKeySize = 32
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminSession is either Authenticated or Anonymous.
type AdminSession interface {
	adminSession()
}

type Authenticated struct {
	Subject  string    `json:"subject"`
	IssuedAt time.Time `json:"issuedAt"`
}

type Anonymous struct{}

func (Authenticated) adminSession() {}
func (Anonymous) adminSession()     {}

type cookiePayload struct {
	Subject  string `json:"sub"`
	IssuedAt int64  `json:"iat"`
}

// AdminSessions issues and resolves the encrypted admin cookie.
type AdminSessions struct {
	username     string
	passwordHash []byte
	codec        *securecookie.SecureCookie
	ttl          time.Duration
	secure       bool
	now          func() time.Time
}

func NewAdminSessions(cfg config.AdminConfig) (*AdminSessions, error) {
	if cfg.Username == "" || cfg.PasswordHash == "" {
		return nil, fmt.Errorf("admin username and password_hash are required")
	}
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, fmt.Errorf("admin.password_hash: %w", err)
	}

	hashKey, blockKey, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if len(hashKey) < minSessionKeySize {
		return nil, fmt.Errorf("admin.session_hash_key must be at least %d bytes", minSessionKeySize)
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("admin.session_block_key must be 16, 24 or 32 bytes")
	}

	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		ttl = defaultAdminTTL
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(ttl.Seconds()))

	return &AdminSessions{
		username:     cfg.Username,
		passwordHash: []byte(cfg.PasswordHash),
		codec:        codec,
		ttl:          ttl,
		secure:       cfg.SecureCookie,
		now:          time.Now,
	}, nil
}

// Login checks the credentials and sets the session cookie.
func (a *AdminSessions) Login(w http.ResponseWriter, username, password string) (Authenticated, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return Authenticated{}, ErrInvalidCredentials
	}

	issued := a.now().UTC().Truncate(time.Second)
	value, err := a.codec.Encode(adminCookieName, cookiePayload{Subject: username, IssuedAt: issued.Unix()})
	if err != nil {
		return Authenticated{}, fmt.Errorf("encode session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    value,
		Path:     "/",
		Expires:  issued.Add(a.ttl),
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return Authenticated{Subject: username, IssuedAt: issued}, nil
}

// Logout expires the cookie.
func (a *AdminSessions) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Resolve reads the request cookie. Anything that does not decode, or is
// older than the TTL, is Anonymous.
func (a *AdminSessions) Resolve(r *http.Request) AdminSession {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil || cookie.Value == "" {
		return Anonymous{}
	}

	var payload cookiePayload
	if err := a.codec.Decode(adminCookieName, cookie.Value, &payload); err != nil {
		return Anonymous{}
	}
	if payload.Subject != a.username {
		return Anonymous{}
	}

	issued := time.Unix(payload.IssuedAt, 0).UTC()
	if a.now().Sub(issued) > a.ttl {
		return Anonymous{}
	}
	return Authenticated{Subject: payload.Subject, IssuedAt: issued}
}

type adminSessionKey struct{}

// Middleware stores the resolved session in the request context.
func (a *AdminSessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), adminSessionKey{}, a.Resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose session is not Authenticated.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()).(Authenticated); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func SessionFromContext(ctx context.Context) AdminSession {
	if s, ok := ctx.Value(adminSessionKey{}).(AdminSession); ok {
		return s
	}
	return Anonymous{}
}
