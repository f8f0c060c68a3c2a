// Package auth carries the identity of administrators across requests.
//
// Two carriers share the same signed format "<uid>.<unix expiry>.<sig>":
// the browser console uses an HttpOnly cookie, API clients send the same
// value as a bearer token. Both are verified with HMAC-SHA256 keyed by
// SESSION_SECRET.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

const (
	sessionCookieName = "gedoc_session"
	userIDCtxKey      = ctxKey("userID")

	// DefaultTTL is the lifetime of sessions and API tokens.
	DefaultTTL = 12 * time.Hour
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("bad token signature")
	ErrExpiredToken   = errors.New("token expired")
)

// UserVerifier confirms that a token still refers to an active account.
type UserVerifier func(ctx context.Context, uid uint) bool

var verifier UserVerifier

// SetUserVerifier installs the verifier consulted by Middleware.
func SetUserVerifier(v UserVerifier) { verifier = v }

// Secret returns SESSION_SECRET or a development value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "gedoc-dev-secret"
}

func sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// IssueToken returns a signed token for uid valid for ttl.
func IssueToken(uid uint, ttl time.Duration, now time.Time) (string, time.Time) {
	exp := now.Add(ttl).UTC().Truncate(time.Second)
	payload := strconv.FormatUint(uint64(uid), 10) + "." + strconv.FormatInt(exp.Unix(), 10)
	return payload + "." + sign(payload), exp
}

// ParseToken verifies signature and expiry and returns the user id.
func ParseToken(token string, now time.Time) (uint, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, ErrMalformedToken
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(sign(payload))) {
		return 0, ErrBadSignature
	}
	uid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || uid == 0 {
		return 0, ErrMalformedToken
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, ErrMalformedToken
	}
	if !now.Before(time.Unix(exp, 0)) {
		return 0, ErrExpiredToken
	}
	return uint(uid), nil
}

// CreateSession sets the session cookie for uid.
func CreateSession(w http.ResponseWriter, uid uint) {
	token, exp := IssueToken(uid, DefaultTTL, time.Now())
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest extracts the bearer token, falling back to the cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithUserID stores the user id in ctx.
func WithUserID(ctx context.Context, uid uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, uid)
}

// UserIDFromContext extracts the user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uint)
	return id, ok && id != 0
}

// Middleware attaches the user id to the request context when a valid
// token is presented. Invalid tokens are ignored: the request proceeds
// anonymously and the guards downstream answer 401.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := TokenFromRequest(r); tok != "" {
			if uid, err := ParseToken(tok, time.Now()); err == nil {
				if verifier == nil || verifier(r.Context(), uid) {
					r = r.WithContext(WithUserID(r.Context(), uid))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// HashPassword bcrypt-hashes a plain password.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
