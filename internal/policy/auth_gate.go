// Package policy binds the gate package to the accounts stored in the
// database and exposes HTTP guards for the admin surface.
package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/gedoc/auth"
	"github.com/diewo77/gedoc/gate"
	"github.com/diewo77/gedoc/httpx"
	"gorm.io/gorm"
)

// Resource names used in permissions.
const (
	ResourceSubmission = "submission"
	ResourceStats      = "stats"
)

// LoginPath is where anonymous browser requests are sent.
const LoginPath = "/admin/login"

// AuthGate is the single authorization checkpoint of the application.
type AuthGate struct {
	Gate  *gate.Gate[uint]
	Cache *gate.CachedResolver[uint]
}

// NewAuthGate builds a gate whose profiles are read from db and cached
// for cacheTTL.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](NewDBProfileResolver(db), cacheTTL)
	return &AuthGate{Gate: gate.New[uint](cached), Cache: cached}
}

func currentUser(ctx context.Context) uint {
	uid, _ := auth.UserIDFromContext(ctx)
	return uid
}

// Authorize checks the request user. It returns gate.ErrUnauthenticated
// or gate.ErrForbidden.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	return ag.Gate.Authorize(ctx, currentUser(ctx), action, resourceType, resource)
}

// CanProfile checks profile permissions only; templates use it.
func (ag *AuthGate) CanProfile(ctx context.Context, action gate.Action, resourceType string) bool {
	return ag.Gate.CanProfile(ctx, currentUser(ctx), action, resourceType)
}

// IsSuperAdmin reports whether the request user holds "*:*".
func (ag *AuthGate) IsSuperAdmin(ctx context.Context) bool {
	p, err := ag.Gate.Profile(ctx, currentUser(ctx))
	return err == nil && p.HasPermission(gate.PermissionSuperAdmin)
}

// ProfileName returns the profile of the request user, or "".
func (ag *AuthGate) ProfileName(ctx context.Context) string {
	p, err := ag.Gate.Profile(ctx, currentUser(ctx))
	if err != nil {
		return ""
	}
	return p.Name()
}

// InvalidateUser drops the cached profile of one account.
func (ag *AuthGate) InvalidateUser(uid uint) { ag.Cache.Invalidate(uid) }

// InvalidateAll drops every cached profile, after permission changes.
func (ag *AuthGate) InvalidateAll() { ag.Cache.InvalidateAll() }

// Deny answers a failed authorization: JSON 401/403 for API callers,
// a redirect to the login page or a plain 403 for browsers.
func Deny(w http.ResponseWriter, r *http.Request, err error) {
	unauthenticated := errors.Is(err, gate.ErrUnauthenticated)
	if httpx.WantsJSON(r) {
		if unauthenticated {
			httpx.Error(w, r, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		httpx.Error(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}
	if unauthenticated {
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

// RequirePermission guards a handler with a profile permission.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ag.Authorize(r.Context(), action, resourceType, nil); err != nil {
				Deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireConsole lets in any account allowed to list submissions, which
// is the entry condition of the admin console.
func (ag *AuthGate) RequireConsole() func(http.Handler) http.Handler {
	return ag.RequirePermission(ResourceSubmission, gate.ActionList)
}

// RequireSuperAdmin guards account management.
func (ag *AuthGate) RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				Deny(w, r, gate.ErrUnauthenticated)
				return
			}
			if !ag.IsSuperAdmin(r.Context()) {
				Deny(w, r, gate.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
