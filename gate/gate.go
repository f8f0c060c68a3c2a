// Package gate is a small profile based authorization layer.
//
// A Gate resolves the acting user to a Profile (a named set of
// "resource:action" permissions) and optionally runs a resource Policy on
// top of it. The package knows nothing about the application models; the
// user type is a type parameter so callers may authorize by numeric id,
// by a user struct pointer or by token claims.
package gate

import "context"

// Policy adds resource level rules on top of profile permissions.
// resource is nil for list/create style checks.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

// Can calls f.
func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}

// Gate is the authorization checkpoint.
type Gate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// New returns a Gate resolving profiles through resolver.
func New[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register sets the policy for a resource type, replacing any previous one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Profile resolves the profile of user. A zero user yields ErrUnauthenticated
// and a user without profile yields ErrForbidden.
func (g *Gate[U]) Profile(ctx context.Context, user U) (Profile, error) {
	var zero U
	if user == zero {
		return nil, ErrUnauthenticated
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return nil, ErrForbidden
	}
	return profile, nil
}

// Authorize checks that user may perform action on resourceType:
//  1. the user is not the zero value (ErrUnauthenticated otherwise)
//  2. the profile grants resourceType:action (ErrForbidden otherwise)
//  3. when resource is non-nil, the registered policy (if any) agrees
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	profile, err := g.Profile(ctx, user)
	if err != nil {
		return err
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrForbidden
	}
	if resource != nil {
		if p, ok := g.policies[resourceType]; ok && !p.Can(ctx, user, action, resource) {
			return ErrForbidden
		}
	}
	return nil
}

// Can reports whether Authorize returns nil.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks the profile permission only, ignoring policies.
// Templates use it to decide which buttons to show.
func (g *Gate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	profile, err := g.Profile(ctx, user)
	if err != nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
