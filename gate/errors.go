package gate

import "errors"

var (
	// ErrUnauthenticated is returned when no user is attached to the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the user lacks a profile or permission.
	ErrForbidden = errors.New("forbidden")
)
