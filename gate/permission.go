package gate

import "strings"

// Permission is a "resource:action" pair, e.g. "submission:validate".
type Permission string

// Wildcard matches any resource type or action.
const Wildcard = "*"

// PermissionSuperAdmin grants every action on every resource.
const PermissionSuperAdmin Permission = "*:*"

// NewPermission joins a resource type and an action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits p into its resource type and action. Malformed values
// return empty strings.
func (p Permission) Parse() (resourceType string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

// Matches reports whether holding p grants requested.
// "*:*" grants everything and "submission:*" grants every submission action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res != "" && res == reqRes && string(act) == Wildcard
}
