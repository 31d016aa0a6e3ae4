package gate

import "strings"

// Permission is an allowed action on a resource, formatted "resource:action"
// (e.g. "complaints:insert", "admin_notes:select").
type Permission string

// NewPermission creates a permission from a resource name and action.
func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Parse splits a permission into resource and action.
func (p Permission) Parse() (resource string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Wildcards
const (
	WildcardAll          = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches reports whether p grants requested.
// "*:*" matches everything, "complaints:*" matches every action on complaints
// and "*:select" matches select on every resource.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	resOK := res == WildcardAll || res == reqRes
	actOK := string(act) == WildcardAll || act == reqAct
	return resOK && actOK
}
