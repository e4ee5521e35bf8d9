package router

import "github.com/rexlunae/tornwamp/wamp"

// RoleRule is the per-role authorization state of spec.md §4.9:
// blacklist/whitelist of principals plus a default-allow fallback.
// Principals are matched against a session's auth_id, auth_role, or
// session_id, in that preference order.
type RoleRule struct {
	Whitelist    map[string]struct{}
	Blacklist    map[string]struct{}
	DefaultAllow bool
}

// NewRoleRule returns a permissive rule: no blacklist, no whitelist,
// default allow. Realms start from this and may be configured stricter.
func NewRoleRule() RoleRule {
	return RoleRule{
		Whitelist: map[string]struct{}{},
		Blacklist: map[string]struct{}{},
		DefaultAllow: true,
	}
}

// RoleTable maps action name ("subscribe", "publish", "register", "call",
// "yield") to its RoleRule. A process-wide DefaultRoleTable is copied into
// every new realm, per spec.md §4.9.
type RoleTable map[string]RoleRule

// DefaultRoleTable returns a fresh copy of the process-wide default:
// every action permissive unless the realm's config overrides it.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		"subscribe": NewRoleRule(),
		"publish":   NewRoleRule(),
		"register":  NewRoleRule(),
		"call":      NewRoleRule(),
		"yield":     NewRoleRule(),
	}
}

// Clone returns a deep copy, so that per-realm customization never
// mutates the process-wide default.
func (t RoleTable) Clone() RoleTable {
	out := make(RoleTable, len(t))
	for action, rule := range t {
		nr := RoleRule{
			Whitelist:    make(map[string]struct{}, len(rule.Whitelist)),
			Blacklist:    make(map[string]struct{}, len(rule.Blacklist)),
			DefaultAllow: rule.DefaultAllow,
		}
		for k := range rule.Whitelist {
			nr.Whitelist[k] = struct{}{}
		}
		for k := range rule.Blacklist {
			nr.Blacklist[k] = struct{}{}
		}
		out[action] = nr
	}
	return out
}

// Authorize grants the session permission to perform action, per spec.md
// §4.9: allowed if any of auth_id/auth_role/session_id is whitelisted, or
// the principal is unset and default_allow, or the principal is simply
// not blacklisted.
func (t RoleTable) Authorize(action string, sess *wamp.Session) error {
	rule, ok := t[action]
	if !ok {
		return nil // unrecognized actions are not gated
	}
	principals := []string{sess.AuthID, sess.AuthRole, sess.String()}
	anyPrincipal := false
	for _, p := range principals {
		if p == "" {
			continue
		}
		anyPrincipal = true
		if _, ok := rule.Whitelist[p]; ok {
			return nil
		}
	}
	if !anyPrincipal && rule.DefaultAllow {
		return nil
	}
	for _, p := range principals {
		if p == "" {
			continue
		}
		if _, blocked := rule.Blacklist[p]; blocked {
			return &wamp.URIError{Err: wamp.ErrNotAuthorized}
		}
	}
	return nil
}
