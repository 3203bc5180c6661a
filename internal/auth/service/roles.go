package service

import (
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

// rolePrefix is stripped from incoming role names; "role_admin" and "ADMIN"
// are the same role.
const rolePrefix = "ROLE_"

// CanonicalRole trims, strips rolePrefix (any case) and upper-cases a role
// name.
func CanonicalRole(role string) string {
	role = strings.TrimSpace(role)
	if len(role) >= len(rolePrefix) && strings.EqualFold(role[:len(rolePrefix)], rolePrefix) {
		role = role[len(rolePrefix):]
	}
	return strings.ToUpper(strings.TrimSpace(role))
}

// ResolveGrants expands roles into effective roles and scopes. Roles are
// canonicalized and deduplicated in first-seen order; scopes come from the
// policy entry of each role, lower-cased and deduplicated.
func ResolveGrants(roles []string, policy domain.ScopePolicy) domain.Grants {
	var g domain.Grants
	seenRoles := make(map[string]struct{}, len(roles))
	seenScopes := make(map[string]struct{})

	for _, r := range roles {
		r = CanonicalRole(r)
		if r == "" {
			continue
		}
		if _, ok := seenRoles[r]; ok {
			continue
		}
		seenRoles[r] = struct{}{}
		g.Roles = append(g.Roles, r)

		for _, s := range policy[r] {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if _, ok := seenScopes[s]; ok {
				continue
			}
			seenScopes[s] = struct{}{}
			g.Scopes = append(g.Scopes, s)
		}
	}
	return g
}

// RoleScopeResolver holds a scope policy with canonical role keys.
type RoleScopeResolver struct {
	policy domain.ScopePolicy
}

func NewRoleScopeResolver(policy domain.ScopePolicy) *RoleScopeResolver {
	canon := make(domain.ScopePolicy, len(policy))
	for role, scopes := range policy {
		key := CanonicalRole(role)
		canon[key] = append(canon[key], scopes...)
	}
	return &RoleScopeResolver{policy: canon}
}

// Resolve is ResolveGrants against the resolver's policy. The subject does
// not change the outcome.
func (r *RoleScopeResolver) Resolve(_ string, roles []string) domain.Grants {
	return ResolveGrants(roles, r.policy)
}
