package service

import (
	"testing"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestCanonicalRole(t *testing.T) {
	tests := map[string]string{
		"admin":         "ADMIN",
		"role_admin":    "ADMIN",
		"ROLE_ADMIN":    "ADMIN",
		"  Role_user  ": "USER",
		"ROLE_":         "",
		"roles":         "ROLES",
		"":              "",
	}
	for in, want := range tests {
		require.Equal(t, want, CanonicalRole(in), in)
	}
}

func TestResolveGrants(t *testing.T) {
	policy := domain.ScopePolicy{
		"ADMIN": {"Profile:Read", "admin:keys", ""},
		"USER":  {"profile:read"},
	}

	tests := []struct {
		name       string
		roles      []string
		wantRoles  []string
		wantScopes []string
	}{
		{
			name:       "single role",
			roles:      []string{"user"},
			wantRoles:  []string{"USER"},
			wantScopes: []string{"profile:read"},
		},
		{
			name:       "prefixed and duplicated",
			roles:      []string{"role_admin", "ADMIN", "user"},
			wantRoles:  []string{"ADMIN", "USER"},
			wantScopes: []string{"profile:read", "admin:keys"},
		},
		{
			name:      "unknown role keeps no scopes",
			roles:     []string{"ghost"},
			wantRoles: []string{"GHOST"},
		},
		{
			name:  "blank roles dropped",
			roles: []string{" ", "role_"},
		},
		{
			name: "no roles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ResolveGrants(tt.roles, policy)
			require.Equal(t, tt.wantRoles, g.Roles)
			require.Equal(t, tt.wantScopes, g.Scopes)
		})
	}
}

func TestRoleScopeResolverCanonicalizesPolicy(t *testing.T) {
	r := NewRoleScopeResolver(domain.ScopePolicy{
		"role_admin": {"admin:keys"},
		"Admin":      {"profile:read"},
	})

	g := r.Resolve("anyone", []string{"admin"})
	require.Equal(t, []string{"ADMIN"}, g.Roles)
	require.ElementsMatch(t, []string{"admin:keys", "profile:read"}, g.Scopes)
}
