package domain

// ScopePolicy maps a canonical role name to the scopes it grants.
type ScopePolicy map[string][]string

// Grants are the effective roles and scopes embedded in an access token.
type Grants struct {
	Roles  []string
	Scopes []string
}

// Empty reports whether there is nothing to grant.
func (g Grants) Empty() bool {
	return len(g.Roles) == 0 && len(g.Scopes) == 0
}
