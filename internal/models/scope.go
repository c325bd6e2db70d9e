package model

import "time"

// Scope is a ranking population boundary.
type Scope string

const (
	ScopeCollege  Scope = "college"
	ScopeState    Scope = "state"
	ScopeNational Scope = "national"
)

// NationalKey is the scope key of the single national scope.
const NationalKey = "global"

// ValidScope reports whether s is one of the three ranking scopes.
func ValidScope(s Scope) bool {
	return s == ScopeCollege || s == ScopeState || s == ScopeNational
}

// ScopeRef identifies one concrete ranking population, e.g. {college, "iit-d"}.
type ScopeRef struct {
	Scope Scope  `json:"scope"`
	Key   string `json:"key"`
}

// ScopeMembership records a user's current college affiliation as a
// point-in-time fact. StateID is derived from the college by the profile
// collaborator that pushes the change; the engine stores what it is given.
// An empty CollegeID means unaffiliated: excluded from college and state
// rankings but still ranked nationally.
type ScopeMembership struct {
	UserID    string    `json:"userId"`
	CollegeID string    `json:"collegeId,omitempty"`
	StateID   string    `json:"stateId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Scopes returns every ranking scope the membership places the user in.
func (m *ScopeMembership) Scopes() []ScopeRef {
	refs := []ScopeRef{{Scope: ScopeNational, Key: NationalKey}}
	if m == nil {
		return refs
	}
	if m.CollegeID != "" {
		refs = append(refs, ScopeRef{Scope: ScopeCollege, Key: m.CollegeID})
	}
	if m.StateID != "" {
		refs = append(refs, ScopeRef{Scope: ScopeState, Key: m.StateID})
	}
	return refs
}
