package access

// Scope is the organizational level at which a membership applies.
type Scope string

const (
	ScopeDistrict Scope = "district"
	ScopeSchool   Scope = "school"
	ScopeCampus   Scope = "campus"
	ScopePod      Scope = "pod"
)

var AllScopes = []Scope{ScopeDistrict, ScopeSchool, ScopeCampus, ScopePod}

func KnownScope(s Scope) bool {
	for _, scope := range AllScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Identity is the authenticated caller of a request: who they are, the role
// they act under and where that role applies. It is resolved once at the
// gate and passed explicitly down the call chain.
type Identity struct {
	UserID       string
	Email        string
	Role         Role
	Scope        Scope
	MembershipID string

	// scope bindings; at most one level is the scope anchor but parents
	// may be set too (e.g. a pod membership knows its school).
	DistrictID string
	SchoolID   string
	CampusID   string
	PodID      string
}

func (id Identity) IsZero() bool {
	return id.UserID == ""
}
