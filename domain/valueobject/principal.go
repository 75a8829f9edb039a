package valueobject

// DefaultAuthority is granted when a token carries no authorities.
const DefaultAuthority = "ROLE_USER"

// AdditionalClaims are optional per-request attributes pulled from a token.
type AdditionalClaims struct {
	TenantID   string
	DeviceID   string
	ClientType string
}

// Principal is the authenticated caller of a single request. It is passed by
// value and never shared between requests.
type Principal struct {
	UserID      int64
	Username    string
	Authorities []string
	AdditionalClaims
}

func NewPrincipal(userID int64, username string, authorities []string, extra AdditionalClaims) Principal {
	auths := make([]string, len(authorities))
	copy(auths, authorities)
	if len(auths) == 0 {
		auths = []string{DefaultAuthority}
	}
	return Principal{
		UserID:           userID,
		Username:         username,
		Authorities:      auths,
		AdditionalClaims: extra,
	}
}

// HasAuthority reports whether the principal was granted authority.
func (p Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
