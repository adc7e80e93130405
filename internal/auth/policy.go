package auth

type Capability int

const (
	// CapabilityAuthenticated accepts any valid session.
	CapabilityAuthenticated Capability = iota
	// CapabilityManageContent gates create/update/delete of portfolio content.
	CapabilityManageContent
	// CapabilityElevated requires an admin token minted by a completed OTP check.
	CapabilityElevated
)

func (c Capability) String() string {
	switch c {
	case CapabilityAuthenticated:
		return "authenticated"
	case CapabilityManageContent:
		return "manage_content"
	case CapabilityElevated:
		return "elevated"
	default:
		return "unknown"
	}
}

var capabilityRoles = map[Capability][]Role{
	CapabilityAuthenticated: {RoleUser, RoleAdmin},
	CapabilityManageContent: {RoleAdmin},
	CapabilityElevated:      {RoleAdmin},
}

func Allows(claims Claims, capability Capability) bool {
	if capability == CapabilityElevated && !claims.Elevated {
		return false
	}

	for _, role := range capabilityRoles[capability] {
		if claims.Role == role {
			return true
		}
	}
	return false
}
