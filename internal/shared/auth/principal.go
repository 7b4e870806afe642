package auth

// Principal is the authenticated caller of a service operation.
type Principal struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsRecruiter reports whether the principal has the recruiter role.
func (p Principal) IsRecruiter() bool { return p.Role == RoleRecruiter }
