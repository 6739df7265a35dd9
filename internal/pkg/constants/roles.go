package constants

const (
	Admin  = "admin"
	Seller = "seller"
	Buyer  = "buyer"
)

// ValidRoles is the set of roles a session may carry.
var ValidRoles = []string{Buyer, Seller, Admin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
