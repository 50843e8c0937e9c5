package enums

// Role is a coarse user role stored on the users row.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
