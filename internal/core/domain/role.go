package domain

// Role enumerates application-level account roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleHR        Role = "hr"
	RoleApplicant Role = "applicant"
)

// storageSuperAdmin is the database enum spelling of the admin role. The
// users.user_type and auth_sessions.role enums predate the application's
// naming and were never migrated.
const storageSuperAdmin = "super_admin"

// Valid reports whether the role is one of the known application roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleApplicant:
		return true
	}
	return false
}

// StorageValue returns the database enum spelling for the role. All role
// translation between the application and the database goes through this
// method and RoleFromStorage, nowhere else.
func (r Role) StorageValue() string {
	if r == RoleAdmin {
		return storageSuperAdmin
	}
	return string(r)
}

// RoleFromStorage converts a database enum value to the application role.
// Unknown values map to the zero Role, which fails Valid.
func RoleFromStorage(value string) Role {
	switch value {
	case storageSuperAdmin:
		return RoleAdmin
	case string(RoleHR):
		return RoleHR
	case string(RoleApplicant):
		return RoleApplicant
	}
	return Role("")
}
