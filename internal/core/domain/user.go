package domain

// User mirrors the authoritative columns of the users table. Role carries
// the application-level spelling; repositories translate to and from the
// storage enum on the way through. Bookkeeping columns such as last_login
// are write-only from this service's point of view and never read back.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
}

// Account is the profile row backing a user: admins for admin and hr
// accounts, applicants for applicant accounts. The portal keys most of its
// screens on the account identifier rather than the user identifier.
type Account struct {
	ID          int64
	UserID      int64
	DisplayName string
}
