package brixauth

import "time"

// Role is the closed set of BrixSports account roles.
type Role string

const (
	RoleUser         Role = "user"
	RoleLogger       Role = "logger"
	RoleSeniorLogger Role = "senior-logger"
	RoleLoggerAdmin  Role = "logger-admin"
	RoleAdmin        Role = "admin"
	RoleSuperAdmin   Role = "super-admin"
)

// roleRanks defines the privilege level for each role. Higher value means more
// privilege. Unknown roles resolve to 0, which never satisfies a protected
// rule (fail-closed).
var roleRanks = map[Role]int{
	RoleUser:         1,
	RoleLogger:       2,
	RoleSeniorLogger: 3,
	RoleLoggerAdmin:  4,
	RoleAdmin:        5,
	RoleSuperAdmin:   6,
}

// ParseRole returns the Role for s, or false if s is not a known role name.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRanks[r]
	return r, ok
}

// Rank returns the role's position in the privilege hierarchy.
// Unknown roles rank 0.
func (r Role) Rank() int { return roleRanks[r] }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return roleRanks[r] != 0 }

// Outranks reports whether r is granted everything other is granted.
// A role outranks itself.
func (r Role) Outranks(other Role) bool {
	rr, or := roleRanks[r], roleRanks[other]
	return rr != 0 && or != 0 && rr >= or
}

// IsLoggerRole reports whether r belongs to the logger portal namespace.
func (r Role) IsLoggerRole() bool {
	switch r {
	case RoleLogger, RoleSeniorLogger, RoleLoggerAdmin:
		return true
	}
	return false
}

// Claims represents the claims carried in a BrixSports token.
// Claims obtained from token.DecodeClaims are unverified and must only be
// used for client-side UX decisions; claims returned by verify.Verifier carry
// server trust.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Extra     map[string]any
}

// User represents a BrixSports account.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role

	// Optional profile fields.
	AvatarURL            string
	AssignedCompetitions []string
	Permissions          []string
	ManagedLoggers       []string
	AdminLevel           int
}

// Session is an authenticated user plus the instant its access token expires.
// Owned exclusively by the session controller; consumers read, never mutate.
type Session struct {
	User      User
	ExpiresAt time.Time
}

// TokenPair holds the stored credentials. ExpiresAt is always re-derived from
// the access token's exp claim at store time, never trusted from elsewhere.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginResult is the backend's response to a successful login.
type LoginResult struct {
	User         User
	AccessToken  string
	RefreshToken string
}

// AttemptRecord tracks failed login attempts for client-side rate limiting.
// Once Attempts reaches the configured maximum the record transitions to
// locked until LockedUntil; past that instant it resets to zero.
type AttemptRecord struct {
	Attempts      int
	LastAttemptAt time.Time
	LockedUntil   time.Time
}

// Locked reports whether the record is locked at the given instant.
func (a AttemptRecord) Locked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}
