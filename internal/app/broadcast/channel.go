// Package broadcast fans state change events out to observer channels.
package broadcast

// Role identifies what kind of observer a channel belongs to.
type Role string

const (
	RoleGuest   Role = "guest"   // Short-lived guest device
	RoleAdmin   Role = "admin"   // Browser operator console
	RoleDesktop Role = "desktop" // In-process performance UI
)

// Scope names the subset of channels eligible for a broadcast.
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeAdmin   Scope = "role:admin"
	ScopeDesktop Scope = "role:desktop"
)

// Matches reports whether a channel with the given role is in scope.
func (s Scope) Matches(role Role) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeAdmin:
		return role == RoleAdmin
	case ScopeDesktop:
		return role == RoleDesktop
	default:
		return false
	}
}

// Channel is one connected observer. Push is best-effort: the router
// never retries and a push error only marks this channel, never the
// others. Implementations must make Push safe for concurrent use.
type Channel interface {
	ID() string
	Role() Role
	Push(event string, payload any) error
	IsAlive() bool
}
