// Package guest provides the Guest domain entity.
package guest

import "time"

// Guest represents a connected guest device in the session.
type Guest struct {
	ID              string     // UUID assigned at join
	DisplayName     string     // Name shown next to requests
	ClientID        string     // Stable client identifier (device-local)
	PendingRequests int        // Requests not yet queued or rejected
	IsKicked        bool       // Kicked status
	VIP             bool       // VIP guests bypass the pending limit
	JoinedAt        time.Time  // Join time
	TotalRequests   int        // Total submitted requests
	LastRequestAt   *time.Time // Last submission time
}

// New creates a new guest.
func New(id, displayName, clientID string) *Guest {
	return &Guest{
		ID:          id,
		DisplayName: displayName,
		ClientID:    clientID,
		JoinedAt:    time.Now(),
	}
}

// RecordRequest bumps the pending and total counters.
func (g *Guest) RecordRequest() {
	g.PendingRequests++
	g.TotalRequests++
	now := time.Now()
	g.LastRequestAt = &now
}

// SettleRequest decrements the pending counter once a request
// reaches a terminal or queued state.
func (g *Guest) SettleRequest() {
	if g.PendingRequests > 0 {
		g.PendingRequests--
	}
}

// Kick marks the guest as kicked.
func (g *Guest) Kick() {
	g.IsKicked = true
}
