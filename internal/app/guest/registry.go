// Package guest provides the guest device registry.
package guest

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	domain "github.com/utabox/utabox/internal/domain/guest"
)

var (
	ErrInvalidGuest = errors.New("invalid guest")
	ErrGuestKicked  = errors.New("guest is kicked")
)

// Registry manages guest sessions with thread-safe access. Guests are
// keyed both by their assigned id and by the device-stable client
// identifier, so a reconnecting device resumes its previous identity.
type Registry struct {
	mu       sync.RWMutex
	guests   map[string]*domain.Guest
	byClient map[string]string // client identifier -> guest id
}

// NewRegistry creates a new guest registry.
func NewRegistry() *Registry {
	return &Registry{
		guests:   make(map[string]*domain.Guest),
		byClient: make(map[string]string),
	}
}

// Join adds a guest and returns their id. A client identifier that has
// joined before resumes the existing guest (and its pending counters)
// unless that guest has been kicked.
func (r *Registry) Join(displayName, clientID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if clientID != "" {
		if id, ok := r.byClient[clientID]; ok {
			g := r.guests[id]
			if !g.IsKicked {
				if displayName != "" {
					g.DisplayName = displayName
				}
				return id, nil
			}
			return "", ErrGuestKicked
		}
	}

	id := uuid.New().String()
	g := domain.New(id, displayName, clientID)
	r.guests[id] = g
	if clientID != "" {
		r.byClient[clientID] = id
	}
	return id, nil
}

// Get retrieves a guest by id.
func (r *Registry) Get(id string) (*domain.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.guests[id]
	if !ok {
		return nil, ErrInvalidGuest
	}
	return g, nil
}

// GetByClient retrieves a guest by client identifier.
func (r *Registry) GetByClient(clientID string) (*domain.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byClient[clientID]
	if !ok {
		return nil, ErrInvalidGuest
	}
	return r.guests[id], nil
}

// Kick marks a guest as kicked.
func (r *Registry) Kick(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guests[id]
	if !ok {
		return ErrInvalidGuest
	}
	g.Kick()
	return nil
}

// SetVIP toggles a guest's VIP status.
func (r *Registry) SetVIP(id string, vip bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guests[id]
	if !ok {
		return ErrInvalidGuest
	}
	g.VIP = vip
	return nil
}

// RecordRequest bumps a guest's request counters.
func (r *Registry) RecordRequest(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.guests[id]; ok {
		g.RecordRequest()
	}
}

// SettleRequest decrements a guest's pending counter.
func (r *Registry) SettleRequest(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.guests[id]; ok {
		g.SettleRequest()
	}
}

// All returns all guests.
func (r *Registry) All() []*domain.Guest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Guest, 0, len(r.guests))
	for _, g := range r.guests {
		out = append(out, g)
	}
	return out
}

// Count returns the number of guests.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.guests)
}
