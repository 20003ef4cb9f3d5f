// Package request provides the song request lifecycle.
package request

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/app/broadcast"
	"github.com/utabox/utabox/internal/app/guest"
	"github.com/utabox/utabox/internal/app/queue"
	"github.com/utabox/utabox/internal/app/request/filter"
	domguest "github.com/utabox/utabox/internal/domain/guest"
	"github.com/utabox/utabox/internal/domain/song"
)

// Errors
var (
	ErrRequestNotFound = errors.New("request not found")
	ErrNotPending      = errors.New("request is not pending")
	ErrNotApproved     = errors.New("request is not approved")
)

// Status represents the request lifecycle state. Transitions are
// monotonic: pending -> approved -> queued, or pending -> rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusQueued   Status = "queued"
)

// Request represents one guest song request.
type Request struct {
	ID            string    `json:"id"`
	SongID        string    `json:"songId"`
	Song          song.Song `json:"song"`
	RequesterName string    `json:"requesterName"`
	Message       string    `json:"message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Status        Status    `json:"status"`
	ClientID      string    `json:"clientId"`
	GuestID       string    `json:"guestId"`
}

// Library resolves a request's song reference before acceptance.
type Library interface {
	FindSongByKey(songID string) *song.Song
}

// QueueAdder queues an approved request. The session coordinator
// implements it so auto-advance is decided in one place.
type QueueAdder interface {
	Add(item song.QueueItem) (queue.AddResult, error)
}

// Notifier pushes request status updates to scoped observers.
type Notifier interface {
	Push(event string, payload any, scopes ...broadcast.Scope)
}

// Manager tracks song requests through their lifecycle.
type Manager struct {
	mu        sync.Mutex
	requests  map[string]*Request
	order     []string
	accepting bool

	guests   *guest.Registry
	library  Library
	chain    *filter.Chain
	adder    QueueAdder
	notifier Notifier

	requireApproval bool
	now             func() time.Time
}

// Config holds manager configuration.
type Config struct {
	// RequireApproval gates every guest request behind an explicit
	// operator decision. When false a submission is queued immediately
	// and the pending state is never externally observable.
	RequireApproval bool
}

// NewManager creates a new request manager.
func NewManager(cfg Config, guests *guest.Registry, library Library, chain *filter.Chain, adder QueueAdder, notifier Notifier) *Manager {
	return &Manager{
		requests:        make(map[string]*Request),
		accepting:       true,
		guests:          guests,
		library:         library,
		chain:           chain,
		adder:           adder,
		notifier:        notifier,
		requireApproval: cfg.RequireApproval,
		now:             time.Now,
	}
}

// SetAccepting toggles request intake.
func (m *Manager) SetAccepting(accepting bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepting = accepting
}

// IsAccepting reports whether submissions are currently accepted.
func (m *Manager) IsAccepting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepting
}

// Submit validates and records a guest request. A rejection by the
// admission chain or an unresolvable song is a reported result with a
// machine-readable code, not an error; err is reserved for collaborator
// failures on the auto-approval path.
func (m *Manager) Submit(ctx context.Context, songID, requesterName, message, clientID string) (*Request, string, error) {
	s := m.library.FindSongByKey(songID)
	if s == nil {
		return nil, "song_not_found", nil
	}

	g, err := m.resolveGuest(requesterName, clientID)
	if err != nil {
		return nil, "", err
	}
	guestID := g.ID

	sub := filter.Submission{ClientID: clientID, SongID: songID}
	if res := m.chain.Execute(ctx, sub, *s, g); !res.Accepted {
		zlog.Debug().Str("song_id", songID).Str("code", res.Code).Msg("request: submission rejected by filter")
		return nil, res.Code, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := &Request{
		ID:            uuid.New().String(),
		SongID:        songID,
		Song:          *s,
		RequesterName: requesterName,
		Message:       message,
		Timestamp:     m.now(),
		ClientID:      clientID,
		GuestID:       guestID,
	}

	if m.requireApproval {
		r.Status = StatusPending
		m.insertLocked(r)
		m.guests.RecordRequest(guestID)
		m.broadcastLocked(r)
		zlog.Info().Str("request_id", r.ID).Str("song_id", songID).Msg("request: submitted, awaiting approval")
		return copyRequest(r), "", nil
	}

	// Auto-approval: the request is created approved and advanced to
	// queued within the same call; pending is never observable.
	r.Status = StatusApproved
	m.insertLocked(r)
	m.guests.RecordRequest(guestID)
	if err := m.queueLocked(r); err != nil {
		// Left approved for an explicit operator retry.
		m.broadcastLocked(r)
		return copyRequest(r), "", err
	}
	m.broadcastLocked(r)
	zlog.Info().Str("request_id", r.ID).Str("song_id", songID).Msg("request: auto-approved and queued")
	return copyRequest(r), "", nil
}

// Approve transitions a pending request to approved and queues it. On a
// queue-add failure the request stays approved — not rolled back — so
// the operator can retry with Retry. Approving a non-pending request is
// a reported error and never mutates.
func (m *Manager) Approve(id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if r.Status != StatusPending {
		return copyRequest(r), errors.Wrapf(ErrNotPending, "status is %q", r.Status)
	}

	r.Status = StatusApproved
	m.broadcastLocked(r)

	if err := m.queueLocked(r); err != nil {
		zlog.Warn().Err(err).Str("request_id", id).Msg("request: approved but queue add failed")
		return copyRequest(r), err
	}
	m.broadcastLocked(r)
	return copyRequest(r), nil
}

// Retry re-attempts the queue add of a request stuck in approved.
func (m *Manager) Retry(id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if r.Status != StatusApproved {
		return copyRequest(r), errors.Wrapf(ErrNotApproved, "status is %q", r.Status)
	}

	if err := m.queueLocked(r); err != nil {
		return copyRequest(r), err
	}
	m.broadcastLocked(r)
	return copyRequest(r), nil
}

// Reject transitions a pending request to rejected. Rejecting a
// non-pending request is a reported error and never mutates.
func (m *Manager) Reject(id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if r.Status != StatusPending {
		return copyRequest(r), errors.Wrapf(ErrNotPending, "status is %q", r.Status)
	}

	r.Status = StatusRejected
	m.guests.SettleRequest(r.GuestID)
	m.broadcastLocked(r)
	zlog.Info().Str("request_id", id).Msg("request: rejected")
	return copyRequest(r), nil
}

// GetRequests returns copies of all requests in submission order.
func (m *Manager) GetRequests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.requests[id])
	}
	return out
}

// GetRequest returns a copy of one request.
func (m *Manager) GetRequest(id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return copyRequest(r), nil
}

// HasOpenRequestFor reports whether any request for the song is still
// pending or approved. Used by the duplicate admission filter.
func (m *Manager) HasOpenRequestFor(songID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.requests {
		if r.SongID == songID && (r.Status == StatusPending || r.Status == StatusApproved) {
			return true
		}
	}
	return false
}

// resolveGuest joins or resumes the submitting guest. A kicked guest is
// resumed rather than refused so the admission chain owns the rejection
// and its code.
func (m *Manager) resolveGuest(requesterName, clientID string) (*domguest.Guest, error) {
	id, err := m.guests.Join(requesterName, clientID)
	if err != nil {
		if errors.Is(err, guest.ErrGuestKicked) {
			return m.guests.GetByClient(clientID)
		}
		return nil, err
	}
	return m.guests.Get(id)
}

// queueLocked performs the approved -> queued transition. Must be called
// with the manager mutex held.
func (m *Manager) queueLocked(r *Request) error {
	item := song.FromSong(r.Song, r.RequesterName, song.AddedViaWebRequest)
	if _, err := m.adder.Add(item); err != nil {
		return errors.Wrap(err, "failed to queue approved request")
	}
	r.Status = StatusQueued
	m.guests.SettleRequest(r.GuestID)
	return nil
}

func (m *Manager) insertLocked(r *Request) {
	m.requests[r.ID] = r
	m.order = append(m.order, r.ID)
}

// broadcastLocked pushes the request snapshot to the operator-facing
// scopes. Guests poll their own request state over the pull API.
func (m *Manager) broadcastLocked(r *Request) {
	if m.notifier == nil {
		return
	}
	m.notifier.Push(broadcast.EventRequests, *copyRequest(r), broadcast.ScopeAdmin, broadcast.ScopeDesktop)
}

func copyRequest(r *Request) *Request {
	cp := *r
	return &cp
}
