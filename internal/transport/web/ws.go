package web

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	ws "nhooyr.io/websocket"

	"github.com/utabox/utabox/internal/app/broadcast"
)

var (
	errUnknownRole   = errors.New("unknown role")
	errForbiddenRole = errors.New("role requires a valid token")
)

// handleWebSocket upgrades the connection and registers it with the
// broadcast router. The role comes from the query string; privileged
// roles additionally need the admin token.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	role, err := s.resolveRole(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		zlog.Error().Err(err).Msg("WebSocket accept failed")
		return
	}

	ch := newWSChannel(uuid.New().String(), role, conn)

	zlog.Debug().Str("channel_id", ch.ID()).Str("role", string(role)).
		Msg("WebSocket connected")

	// Full snapshot first, so the client renders before the next event.
	if err := s.pushInitialState(ch); err != nil {
		zlog.Debug().Err(err).Msg("Initial state push failed")
		ch.close(ws.StatusInternalError, "initial state push failed")
		return
	}

	s.coord.Router().Register(ch)
	defer s.coord.Router().Unregister(ch.ID())

	// Clients never send application messages; the read loop exists to
	// observe the close handshake and keep control frames flowing.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	ch.close(ws.StatusNormalClosure, "")
	zlog.Debug().Str("channel_id", ch.ID()).Msg("WebSocket disconnected")
}

func (s *Server) resolveRole(r *http.Request) (broadcast.Role, error) {
	role := broadcast.Role(r.URL.Query().Get("role"))
	switch role {
	case "", broadcast.RoleGuest:
		return broadcast.RoleGuest, nil
	case broadcast.RoleAdmin, broadcast.RoleDesktop:
		if s.cfg.Admin.Token != "" && bearerToken(r) != s.cfg.Admin.Token {
			return "", errForbiddenRole
		}
		return role, nil
	default:
		return "", errUnknownRole
	}
}

func (s *Server) pushInitialState(ch *wsChannel) error {
	snap := s.coord.Store().GetSnapshot()

	if err := ch.Push(broadcast.EventCurrentSong, snap.CurrentSong); err != nil {
		return err
	}
	if err := ch.Push(broadcast.EventPlaybackState, snap.Playback); err != nil {
		return err
	}
	return ch.Push(broadcast.EventQueue, broadcast.QueuePayload{
		Queue:       snap.Queue,
		CurrentSong: snap.CurrentSong,
	})
}
