package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/app/guest"
	"github.com/utabox/utabox/internal/app/queue"
	"github.com/utabox/utabox/internal/app/request"
	"github.com/utabox/utabox/internal/app/session"
	"github.com/utabox/utabox/internal/app/state"
	"github.com/utabox/utabox/internal/domain/song"
	"github.com/utabox/utabox/internal/infra/config"
	"github.com/utabox/utabox/internal/infra/library"
)

// Server serves the HTTP API and WebSocket endpoint for one session.
type Server struct {
	coord   *session.Coordinator
	library *library.Index
	cfg     *config.Config
}

// NewServer creates a new web server.
func NewServer(coord *session.Coordinator, lib *library.Index, cfg *config.Config) *Server {
	return &Server{coord: coord, library: lib, cfg: cfg}
}

// Handler builds the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/session", s.handleSession)
		r.Get("/position", s.handlePosition)
		r.Get("/library", s.handleLibrary)
		r.Get("/queue", s.handleGetQueue)

		r.Post("/guests/join", s.handleGuestJoin)
		r.Post("/requests", s.handleSubmitRequest)

		r.Group(func(ar chi.Router) {
			ar.Use(s.adminAuth)

			ar.Get("/state", s.handleGetState)
			ar.Patch("/state/{field}", s.handleUpdateState)

			ar.Post("/queue", s.handleQueueAdd)
			ar.Delete("/queue/{id}", s.handleQueueRemove)
			ar.Post("/queue/clear", s.handleQueueClear)
			ar.Post("/queue/{id}/reorder", s.handleQueueReorder)
			ar.Post("/queue/{id}/load", s.handleQueueLoad)

			ar.Get("/requests", s.handleListRequests)
			ar.Post("/requests/accepting", s.handleSetAccepting)
			ar.Post("/requests/{id}/approve", s.handleApproveRequest)
			ar.Post("/requests/{id}/reject", s.handleRejectRequest)
			ar.Post("/requests/{id}/retry", s.handleRetryRequest)

			ar.Get("/guests", s.handleListGuests)
			ar.Post("/guests/{id}/kick", s.handleKickGuest)
			ar.Post("/guests/{id}/vip", s.handleSetVIP)

			ar.Post("/library/reload", s.handleLibraryReload)
		})
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

// adminAuth gates operator endpoints behind the configured bearer token.
// An empty configured token leaves the surface open.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Admin.Token != "" && bearerToken(r) != s.cfg.Admin.Token {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	// WebSocket clients cannot set headers from the browser.
	return r.URL.Query().Get("token")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap := s.coord.Store().GetSnapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"roomName":    s.coord.RoomName(),
		"currentSong": snap.CurrentSong,
		"playback":    snap.Playback,
		"queue":       snap.Queue,
		"accepting":   s.coord.Requests().IsAccepting(),
		"librarySize": s.library.Count(),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Store().GetSnapshot())
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	snap := s.coord.Store().GetSnapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"position":  s.coord.Store().GetCurrentPosition(),
		"isPlaying": snap.Playback.IsPlaying,
	})
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	songs := s.library.Search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"songs": songs, "total": len(songs)})
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")

	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.coord.Store().Update(field, updates); err != nil {
		if errors.Is(err, state.ErrUnknownField) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type queueAddBody struct {
	SongID    string `json:"songId"`
	Path      string `json:"path"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Requester string `json:"requester"`
}

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var body queueAddBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var item song.QueueItem
	if body.SongID != "" {
		found := s.library.FindSongByKey(body.SongID)
		if found == nil {
			writeError(w, http.StatusNotFound, "song not found in library")
			return
		}
		item = song.FromSong(*found, body.Requester, song.AddedViaAdmin)
	} else {
		item = song.QueueItem{
			Path:      body.Path,
			Title:     body.Title,
			Artist:    body.Artist,
			Requester: body.Requester,
			AddedVia:  song.AddedViaAdmin,
		}
	}

	res, err := s.coord.Add(item)
	if err != nil {
		if errors.Is(err, queue.ErrPathRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "item": res.Item})
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue":       s.coord.Queue().List(),
		"currentSong": s.coord.Store().GetCurrentSong(),
	})
}

func (s *Server) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	item, err := s.coord.Queue().Remove(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

func (s *Server) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	s.coord.Queue().Clear()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleQueueReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.coord.Queue().Reorder(chi.URLParam(r, "id"), body.Index); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleQueueLoad(w http.ResponseWriter, r *http.Request) {
	item, err := s.coord.LoadItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, state.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

type guestJoinBody struct {
	DisplayName string `json:"displayName"`
	ClientID    string `json:"clientId"`
}

func (s *Server) handleGuestJoin(w http.ResponseWriter, r *http.Request) {
	var body guestJoinBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := s.coord.Guests().Join(body.DisplayName, body.ClientID)
	if err != nil {
		if errors.Is(err, guest.ErrGuestKicked) {
			writeError(w, http.StatusForbidden, s.cfg.GetMessage("kicked"))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"guestId":  id,
		"roomName": s.coord.RoomName(),
	})
}

func (s *Server) handleListGuests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"guests": s.coord.Guests().All()})
}

func (s *Server) handleKickGuest(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Guests().Kick(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSetVIP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VIP bool `json:"vip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.coord.Guests().SetVIP(chi.URLParam(r, "id"), body.VIP); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleLibraryReload(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Reload(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "songs": s.library.Count()})
}

type submitRequestBody struct {
	SongID        string `json:"songId"`
	RequesterName string `json:"requesterName"`
	Message       string `json:"message"`
	ClientID      string `json:"clientId"`
}

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, code, err := s.coord.Requests().Submit(
		r.Context(), body.SongID, body.RequesterName, body.Message, body.ClientID)
	if err != nil {
		zlog.Error().Err(err).Str("songId", body.SongID).Msg("Request submission failed")
		writeError(w, http.StatusInternalServerError, s.cfg.GetMessage(""))
		return
	}
	if code != "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"code":    code,
			"message": s.cfg.GetMessage(code),
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": s.cfg.GetMessage("success"),
		"request": req,
	})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"requests": s.coord.Requests().GetRequests()})
}

func (s *Server) handleSetAccepting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Accepting bool `json:"accepting"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.coord.Requests().SetAccepting(body.Accepting)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "accepting": body.Accepting})
}

func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.coord.Requests().Approve(chi.URLParam(r, "id"))
	s.writeRequestResult(w, req, err)
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.coord.Requests().Reject(chi.URLParam(r, "id"))
	s.writeRequestResult(w, req, err)
}

func (s *Server) handleRetryRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.coord.Requests().Retry(chi.URLParam(r, "id"))
	s.writeRequestResult(w, req, err)
}

func (s *Server) writeRequestResult(w http.ResponseWriter, req *request.Request, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "request": req})
	case errors.Is(err, request.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, request.ErrNotPending), errors.Is(err, request.ErrNotApproved):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
