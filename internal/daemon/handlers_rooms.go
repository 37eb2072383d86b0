package daemon

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"reeldesk/internal/api"
	"reeldesk/internal/auth"
	"reeldesk/internal/logging"
	"reeldesk/internal/services"
	"reeldesk/internal/store"
)

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.store.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).ToAPI())
}

// ToAPI converts the status into its transport form.
func (status Status) ToAPI() api.DaemonStatus {
	checks := make([]api.CheckStatus, 0, len(status.Checks))
	for _, c := range status.Checks {
		checks = append(checks, api.CheckStatus{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
	}
	return api.DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		DatabasePath:    status.DatabasePath,
		LockFilePath:    status.LockFilePath,
		SocketPath:      status.SocketPath,
		APIBind:         status.APIBind,
		FeedSubscribers: status.FeedSubscribers,
		FeedSequence:    status.FeedSequence,
		RelayEnabled:    status.RelayEnabled,
		BillingEnabled:  status.BillingEnabled,
		Stats:           api.FromStats(status.Stats),
		Checks:          checks,
	}
}

func (s *apiServer) handleOpenRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	res, err := s.daemon.coord.OpenRoom(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, api.OpenRoomResponse{Room: api.FromRoom(res.Room), Created: res.Created})
}

// handleListRooms serves the staff views (unclaimed, mine) and the customer's own rooms.
func (s *apiServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	view := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("view")))

	var (
		rooms []*store.Room
		err   error
	)
	switch {
	case !caller.IsStaff():
		rooms, err = s.daemon.coord.ListOwned(r.Context(), caller.UserID)
	case view == "" || view == "unclaimed":
		rooms, err = s.daemon.coord.ListUnclaimedActive(r.Context())
	case view == "mine":
		rooms, err = s.daemon.coord.ListClaimedByStaff(r.Context(), caller.UserID)
	default:
		err = services.Wrap(services.ErrValidation, "api", "list rooms", "view must be unclaimed or mine", nil)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RoomListResponse{Rooms: api.FromRooms(rooms)})
}

func (s *apiServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	room, err := s.daemon.coord.Room(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RoomResponse{Room: api.FromRoom(room)})
}

func (s *apiServer) handleClaimRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	roomID := chi.URLParam(r, "id")
	ctx := logging.WithRoomID(r.Context(), roomID)
	res, err := s.daemon.coord.Claim(ctx, roomID, caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClaimResponse{Claimed: res.Claimed, Room: api.FromRoom(res.Room)})
}

func (s *apiServer) handleCloseRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	roomID := chi.URLParam(r, "id")
	closed, err := s.daemon.coord.Close(logging.WithRoomID(r.Context(), roomID), roomID, caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CloseResponse{Closed: closed})
}

func (s *apiServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	msgs, err := s.daemon.coord.Messages(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageListResponse{Messages: api.FromMessages(msgs)})
}

func (s *apiServer) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	var req api.PostMessageRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	roomID := chi.URLParam(r, "id")
	msg, err := s.daemon.coord.Post(logging.WithRoomID(r.Context(), roomID), roomID, caller, req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.MessageResponse{Message: api.FromMessage(msg)})
}

func (s *apiServer) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	n, err := s.daemon.coord.MarkRead(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MarkReadResponse{Marked: n})
}
