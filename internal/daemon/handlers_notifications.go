package daemon

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reeldesk/internal/api"
	"reeldesk/internal/services"
	"reeldesk/internal/store"
)

func (s *apiServer) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unread, _ := strconv.ParseBool(q.Get("unread"))
	limit := s.cfg.Limits.ListLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "notifications", "limit must be a non-negative integer", err))
			return
		}
		if n > 0 && n < limit {
			limit = n
		}
	}
	items, err := s.daemon.store.ListNotifications(r.Context(), store.AudienceStaff, unread, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotificationListResponse{Notifications: api.FromNotifications(items)})
}

func (s *apiServer) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.daemon.store.MarkNotificationRead(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.daemon.hub.NotificationAdded("")
	w.WriteHeader(http.StatusNoContent)
}
