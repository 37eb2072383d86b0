package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reeldesk/internal/api"
	"reeldesk/internal/auth"
	"reeldesk/internal/feed"
	"reeldesk/internal/services"
)

// handleFeed serves the long-poll change feed. With wait=true the request
// blocks until a matching event arrives or the poll window ends.
func (s *apiServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	topic, err := s.authorizeTopic(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	since, err := parseUintParam(q.Get("since"))
	if err != nil {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "feed", "since must be a non-negative integer", err))
		return
	}
	limit, err := parseUintParam(q.Get("limit"))
	if err != nil {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "feed", "limit must be a non-negative integer", err))
		return
	}
	wait, _ := strconv.ParseBool(q.Get("wait"))

	ctx := r.Context()
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.Feed.LongPollSeconds)*time.Second)
		defer cancel()
	}

	events, next, err := s.daemon.hub.Fetch(ctx, since, int(limit), wait, topic)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		// client went away
		return
	}
	s.writeJSON(w, http.StatusOK, api.FeedResponse{Events: api.FromEvents(events), Next: next})
}

func (s *apiServer) handleFeedWebsocket(w http.ResponseWriter, r *http.Request) {
	topic, err := s.authorizeTopic(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.ws.Serve(r.Context(), w, r, topic)
}

// authorizeTopic parses the resource and roomId query parameters and checks
// that the caller may watch the topic. The rooms topic is staff only;
// customers follow their own room's messages topic.
func (s *apiServer) authorizeTopic(r *http.Request) (feed.Topic, error) {
	caller, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	topic, err := feed.ParseTopic(q.Get("resource"), strings.TrimSpace(q.Get("roomId")))
	if err != nil {
		return feed.Topic{}, services.Wrap(services.ErrValidation, "api", "feed", err.Error(), nil)
	}
	switch topic.Resource {
	case feed.ResourceRooms:
		if !caller.IsStaff() {
			return feed.Topic{}, services.Wrap(services.ErrForbidden, "api", "feed", "the rooms feed is staff only", nil)
		}
	case feed.ResourceMessages:
		if _, err := s.daemon.coord.Room(r.Context(), topic.RoomID, caller); err != nil {
			return feed.Topic{}, err
		}
	case feed.ResourceNotifications:
		if !caller.IsStaff() {
			return feed.Topic{}, services.Wrap(services.ErrForbidden, "api", "feed", "notifications are staff only", nil)
		}
	}
	return topic, nil
}

func parseUintParam(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
