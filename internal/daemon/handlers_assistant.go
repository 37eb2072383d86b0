package daemon

import (
	"net/http"

	"reeldesk/internal/api"
	"reeldesk/internal/auth"
	"reeldesk/internal/logging"
	"reeldesk/internal/metrics"
)

// handleAssistantReply answers one visitor message. Account questions from a
// signed-in customer are escalated and the reply carries the room to join.
func (s *apiServer) handleAssistantReply(w http.ResponseWriter, r *http.Request) {
	var req api.AssistantRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var caller *auth.Identity
	if id, ok := auth.FromContext(r.Context()); ok {
		caller = &id
	}
	reply := s.daemon.responder.Respond(req.Text, caller)
	metrics.AssistantReplies.WithLabelValues(string(reply.Topic)).Inc()

	payload := api.FromReply(reply)
	if reply.Escalate {
		res, err := s.daemon.bridge.Escalate(r.Context(), *caller, req.Text)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		payload.RoomID = res.RoomID
		payload.RoomCreated = res.Created
		logging.WithContext(r.Context(), s.logger).Info("assistant escalated conversation",
			logging.EventType("assistant_escalated"),
			logging.RoomID(res.RoomID),
			logging.Bool("created", res.Created),
		)
	}
	s.writeJSON(w, http.StatusOK, payload)
}
