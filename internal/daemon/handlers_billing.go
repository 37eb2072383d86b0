package daemon

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"reeldesk/internal/api"
	"reeldesk/internal/auth"
	"reeldesk/internal/billing"
	"reeldesk/internal/services"
	"reeldesk/internal/store"
)

func (s *apiServer) handleBillingAccount(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	account, err := s.daemon.billing.Account(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := api.FromAccount(account)
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleStartSubscription(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	var req api.SubscribeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	tier, err := store.ParseTier(req.Tier)
	if err != nil {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "subscribe", "unknown tier", err))
		return
	}
	checkout, err := s.daemon.billing.StartSubscription(r.Context(), caller, tier)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.CheckoutResponse{
		SubscriptionID: checkout.SubscriptionID,
		Tier:           string(checkout.Tier),
		ApprovalURL:    checkout.ApprovalURL,
	})
}

func (s *apiServer) handleActivateSubscription(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	account, err := s.daemon.billing.Activate(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := api.FromAccount(account)
	s.writeJSON(w, http.StatusOK, out)
}

// handleBillingReturn reads the flags the provider redirect carries. A
// successful return from a signed-in customer activates the subscription.
func (s *apiServer) handleBillingReturn(w http.ResponseWriter, r *http.Request) {
	flags := billing.ParseReturnFlags(r.URL.Query())
	resp := api.BillingReturnResponse{
		Success:        flags.Success,
		Canceled:       flags.Canceled,
		ALaCarte:       flags.ALaCarte,
		Plan:           flags.Plan,
		SubscriptionID: flags.SubscriptionID,
	}

	caller, ok := auth.FromContext(r.Context())
	if ok && flags.Success && !flags.Canceled && flags.SubscriptionID != "" && caller.Role == auth.RoleCustomer {
		account, err := s.daemon.billing.Activate(r.Context(), caller, flags.SubscriptionID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		out := api.FromAccount(account)
		resp.Account = &out
	}
	s.writeJSON(w, http.StatusOK, resp)
}
