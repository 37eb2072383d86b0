package daemon

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(recordMetrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	origins := s.cfg.Feed.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(s.optionalIdentity).Post("/assistant/reply", s.handleAssistantReply)
		r.With(s.optionalIdentity).Get("/billing/return", s.handleBillingReturn)

		r.Group(func(r chi.Router) {
			r.Use(s.requireIdentity)

			r.Post("/rooms", s.handleOpenRoom)
			r.Get("/rooms", s.handleListRooms)
			r.Get("/rooms/{id}", s.handleGetRoom)
			r.With(s.requireStaff).Post("/rooms/{id}/claim", s.handleClaimRoom)
			r.With(s.requireStaff).Post("/rooms/{id}/close", s.handleCloseRoom)
			r.Get("/rooms/{id}/messages", s.handleListMessages)
			r.Post("/rooms/{id}/messages", s.handlePostMessage)
			r.Post("/rooms/{id}/read", s.handleMarkRead)

			r.Get("/feed", s.handleFeed)
			r.Get("/feed/ws", s.handleFeedWebsocket)

			r.Post("/billing/subscriptions", s.handleStartSubscription)
			r.Post("/billing/subscriptions/{id}/activate", s.handleActivateSubscription)
			r.Get("/billing/account", s.handleBillingAccount)

			r.Group(func(r chi.Router) {
				r.Use(s.requireStaff)
				r.Get("/status", s.handleStatus)
				r.Get("/notifications", s.handleListNotifications)
				r.Post("/notifications/{id}/read", s.handleMarkNotificationRead)
			})
		})
	})

	return r
}
