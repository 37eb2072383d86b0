package daemon

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"reeldesk/internal/auth"
	"reeldesk/internal/logging"
	"reeldesk/internal/metrics"
	"reeldesk/internal/services"
)

// recordMetrics counts requests by the matched route pattern so room ids do
// not inflate label cardinality.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// requestLogger tags the context with the request id and logs each completed request.
func (s *apiServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := logging.WithRequestID(r.Context(), chimw.GetReqID(r.Context()))
		r = r.WithContext(ctx)

		defer func() {
			logging.WithContext(r.Context(), s.logger).Debug("request completed",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", ww.Status()),
				logging.Duration("latency", time.Since(start)),
				logging.String("remote_addr", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// requireIdentity rejects requests without a valid bearer token.
func (s *apiServer) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.verifier.VerifyRequest(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r, id)))
	})
}

// optionalIdentity authenticates when a token is present and passes anonymous
// requests through. A present but invalid token is still rejected.
func (s *apiServer) optionalIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.BearerToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := s.verifier.VerifyRequest(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r, id)))
	})
}

// requireStaff must run after requireIdentity.
func (s *apiServer) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		if !id.IsStaff() {
			s.writeServiceError(w, r, services.Wrap(services.ErrForbidden, "api", "", "staff only", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withIdentity(r *http.Request, id auth.Identity) context.Context {
	ctx := auth.WithIdentity(r.Context(), id)
	return logging.WithUser(ctx, id.UserID, string(id.Role))
}
