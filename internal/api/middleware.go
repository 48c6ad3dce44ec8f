package api

import (
	"errors"
	"net/http"

	"github.com/signalsfoundry/leosim/internal/logging"
)

const requestIDHeader = "X-Request-Id"

var errRateLimited = errors.New("rate limit exceeded")

// requestLogging ensures a request_id exists (honouring an inbound
// X-Request-Id), attaches a request-scoped logger to the context, and echoes
// the ID on the response.
func (s *Server) requestLogging(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if incoming := r.Header.Get(requestIDHeader); incoming != "" {
			ctx = logging.ContextWithRequestID(ctx, incoming)
		}

		ctx, reqLog := logging.WithRequestLogger(ctx, s.log.With(
			logging.String("route", route),
			logging.String("method", r.Method),
		))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimited rejects requests beyond the configured rate with 429. A nil
// limiter disables the check.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, r, http.StatusTooManyRequests, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
