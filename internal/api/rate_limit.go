package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/pixelsmith/internal/ratelimit"
	"go.uber.org/zap"
)

type RateLimiter interface {
	AllowN(ctx context.Context, subject string, cost int) (ratelimit.Decision, error)
}

// limit charges cost tokens to the caller before running the handler.
// Limiter failures other than an oversized cost let the request through.
func (s *Server) limit(cost int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if s.rateLimiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := s.rateLimitSubject(r)
			route := routeLabel(r)

			decision, err := s.rateLimiter.AllowN(r.Context(), subject, cost)
			if err != nil && !errors.Is(err, ratelimit.ErrCostTooHigh) {
				s.logger.Warn("rate limiter check failed", zap.String("subject", subject), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			if err == nil && decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			s.metrics.rateLimitRejected.WithLabelValues(route).Inc()
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
		})
	}
}

func (s *Server) rateLimitSubject(r *http.Request) string {
	if subject := strings.TrimSpace(r.Header.Get(s.clientIDHeader)); subject != "" {
		return subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
