package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"adminhub/internal/pkg/metrics"
	"adminhub/internal/platform/models"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Observe logs and counts every request under its route pattern. The
// principal is read after next returns, so place it outside the auth
// middleware.
func Observe(route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			start := time.Now()

			holder := &principalHolder{}
			next(sw, r.WithContext(withPrincipalHolder(r.Context(), holder)))

			elapsed := time.Since(start)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			event := log.Info()
			if sw.code >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.code).
				Dur("duration", elapsed).
				Str("user_id", holder.id()).
				Msg("request")
		}
	}
}

type principalHolder struct {
	principal *models.Principal
}

func (h *principalHolder) id() string {
	if h.principal == nil {
		return ""
	}
	return h.principal.ID
}

type holderKey struct{}

func withPrincipalHolder(ctx context.Context, h *principalHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// notePrincipal lets an enclosing Observe see who made the request.
func notePrincipal(ctx context.Context, p *models.Principal) {
	if h, ok := ctx.Value(holderKey{}).(*principalHolder); ok {
		h.principal = p
	}
}
