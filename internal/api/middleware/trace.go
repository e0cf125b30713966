// Package middleware holds HTTP middleware shared by the API router.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/deckstudy/internal/api/shared"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
)

// NewTraceMiddleware assigns every request a trace ID and a request-scoped
// logger. A valid X-Trace-ID request header is reused; the ID is echoed in
// the response header either way.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.WithTraceID(r.Context(), r.Header.Get(shared.TraceIDHeader))
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(shared.TraceIDHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
