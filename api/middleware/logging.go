package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mgardella/storefront-backend/pkg/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging emits one structured line per request with method, path, status,
// and latency. The request id from RequestID is attached when present.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			ctx := r.Context()
			if requestID, ok := RequestIDFromContext(ctx); ok {
				ctx = logg.WithRequestID(ctx, requestID)
			}

			next.ServeHTTP(rec, r.WithContext(ctx))

			logCtx := logg.WithFields(ctx, map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			logg.Info(logCtx, fmt.Sprintf("%s %s -> %d", r.Method, r.URL.Path, rec.status))
		})
	}
}
