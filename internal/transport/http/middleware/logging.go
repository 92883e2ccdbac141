package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/matchpoint-app/auth-service/internal/pkg/log"
)

// Logging пишет одну структурированную запись на запрос и кладёт в контекст
// request-scoped логгер (с request_id), которым пользуются нижние слои.
func Logging(base *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lg := base.With(slog.String("request_id", RequestIDFrom(r.Context())))
			ctx := log.Into(r.Context(), lg)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(ctx))

			if sw.status == 0 {
				sw.status = http.StatusOK
			}

			lg.Info("http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Int("bytes", sw.bytes),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
