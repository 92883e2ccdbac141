package middleware

import (
	"log/slog"
	"net/http"

	"github.com/matchpoint-app/auth-service/internal/pkg/log"
)

// Recover перехватывает панику обработчика и превращает её в 500,
// не роняя процесс.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.From(r.Context()).Error("panic_recovered",
						slog.Any("panic", rec),
						slog.String("path", r.URL.Path),
					)

					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
