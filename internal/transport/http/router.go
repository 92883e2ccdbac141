package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matchpoint-app/auth-service/internal/transport/http/middleware"
)

// RouterOptions — зависимости маршрутизатора.
type RouterOptions struct {
	Logger  *slog.Logger
	Metrics *middleware.HTTPMetrics // может быть nil
	Timeout time.Duration
}

// NewRouter собирает маршруты публичного API с цепочкой middleware:
// request-id -> логирование -> recover -> метрики -> таймаут.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	mws := []middleware.Middleware{
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Recover(),
	}
	if opts.Metrics != nil {
		mws = append(mws, opts.Metrics.Metrics())
	}
	if opts.Timeout > 0 {
		mws = append(mws, middleware.Timeout(opts.Timeout))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/validate", h.Validate)

		r.Post("/confirm", h.Confirm)
		r.Post("/confirm/resend", h.ResendConfirmation)

		r.Route("/password", func(r chi.Router) {
			r.Post("/forgot", h.ForgotPassword)
			r.Post("/validate", h.ValidateResetToken)
			r.Post("/reset", h.ResetPassword)
		})
	})

	return middleware.Chain(r, mws...)
}
