// api — HTTP-слой сервиса: маршруты, обработчики и маппинг
// ошибок бизнес-логики на статусы и единый формат ответа.
package api

import (
	"errors"
	"net/http"

	"github.com/matchpoint-app/auth-service/internal/service"
	"github.com/matchpoint-app/auth-service/internal/transport/http/middleware"
)

// APIError — тело ошибки в едином формате ответа.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — конверт ошибки: {"error": {...}}.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// writeError пишет ошибку в единой форме.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: APIError{
		Code:      code,
		Message:   message,
		RequestID: middleware.RequestIDFrom(r.Context()),
	}})
}

// writeServiceError маппит ошибки бизнес-логики на HTTP-статусы.
// Для ErrTokenNotFound/ErrTokenExpired действует контекст маршрута:
// на путях refresh/login это 401, на путях подтверждения/сброса —
// 404/410 (см. writeVerificationError). Всё, что не распознано,
// отдаётся как opaque 500 без деталей.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrInvalidRole):
		writeError(w, r, http.StatusBadRequest, "invalid_argument", userMessage(err))

	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")

	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenNotFound),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrTokenReuseDetected):
		// Причина отказа наружу не детализируется.
		writeError(w, r, http.StatusUnauthorized, "invalid_token", "invalid or expired token")

	case errors.Is(err, service.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, "account_disabled", "account is not active")

	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, "email_taken", "email already taken")

	case errors.Is(err, service.ErrAlreadyConfirmed):
		writeError(w, r, http.StatusConflict, "already_confirmed", "email already confirmed")

	default:
		writeError(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// writeVerificationError — маппинг для одноразовых токенов
// (подтверждение e-mail, сброс пароля): не найден -> 404,
// уже погашен -> 409, просрочен -> 410.
func writeVerificationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "token is required")

	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, r, http.StatusBadRequest, "invalid_argument", userMessage(err))

	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword):
		writeError(w, r, http.StatusBadRequest, "invalid_argument", userMessage(err))

	case errors.Is(err, service.ErrTokenNotFound):
		writeError(w, r, http.StatusNotFound, "token_not_found", "token not found")

	case errors.Is(err, service.ErrTokenAlreadyUsed):
		writeError(w, r, http.StatusConflict, "token_already_used", "token already used")

	case errors.Is(err, service.ErrTokenExpired):
		writeError(w, r, http.StatusGone, "token_expired", "token expired")

	case errors.Is(err, service.ErrAlreadyConfirmed):
		writeError(w, r, http.StatusConflict, "already_confirmed", "email already confirmed")

	default:
		writeError(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// userMessage возвращает текст, пригодный для показа клиенту.
// Внутренние обёртки вида "op: ..." наружу не отдаются.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		return "invalid email format"
	case errors.Is(err, service.ErrWeakPassword):
		return "password does not meet complexity requirements"
	case errors.Is(err, service.ErrEmptyPassword):
		return "password is required"
	case errors.Is(err, service.ErrInvalidRole):
		return "role must be one of: manager, player"
	default:
		return "invalid request"
	}
}
