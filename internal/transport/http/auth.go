package api

import (
	"net/http"
	"time"

	"github.com/matchpoint-app/auth-service/internal/models"
)

// playerProfileDTO — профиль игрока в запросе регистрации.
type playerProfileDTO struct {
	Position    string `json:"position"`
	ShirtNumber int32  `json:"shirt_number"`
}

type registerRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Role     string            `json:"role"`
	Player   *playerProfileDTO `json:"player,omitempty"`
}

type registerResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	UserID           string    `json:"user_id"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type validateRequest struct {
	AccessToken string `json:"access_token"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

type confirmRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetValidateRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type resetRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Register — POST /auth/register.
// Создаёт выключенный аккаунт и отправляет письмо подтверждения.
// Токены при регистрации не выдаются.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	var player *models.PlayerProfile
	if req.Player != nil {
		player = &models.PlayerProfile{
			Position:    req.Player.Position,
			ShirtNumber: req.Player.ShirtNumber,
		}
	}

	user, err := h.auth.SignUp(r.Context(), req.Email, req.Password, models.Role(req.Role), player)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		ID:     user.ID.String(),
		Email:  user.Email,
		Role:   string(user.Role),
		Active: user.Active,
	})
}

// Login — POST /auth/login. Требует включённый аккаунт.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	pair, userID, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		UserID:           userID.String(),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

// Refresh — POST /auth/refresh. Ротация refresh-токена:
// предъявленный токен сжигается, выдаётся новая пара.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	pair, userID, err := h.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		UserID:           userID.String(),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

// Logout — POST /auth/logout. Отзывает refresh-токен.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	if err := h.auth.RevokeToken(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// Validate — POST /auth/validate. Проверяет access-токен.
// Невалидный токен — это не ошибка запроса: отдаём 200 с valid=false.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	userID, email, role, err := h.auth.ValidateToken(r.Context(), req.AccessToken)
	if err != nil {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:  true,
		UserID: userID.String(),
		Email:  email,
		Role:   string(role),
	})
}

// Confirm — POST /auth/confirm. Гасит токен подтверждения и включает аккаунт.
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	if err := h.auth.ConfirmEmail(r.Context(), req.Token); err != nil {
		writeVerificationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// ResendConfirmation — POST /auth/confirm/resend.
// Для неизвестного e-mail отвечает так же, как для известного (202):
// существование адреса наружу не раскрывается.
func (h *Handlers) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	if err := h.auth.ResendConfirmation(r.Context(), req.Email); err != nil {
		writeVerificationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, nil)
}

// ForgotPassword — POST /auth/password/forgot.
// Как и ResendConfirmation, не раскрывает существование адреса.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeVerificationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, nil)
}

// ValidateResetToken — POST /auth/password/validate.
// Проверяет токен сброса, не погашая его: клиент убеждается в валидности
// ссылки до того, как спросить у пользователя новый пароль.
func (h *Handlers) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	var req resetValidateRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	if err := h.auth.ValidateResetToken(r.Context(), req.Email, req.Token); err != nil {
		writeVerificationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// ResetPassword — POST /auth/password/reset.
// Гасит токен, меняет пароль и отзывает все живые refresh-токены владельца.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "malformed JSON body")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		writeVerificationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
