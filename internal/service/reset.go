package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpoint-app/auth-service/internal/models"
	"github.com/matchpoint-app/auth-service/internal/pkg/log"
	"github.com/matchpoint-app/auth-service/internal/pkg/redact"
	"github.com/matchpoint-app/auth-service/internal/storage"

	"github.com/google/uuid"
)

// ForgotPassword выпускает токен сброса пароля и отправляет письмо со
// ссылкой. Для неизвестного e-mail возвращает nil без побочных эффектов:
// наружу не раскрывается, зарегистрирован ли адрес. Прежние непогашенные
// токены сброса принудительно просрочиваются.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	const op = "service.reset.ForgotPassword"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("reset_unknown_email",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	if err := s.storage.ExpireActiveResetTokens(ctx, user.ID, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	plain, err := generateOpaqueToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	token := &models.ResetToken{
		ID:        uuid.New(),
		TokenHash: hashToken(plain),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
	}

	if err := s.storage.SaveResetToken(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, plain); err != nil {
		lg.Warn("reset_mail_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(user.Email)),
			slog.String("err", err.Error()),
		)
	}

	return nil
}

// ValidateResetToken проверяет токен сброса, не погашая его. Отдельный шаг
// нужен клиенту, чтобы убедиться в валидности ссылки до того, как
// спрашивать у пользователя новый пароль.
//
// Порядок проверок: не найден -> ErrTokenNotFound; уже погашен ->
// ErrTokenAlreadyUsed; просрочен -> ErrTokenExpired.
func (s *Service) ValidateResetToken(ctx context.Context, email, token string) error {
	const op = "service.reset.ValidateResetToken"

	row, _, err := s.lookupResetToken(ctx, email, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if row.Used() {
		return fmt.Errorf("%s: %w", op, ErrTokenAlreadyUsed)
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		return fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	return nil
}

// ResetPassword гасит токен сброса и заменяет пароль владельца; оба действия
// выполняются хранилищем в одной транзакции. После успешной замены все живые
// refresh-токены пользователя отзываются: сессии, открытые старым паролем,
// умирают вместе с ним.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	const op = "service.reset.ResetPassword"

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	row, userID, err := s.lookupResetToken(ctx, email, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if row.Used() {
		return fmt.Errorf("%s: %w", op, ErrTokenAlreadyUsed)
	}

	now := time.Now().UTC()
	if now.After(row.ExpiresAt) {
		return fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	newHash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	redeemed, err := s.storage.RedeemResetToken(ctx, row.TokenHash, userID, newHash, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !redeemed {
		// Конкурентное погашение успело раньше.
		return fmt.Errorf("%s: %w", op, ErrTokenAlreadyUsed)
	}

	if _, err := s.storage.RevokeAllRefreshTokensByUser(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("password_reset",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	return nil
}

// lookupResetToken находит токен сброса по паре {токен, владелец e-mail}.
// Неизвестный e-mail и неизвестный токен дают одинаковый ErrTokenNotFound.
func (s *Service) lookupResetToken(ctx context.Context, email, token string) (*models.ResetToken, uuid.UUID, error) {
	const op = "service.reset.lookupResetToken"

	if token == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	row, err := s.storage.ResetTokenByHashAndUser(ctx, hashToken(token), user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return row, user.ID, nil
}
