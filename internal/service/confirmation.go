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

// issueConfirmationToken выпускает токен подтверждения e-mail: прежние
// непогашенные токены пользователя принудительно просрочиваются (строки
// остаются в таблице), создаётся новая запись, письмо со ссылкой уходит
// через notifier. Ошибка доставки письма не валит операцию: токен уже
// сохранён, пользователь может запросить повторную отправку.
func (s *Service) issueConfirmationToken(ctx context.Context, user *models.User) error {
	const op = "service.confirmation.issueConfirmationToken"

	lg := log.From(ctx)

	now := time.Now().UTC()
	if err := s.storage.ExpireActiveConfirmationTokens(ctx, user.ID, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	plain, err := generateOpaqueToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	token := &models.ConfirmationToken{
		ID:        uuid.New(),
		TokenHash: hashToken(plain),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ConfirmationTokenTTL),
	}

	if err := s.storage.SaveConfirmationToken(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.notifier.SendConfirmation(ctx, user.Email, plain); err != nil {
		lg.Warn("confirmation_mail_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(user.Email)),
			slog.String("err", err.Error()),
		)
	}

	return nil
}

// ConfirmEmail гасит токен подтверждения и включает аккаунт владельца.
//
// Порядок проверок: не найден -> ErrTokenNotFound; уже погашен ->
// ErrTokenAlreadyUsed; просрочен -> ErrTokenExpired. Погашение и включение
// аккаунта выполняются хранилищем в одной транзакции; из конкурентных
// погашений одного токена выигрывает ровно одно, остальные получают
// ErrTokenAlreadyUsed.
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	const op = "service.confirmation.ConfirmEmail"

	if token == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	hash := hashToken(token)

	row, err := s.storage.ConfirmationTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if row.Confirmed() {
		return fmt.Errorf("%s: %w", op, ErrTokenAlreadyUsed)
	}

	now := time.Now().UTC()
	if now.After(row.ExpiresAt) {
		return fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	userID, confirmed, err := s.storage.ConfirmAndActivateUser(ctx, hash, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !confirmed {
		// Конкурентное погашение успело раньше.
		return fmt.Errorf("%s: %w", op, ErrTokenAlreadyUsed)
	}

	log.From(ctx).Info("email_confirmed",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	return nil
}

// ResendConfirmation повторно выпускает токен подтверждения.
// Для уже включённого аккаунта возвращает ErrAlreadyConfirmed; прежние
// непогашенные токены становятся непригодными (см. issueConfirmationToken).
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	const op = "service.confirmation.ResendConfirmation"

	normEmail, err := validateEmail(email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Наружу не раскрываем, существует ли такой e-mail.
			log.From(ctx).Info("resend_unknown_email",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Active {
		return fmt.Errorf("%s: %w", op, ErrAlreadyConfirmed)
	}

	if err := s.issueConfirmationToken(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
