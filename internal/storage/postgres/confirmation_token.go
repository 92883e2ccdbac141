package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matchpoint-app/auth-service/internal/models"
	"github.com/matchpoint-app/auth-service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SaveConfirmationToken сохраняет новый токен подтверждения e-mail.
func (s *Storage) SaveConfirmationToken(ctx context.Context, token *models.ConfirmationToken) error {
	const op = "storage.postgres.SaveConfirmationToken"

	query := `
		INSERT INTO confirmation_tokens(id, token_hash, user_id, created_at, expires_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(ctx, query,
		token.ID,
		token.TokenHash,
		token.UserID,
		token.CreatedAt,
		token.ExpiresAt,
		token.ConfirmedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConfirmationTokenByHash находит токен подтверждения по хэшу.
func (s *Storage) ConfirmationTokenByHash(ctx context.Context, hash string) (*models.ConfirmationToken, error) {
	const op = "storage.postgres.ConfirmationTokenByHash"

	query := `
		SELECT id, token_hash, user_id, created_at, expires_at, confirmed_at
		FROM confirmation_tokens
		WHERE token_hash = $1
	`

	var token models.ConfirmationToken
	err := s.db.QueryRow(ctx, query, hash).Scan(
		&token.ID,
		&token.TokenHash,
		&token.UserID,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.ConfirmedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &token, nil
}

// ExpireActiveConfirmationTokens принудительно просрочивает все непогашенные
// токены подтверждения пользователя: expires_at = now. Строки остаются в
// таблице как история выпусков.
func (s *Storage) ExpireActiveConfirmationTokens(ctx context.Context, userID uuid.UUID, now time.Time) error {
	const op = "storage.postgres.ExpireActiveConfirmationTokens"

	query := `
		UPDATE confirmation_tokens
		SET expires_at = $2
		WHERE user_id = $1 AND confirmed_at IS NULL AND expires_at > $2
	`

	if _, err := s.db.Exec(ctx, query, userID, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConfirmAndActivateUser гасит токен подтверждения и включает аккаунт
// владельца в одной транзакции. Переход confirmed_at NULL→now выполняется
// одним UPDATE с условием по NULL: из конкурентных погашений выигрывает
// ровно одно.
//
// Возвращает:
//
//	(uid, true, nil)  — токен погашен сейчас, аккаунт включён;
//	(uid, false, nil) — токен уже был погашен ранее;
//	(uuid.Nil, false, ErrNotFound) — токен не найден.
func (s *Storage) ConfirmAndActivateUser(ctx context.Context, hash string, now time.Time) (uuid.UUID, bool, error) {
	const op = "storage.postgres.ConfirmAndActivateUser"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upd = `
		UPDATE confirmation_tokens
		SET confirmed_at = $2
		WHERE token_hash = $1 AND confirmed_at IS NULL
		RETURNING user_id
	`

	var userID uuid.UUID
	err = tx.QueryRow(ctx, upd, hash, now).Scan(&userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, fmt.Errorf("%s: %w", op, err)
		}

		// CAS не прошёл: либо токена нет, либо он уже погашен.
		const sel = `
			SELECT user_id
			FROM confirmation_tokens
			WHERE token_hash = $1
		`

		err = tx.QueryRow(ctx, sel, hash).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return uuid.Nil, false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
			}

			return uuid.Nil, false, fmt.Errorf("%s: %w", op, err)
		}

		return userID, false, nil
	}

	const activate = `
		UPDATE users
		SET active = TRUE, updated_at = $2
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, activate, userID, now); err != nil {
		return uuid.Nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return userID, true, nil
}
