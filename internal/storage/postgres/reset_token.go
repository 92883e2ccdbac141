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

// SaveResetToken сохраняет новый токен сброса пароля.
func (s *Storage) SaveResetToken(ctx context.Context, token *models.ResetToken) error {
	const op = "storage.postgres.SaveResetToken"

	query := `
		INSERT INTO reset_tokens(id, token_hash, user_id, created_at, expires_at, reset_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(ctx, query,
		token.ID,
		token.TokenHash,
		token.UserID,
		token.CreatedAt,
		token.ExpiresAt,
		token.ResetAt,
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

// ResetTokenByHashAndUser находит токен сброса по паре {хэш, владелец}.
// Поиск по паре исключает погашение чужого токена при совпадении хэшей.
func (s *Storage) ResetTokenByHashAndUser(ctx context.Context, hash string, userID uuid.UUID) (*models.ResetToken, error) {
	const op = "storage.postgres.ResetTokenByHashAndUser"

	query := `
		SELECT id, token_hash, user_id, created_at, expires_at, reset_at
		FROM reset_tokens
		WHERE token_hash = $1 AND user_id = $2
	`

	var token models.ResetToken
	err := s.db.QueryRow(ctx, query, hash, userID).Scan(
		&token.ID,
		&token.TokenHash,
		&token.UserID,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.ResetAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &token, nil
}

// ExpireActiveResetTokens принудительно просрочивает все непогашенные токены
// сброса пользователя: expires_at = now. Строки остаются в таблице.
func (s *Storage) ExpireActiveResetTokens(ctx context.Context, userID uuid.UUID, now time.Time) error {
	const op = "storage.postgres.ExpireActiveResetTokens"

	query := `
		UPDATE reset_tokens
		SET expires_at = $2
		WHERE user_id = $1 AND reset_at IS NULL AND expires_at > $2
	`

	if _, err := s.db.Exec(ctx, query, userID, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RedeemResetToken гасит токен сброса и заменяет хэш пароля владельца в одной
// транзакции. Переход reset_at NULL→now — одиночный UPDATE с условием по
// NULL, поэтому из конкурентных погашений выигрывает ровно одно.
//
// Возвращает:
//
//	(true, nil)  — токен погашен сейчас, пароль заменён;
//	(false, nil) — токен уже был погашен ранее;
//	(false, ErrNotFound) — токен не найден.
func (s *Storage) RedeemResetToken(ctx context.Context, hash string, userID uuid.UUID, newPasswordHash string, now time.Time) (bool, error) {
	const op = "storage.postgres.RedeemResetToken"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upd = `
		UPDATE reset_tokens
		SET reset_at = $3
		WHERE token_hash = $1 AND user_id = $2 AND reset_at IS NULL
		RETURNING id
	`

	var tokenID uuid.UUID
	err = tx.QueryRow(ctx, upd, hash, userID, now).Scan(&tokenID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		const sel = `
			SELECT id
			FROM reset_tokens
			WHERE token_hash = $1 AND user_id = $2
		`

		err = tx.QueryRow(ctx, sel, hash, userID).Scan(&tokenID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
			}

			return false, fmt.Errorf("%s: %w", op, err)
		}

		return false, nil
	}

	const updPassword = `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, updPassword, userID, newPasswordHash, now); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}
