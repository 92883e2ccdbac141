package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpoint-app/auth-service/internal/cache"
	"github.com/matchpoint-app/auth-service/internal/models"
	"github.com/matchpoint-app/auth-service/internal/pkg/log"
	"github.com/matchpoint-app/auth-service/internal/storage"

	"github.com/google/uuid"
)

// RefreshToken выполняет протокол ротации: предъявленный refresh-токен
// атомарно сжигается, взамен выпускается новая пара access+refresh.
//
// Порядок проверок:
//  1. пустая строка -> ErrInvalidToken;
//  2. хэш не найден в хранилище -> ErrTokenNotFound;
//  3. строка уже отозвана -> повторное предъявление: отзываются ВСЕ живые
//     refresh-токены владельца, возвращается ErrTokenReuseDetected;
//  4. строка просрочена -> ErrTokenExpired;
//  5. CAS-отзыв текущей строки; проигрыш гонки конкурентной ротации
//     трактуется как reuse (п. 3) — из двух одновременных ротаций одного
//     токена выигрывает ровно одна;
//  6. выпуск новой пары; новая строка принадлежит тому же пользователю.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.refresh.RefreshToken"

	lg := log.From(ctx)

	if refreshToken == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	hash := hashToken(refreshToken)

	token, err := s.lookupRefreshToken(ctx, hash)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if token.Revoked {
		if err := s.teardownSessions(ctx, token.UserID, "revoked_token_presented"); err != nil {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenReuseDetected)
	}

	if time.Now().UTC().After(token.ExpiresAt) {
		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", token.UserID.String()),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	// Сжигаем текущее звено цепочки. Ровно один из конкурентных вызовов
	// получит rotated=true; проигравший видит уже отозванную строку — reuse.
	rotated, err := s.storage.RevokeRefreshTokenIfActive(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !rotated {
		if err := s.teardownSessions(ctx, token.UserID, "concurrent_rotation_lost"); err != nil {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenReuseDetected)
	}

	s.cacheMarkRevoked(ctx, hash)

	user, err := s.storage.UserByID(ctx, token.UserID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	return s.issueTokenPair(ctx, user)
}

// lookupRefreshToken читает состояние refresh-токена: сначала из кэша
// (если он сконфигурирован), затем из Postgres. Кэш — только ускорение
// чтения; авторитетное состояние и все CAS-переходы живут в Postgres.
func (s *Service) lookupRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const op = "service.refresh.lookupRefreshToken"

	lg := log.From(ctx)

	if s.rcache != nil {
		entry, found, err := s.rcache.Get(ctx, hash)
		if err != nil {
			// Кэш недоступен — молча идём в БД.
			lg.Warn("refresh_cache_get_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if found {
			return &models.RefreshToken{
				RefreshTokenHash: hash,
				UserID:           entry.UserID,
				ExpiresAt:        entry.ExpiresAt,
				Revoked:          entry.Revoked,
			}, nil
		}
	}

	token, err := s.storage.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_lookup_not_found",
				slog.String("op", op),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// teardownSessions отзывает все живые refresh-токены пользователя.
// Это и есть защитная реакция на reuse: ошибка отзыва возвращается наверх
// вместо ErrTokenReuseDetected — побочный эффект важнее кода ошибки.
func (s *Service) teardownSessions(ctx context.Context, userID uuid.UUID, reason string) error {
	const op = "service.refresh.teardownSessions"

	n, err := s.storage.RevokeAllRefreshTokensByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Warn("refresh_reuse_detected",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.String("reason", reason),
		slog.Int64("revoked", n),
	)

	return nil
}

// cacheSet кладёт свежую строку refresh-токена в кэш (best-effort).
func (s *Service) cacheSet(ctx context.Context, token *models.RefreshToken) {
	if s.rcache == nil {
		return
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return
	}

	entry := &cache.RefreshEntry{
		UserID:    token.UserID,
		Revoked:   token.Revoked,
		ExpiresAt: token.ExpiresAt,
	}

	if err := s.rcache.Set(ctx, token.RefreshTokenHash, entry, ttl); err != nil {
		log.From(ctx).Warn("refresh_cache_set_failed",
			slog.String("err", err.Error()),
		)
	}
}

// cacheMarkRevoked помечает хэш отозванным в кэше (best-effort).
// Вызывается только после успешного отзыва в Postgres, поэтому кэш не может
// объявить живой токен отозванным.
func (s *Service) cacheMarkRevoked(ctx context.Context, hash string) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.MarkRevoked(ctx, hash); err != nil {
		log.From(ctx).Warn("refresh_cache_revoke_failed",
			slog.String("err", err.Error()),
		)
	}
}
