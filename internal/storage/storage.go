package storage

import (
	"context"
	"errors"
	"time"

	"github.com/matchpoint-app/auth-service/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/хэш токена).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdatePasswordHash заменяет хэш пароля пользователя.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
//
// Строки refresh_tokens никогда не удаляются: отозванные записи образуют
// историю цепочки ротации, по которой детектируется повторное предъявление.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен в БД.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshTokenIfActive атомарно (CAS по revoked) отзывает токен.
	// Возвращает:
	//   (true, nil)  — токен был активен и отозван сейчас;
	//   (false, nil) — токен существует, но уже был отозван;
	//   (false, ErrNotFound) — токен не найден.
	RevokeRefreshTokenIfActive(ctx context.Context, hash string) (bool, error)
	// RevokeAllRefreshTokensByUser отзывает все живые refresh-токены
	// пользователя; возвращает число отозванных строк.
	RevokeAllRefreshTokensByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ConfirmationTokenStorage выполняет операции над токенами подтверждения e-mail.
type ConfirmationTokenStorage interface {
	// SaveConfirmationToken сохраняет новый токен подтверждения.
	SaveConfirmationToken(ctx context.Context, token *models.ConfirmationToken) error
	// ConfirmationTokenByHash находит токен подтверждения по хэшу.
	ConfirmationTokenByHash(ctx context.Context, hash string) (*models.ConfirmationToken, error)
	// ExpireActiveConfirmationTokens принудительно просрочивает все
	// непогашенные токены пользователя (expires_at = now), не удаляя строки.
	ExpireActiveConfirmationTokens(ctx context.Context, userID uuid.UUID, now time.Time) error
	// ConfirmAndActivateUser в одной транзакции гасит токен
	// (CAS: confirmed_at IS NULL) и включает аккаунт владельца.
	// Возвращает:
	//   (uid, true, nil)  — токен погашен сейчас, аккаунт включён;
	//   (uid, false, nil) — токен уже был погашен ранее;
	//   (Nil, false, ErrNotFound) — токен не найден.
	ConfirmAndActivateUser(ctx context.Context, hash string, now time.Time) (uuid.UUID, bool, error)
}

// ResetTokenStorage выполняет операции над токенами сброса пароля.
type ResetTokenStorage interface {
	// SaveResetToken сохраняет новый токен сброса.
	SaveResetToken(ctx context.Context, token *models.ResetToken) error
	// ResetTokenByHashAndUser находит токен сброса по паре {хэш, владелец}.
	ResetTokenByHashAndUser(ctx context.Context, hash string, userID uuid.UUID) (*models.ResetToken, error)
	// ExpireActiveResetTokens принудительно просрочивает все непогашенные
	// токены сброса пользователя.
	ExpireActiveResetTokens(ctx context.Context, userID uuid.UUID, now time.Time) error
	// RedeemResetToken в одной транзакции гасит токен (CAS: reset_at IS NULL)
	// и заменяет хэш пароля владельца.
	// Возвращает:
	//   (true, nil)  — токен погашен сейчас, пароль заменён;
	//   (false, nil) — токен уже был погашен ранее;
	//   (false, ErrNotFound) — токен не найден.
	RedeemResetToken(ctx context.Context, hash string, userID uuid.UUID, newPasswordHash string, now time.Time) (bool, error)
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	ConfirmationTokenStorage
	ResetTokenStorage
	Close()
}
