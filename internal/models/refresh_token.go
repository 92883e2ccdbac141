package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — строка таблицы refresh_tokens: одно звено цепочки ротации.
//
// Описание:
//   - в БД хранится только sha256-хэш секрета (base64url), не сам секрет;
//   - строка создаётся при логине и при каждой успешной ротации;
//   - единственная мутация — Revoked false→true; обратного перехода нет;
//   - строки никогда не удаляются: отозванные записи — это история цепочки,
//     по которой детектируется повторное предъявление (reuse).
type RefreshToken struct {
	ID               uuid.UUID
	RefreshTokenHash string
	UserID           uuid.UUID
	CreatedAt        time.Time
	ExpiresAt        time.Time
	Revoked          bool
}
