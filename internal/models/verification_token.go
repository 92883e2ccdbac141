package models

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmationToken — одноразовый токен подтверждения e-mail.
//
// Инвариант: ConfirmedAt выставляется не более одного раза; строка после
// этого терминальна. Активной (ConfirmedAt == nil и не просроченной) может
// быть только одна строка на пользователя — при выпуске новой предыдущие
// принудительно просрочиваются, но не удаляются.
type ConfirmationToken struct {
	ID        uuid.UUID
	TokenHash string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	// ConfirmedAt — момент погашения; nil, пока токен не использован.
	ConfirmedAt *time.Time
}

// Confirmed сообщает, находится ли токен в терминальном состоянии.
func (t *ConfirmationToken) Confirmed() bool { return t.ConfirmedAt != nil }

// ResetToken — одноразовый токен сброса пароля.
// Та же модель одноразовости, что и у ConfirmationToken, с ключом ResetAt.
type ResetToken struct {
	ID        uuid.UUID
	TokenHash string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	// ResetAt — момент погашения; nil, пока токен не использован.
	ResetAt *time.Time
}

// Used сообщает, находится ли токен в терминальном состоянии.
func (t *ResetToken) Used() bool { return t.ResetAt != nil }
