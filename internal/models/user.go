package models

import (
	"time"

	"github.com/google/uuid"
)

// Role — дискриминатор варианта учётной записи.
// Вместо иерархии наследования (базовый пользователь / игрок)
// используется явный тег роли плюс опциональный профиль игрока.
type Role string

const (
	// RoleManager — организатор лиги: управляет командами и расписанием.
	RoleManager Role = "manager"
	// RolePlayer — игрок: участвует в матчах, имеет профиль игрока.
	RolePlayer Role = "player"
)

// Valid сообщает, известна ли роль сервису.
func (r Role) Valid() bool {
	return r == RoleManager || r == RolePlayer
}

// PlayerProfile — данные, специфичные для роли player.
// Хранятся в nullable-колонках таблицы users; у manager профиль отсутствует.
type PlayerProfile struct {
	Position    string
	ShirtNumber int32
}

// User — учётная запись в системе.
//
// Active — флаг включённости аккаунта: до подтверждения e-mail аккаунт
// создаётся выключенным (Active=false) и логин для него запрещён.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	// Player заполнен только для Role == RolePlayer.
	Player    *PlayerProfile
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
