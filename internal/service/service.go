// service содержит бизнес-логику auth-сервиса:
// регистрацию с подтверждением e-mail, аутентификацию, ротацию
// refresh-токенов с детекцией повторного предъявления, сброс пароля
// и работу с хранилищем через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Только этот пакет выпускает и проверяет access-токены: подпись
//     централизована, другие слои оперируют готовыми строками.
//   - Ошибки возвращаются и далее маппятся
//     транспортом на HTTP-статусы (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/matchpoint-app/auth-service/internal/cache"
	"github.com/matchpoint-app/auth-service/internal/config"
	"github.com/matchpoint-app/auth-service/internal/notify"
	"github.com/matchpoint-app/auth-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Ошибка одна на оба случая: наружу не раскрывается, что именно не совпало.
	// Транспорт: 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled — аккаунт существует, но выключен (e-mail не подтверждён
	// или аккаунт заблокирован). Транспорт: 403.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи.
	// Транспорт: 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenNotFound — предъявленный opaque-токен отсутствует в хранилище.
	// Транспорт: 401 для refresh, 404 для токенов подтверждения/сброса.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExpired — срок действия токена истёк.
	// Транспорт: 401 для access/refresh, 410 для токенов подтверждения/сброса.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenAlreadyUsed — одноразовый токен (подтверждение/сброс) уже был
	// погашен ранее. Транспорт: 409.
	ErrTokenAlreadyUsed = errors.New("token already used")

	// ErrTokenRevoked — refresh-токен отозван явным logout.
	// Транспорт: 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrTokenReuseDetected — отозванный ротацией refresh-токен предъявлен
	// повторно: признак кражи токена или бага клиента. Перед возвратом ошибки
	// сервис отзывает ВСЕ живые refresh-токены владельца. Транспорт: 401.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")

	// ErrEmailTaken — e-mail уже занят другим пользователем.
	// Транспорт: 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrAlreadyConfirmed — повторный запрос подтверждения для уже
	// включённого аккаунта. Транспорт: 409.
	ErrAlreadyConfirmed = errors.New("email already confirmed")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный
	// opaque-токен (редкий случай коллизий хэша в БД после нескольких ретраев).
	// Транспорт: 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности.
	// Транспорт: 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidRole — неизвестная роль при регистрации. Транспорт: 400.
	ErrInvalidRole = errors.New("invalid role")
)

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	storage  storage.Storage
	cfg      config.AuthConfig
	notifier notify.Notifier
	rcache   cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service. Если notifier == nil,
// используется notify.Noop (письма молча отбрасываются).
func New(storage storage.Storage, cfg config.AuthConfig, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}

	return &Service{
		storage:  storage,
		cfg:      cfg,
		notifier: notifier,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
