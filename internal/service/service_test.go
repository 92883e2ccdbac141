package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/matchpoint-app/auth-service/internal/config"
	"github.com/matchpoint-app/auth-service/mocks"
)

// testCfg — конфигурация auth для юнит-тестов.
func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            "test-secret",
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      720 * time.Hour,
		ConfirmationTokenTTL: 15 * time.Minute,
		ResetTokenTTL:        15 * time.Minute,
		Issuer:               "auth-service",
		Audience:             []string{"matchpoint-api"},
	}
}

// newSvc собирает Service поверх gomock-хранилища и gomock-нотификатора.
func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *mocks.MockNotifier) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	st := mocks.NewMockStorage(ctrl)
	nt := mocks.NewMockNotifier(ctrl)

	return New(st, testCfg(), nt), st, nt
}

// mustHashPassword — bcrypt с минимальной стоимостью, чтобы тесты не тормозили.
func mustHashPassword(t *testing.T, password string) string {
	t.Helper()

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return string(h)
}
