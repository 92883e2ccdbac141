package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-app/auth-service/internal/models"
	"github.com/matchpoint-app/auth-service/internal/storage"
)

func testUser() *models.User {
	return &models.User{
		ID:     uuid.New(),
		Email:  "captain@matchpoint.test",
		Role:   models.RolePlayer,
		Player: &models.PlayerProfile{Position: "GK", ShirtNumber: 1},
		Active: true,
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)
	user := testUser()

	signed, err := svc.generateAccessToken(context.Background(), user, time.Now().UTC())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	uid, email, role, err := svc.validateAccessToken(signed)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.Equal(t, user.Email, email)
	require.Equal(t, user.Role, role)
}

func TestAccessToken_Expired(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	// Выпускаем токен "в прошлом": с учётом leeway в 5s он уже мёртв.
	past := time.Now().UTC().Add(-svc.cfg.AccessTokenTTL - time.Minute)
	signed, err := svc.generateAccessToken(context.Background(), testUser(), past)
	require.NoError(t, err)

	_, _, _, err = svc.validateAccessToken(signed)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	cfg := testCfg()
	cfg.JWTSecret = "other-secret"
	other := New(svc.storage, cfg, nil)

	signed, err := other.generateAccessToken(context.Background(), testUser(), time.Now().UTC())
	require.NoError(t, err)

	_, _, _, err = svc.validateAccessToken(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessToken_WrongIssuer(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	cfg := testCfg()
	cfg.Issuer = "someone-else"
	other := New(svc.storage, cfg, nil)

	signed, err := other.generateAccessToken(context.Background(), testUser(), time.Now().UTC())
	require.NoError(t, err)

	_, _, _, err = svc.validateAccessToken(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessToken_NoneAlgorithmRejected(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "captain@matchpoint.test",
		Issuer:  svc.cfg.Issuer,
	})
	signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, _, err = svc.validateAccessToken(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessToken_Garbage(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, _, _, err := svc.validateAccessToken(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestGenerateOpaqueToken_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		tok, err := generateOpaqueToken()
		require.NoError(t, err)
		require.NotEmpty(t, tok)

		_, dup := seen[tok]
		require.False(t, dup, "duplicate opaque token")
		seen[tok] = struct{}{}
	}
}

func TestHashToken_DeterministicAndOpaque(t *testing.T) {
	t.Parallel()

	h1 := hashToken("secret-one")
	h2 := hashToken("secret-one")
	h3 := hashToken("secret-two")

	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
	require.NotContains(t, h1, "secret")
}

func TestGenerateRefreshToken_CollisionRetry(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)
	userID := uuid.New()

	gomock.InOrder(
		st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists),
		st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil),
	)

	plain, expiresAt, err := svc.generateRefreshToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, plain)
	require.WithinDuration(t, time.Now().UTC().Add(svc.cfg.RefreshTokenTTL), expiresAt, time.Minute)
}

func TestGenerateRefreshToken_CollisionExhausted(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).
		Return(storage.ErrAlreadyExists).Times(5)

	_, _, err := svc.generateRefreshToken(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrRefreshTokenCollision)
}
