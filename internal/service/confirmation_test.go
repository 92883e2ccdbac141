package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-app/auth-service/internal/models"
	"github.com/matchpoint-app/auth-service/internal/storage"
)

func confirmationRow(userID uuid.UUID, plain string, ttl time.Duration) *models.ConfirmationToken {
	now := time.Now().UTC()
	return &models.ConfirmationToken{
		ID:        uuid.New(),
		TokenHash: hashToken(plain),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestConfirmEmail_Success(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	userID := uuid.New()
	const plain = "confirm-me"
	row := confirmationRow(userID, plain, time.Hour)

	st.EXPECT().ConfirmationTokenByHash(gomock.Any(), hashToken(plain)).Return(row, nil)
	st.EXPECT().ConfirmAndActivateUser(gomock.Any(), hashToken(plain), gomock.Any()).
		Return(userID, true, nil)

	require.NoError(t, svc.ConfirmEmail(context.Background(), plain))
}

func TestConfirmEmail_Empty(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	err := svc.ConfirmEmail(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestConfirmEmail_NotFound(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	st.EXPECT().ConfirmationTokenByHash(gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotFound)

	err := svc.ConfirmEmail(context.Background(), "unknown")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConfirmEmail_AlreadyUsed(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	const plain = "used-token"
	row := confirmationRow(uuid.New(), plain, time.Hour)
	used := time.Now().UTC().Add(-time.Minute)
	row.ConfirmedAt = &used

	st.EXPECT().ConfirmationTokenByHash(gomock.Any(), hashToken(plain)).Return(row, nil)

	err := svc.ConfirmEmail(context.Background(), plain)
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

// Погашенный И просроченный токен: "уже использован" побеждает "просрочен".
func TestConfirmEmail_UsedBeatsExpired(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	const plain = "used-and-expired"
	row := confirmationRow(uuid.New(), plain, -time.Hour)
	used := time.Now().UTC().Add(-2 * time.Hour)
	row.ConfirmedAt = &used

	st.EXPECT().ConfirmationTokenByHash(gomock.Any(), hashToken(plain)).Return(row, nil)

	err := svc.ConfirmEmail(context.Background(), plain)
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestConfirmEmail_Expired(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	const plain = "stale-token"
	row := confirmationRow(uuid.New(), plain, -time.Minute)

	st.EXPECT().ConfirmationTokenByHash(gomock.Any(), hashToken(plain)).Return(row, nil)

	err := svc.ConfirmEmail(context.Background(), plain)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestConfirmEmail_ConcurrentRedemptionLost(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	const plain = "contended-token"
	row := confirmationRow(uuid.New(), plain, time.Hour)

	st.EXPECT().ConfirmationTokenByHash(gomock.Any(), hashToken(plain)).Return(row, nil)
	// Конкурент погасил токен между чтением и CAS.
	st.EXPECT().ConfirmAndActivateUser(gomock.Any(), hashToken(plain), gomock.Any()).
		Return(row.UserID, false, nil)

	err := svc.ConfirmEmail(context.Background(), plain)
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestResendConfirmation_Success(t *testing.T) {
	t.Parallel()

	svc, st, nt := newSvc(t)

	user := testUser()
	user.Active = false

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	// Прежние непогашенные токены принудительно просрочиваются.
	st.EXPECT().ExpireActiveConfirmationTokens(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().SaveConfirmationToken(gomock.Any(), gomock.Any()).Return(nil)
	nt.EXPECT().SendConfirmation(gomock.Any(), user.Email, gomock.Any()).Return(nil)

	require.NoError(t, svc.ResendConfirmation(context.Background(), user.Email))
}

func TestResendConfirmation_AlreadyConfirmed(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	user := testUser() // Active=true

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)

	err := svc.ResendConfirmation(context.Background(), user.Email)
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestResendConfirmation_UnknownEmailSilent(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	// Существование адреса наружу не раскрывается.
	require.NoError(t, svc.ResendConfirmation(context.Background(), "ghost@matchpoint.test"))
}

func TestResendConfirmation_MailFailureSwallowed(t *testing.T) {
	t.Parallel()

	svc, st, nt := newSvc(t)

	user := testUser()
	user.Active = false

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().ExpireActiveConfirmationTokens(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().SaveConfirmationToken(gomock.Any(), gomock.Any()).Return(nil)
	nt.EXPECT().SendConfirmation(gomock.Any(), user.Email, gomock.Any()).
		Return(errors.New("smtp: connection refused"))

	// Токен уже сохранён; ошибка доставки не валит операцию.
	require.NoError(t, svc.ResendConfirmation(context.Background(), user.Email))
}
