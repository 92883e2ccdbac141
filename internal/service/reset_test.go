package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-app/auth-service/internal/models"
	"github.com/matchpoint-app/auth-service/internal/storage"
)

func resetRow(userID uuid.UUID, plain string, ttl time.Duration) *models.ResetToken {
	now := time.Now().UTC()
	return &models.ResetToken{
		ID:        uuid.New(),
		TokenHash: hashToken(plain),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestForgotPassword_Success(t *testing.T) {
	t.Parallel()

	svc, st, nt := newSvc(t)

	user := testUser()

	var savedHash string

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().ExpireActiveResetTokens(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().SaveResetToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tok *models.ResetToken) error {
			savedHash = tok.TokenHash
			return nil
		})
	nt.EXPECT().SendPasswordReset(gomock.Any(), user.Email, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, plain string) error {
			// В письме plain-секрет, в БД только его хэш.
			require.Equal(t, savedHash, hashToken(plain))
			return nil
		})

	require.NoError(t, svc.ForgotPassword(context.Background(), user.Email))
}

func TestForgotPassword_UnknownEmailSilent(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@matchpoint.test"))
}

func TestForgotPassword_BadEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	err := svc.ForgotPassword(context.Background(), "not-an-email")
	require.ErrorIs(t, err, ErrInvalidEmail)
}

func TestValidateResetToken_Success(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	user := testUser()
	const plain = "reset-me"
	row := resetRow(user.ID, plain, time.Hour)

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().ResetTokenByHashAndUser(gomock.Any(), hashToken(plain), user.ID).Return(row, nil)

	// Проверка не гасит токен: RedeemResetToken не вызывается.
	require.NoError(t, svc.ValidateResetToken(context.Background(), user.Email, plain))
}

func TestValidateResetToken_Failures(t *testing.T) {
	t.Parallel()

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()

		svc, st, _ := newSvc(t)
		st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

		err := svc.ValidateResetToken(context.Background(), "ghost@matchpoint.test", "tok")
		require.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		svc, st, _ := newSvc(t)
		user := testUser()

		st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
		st.EXPECT().ResetTokenByHashAndUser(gomock.Any(), gomock.Any(), user.ID).
			Return(nil, storage.ErrNotFound)

		err := svc.ValidateResetToken(context.Background(), user.Email, "wrong")
		require.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("already used", func(t *testing.T) {
		t.Parallel()

		svc, st, _ := newSvc(t)
		user := testUser()

		const plain = "used-reset"
		row := resetRow(user.ID, plain, time.Hour)
		used := time.Now().UTC().Add(-time.Minute)
		row.ResetAt = &used

		st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
		st.EXPECT().ResetTokenByHashAndUser(gomock.Any(), hashToken(plain), user.ID).Return(row, nil)

		err := svc.ValidateResetToken(context.Background(), user.Email, plain)
		require.ErrorIs(t, err, ErrTokenAlreadyUsed)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		svc, st, _ := newSvc(t)
		user := testUser()

		const plain = "stale-reset"
		row := resetRow(user.ID, plain, -time.Minute)

		st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
		st.EXPECT().ResetTokenByHashAndUser(gomock.Any(), hashToken(plain), user.ID).Return(row, nil)

		err := svc.ValidateResetToken(context.Background(), user.Email, plain)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSvc(t)

		err := svc.ValidateResetToken(context.Background(), "ok@matchpoint.test", "")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestResetPassword_Success(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	user := testUser()
	const plain = "reset-me"
	row := resetRow(user.ID, plain, time.Hour)

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().ResetTokenByHashAndUser(gomock.Any(), hashToken(plain), user.ID).Return(row, nil)
	st.EXPECT().RedeemResetToken(gomock.Any(), hashToken(plain), user.ID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ uuid.UUID, newHash string, _ time.Time) (bool, error) {
			// Хэш нового пароля, не plain.
			require.True(t, checkPassword(newHash, "N3w!passwd"))
			return true, nil
		})
	// Смена пароля убивает все живые сессии.
	st.EXPECT().RevokeAllRefreshTokensByUser(gomock.Any(), user.ID).Return(int64(2), nil)

	require.NoError(t, svc.ResetPassword(context.Background(), user.Email, plain, "N3w!passwd"))
}

func TestResetPassword_WeakNewPassword(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	err := svc.ResetPassword(context.Background(), "ok@matchpoint.test", "tok", "weak")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestResetPassword_ConcurrentRedemptionLost(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	user := testUser()
	const plain = "contended-reset"
	row := resetRow(user.ID, plain, time.Hour)

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().ResetTokenByHashAndUser(gomock.Any(), hashToken(plain), user.ID).Return(row, nil)
	// Конкурент погасил токен между чтением и CAS.
	st.EXPECT().RedeemResetToken(gomock.Any(), hashToken(plain), user.ID, gomock.Any(), gomock.Any()).
		Return(false, nil)

	err := svc.ResetPassword(context.Background(), user.Email, plain, "N3w!passwd")
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestResetPassword_AlreadyUsed(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	user := testUser()
	const plain = "used-reset"
	row := resetRow(user.ID, plain, time.Hour)
	used := time.Now().UTC().Add(-time.Minute)
	row.ResetAt = &used

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().ResetTokenByHashAndUser(gomock.Any(), hashToken(plain), user.ID).Return(row, nil)

	err := svc.ResetPassword(context.Background(), user.Email, plain, "N3w!passwd")
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestResetPassword_Expired(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)

	user := testUser()
	const plain = "stale-reset"
	row := resetRow(user.ID, plain, -time.Minute)

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().ResetTokenByHashAndUser(gomock.Any(), hashToken(plain), user.ID).Return(row, nil)

	err := svc.ResetPassword(context.Background(), user.Email, plain, "N3w!passwd")
	require.ErrorIs(t, err, ErrTokenExpired)
}
