package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stc_back_end/internal/models"
	"stc_back_end/internal/utils"
)

func newPasswordEnv(t *testing.T) (*authEnv, *PasswordService, *models.User) {
	t.Helper()
	e := newAuthEnv(t)
	svc := NewPasswordService(e.f.users, e.sessions, e.mailer)
	u := e.addUser(t, "asha@example.com", "oldpassword", nil)
	return e, svc, u
}

func TestForgotVerifyReset(t *testing.T) {
	e, svc, u := newPasswordEnv(t)
	ctx := context.Background()

	require.NoError(t, svc.Forgot(ctx, "asha@example.com"))
	require.Equal(t, 1, e.mailer.count())
	otp, err := e.mr.Get("pwd_otp:asha@example.com")
	require.NoError(t, err)
	assert.Contains(t, e.mailer.last().Body, otp)

	_, err = svc.VerifyOTP(ctx, "asha@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidInput)

	token, err := svc.VerifyOTP(ctx, "Asha@Example.com", otp)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, token, u.ResetPasswordToken)

	// l'OTP est à usage unique
	_, err = svc.VerifyOTP(ctx, "asha@example.com", otp)
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.Reset(ctx, token, "brandnewpass"))
	ok, err := utils.VerifyPassword("brandnewpass", u.Password)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, u.ResetPasswordToken)

	assert.ErrorIs(t, svc.Reset(ctx, token, "anotherpass"), ErrInvalidInput)
}

func TestForgot_UnknownEmail(t *testing.T) {
	_, svc, _ := newPasswordEnv(t)

	assert.ErrorIs(t, svc.Forgot(context.Background(), "ghost@example.com"), ErrNotFound)
}

func TestReset_ExpiredToken(t *testing.T) {
	_, svc, u := newPasswordEnv(t)
	expired := time.Now().Add(-time.Minute)
	u.ResetPasswordToken, u.ResetPasswordExpires = "tok", &expired

	err := svc.Reset(context.Background(), "tok", "brandnewpass")

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChangePassword(t *testing.T) {
	_, svc, u := newPasswordEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Change(ctx, u.ID, "oldpassword", "oldpassword"), ErrInvalidInput)
	assert.ErrorIs(t, svc.Change(ctx, u.ID, "oldpassword", "short"), ErrInvalidInput)

	err := svc.Change(ctx, u.ID, "wrongpassword", "brandnewpass")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Change(ctx, u.ID, "oldpassword", "brandnewpass"))
	ok, err := utils.VerifyPassword("brandnewpass", u.Password)
	require.NoError(t, err)
	assert.True(t, ok)
}
