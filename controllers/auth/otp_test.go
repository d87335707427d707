package authController

import (
	"testing"
	"time"

	"liftworks/models"
	"liftworks/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemCodeSpendsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ops@example.com", models.RoleUser)

	code, err := issueCode(db, user.ID, models.OTPVerifyEmail)
	require.NoError(t, err)
	require.Len(t, code, 6)

	var stored models.OneTimeCode
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&stored).Error)
	assert.NotEqual(t, code, stored.CodeHash)

	_, err = redeemCode(db, user.Email, models.OTPResetPassword, code)
	assert.ErrorIs(t, err, ErrCodeInvalid, "codes only redeem for their own purpose")

	got, err := redeemCode(db, user.Email, models.OTPVerifyEmail, code)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = redeemCode(db, user.Email, models.OTPVerifyEmail, code)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestRedeemCodeLocksAfterRepeatedMisses(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ops@example.com", models.RoleUser)
	code, err := issueCode(db, user.ID, models.OTPResetPassword)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 1; i < MaxOTPAttempts; i++ {
		_, err = redeemCode(db, user.Email, models.OTPResetPassword, wrong)
		assert.ErrorIs(t, err, ErrCodeInvalid)
	}
	_, err = redeemCode(db, user.Email, models.OTPResetPassword, wrong)
	assert.ErrorIs(t, err, ErrCodeExhausted)

	_, err = redeemCode(db, user.Email, models.OTPResetPassword, code)
	assert.ErrorIs(t, err, ErrCodeExhausted, "the right code no longer works")
}

func TestIssueCodeRetiresOlderCodes(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ops@example.com", models.RoleUser)

	first, err := issueCode(db, user.ID, models.OTPVerifyEmail)
	require.NoError(t, err)
	second, err := issueCode(db, user.ID, models.OTPVerifyEmail)
	require.NoError(t, err)

	if first != second {
		_, err = redeemCode(db, user.Email, models.OTPVerifyEmail, first)
		assert.ErrorIs(t, err, ErrCodeInvalid)
	}
	_, err = redeemCode(db, user.Email, models.OTPVerifyEmail, second)
	assert.NoError(t, err)

	_, err = resendCode(db, user, models.OTPVerifyEmail)
	assert.ErrorIs(t, err, ErrCodeTooSoon)
}

func TestRedeemCodeRejectsExpired(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ops@example.com", models.RoleUser)
	code, err := issueCode(db, user.ID, models.OTPVerifyEmail)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.OneTimeCode{}).Where("user_id = ?", user.ID).
		Update("expires_at", time.Now().Add(-time.Second)).Error)

	_, err = redeemCode(db, user.Email, models.OTPVerifyEmail, code)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	_, err = redeemCode(db, "nobody@example.com", models.OTPVerifyEmail, code)
	assert.ErrorIs(t, err, ErrUnknownEmail)
}
