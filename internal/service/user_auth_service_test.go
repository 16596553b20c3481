package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReferralQueue struct {
	enabled bool
	err     error
	calls   [][2]uint
}

func (q *stubReferralQueue) Enabled() bool { return q.enabled }

func (q *stubReferralQueue) EnqueueReferralReward(referrerID, referredUserID uint) error {
	q.calls = append(q.calls, [2]uint{referrerID, referredUserID})
	return q.err
}

func registerUser(t *testing.T, f *storeFixture, email, referralCode string) uint {
	t.Helper()
	ctx := context.Background()
	started, err := f.userAuth.StartRegistration(ctx, RegisterInput{
		Email:        email,
		Password:     "s3cret-pass",
		FirstName:    "Meera",
		LastName:     "Iyer",
		ReferralCode: referralCode,
	})
	require.NoError(t, err)
	user, err := f.userAuth.VerifyRegistration(ctx, started.Token, started.OTP)
	require.NoError(t, err)
	return user.ID
}

func TestRegistrationFlow(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	started, err := f.userAuth.StartRegistration(ctx, RegisterInput{Email: " Meera@Example.com ", Password: "s3cret-pass", FirstName: "Meera"})
	require.NoError(t, err)
	assert.Equal(t, "meera@example.com", started.Email)
	assert.Len(t, started.OTP, 6)
	assert.NotEmpty(t, started.Token)

	_, _, _, err = f.userAuth.Login("meera@example.com", "s3cret-pass")
	require.ErrorIs(t, err, ErrAccountNotVerified)

	wrong := "000000"
	if started.OTP == wrong {
		wrong = "111111"
	}
	_, err = f.userAuth.VerifyRegistration(ctx, started.Token, wrong)
	require.ErrorIs(t, err, ErrInvalidOTP)

	user, err := f.userAuth.VerifyRegistration(ctx, started.Token, started.OTP)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.True(t, user.IsVerified)
	assert.NotEmpty(t, user.ReferralCode)

	wallet, err := f.wallets.GetWallet(user.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", wallet.Balance.Decimal)

	_, err = f.userAuth.VerifyRegistration(ctx, started.Token, started.OTP)
	require.ErrorIs(t, err, ErrRegistrationNotFound)

	_, err = f.userAuth.StartRegistration(ctx, RegisterInput{Email: "meera@example.com", Password: "another-pass"})
	require.ErrorIs(t, err, ErrEmailRegistered)

	logged, token, expiresAt, err := f.userAuth.Login("MEERA@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := f.userAuth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, _, err = f.userAuth.Login("meera@example.com", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegistrationValidation(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.userAuth.StartRegistration(ctx, RegisterInput{Email: "not-an-email", Password: "s3cret-pass"})
	require.ErrorIs(t, err, ErrInvalidEmail)
	_, err = f.userAuth.StartRegistration(ctx, RegisterInput{Email: "short@example.com", Password: "short"})
	require.ErrorIs(t, err, ErrWeakPassword)
	_, err = f.userAuth.StartRegistration(ctx, RegisterInput{Email: "ref@example.com", Password: "s3cret-pass", ReferralCode: "NOSUCH"})
	require.ErrorIs(t, err, ErrInvalidReferralCode)
	_, err = f.userAuth.VerifyRegistration(ctx, "", "123456")
	require.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestRegistrationOTPExpiry(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	started, err := f.userAuth.StartRegistration(ctx, RegisterInput{Email: "late@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	f.userAuth.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err = f.userAuth.VerifyRegistration(ctx, started.Token, started.OTP)
	require.ErrorIs(t, err, ErrOTPExpired)

	deleted, err := f.userAuth.CleanupUnverified(time.Now().Add(11 * time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestAuthenticateRejectsDisabledAccount(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	userID := registerUser(t, f, "disabled@example.com", "")
	_, token, _, err := f.userAuth.Login("disabled@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, f.db.Exec("UPDATE users SET is_active = ? WHERE id = ?", false, userID).Error)
	_, err = f.userAuth.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrAccountDisabled)

	_, err = f.userAuth.Authenticate(ctx, token+"x")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestReferralRewardCreditedInlineWithoutQueue(t *testing.T) {
	f := newStoreFixture(t)
	referrerID := registerUser(t, f, "referrer@example.com", "")
	referrer, err := f.userRepo.GetByID(referrerID)
	require.NoError(t, err)

	referredID := registerUser(t, f, "friend@example.com", referrer.ReferralCode)
	referred, err := f.userRepo.GetByID(referredID)
	require.NoError(t, err)
	require.NotNil(t, referred.ReferredByID)
	assert.Equal(t, referrerID, *referred.ReferredByID)
	assertDecimal(t, "500", f.balance(referrerID))

	rewards, err := f.referrals.ListRewards(referrerID)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.True(t, rewards[0].IsCredited)
}

func TestReferralRewardEnqueuedWhenQueueEnabled(t *testing.T) {
	f := newStoreFixture(t)
	queue := &stubReferralQueue{enabled: true}
	f.userAuth.queue = queue
	referrerID := registerUser(t, f, "queued-referrer@example.com", "")
	referrer, err := f.userRepo.GetByID(referrerID)
	require.NoError(t, err)

	referredID := registerUser(t, f, "queued-friend@example.com", referrer.ReferralCode)
	require.Len(t, queue.calls, 1)
	assert.Equal(t, [2]uint{referrerID, referredID}, queue.calls[0])
	assertDecimal(t, "0", f.balance(referrerID))

	queue.err = errors.New("redis down")
	thirdID := registerUser(t, f, "fallback-friend@example.com", referrer.ReferralCode)
	require.Len(t, queue.calls, 2)
	assert.NotZero(t, thirdID)
	assertDecimal(t, "500", f.balance(referrerID))
}

func TestReferralRewardIsIdempotent(t *testing.T) {
	f := newStoreFixture(t)
	referrer := f.createUser("idem-referrer@example.com")
	referred := f.createUser("idem-friend@example.com")

	first, err := f.referrals.CreateReward(referrer.ID, referred.ID)
	require.NoError(t, err)
	assert.True(t, first.IsCredited)
	second, err := f.referrals.CreateReward(referrer.ID, referred.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assertDecimal(t, "500", f.balance(referrer.ID))

	_, err = f.referrals.CreateReward(referrer.ID, referrer.ID)
	require.ErrorIs(t, err, ErrSelfReferral)
	_, err = f.referrals.CreateReward(referrer.ID+100, referred.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}
