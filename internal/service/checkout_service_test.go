package service

import (
	"context"
	"testing"

	"github.com/timestamp-store/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutShippingThreshold(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.createUser("shipping@example.com")
	variant := f.createVariant(nil, "800", 10)
	session := f.session(user.ID)

	view, err := f.carts.AddItem(user.ID, variant.ID, 1)
	require.NoError(t, err)
	summary, err := f.checkout.BuildSummary(ctx, user.ID, session, SummaryOptions{})
	require.NoError(t, err)
	assertDecimal(t, "800", summary.Subtotal)
	assertDecimal(t, "50", summary.ShippingCharge)
	assertDecimal(t, "850", summary.TotalAmount)
	assert.True(t, summary.NeedsExternalPayment)
	assert.True(t, summary.CODAvailable)
	assert.Equal(t, "INR", summary.Currency)

	_, err = f.carts.UpdateQuantity(user.ID, view.Lines[0].ItemID, 2)
	require.NoError(t, err)
	summary, err = f.checkout.BuildSummary(ctx, user.ID, session, SummaryOptions{})
	require.NoError(t, err)
	assertDecimal(t, "0", summary.ShippingCharge)
	assertDecimal(t, "1600", summary.TotalAmount)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newStoreFixture(t)
	user := f.createUser("empty@example.com")

	_, err := f.checkout.BuildSummary(context.Background(), user.ID, f.session(user.ID), SummaryOptions{})
	require.ErrorIs(t, err, ErrCartEmpty)
}

func TestCheckoutCouponLifecycle(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.createUser("coupon@example.com")
	variant := f.createVariant(nil, "800", 10)
	f.createCoupon("welcome500", constants.CouponTypeFixed, "500", "1000")
	session := f.session(user.ID)

	view, err := f.carts.AddItem(user.ID, variant.ID, 1)
	require.NoError(t, err)
	_, err = f.checkout.ApplyCoupon(ctx, user.ID, session, "WELCOME500", SummaryOptions{})
	require.ErrorIs(t, err, ErrCouponBelowMinimum)
	assert.Equal(t, "Minimum purchase of ₹1,000.00 required", err.Error())

	_, err = f.carts.UpdateQuantity(user.ID, view.Lines[0].ItemID, 2)
	require.NoError(t, err)
	summary, err := f.checkout.ApplyCoupon(ctx, user.ID, session, " welcome500 ", SummaryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME500", summary.CouponCode)
	assertDecimal(t, "500", summary.CouponDiscount)
	assertDecimal(t, "1100", summary.TotalAmount)

	coupons, err := f.checkout.ListCoupons(ctx, user.ID, session, SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.True(t, coupons[0].Eligible)

	_, err = f.carts.UpdateQuantity(user.ID, view.Lines[0].ItemID, 1)
	require.NoError(t, err)
	summary, err = f.checkout.BuildSummary(ctx, user.ID, session, SummaryOptions{})
	require.NoError(t, err)
	assert.Empty(t, summary.CouponCode)
	assert.NotEmpty(t, summary.CouponError)
	assertDecimal(t, "0", summary.CouponDiscount)
	pending, err := session.PendingCoupon(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.checkout.ApplyCoupon(ctx, user.ID, session, "NOPE", SummaryOptions{})
	require.ErrorIs(t, err, ErrCouponInvalidCode)
}

func TestCheckoutRemoveCoupon(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.createUser("remove-coupon@example.com")
	variant := f.createVariant(nil, "2000", 10)
	f.createCoupon("FESTIVE10", constants.CouponTypePercentage, "10", "0")
	session := f.session(user.ID)

	_, err := f.carts.AddItem(user.ID, variant.ID, 1)
	require.NoError(t, err)
	summary, err := f.checkout.ApplyCoupon(ctx, user.ID, session, "FESTIVE10", SummaryOptions{})
	require.NoError(t, err)
	assertDecimal(t, "200", summary.CouponDiscount)
	assertDecimal(t, "1800", summary.TotalAmount)

	summary, err = f.checkout.RemoveCoupon(ctx, user.ID, session, SummaryOptions{})
	require.NoError(t, err)
	assertDecimal(t, "0", summary.CouponDiscount)
	assertDecimal(t, "2000", summary.TotalAmount)
}

func TestCheckoutWalletAndCODLimit(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.createUser("cod@example.com")
	variant := f.createVariant(nil, "6000", 10)
	session := f.session(user.ID)

	_, err := f.carts.AddItem(user.ID, variant.ID, 2)
	require.NoError(t, err)
	summary, err := f.checkout.BuildSummary(ctx, user.ID, session, SummaryOptions{})
	require.NoError(t, err)
	assertDecimal(t, "12000", summary.TotalAmount)
	assert.False(t, summary.CODAvailable)
	require.ErrorIs(t, f.checkout.CheckCOD(summary), ErrCODNotAvailable)

	f.fundWallet(user.ID, "2500")
	summary, err = f.checkout.SetUseWallet(ctx, user.ID, session, true, SummaryOptions{})
	require.NoError(t, err)
	assert.True(t, summary.UseWallet)
	assertDecimal(t, "2500", summary.WalletUsed)
	assertDecimal(t, "9500", summary.RemainingAmount)
	assert.True(t, summary.CODAvailable)
	require.NoError(t, f.checkout.CheckCOD(summary))

	f.fundWallet(user.ID, "20000")
	summary, err = f.checkout.BuildSummary(ctx, user.ID, session, SummaryOptions{})
	require.NoError(t, err)
	assertDecimal(t, "12000", summary.WalletUsed)
	assertDecimal(t, "0", summary.RemainingAmount)
	assert.False(t, summary.NeedsExternalPayment)

	summary, err = f.checkout.SetUseWallet(ctx, user.ID, session, false, SummaryOptions{})
	require.NoError(t, err)
	assertDecimal(t, "0", summary.WalletUsed)
	assertDecimal(t, "12000", summary.RemainingAmount)
}

func TestCheckoutBuyNowIgnoresCart(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	user := f.createUser("buynow@example.com")
	inCart := f.createVariant(nil, "700", 10)
	direct := f.createVariant(nil, "1500", 3)
	session := f.session(user.ID)

	_, err := f.carts.AddItem(user.ID, inCart.ID, 1)
	require.NoError(t, err)

	_, err = f.checkout.StartBuyNow(ctx, user.ID, session, direct.ID, 4)
	require.ErrorIs(t, err, ErrInsufficientStock)

	summary, err := f.checkout.StartBuyNow(ctx, user.ID, session, direct.ID, 1)
	require.NoError(t, err)
	assert.True(t, summary.BuyNow())
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, direct.ID, summary.Lines[0].VariantID)
	assertDecimal(t, "1500", summary.TotalAmount)

	fingerprint := summary.Fingerprint()
	again, err := f.checkout.BuildSummary(ctx, user.ID, session, SummaryOptions{BuyNow: true})
	require.NoError(t, err)
	assert.Equal(t, fingerprint, again.Fingerprint())

	require.NoError(t, f.checkout.CancelBuyNow(ctx, session))
	_, err = f.checkout.BuildSummary(ctx, user.ID, session, SummaryOptions{BuyNow: true})
	require.ErrorIs(t, err, ErrBuyNowDraftNotFound)

	summary, err = f.checkout.BuildSummary(ctx, user.ID, session, SummaryOptions{})
	require.NoError(t, err)
	assert.False(t, summary.BuyNow())
	assert.Equal(t, inCart.ID, summary.Lines[0].VariantID)
}
