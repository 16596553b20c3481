package service

import (
	"testing"

	"github.com/timestamp-store/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddItemAppliesOffer(t *testing.T) {
	f := newStoreFixture(t)
	user := f.createUser("cart@example.com")
	variant := f.createVariant(nil, "8999", 10)
	f.createProductOffer(variant.ProductID, "15")

	view, err := f.carts.AddItem(user.ID, variant.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	line := view.Lines[0]
	assert.True(t, line.Quote.HasOffer)
	assert.Equal(t, constants.OfferTypeProduct, line.Quote.OfferType)
	assertDecimal(t, "7649.15", line.Quote.FinalPrice)
	assertDecimal(t, "15298.30", line.LineTotal)
	assertDecimal(t, "2699.70", line.LineDiscount)
	assertDecimal(t, "15298.30", view.Subtotal)
	assert.Equal(t, 2, view.ItemCount)
	assert.Empty(t, line.Problem)

	view, err = f.carts.AddItem(user.ID, variant.ID, 1)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
}

func TestCartQuantityLimits(t *testing.T) {
	f := newStoreFixture(t)
	user := f.createUser("limits@example.com")
	plenty := f.createVariant(nil, "500", 20)
	scarce := f.createVariant(nil, "500", 2)

	_, err := f.carts.AddItem(user.ID, plenty.ID, 6)
	require.ErrorIs(t, err, ErrQuantityLimitExceeded)
	assert.Equal(t, "Maximum 5 units allowed per product", err.Error())

	_, err = f.carts.AddItem(user.ID, scarce.ID, 3)
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = f.carts.AddItem(user.ID, plenty.ID, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	view, err := f.carts.AddItem(user.ID, plenty.ID, 5)
	require.NoError(t, err)
	_, err = f.carts.AddItem(user.ID, plenty.ID, 1)
	require.ErrorIs(t, err, ErrQuantityLimitExceeded)

	itemID := view.Lines[0].ItemID
	view, err = f.carts.UpdateQuantity(user.ID, itemID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Lines[0].Quantity)

	_, err = f.carts.UpdateQuantity(user.ID, itemID+999, 1)
	require.ErrorIs(t, err, ErrCartItemNotFound)

	view, err = f.carts.RemoveItem(user.ID, itemID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestCartRejectsUnavailableVariants(t *testing.T) {
	f := newStoreFixture(t)
	user := f.createUser("unavailable@example.com")
	soldOut := f.createVariant(nil, "500", 1)
	require.NoError(t, f.db.Model(soldOut).Update("stock", 0).Error)
	unlisted := f.createVariant(nil, "500", 5)
	require.NoError(t, f.db.Model(unlisted).Update("is_listed", false).Error)

	_, err := f.carts.AddItem(user.ID, soldOut.ID, 1)
	require.ErrorIs(t, err, ErrOutOfStock)
	_, err = f.carts.AddItem(user.ID, unlisted.ID, 1)
	require.ErrorIs(t, err, ErrProductUnavailable)
	_, err = f.carts.AddItem(user.ID, 424242, 1)
	require.ErrorIs(t, err, ErrVariantNotFound)
}

func TestValidateForCheckoutListsProblems(t *testing.T) {
	f := newStoreFixture(t)
	user := f.createUser("problems@example.com")
	variant := f.createVariant(nil, "1200", 4)

	_, err := f.carts.AddItem(user.ID, variant.ID, 4)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(variant).Update("stock", 1).Error)

	view, err := f.carts.GetCart(user.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Contains(t, view.Lines[0].Problem, "Only 1 units")

	err = f.carts.ValidateForCheckout(view)
	require.ErrorIs(t, err, ErrCartValidationFailed)
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Len(t, serviceErr.Details, 1)

	require.ErrorIs(t, f.carts.ValidateForCheckout(&CartView{}), ErrCartEmpty)
}
