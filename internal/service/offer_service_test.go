package service

import (
	"testing"
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOfferBeatsSmallerProductOffer(t *testing.T) {
	f := newStoreFixture(t)
	today := time.Now()
	category := f.createCategory("Women")
	variant := f.createVariant(&category.ID, "2000", 5)
	f.createProductOffer(variant.ProductID, "10")

	offer, err := f.offers.CreateOffer(OfferInput{
		Name:       "Women week",
		OfferType:  "Category",
		CategoryID: &category.ID,
		Discount:   dec("20"),
		StartDate:  today,
		EndDate:    today.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, constants.OfferStatusActive, offer.Status)

	quote := f.offers.QuoteVariant(f.loadVariant(variant.ID), today)
	assert.Equal(t, constants.OfferTypeCategory, quote.OfferType)
	assertDecimal(t, "1600", quote.FinalPrice)
	require.NotNil(t, quote.OfferID)
	assert.Equal(t, offer.ID, *quote.OfferID)

	_, err = f.offers.SetStatus(offer.ID, constants.OfferStatusInactive, today)
	require.NoError(t, err)
	quote = f.offers.QuoteVariant(f.loadVariant(variant.ID), today)
	assert.Equal(t, constants.OfferTypeProduct, quote.OfferType)
	assertDecimal(t, "1800", quote.FinalPrice)
}

func TestCreateOfferValidation(t *testing.T) {
	f := newStoreFixture(t)
	today := time.Now()
	variant := f.createVariant(nil, "1000", 1)
	missing := uint(9999)

	cases := []struct {
		name    string
		input   OfferInput
		wantErr error
	}{
		{"missing name", OfferInput{OfferType: "product", ProductID: &variant.ProductID, Discount: dec("10"), StartDate: today, EndDate: today}, ErrOfferInvalid},
		{"discount above cap", OfferInput{Name: "Too much", OfferType: "product", ProductID: &variant.ProductID, Discount: dec("95"), StartDate: today, EndDate: today}, ErrOfferInvalid},
		{"end before start", OfferInput{Name: "Backwards", OfferType: "product", ProductID: &variant.ProductID, Discount: dec("10"), StartDate: today, EndDate: today.AddDate(0, 0, -1)}, ErrOfferInvalid},
		{"unknown product", OfferInput{Name: "Ghost", OfferType: "product", ProductID: &missing, Discount: dec("10"), StartDate: today, EndDate: today}, ErrProductNotFound},
		{"unknown category", OfferInput{Name: "Ghost", OfferType: "category", CategoryID: &missing, Discount: dec("10"), StartDate: today, EndDate: today}, ErrCategoryNotFound},
		{"both targets", OfferInput{Name: "Both", OfferType: "product", ProductID: &variant.ProductID, CategoryID: &missing, Discount: dec("10"), StartDate: today, EndDate: today}, ErrOfferInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.offers.CreateOffer(tc.input)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestExpireOldOffersAndStatistics(t *testing.T) {
	f := newStoreFixture(t)
	today := models.DateOnly(time.Now())
	variant := f.createVariant(nil, "1000", 1)
	running := f.createProductOffer(variant.ProductID, "10")
	ended := &models.Offer{
		Name:      "Last month",
		OfferType: constants.OfferTypeProduct,
		ProductID: &variant.ProductID,
		Discount:  models.MustMoney("5"),
		StartDate: today.AddDate(0, -1, 0),
		EndDate:   today.AddDate(0, 0, -2),
		Status:    constants.OfferStatusActive,
	}
	require.NoError(t, f.db.Create(ended).Error)

	expired, err := f.offers.ExpireOldOffers(today)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)
	again, err := f.offers.ExpireOldOffers(today)
	require.NoError(t, err)
	assert.EqualValues(t, 0, again)

	reloaded, err := f.offers.GetOffer(ended.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OfferStatusExpired, reloaded.Status)
	_, err = f.offers.SetStatus(ended.ID, constants.OfferStatusActive, today)
	require.ErrorIs(t, err, ErrOfferInvalid)

	current, err := f.offers.GetOffer(running.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OfferStatusActive, current.Status)

	stats, err := f.offers.Statistics(today)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Product.Active)
	assert.EqualValues(t, 1, stats.Product.Expired)
	assert.EqualValues(t, 0, stats.Category.Active)
}
