package service

import (
	"context"
	"testing"
	"time"

	"github.com/timestamp-store/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesReportCountsConfirmedOrders(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	buyer := f.createUser("sales@example.com")
	other := f.createUser("sales-other@example.com")
	watch := f.createVariant(nil, "1500", 10)
	strap := f.createVariant(nil, "400", 10)

	confirmed := f.placeCODOrder(buyer.ID, watch.ID, 2)
	f.advanceOrder(confirmed.OrderNo, constants.OrderStatusConfirmed)
	f.placeCODOrder(other.ID, strap.ID, 1)
	cancelled := f.placeCODOrder(other.ID, watch.ID, 1)
	_, err := f.orders.CancelOrder(ctx, other.ID, cancelled.OrderNo, "")
	require.NoError(t, err)

	today := time.Now()
	report, err := f.reports.SalesReport(today.AddDate(0, 0, -2), today)
	require.NoError(t, err)
	require.Len(t, report.Days, 3)
	assert.EqualValues(t, 1, report.Totals.OrderCount)
	assert.EqualValues(t, 2, report.Totals.ItemCount)
	assertDecimal(t, "3000", report.Totals.Revenue)
	assertDecimal(t, "0", report.Totals.Shipping)

	last := report.Days[len(report.Days)-1]
	assert.Equal(t, today.Format("2006-01-02"), last.Date)
	assert.EqualValues(t, 1, last.OrderCount)
	assert.EqualValues(t, 0, report.Days[0].OrderCount)

	stats, err := f.reports.OrderStatistics()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[constants.OrderStatusConfirmed])
	assert.EqualValues(t, 1, stats[constants.OrderStatusPending])
	assert.EqualValues(t, 1, stats[constants.OrderStatusCancelled])
	assert.EqualValues(t, 0, stats[constants.OrderStatusDelivered])
	assert.Len(t, stats, len(constants.OrderStatuses))
}

func TestSalesReportRejectsBadRanges(t *testing.T) {
	f := newStoreFixture(t)
	today := time.Now()

	_, err := f.reports.SalesReport(today, today.AddDate(0, 0, -1))
	require.ErrorIs(t, err, ErrInvalidReportRange)
	_, err = f.reports.SalesReport(today.AddDate(-2, 0, 0), today)
	require.ErrorIs(t, err, ErrInvalidReportRange)
	_, err = f.reports.SalesReport(time.Time{}, today)
	require.ErrorIs(t, err, ErrInvalidReportRange)
}

func TestStockReports(t *testing.T) {
	f := newStoreFixture(t)
	low := f.createVariant(nil, "900", 3)
	f.createVariant(nil, "900", 40)
	soldOut := f.createVariant(nil, "900", 1)
	require.NoError(t, f.db.Model(soldOut).Update("stock", 0).Error)

	lowStock, err := f.reports.LowStockVariants(0)
	require.NoError(t, err)
	require.Len(t, lowStock, 1)
	assert.Equal(t, low.ID, lowStock[0].ID)
	require.NotNil(t, lowStock[0].Product)

	outOfStock, err := f.reports.OutOfStockVariants()
	require.NoError(t, err)
	require.Len(t, outOfStock, 1)
	assert.Equal(t, soldOut.ID, outOfStock[0].ID)
}
