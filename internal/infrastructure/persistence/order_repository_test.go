package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

func newTestOrder(t *testing.T, number string, mode order.PaymentMode, provider order.PaymentProvider, created time.Time) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.NewOrderParams{
		OrderNumber: number,
		UserID:      uuid.New(),
		Items: []order.Item{
			{ProductID: uuid.New(), Title: "Ashwagandha", Quantity: 2, Price: valueobject.NewINRFromInt(500), Variant: "60 capsules"},
			{ProductID: uuid.New(), Title: "Triphala", Quantity: 1, Price: valueobject.NewINRFromInt(250)},
		},
		Discount:        valueobject.NewINRFromInt(100),
		CouponCode:      "well100",
		ShippingAddress: homeAddress("Asha Rao", "560001"),
		PaymentMode:     mode,
		PaymentProvider: provider,
		Delivery:        order.DeliveryPolicy{Flat: valueobject.NewINRFromInt(30)},
		Now:             created,
	})
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_SaveAndFind(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	o := newTestOrder(t, "WN-save0001", order.PaymentModeCOD, order.ProviderNone, now)
	require.NoError(t, repo.Save(ctx, o))

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "WN-save0001", found.OrderNumber)
	assert.Equal(t, "1250.00", found.TotalPrice.String())
	assert.Equal(t, "100.00", found.Discount.String())
	assert.Equal(t, "30.00", found.DeliveryCharge.String())
	assert.Equal(t, "1180.00", found.FinalPrice.String())
	assert.NoError(t, found.VerifyPricing())
	assert.Equal(t, order.StatusProcessing, found.Status)
	assert.Equal(t, "WELL100", found.CouponCode)
	assert.Equal(t, "560001", found.ShippingAddress.Pincode)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Ashwagandha", found.Items[0].Title)
	assert.Equal(t, "60 capsules", found.Items[0].Variant)
	require.Len(t, found.StatusHistory, 1)
	assert.Equal(t, order.ShippingStateNone, found.Shipment.State)

	byNumber, err := repo.FindByNumber(ctx, "WN-save0001")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)

	exists, err := repo.ExistsByNumber(ctx, "WN-save0001")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	dup := newTestOrder(t, "WN-save0001", order.PaymentModeCOD, order.ProviderNone, now)
	assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	o := newTestOrder(t, "WN-lock0001", order.PaymentModeOnline, order.ProviderRazorpay, now)
	require.NoError(t, repo.Save(ctx, o))
	require.NoError(t, o.AttachRazorpayOrder("order_RZP1", now))
	require.NoError(t, repo.SaveWithLock(ctx, o))
	assert.Equal(t, 2, o.Version)

	stale, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)

	changed, err := o.CompletePayment("pay_1", "Paid via Razorpay", now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, o.RecordManualShipment("TRK123", "BlueDart", "", now.Add(2*time.Minute)))
	require.NoError(t, repo.SaveWithLock(ctx, o))

	loaded, err := repo.FindByGatewayReference(ctx, order.ProviderRazorpay, "order_RZP1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Version)
	assert.Equal(t, order.PaymentCompleted, loaded.PaymentStatus)
	assert.Equal(t, order.StatusShipped, loaded.Status)
	assert.Equal(t, order.ShippingMethodManual, loaded.Shipment.Method)
	assert.Equal(t, order.ShippingStateManualRecorded, loaded.Shipment.State)
	assert.Equal(t, "TRK123", loaded.Shipment.TrackingID)
	assert.Len(t, loaded.StatusHistory, len(o.StatusHistory))
	assert.Equal(t, order.StatusShipped, loaded.StatusHistory[len(loaded.StatusHistory)-1].Status)

	_, err = stale.FailPayment("late failure", now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.SaveWithLock(ctx, stale), shared.ErrConcurrencyConflict)

	_, err = repo.FindByGatewayReference(ctx, order.ProviderPhonePe, "order_RZP1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_PendingPages(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	var opened []*order.Order
	for i, number := range []string{"WN-page0001", "WN-page0002", "WN-page0003"} {
		o := newTestOrder(t, number, order.PaymentModeOnline, order.ProviderRazorpay, now.Add(time.Duration(i-10)*time.Hour))
		require.NoError(t, o.AttachRazorpayOrder("order_"+number, now))
		require.NoError(t, repo.Save(ctx, o))
		opened = append(opened, o)
	}
	// the gateway session was never created, so there is nothing to ask about
	require.NoError(t, repo.Save(ctx, newTestOrder(t, "WN-page0004", order.PaymentModeOnline, order.ProviderRazorpay, now.Add(-20*time.Hour))))

	q := order.PendingQuery{OlderThan: now, Limit: 2}
	first, err := repo.FindPendingOnline(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, opened[0].ID, first[0].ID)
	assert.Equal(t, opened[1].ID, first[1].ID)

	q.After = order.CursorAfter(&first[1])
	second, err := repo.FindPendingOnline(ctx, q)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, opened[2].ID, second[0].ID)

	q.After = order.CursorAfter(&second[0])
	rest, err := repo.FindPendingOnline(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestGormOrderRepository_ListAndPending(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	old := newTestOrder(t, "WN-list0001", order.PaymentModeOnline, order.ProviderPhonePe, now.Add(-time.Hour))
	require.NoError(t, old.AttachPhonePeTransaction("WN-list0001_1", now))
	recent := newTestOrder(t, "WN-list0002", order.PaymentModeOnline, order.ProviderRazorpay, now)
	cod := newTestOrder(t, "WN-list0003", order.PaymentModeCOD, order.ProviderNone, now.Add(-2*time.Hour))
	cod.UserID = old.UserID
	for _, o := range []*order.Order{old, recent, cod} {
		require.NoError(t, repo.Save(ctx, o))
	}

	pending, err := repo.FindPendingOnline(ctx, order.PendingQuery{OlderThan: now.Add(-15 * time.Minute), Limit: 10})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, old.ID, pending[0].ID)

	all, total, err := repo.List(ctx, order.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, recent.ID, all[0].ID)

	_, total, err = repo.List(ctx, order.ListFilter{PaymentMode: order.PaymentModeCOD})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	found, total, err := repo.List(ctx, order.ListFilter{Filter: shared.Filter{Search: "list0002"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, recent.ID, found[0].ID)

	mine, total, err := repo.FindByUser(ctx, old.UserID, shared.Filter{PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 1)
}

func TestGormOrderRepository_SaveWithLock_NothingUpdated(t *testing.T) {
	cases := []struct {
		name   string
		stored int
		want   error
	}{
		{"stale version", 1, shared.ErrConcurrencyConflict},
		{"missing order", 0, shared.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, mockDB := newMockDatabase(t)
			defer mockDB.Close()
			repo := NewGormOrderRepository(db.DB)
			o := newTestOrder(t, "WN-mock0001", order.PaymentModeCOD, order.ProviderNone, time.Now())

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "orders" SET .* WHERE .*id = .*version = `).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT count\(\*\) FROM "orders" WHERE id = \$1`).
				WithArgs(o.ID).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tc.stored))
			mock.ExpectRollback()

			err := repo.SaveWithLock(context.Background(), o)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 1, o.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
