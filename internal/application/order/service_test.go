package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/tests/testutil"
)

type stubExporter struct {
	got []order.Order
}

func (e *stubExporter) Orders(_ context.Context, orders []order.Order) ([]byte, error) {
	e.got = orders
	return []byte("xlsx"), nil
}

type fixture struct {
	orders   *testutil.MockOrderRepository
	products *testutil.MockProductRepository
	tx       *testutil.InlineTx
	exporter *stubExporter
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		orders:   new(testutil.MockOrderRepository),
		products: new(testutil.MockProductRepository),
		tx:       &testutil.InlineTx{},
		exporter: &stubExporter{},
	}
	f.svc = NewService(ServiceConfig{
		Orders:   f.orders,
		Products: f.products,
		Tx:       f.tx,
		Exporter: f.exporter,
		Now:      func() time.Time { return testutil.FixedNow },
	})
	return f
}

func TestGetForUser(t *testing.T) {
	f := newFixture()
	o := testutil.NewTestOrder(t, order.PaymentModeCOD, order.ProviderNone)
	f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

	resp, err := f.svc.GetForUser(context.Background(), testutil.TestUserID(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, resp.OrderNumber)
	assert.Equal(t, "1030.00", resp.FinalPrice.String())
	assert.Len(t, resp.StatusHistory, 1)
	assert.Equal(t, []string{"shiprocket_create", "delhivery_create", "manual_record"}, resp.Shipment.Actions)

	_, err = f.svc.GetForUser(context.Background(), uuid.New(), o.ID)
	assert.ErrorIs(t, err, order.ErrNotOwner)
}

func TestUpdateStatus(t *testing.T) {
	t.Run("cancelling a COD order restocks in one transaction", func(t *testing.T) {
		f := newFixture()
		o := testutil.NewTestOrder(t, order.PaymentModeCOD, order.ProviderNone)
		o.MarkStockCommitted()
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.products.On("RestoreStock", mock.Anything, mock.MatchedBy(func(lines []catalog.StockDecrement) bool {
			return len(lines) == 1 && lines[0].Quantity == 2
		})).Return(nil)
		f.orders.On("SaveWithLock", mock.Anything, o).Return(nil)

		resp, err := f.svc.UpdateStatus(context.Background(), o.ID, UpdateStatusRequest{Status: "Cancelled", Note: " customer called "})
		require.NoError(t, err)
		assert.Equal(t, "Cancelled", resp.Status)
		assert.Equal(t, "customer called", resp.StatusHistory[len(resp.StatusHistory)-1].Note)
		assert.False(t, o.StockCommitted)
		assert.Equal(t, 1, f.tx.Calls)
		f.products.AssertExpectations(t)
	})

	t.Run("delivering a COD order keeps its stock taken", func(t *testing.T) {
		f := newFixture()
		o := testutil.NewTestOrder(t, order.PaymentModeCOD, order.ProviderNone)
		o.MarkStockCommitted()
		require.NoError(t, o.RecordManualShipment("EE1IN", "India Post", "", testutil.FixedNow))
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("SaveWithLock", mock.Anything, o).Return(nil)

		resp, err := f.svc.UpdateStatus(context.Background(), o.ID, UpdateStatusRequest{Status: "Delivered"})
		require.NoError(t, err)
		assert.Equal(t, "Delivered", resp.Status)
		assert.True(t, o.StockCommitted)
		f.products.AssertNotCalled(t, "RestoreStock", mock.Anything, mock.Anything)
	})

	t.Run("unpaid online order cannot be processed", func(t *testing.T) {
		f := newFixture()
		o := testutil.NewTestOrder(t, order.PaymentModeOnline, order.ProviderRazorpay)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := f.svc.UpdateStatus(context.Background(), o.ID, UpdateStatusRequest{Status: "Processing"})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_STATE", de.Code)
		f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("terminal status is final", func(t *testing.T) {
		f := newFixture()
		o := testutil.NewTestOrder(t, order.PaymentModeCOD, order.ProviderNone)
		require.NoError(t, o.UpdateStatus(order.StatusCancelled, "", testutil.FixedNow))
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := f.svc.UpdateStatus(context.Background(), o.ID, UpdateStatusRequest{Status: "Processing"})
		require.Error(t, err)
	})

	t.Run("lost race surfaces the conflict", func(t *testing.T) {
		f := newFixture()
		o := testutil.NewPaidOrder(t, order.ProviderRazorpay)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.products.On("RestoreStock", mock.Anything, mock.Anything).Return(nil)
		f.orders.On("SaveWithLock", mock.Anything, o).Return(shared.ErrConcurrencyConflict)

		_, err := f.svc.UpdateStatus(context.Background(), o.ID, UpdateStatusRequest{Status: "Cancelled"})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestListAll_Filter(t *testing.T) {
	f := newFixture()
	f.orders.On("List", mock.Anything, mock.MatchedBy(func(lf order.ListFilter) bool {
		return lf.Status == order.StatusShipped &&
			lf.PaymentMode == order.PaymentModeCOD &&
			lf.Search == "WN-AB" &&
			lf.Page == 2 &&
			lf.From != nil && lf.To != nil &&
			lf.To.Sub(*lf.From) == 48*time.Hour
	})).Return([]order.Order{*testutil.NewTestOrder(t, order.PaymentModeCOD, order.ProviderNone)}, int64(21), nil)

	page, err := f.svc.ListAll(context.Background(), ListFilter{
		Status: "Shipped", PaymentMode: "cod", Search: " WN-AB ", Page: 2,
		From: "2026-03-01", To: "2026-03-02",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Asha Rao", page.Items[0].CustomerName)

	_, err = f.svc.ListAll(context.Background(), ListFilter{From: "2026-03-05", To: "2026-03-01"})
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	t.Run("pages through every match", func(t *testing.T) {
		f := newFixture()
		first := make([]order.Order, exportPageSize)
		for i := range first {
			first[i] = *testutil.NewTestOrder(t, order.PaymentModeCOD, order.ProviderNone)
		}
		second := []order.Order{*testutil.NewTestOrder(t, order.PaymentModeCOD, order.ProviderNone)}
		f.orders.On("List", mock.Anything, mock.MatchedBy(func(lf order.ListFilter) bool { return lf.Page == 1 })).
			Return(first, int64(exportPageSize+1), nil)
		f.orders.On("List", mock.Anything, mock.MatchedBy(func(lf order.ListFilter) bool { return lf.Page == 2 })).
			Return(second, int64(exportPageSize+1), nil)

		data, err := f.svc.Export(context.Background(), ListFilter{Page: 7})
		require.NoError(t, err)
		assert.Equal(t, []byte("xlsx"), data)
		assert.Len(t, f.exporter.got, exportPageSize+1)
	})

	t.Run("refuses oversized exports", func(t *testing.T) {
		f := newFixture()
		f.orders.On("List", mock.Anything, mock.Anything).Return([]order.Order{}, int64(MaxExportRows+1), nil)

		_, err := f.svc.Export(context.Background(), ListFilter{})
		assert.ErrorIs(t, err, ErrExportTooLarge)
	})
}
