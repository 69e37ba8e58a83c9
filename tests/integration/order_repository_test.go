package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/domain/identity"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/infrastructure/persistence"
	"github.com/wellnest/backend/tests/testutil"
)

func seedCustomer(t *testing.T, testDB *TestDB, email string) *identity.User {
	t.Helper()
	u, err := identity.NewUser("Asha Rao", email, "9876543210", "Sup3rSecret!")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormUserRepository(testDB.DB).Create(context.Background(), u))
	return u
}

func TestOrderRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormOrderRepository(testDB.DB)
	ctx := context.Background()
	customer := seedCustomer(t, testDB, "asha@example.com")

	newOrder := func(t *testing.T, mode order.PaymentMode, provider order.PaymentProvider) *order.Order {
		o := testutil.NewTestOrder(t, mode, provider, testutil.TestItem("450", 2), testutil.TestItem("120", 1))
		o.UserID = customer.ID
		return o
	}

	t.Run("Save keeps items and history", func(t *testing.T) {
		o := newOrder(t, order.PaymentModeCOD, order.ProviderNone)
		require.NoError(t, repo.Save(ctx, o))

		found, err := repo.FindByNumber(ctx, o.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)
		require.Len(t, found.Items, 2)
		assert.Equal(t, 2, found.Items[0].Quantity)
		assert.True(t, found.FinalPrice.Equals(o.FinalPrice))
		require.NotEmpty(t, found.StatusHistory)
		assert.Equal(t, order.StatusPending, found.StatusHistory[0].Status)

		exists, err := repo.ExistsByNumber(ctx, o.OrderNumber)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Duplicate order number", func(t *testing.T) {
		o := newOrder(t, order.PaymentModeCOD, order.ProviderNone)
		require.NoError(t, repo.Save(ctx, o))

		dup := newOrder(t, order.PaymentModeCOD, order.ProviderNone)
		dup.OrderNumber = o.OrderNumber
		assert.Error(t, repo.Save(ctx, dup))
	})

	t.Run("Tampered totals are refused", func(t *testing.T) {
		o := newOrder(t, order.PaymentModeCOD, order.ProviderNone)
		o.FinalPrice = o.FinalPrice.Add(valueobject.NewINRFromInt(1))
		assert.Error(t, repo.Save(ctx, o))
	})

	t.Run("Gateway reference lookup", func(t *testing.T) {
		o := newOrder(t, order.PaymentModeOnline, order.ProviderRazorpay)
		require.NoError(t, o.AttachRazorpayOrder("order_Nx81kQ", testutil.FixedNow))
		require.NoError(t, repo.Save(ctx, o))

		found, err := repo.FindByGatewayReference(ctx, order.ProviderRazorpay, "order_Nx81kQ")
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)

		_, err = repo.FindByGatewayReference(ctx, order.ProviderPhonePe, "order_Nx81kQ")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("SaveWithLock appends history and bumps version", func(t *testing.T) {
		o := newOrder(t, order.PaymentModeCOD, order.ProviderNone)
		require.NoError(t, repo.Save(ctx, o))

		require.NoError(t, o.UpdateStatus(order.StatusProcessing, "Packed", testutil.FixedNow.Add(time.Hour)))
		require.NoError(t, repo.SaveWithLock(ctx, o))

		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusProcessing, found.Status)
		assert.Len(t, found.StatusHistory, 2)
		assert.Equal(t, "Packed", found.StatusHistory[1].Note)
		assert.Equal(t, o.Version, found.Version)
	})

	t.Run("Stale writer loses", func(t *testing.T) {
		o := newOrder(t, order.PaymentModeCOD, order.ProviderNone)
		require.NoError(t, repo.Save(ctx, o))

		first, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)

		require.NoError(t, first.UpdateStatus(order.StatusProcessing, "", testutil.FixedNow))
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.UpdateStatus(order.StatusCancelled, "", testutil.FixedNow))
		assert.ErrorIs(t, repo.SaveWithLock(ctx, second), shared.ErrConcurrencyConflict)
	})

	t.Run("Pending online orders for reconciliation", func(t *testing.T) {
		stale := newOrder(t, order.PaymentModeOnline, order.ProviderPhonePe)
		require.NoError(t, stale.AttachPhonePeTransaction(stale.OrderNumber+"_1", testutil.FixedNow))
		require.NoError(t, repo.Save(ctx, stale))

		pending, err := repo.FindPendingOnline(ctx, order.PendingQuery{OlderThan: time.Now(), Limit: 100})
		require.NoError(t, err)

		var ids []string
		for _, o := range pending {
			assert.Equal(t, order.PaymentModeOnline, o.PaymentMode)
			assert.Equal(t, order.PaymentPending, o.PaymentStatus)
			ids = append(ids, o.ID.String())
		}
		assert.Contains(t, ids, stale.ID.String())

		none, err := repo.FindPendingOnline(ctx, order.PendingQuery{OlderThan: testutil.FixedNow.Add(-time.Hour), Limit: 100})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Customer listing", func(t *testing.T) {
		orders, total, err := repo.FindByUser(ctx, customer.ID, shared.Filter{Page: 1, PageSize: 3})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(5))
		assert.Len(t, orders, 3)

		other := seedCustomer(t, testDB, "ravi@example.com")
		orders, total, err = repo.FindByUser(ctx, other.ID, shared.Filter{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, orders)
	})

	t.Run("Admin filter by status", func(t *testing.T) {
		orders, _, err := repo.List(ctx, order.ListFilter{
			Filter: shared.Filter{Page: 1, PageSize: 50},
			Status: order.StatusProcessing,
		})
		require.NoError(t, err)
		require.NotEmpty(t, orders)
		for _, o := range orders {
			assert.Equal(t, order.StatusProcessing, o.Status)
		}
	})
}
