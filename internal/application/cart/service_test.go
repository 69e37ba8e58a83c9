package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogapp "github.com/wellnest/backend/internal/application/catalog"
	"github.com/wellnest/backend/internal/domain/cart"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/tests/testutil"
)

func setupService(t *testing.T) (*Service, *testutil.MockProductRepository, *testutil.MemoryCartStore) {
	t.Helper()
	clock := func() time.Time { return testutil.FixedNow }
	products := new(testutil.MockProductRepository)
	coupons := new(testutil.MockCouponRepository)
	coupons.On("FindByCode", mock.Anything, "WELCOME100").Return(&catalog.Coupon{
		Code: "WELCOME100", Amount: valueobject.MustINR("100"), MinOrderValue: valueobject.MustINR("500"), Active: true,
	}, nil)
	coupons.On("FindByCode", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	store := testutil.NewMemoryCartStore(cart.WithClock(clock))
	svc := NewService(store, products, catalogapp.NewCouponService(coupons, clock), nil)
	return svc, products, store
}

func TestService_AddItemMergesLines(t *testing.T) {
	svc, products, _ := setupService(t)
	ctx := context.Background()
	userID := uuid.New()
	p := testutil.TestProduct(t, "ashwagandha", "499", 10, "60 capsules", "120 capsules")
	products.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	_, err := svc.AddItem(ctx, userID, AddItemRequest{ProductID: p.ID, Variant: "60 capsules", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, AddItemRequest{ProductID: p.ID, Variant: "60 capsules", Quantity: 2})
	require.NoError(t, err)
	resp, err := svc.AddItem(ctx, userID, AddItemRequest{ProductID: p.ID, Variant: "120 capsules", Quantity: 1})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, 3, resp.Items[0].Quantity)
	assert.Equal(t, 4, resp.ItemCount)
	assert.Equal(t, "1996.00", resp.Total.String())
	assert.Equal(t, resp.Total, resp.TotalPrice)
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, testutil.FixedNow.Add(cart.DefaultTTL), *resp.ExpiresAt)
}

func TestService_AddItemRejections(t *testing.T) {
	svc, products, _ := setupService(t)
	ctx := context.Background()
	userID := uuid.New()

	inactive := testutil.TestProduct(t, "neem", "150", 5)
	inactive.Status = catalog.ProductStatusInactive
	plain := testutil.TestProduct(t, "tulsi", "120", 2)
	missing := uuid.New()
	products.On("FindByID", mock.Anything, inactive.ID).Return(inactive, nil)
	products.On("FindByID", mock.Anything, plain.ID).Return(plain, nil)
	products.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)

	_, err := svc.AddItem(ctx, userID, AddItemRequest{ProductID: inactive.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.AddItem(ctx, userID, AddItemRequest{ProductID: missing, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.AddItem(ctx, userID, AddItemRequest{ProductID: plain.ID, Variant: "500 g", Quantity: 1})
	assert.ErrorIs(t, err, ErrVariantUnavailable)

	_, err = svc.AddItem(ctx, userID, AddItemRequest{ProductID: plain.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, AddItemRequest{ProductID: plain.ID, Quantity: 1})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestService_CouponFollowsTotal(t *testing.T) {
	svc, products, store := setupService(t)
	ctx := context.Background()
	userID := uuid.New()
	p := testutil.TestProduct(t, "triphala", "333", 10)
	products.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	_, err := svc.AddItem(ctx, userID, AddItemRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	resp, err := svc.ApplyCoupon(ctx, userID, "welcome100")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME100", resp.CouponCode)
	assert.Equal(t, "100.00", resp.Discount.String())
	assert.Equal(t, "899.00", resp.Payable.String())

	// below the coupon minimum the discount is dropped
	resp, err = svc.UpdateItem(ctx, userID, UpdateItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Empty(t, resp.CouponCode)
	assert.True(t, resp.Discount.IsZero())

	_, err = svc.ApplyCoupon(ctx, userID, "BOGUS")
	assert.ErrorIs(t, err, catalogapp.ErrInvalidCoupon)

	resp, err = svc.RemoveItem(ctx, userID, RemoveItemRequest{ProductID: p.ID})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.False(t, store.Has(userID))

	_, err = svc.ApplyCoupon(ctx, userID, "WELCOME100")
	require.Error(t, err)
}

func TestService_Clear(t *testing.T) {
	svc, products, store := setupService(t)
	ctx := context.Background()
	userID := uuid.New()
	p := testutil.TestProduct(t, "moringa", "250", 3)
	products.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	_, err := svc.AddItem(ctx, userID, AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.True(t, store.Has(userID))

	require.NoError(t, svc.Clear(ctx, userID))
	got, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Nil(t, got.ExpiresAt)
}
