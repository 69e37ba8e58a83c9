package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/cache"
	"github.com/wellnest/backend/internal/infrastructure/retry"
)

type shiprocketServer struct {
	logins   atomic.Int32
	token    string
	rejectAt map[string]bool
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (s *shiprocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == shiprocketLoginPath {
		n := s.logins.Add(1)
		s.token = "tok-" + string(rune('0'+n))
		_ = json.NewEncoder(w).Encode(map[string]string{"token": s.token})
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+s.token || s.rejectAt[r.Header.Get("Authorization")] {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token has expired","status_code":401}`))
		return
	}
	s.handle(w, r)
}

func newTestShiprocket(t *testing.T, srv *shiprocketServer) (*ShiprocketAdapter, *cache.TokenCache) {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	kv := cache.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })
	tokens := cache.NewTokenCache(kv, "shiprocket")

	a, err := NewShiprocketAdapter(&ShiprocketConfig{
		Email:          "ops@wellnest.in",
		Password:       "secret",
		BaseURL:        ts.URL,
		PickupLocation: "Primary",
		PickupPincode:  "560001",
	}, tokens)
	require.NoError(t, err)
	return a, tokens
}

func testShipmentRequest() shipping.ShipmentRequest {
	return shipping.ShipmentRequest{
		OrderNumber: "WN-a1b2c3d4",
		OrderDate:   time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
		Address: valueobject.PostalAddress{
			Name:    "Asha Rao",
			Phone:   "9876543210",
			Street:  "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Pincode: "560001",
		},
		Lines: []shipping.Line{
			{SKU: "ASH-60", Name: "Ashwagandha 60 caps", Quantity: 2, Price: valueobject.NewINRFromInt(500)},
		},
		SubTotal:       valueobject.NewINRFromInt(1000),
		Discount:       valueobject.NewINRFromInt(100),
		ShippingCharge: valueobject.NewINRFromInt(30),
		CODAmount:      valueobject.NewINRFromInt(930),
	}
}

func TestShiprocketConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&ShiprocketConfig{}).Validate(), ErrShiprocketMissingCredentials)
	assert.ErrorIs(t, (&ShiprocketConfig{Email: "a", Password: "b"}).Validate(), ErrShiprocketMissingPickup)

	cfg := &ShiprocketConfig{Email: "a", Password: "b", PickupLocation: "Primary"}
	require.NoError(t, cfg.Validate())
	cfg.applyDefaults()
	assert.Equal(t, shiprocketDefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 9*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 0.5, cfg.DefaultParcel.WeightKg)
}

func TestShiprocketAdapter_Token(t *testing.T) {
	ctx := context.Background()

	t.Run("logs in once and reuses the cached token", func(t *testing.T) {
		srv := &shiprocketServer{handle: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"is_invoice_created":true,"invoice_url":"https://cdn.example/inv.pdf"}`))
		}}
		a, tokens := newTestShiprocket(t, srv)

		for i := 0; i < 3; i++ {
			u, err := a.InvoiceURL(ctx, "9001")
			require.NoError(t, err)
			assert.Equal(t, "https://cdn.example/inv.pdf", u)
		}
		assert.Equal(t, int32(1), srv.logins.Load())
		cached, err := tokens.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", cached)
	})

	t.Run("re-logs in once after a 401", func(t *testing.T) {
		srv := &shiprocketServer{handle: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}}
		a, tokens := newTestShiprocket(t, srv)
		require.NoError(t, tokens.Set(ctx, "stale", time.Hour))
		srv.token = "tok-0"

		require.NoError(t, a.Cancel(ctx, "9001"))
		assert.Equal(t, int32(1), srv.logins.Load())
		cached, _ := tokens.Get(ctx)
		assert.Equal(t, "tok-1", cached)
	})

	t.Run("gives up when the fresh token is also rejected", func(t *testing.T) {
		srv := &shiprocketServer{
			rejectAt: map[string]bool{"Bearer tok-1": true},
			handle:   func(w http.ResponseWriter, r *http.Request) {},
		}
		a, tokens := newTestShiprocket(t, srv)
		require.NoError(t, tokens.Set(ctx, "stale", time.Hour))

		err := a.Cancel(ctx, "9001")
		assert.ErrorIs(t, err, shipping.ErrCarrierUnauthorized)
		assert.Equal(t, int32(1), srv.logins.Load())
	})
}

func TestShiprocketAdapter_Rates(t *testing.T) {
	ctx := context.Background()

	t.Run("maps couriers", func(t *testing.T) {
		srv := &shiprocketServer{handle: func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, shiprocketServiceabilityPath, r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "560001", q.Get("pickup_postcode"))
			assert.Equal(t, "400001", q.Get("delivery_postcode"))
			assert.Equal(t, "1", q.Get("cod"))
			assert.Equal(t, "0.5", q.Get("weight"))
			_, _ = w.Write([]byte(`{"status":200,"data":{"available_courier_companies":[
				{"courier_company_id":10,"courier_name":"Delhivery Surface","rate":62.5,"estimated_delivery_days":"4","etd":"Mar 19, 2026","rating":4.2,"cod":1},
				{"courier_company_id":24,"courier_name":"Xpressbees","rate":71,"estimated_delivery_days":3,"cod":0}
			]}}`))
		}}
		a, _ := newTestShiprocket(t, srv)

		rates, err := a.Rates(ctx, shipping.RateQuery{DeliveryPincode: "400001", COD: true})
		require.NoError(t, err)
		require.Len(t, rates, 2)
		assert.Equal(t, 10, rates[0].CourierID)
		assert.Equal(t, "62.50", rates[0].Rate.String())
		assert.Equal(t, 4, rates[0].EstimatedDays)
		assert.True(t, rates[0].COD)
		assert.Equal(t, 3, rates[1].EstimatedDays)
		assert.False(t, rates[1].COD)
	})

	t.Run("no couriers", func(t *testing.T) {
		srv := &shiprocketServer{handle: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":404,"data":{"available_courier_companies":[]}}`))
		}}
		a, _ := newTestShiprocket(t, srv)

		_, err := a.Rates(ctx, shipping.RateQuery{DeliveryPincode: "799001"})
		assert.ErrorIs(t, err, shipping.ErrNoCourierAvailable)
	})
}

func TestShiprocketAdapter_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("sends the order and reads numeric ids", func(t *testing.T) {
		var got shiprocketCreateOrderRequest
		srv := &shiprocketServer{handle: func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, shiprocketCreateOrderPath, r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"order_id":9001,"shipment_id":8001,"status":"NEW"}`))
		}}
		a, _ := newTestShiprocket(t, srv)

		o, err := a.CreateOrder(ctx, testShipmentRequest())
		require.NoError(t, err)
		assert.Equal(t, "9001", o.OrderID)
		assert.Equal(t, "8001", o.ShipmentID)

		assert.Equal(t, "WN-a1b2c3d4", got.OrderID)
		assert.Equal(t, "2026-03-15 01:30", got.OrderDate)
		assert.Equal(t, "Asha", got.BillingCustomerName)
		assert.Equal(t, "Rao", got.BillingLastName)
		assert.Equal(t, "COD", got.PaymentMethod)
		assert.Equal(t, "1000.00", got.SubTotal)
		assert.Equal(t, "100.00", got.TotalDiscount)
		assert.Equal(t, "Primary", got.PickupLocation)
		assert.Equal(t, 0.5, got.Weight)
		assert.Equal(t, 15.0, got.Length)
		require.Len(t, got.OrderItems, 1)
		assert.Equal(t, "500.00", got.OrderItems[0].SellingPrice)
	})

	t.Run("validation errors are request failures", func(t *testing.T) {
		srv := &shiprocketServer{handle: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"billing_pincode is invalid","status_code":422}`))
		}}
		a, _ := newTestShiprocket(t, srv)

		_, err := a.CreateOrder(ctx, testShipmentRequest())
		assert.ErrorIs(t, err, shipping.ErrCarrierRequestFailed)
		assert.Contains(t, err.Error(), "billing_pincode")
	})

	t.Run("5xx is unavailable", func(t *testing.T) {
		srv := &shiprocketServer{handle: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}}
		a, _ := newTestShiprocket(t, srv)

		_, err := a.CreateOrder(ctx, testShipmentRequest())
		assert.ErrorIs(t, err, shipping.ErrCarrierUnavailable)
		assert.False(t, retry.IsSafeToResend(err), "a 502 may hide a created order")
	})
}

func TestShiprocketAdapter_AssignAWBAndLabel(t *testing.T) {
	ctx := context.Background()
	srv := &shiprocketServer{handle: func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case shiprocketAssignAWBPath:
			var body shiprocketAssignAWBRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body.ShipmentID == 8002 {
				_, _ = w.Write([]byte(`{"awb_assign_status":0,"message":"Courier not serviceable"}`))
				return
			}
			assert.Equal(t, int64(8001), body.ShipmentID)
			_, _ = w.Write([]byte(`{"awb_assign_status":1,"response":{"data":{"awb_code":"AWB123","courier_company_id":10,"courier_name":"Delhivery Surface"}}}`))
		case shiprocketLabelPath:
			_, _ = w.Write([]byte(`{"label_created":1,"label_url":"https://cdn.example/label.pdf"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}}
	a, _ := newTestShiprocket(t, srv)

	awb, err := a.AssignAWB(ctx, "8001", 10)
	require.NoError(t, err)
	assert.Equal(t, "AWB123", awb.AWB)
	assert.Equal(t, "Delhivery Surface", awb.CourierName)

	_, err = a.AssignAWB(ctx, "8002", 0)
	assert.ErrorIs(t, err, shipping.ErrCarrierRequestFailed)
	assert.Contains(t, err.Error(), "not serviceable")

	_, err = a.AssignAWB(ctx, "not-a-number", 0)
	assert.ErrorIs(t, err, shipping.ErrCarrierRequestFailed)

	label, err := a.GenerateLabel(ctx, "8001")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(label, "label.pdf"))
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Asha Devi Rao")
	assert.Equal(t, "Asha Devi", first)
	assert.Equal(t, "Rao", last)

	first, last = splitName("Asha")
	assert.Equal(t, "Asha", first)
	assert.Empty(t, last)
}
