package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/retry"
	"go.uber.org/zap"
)

const (
	defaultCarrierTimeout = 30 * time.Second
	maxCarrierResponse    = 4 << 20
)

// TokenStore caches the Shiprocket bearer token between processes
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// errUnauthorized marks a 401 so the caller can log in again once
var errUnauthorized = errors.New("shiprocket: token rejected")

// ShiprocketAdapter implements shipping.ShiprocketCarrier
type ShiprocketAdapter struct {
	config     *ShiprocketConfig
	tokens     TokenStore
	httpClient *http.Client
	logger     *zap.Logger
	loginMu    sync.Mutex
}

// ShiprocketOption configures the adapter
type ShiprocketOption func(*ShiprocketAdapter)

// WithShiprocketHTTPClient replaces the HTTP client
func WithShiprocketHTTPClient(c *http.Client) ShiprocketOption {
	return func(a *ShiprocketAdapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithShiprocketLogger sets the logger
func WithShiprocketLogger(logger *zap.Logger) ShiprocketOption {
	return func(a *ShiprocketAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewShiprocketAdapter creates a new Shiprocket adapter
func NewShiprocketAdapter(cfg *ShiprocketConfig, tokens TokenStore, opts ...ShiprocketOption) (*ShiprocketAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	a := &ShiprocketAdapter{
		config:     cfg,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Rates lists couriers serving the delivery pincode, cheapest first as returned
func (a *ShiprocketAdapter) Rates(ctx context.Context, query shipping.RateQuery) ([]shipping.CourierRate, error) {
	weight := query.WeightKg
	if weight <= 0 {
		weight = a.config.DefaultParcel.WeightKg
	}
	params := url.Values{}
	params.Set("pickup_postcode", a.config.PickupPincode)
	params.Set("delivery_postcode", query.DeliveryPincode)
	params.Set("weight", strconv.FormatFloat(weight, 'f', -1, 64))
	params.Set("cod", boolFlag(query.COD))
	if query.DeclaredValue.IsPositive() {
		params.Set("declared_value", query.DeclaredValue.Amount().StringFixed(2))
	}

	var resp shiprocketServiceabilityResponse
	if err := a.do(ctx, http.MethodGet, shiprocketServiceabilityPath+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	couriers := resp.Data.AvailableCourierCompanies
	if len(couriers) == 0 {
		return nil, shipping.ErrNoCourierAvailable
	}
	rates := make([]shipping.CourierRate, 0, len(couriers))
	for _, c := range couriers {
		rates = append(rates, shipping.CourierRate{
			CourierID:     c.CourierCompanyID,
			CourierName:   c.CourierName,
			Rate:          valueobject.NewINR(decimal.NewFromFloat(c.Rate).Round(2)),
			EstimatedDays: c.EstimatedDeliveryDays.Int(),
			ETD:           c.ETD,
			Rating:        c.Rating,
			COD:           c.COD == 1,
		})
	}
	return rates, nil
}

// CreateOrder registers an adhoc order. Our order number is the channel order id
func (a *ShiprocketAdapter) CreateOrder(ctx context.Context, req shipping.ShipmentRequest) (*shipping.ShiprocketOrder, error) {
	body := a.buildCreateOrder(req)
	var resp shiprocketCreateOrderResponse
	if err := a.do(ctx, http.MethodPost, shiprocketCreateOrderPath, body, &resp); err != nil {
		return nil, err
	}
	if resp.OrderID == "" || resp.ShipmentID == "" {
		return nil, fmt.Errorf("%w: order or shipment id missing", shipping.ErrCarrierInvalidResponse)
	}
	return &shipping.ShiprocketOrder{
		OrderID:    string(resp.OrderID),
		ShipmentID: string(resp.ShipmentID),
		Status:     resp.Status,
	}, nil
}

// AssignAWB assigns a courier and returns the airway bill
func (a *ShiprocketAdapter) AssignAWB(ctx context.Context, shipmentID string, courierID int) (*shipping.AWBAssignment, error) {
	id, err := parseID(shipmentID)
	if err != nil {
		return nil, err
	}
	var resp shiprocketAssignAWBResponse
	if err := a.do(ctx, http.MethodPost, shiprocketAssignAWBPath, shiprocketAssignAWBRequest{ShipmentID: id, CourierID: courierID}, &resp); err != nil {
		return nil, err
	}
	data := resp.Response.Data
	if resp.AWBAssignStatus != 1 || data.AWBCode == "" {
		msg := resp.Message
		if msg == "" {
			msg = "awb not assigned"
		}
		return nil, fmt.Errorf("%w: %s", shipping.ErrCarrierRequestFailed, msg)
	}
	return &shipping.AWBAssignment{
		AWB:         data.AWBCode,
		CourierID:   data.CourierCompanyID,
		CourierName: data.CourierName,
	}, nil
}

// GenerateLabel returns the label PDF URL
func (a *ShiprocketAdapter) GenerateLabel(ctx context.Context, shipmentID string) (string, error) {
	id, err := parseID(shipmentID)
	if err != nil {
		return "", err
	}
	var resp shiprocketLabelResponse
	if err := a.do(ctx, http.MethodPost, shiprocketLabelPath, shiprocketShipmentIDs{ShipmentID: []int64{id}}, &resp); err != nil {
		return "", err
	}
	if resp.LabelURL == "" {
		return "", fmt.Errorf("%w: label not generated: %s", shipping.ErrCarrierRequestFailed, resp.Response)
	}
	return resp.LabelURL, nil
}

// InvoiceURL returns the Shiprocket-hosted invoice URL
func (a *ShiprocketAdapter) InvoiceURL(ctx context.Context, shiprocketOrderID string) (string, error) {
	id, err := parseID(shiprocketOrderID)
	if err != nil {
		return "", err
	}
	var resp shiprocketInvoiceResponse
	if err := a.do(ctx, http.MethodPost, shiprocketInvoicePath, shiprocketIDs{IDs: []int64{id}}, &resp); err != nil {
		return "", err
	}
	if !resp.IsInvoiceCreated || resp.InvoiceURL == "" {
		return "", fmt.Errorf("%w: invoice not created", shipping.ErrCarrierRequestFailed)
	}
	return resp.InvoiceURL, nil
}

// Cancel cancels the Shiprocket order
func (a *ShiprocketAdapter) Cancel(ctx context.Context, shiprocketOrderID string) error {
	id, err := parseID(shiprocketOrderID)
	if err != nil {
		return err
	}
	return a.do(ctx, http.MethodPost, shiprocketCancelPath, shiprocketIDs{IDs: []int64{id}}, nil)
}

func (a *ShiprocketAdapter) buildCreateOrder(req shipping.ShipmentRequest) shiprocketCreateOrderRequest {
	parcel := req.Parcel
	def := a.config.DefaultParcel
	if parcel.WeightKg <= 0 {
		parcel.WeightKg = def.WeightKg
	}
	if parcel.LengthCm <= 0 || parcel.BreadthCm <= 0 || parcel.HeightCm <= 0 {
		parcel.LengthCm, parcel.BreadthCm, parcel.HeightCm = def.LengthCm, def.BreadthCm, def.HeightCm
	}

	items := make([]shiprocketOrderItem, len(req.Lines))
	for i, l := range req.Lines {
		items[i] = shiprocketOrderItem{
			Name:         l.Name,
			SKU:          l.SKU,
			Units:        l.Quantity,
			SellingPrice: l.Price.Amount().StringFixed(2),
		}
	}

	method := "Prepaid"
	if req.IsCOD() {
		method = "COD"
	}
	first, last := splitName(req.Address.Name)
	address := req.Address.Street
	return shiprocketCreateOrderRequest{
		OrderID:             req.OrderNumber,
		OrderDate:           req.OrderDate.In(indiaTime).Format("2006-01-02 15:04"),
		PickupLocation:      a.config.PickupLocation,
		BillingCustomerName: first,
		BillingLastName:     last,
		BillingAddress:      address,
		BillingAddress2:     req.Address.Landmark,
		BillingCity:         req.Address.City,
		BillingPincode:      req.Address.Pincode,
		BillingState:        req.Address.State,
		BillingCountry:      "India",
		BillingEmail:        req.Email,
		BillingPhone:        req.Address.Phone,
		ShippingIsBilling:   true,
		OrderItems:          items,
		PaymentMethod:       method,
		ShippingCharges:     req.ShippingCharge.Amount().StringFixed(2),
		TotalDiscount:       req.Discount.Amount().StringFixed(2),
		SubTotal:            req.SubTotal.Amount().StringFixed(2),
		Length:              parcel.LengthCm,
		Breadth:             parcel.BreadthCm,
		Height:              parcel.HeightCm,
		Weight:              parcel.WeightKg,
	}
}

// do runs an authenticated call. A 401 drops the cached token and the call
// is repeated once with a fresh login
func (a *ShiprocketAdapter) do(ctx context.Context, method, path string, in, out any) error {
	token, err := a.token(ctx, false)
	if err != nil {
		return err
	}
	err = a.doRequest(ctx, method, path, token, in, out)
	if !errors.Is(err, errUnauthorized) {
		return err
	}

	a.logger.Info("shiprocket token rejected, logging in again")
	if token, err = a.token(ctx, true); err != nil {
		return err
	}
	err = a.doRequest(ctx, method, path, token, in, out)
	if errors.Is(err, errUnauthorized) {
		return fmt.Errorf("%w: token rejected after re-login", shipping.ErrCarrierUnauthorized)
	}
	return err
}

// token returns the cached token or logs in. refresh forces a new login
func (a *ShiprocketAdapter) token(ctx context.Context, refresh bool) (string, error) {
	if !refresh {
		if t, err := a.tokens.Get(ctx); err == nil && t != "" {
			return t, nil
		} else if err != nil {
			a.logger.Warn("shiprocket token cache read failed", zap.Error(err))
		}
	}

	a.loginMu.Lock()
	defer a.loginMu.Unlock()
	if refresh {
		if err := a.tokens.Invalidate(ctx); err != nil {
			a.logger.Warn("shiprocket token cache invalidate failed", zap.Error(err))
		}
	} else if t, err := a.tokens.Get(ctx); err == nil && t != "" {
		return t, nil
	}

	var resp shiprocketLoginResponse
	err := a.doRequest(ctx, http.MethodPost, shiprocketLoginPath, "",
		shiprocketLoginRequest{Email: a.config.Email, Password: a.config.Password}, &resp)
	if errors.Is(err, errUnauthorized) {
		return "", shipping.ErrCarrierUnauthorized
	}
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: login returned no token", shipping.ErrCarrierInvalidResponse)
	}
	if err := a.tokens.Set(ctx, resp.Token, a.config.TokenTTL); err != nil {
		a.logger.Warn("shiprocket token cache write failed", zap.Error(err))
	}
	return resp.Token, nil
}

func (a *ShiprocketAdapter) doRequest(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("shiprocket: failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("shiprocket: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shipping.ErrCarrierUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxCarrierResponse))
	if err != nil {
		return fmt.Errorf("%w: shiprocket: failed to read response: %v", shipping.ErrCarrierUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errUnauthorized
	case isRetryableStatus(resp.StatusCode):
		return retry.ForStatus(fmt.Errorf("%w: shiprocket HTTP %d", shipping.ErrCarrierUnavailable, resp.StatusCode), resp.StatusCode)
	case resp.StatusCode >= 400:
		var e shiprocketError
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			return fmt.Errorf("%w: shiprocket: %s", shipping.ErrCarrierRequestFailed, e.Message)
		}
		return fmt.Errorf("%w: shiprocket HTTP %d", shipping.ErrCarrierRequestFailed, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: shiprocket: %v", shipping.ErrCarrierInvalidResponse, err)
	}
	return nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid shiprocket id %q", shipping.ErrCarrierRequestFailed, id)
	}
	return n, nil
}

// splitName splits "Asha Rao" into first and last name. Shiprocket
// requires a last name field but accepts it empty
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, " "); i > 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

var indiaTime = time.FixedZone("IST", 5*3600+1800)

var _ shipping.ShiprocketCarrier = (*ShiprocketAdapter)(nil)
