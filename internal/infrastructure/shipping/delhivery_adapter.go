package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/retry"
)

// DelhiveryAdapter implements shipping.DelhiveryCarrier
type DelhiveryAdapter struct {
	config     *DelhiveryConfig
	httpClient *http.Client
}

// DelhiveryOption configures the adapter
type DelhiveryOption func(*DelhiveryAdapter)

// WithDelhiveryHTTPClient replaces the HTTP client
func WithDelhiveryHTTPClient(c *http.Client) DelhiveryOption {
	return func(a *DelhiveryAdapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// NewDelhiveryAdapter creates a new Delhivery adapter
func NewDelhiveryAdapter(cfg *DelhiveryConfig, opts ...DelhiveryOption) (*DelhiveryAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	a := &DelhiveryAdapter{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// CreateShipment manifests one package and returns its waybill
func (a *DelhiveryAdapter) CreateShipment(ctx context.Context, req shipping.ShipmentRequest) (*shipping.Waybill, error) {
	payload, err := json.Marshal(delhiveryCreateRequest{
		Shipments:      []delhiveryShipment{a.buildShipment(req)},
		PickupLocation: delhiveryPickup{Name: a.config.PickupName},
	})
	if err != nil {
		return nil, fmt.Errorf("delhivery: failed to marshal request: %w", err)
	}

	form := url.Values{}
	form.Set("format", "json")
	form.Set("data", string(payload))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+delhiveryCreatePath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("delhivery: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Token "+a.config.APIToken)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shipping.ErrCarrierUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCarrierResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: delhivery: failed to read response: %v", shipping.ErrCarrierUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, shipping.ErrCarrierUnauthorized
	case isRetryableStatus(resp.StatusCode):
		return nil, retry.ForStatus(fmt.Errorf("%w: delhivery HTTP %d", shipping.ErrCarrierUnavailable, resp.StatusCode), resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: delhivery HTTP %d", shipping.ErrCarrierRequestFailed, resp.StatusCode)
	}

	var out delhiveryCreateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: delhivery: %v", shipping.ErrCarrierInvalidResponse, err)
	}
	if len(out.Packages) == 0 {
		if out.Remark != "" {
			return nil, fmt.Errorf("%w: delhivery: %s", shipping.ErrCarrierRequestFailed, out.Remark)
		}
		return nil, fmt.Errorf("%w: delhivery returned no package", shipping.ErrCarrierInvalidResponse)
	}
	pkg := out.Packages[0]
	remarks := strings.Join(pkg.Remarks, "; ")
	if !out.Success || pkg.Waybill == "" || strings.EqualFold(pkg.Status, "Fail") {
		if remarks == "" {
			remarks = out.Remark
		}
		return nil, fmt.Errorf("%w: delhivery: %s", shipping.ErrCarrierRequestFailed, remarks)
	}
	return &shipping.Waybill{Waybill: pkg.Waybill, Status: pkg.Status, Remarks: remarks}, nil
}

func (a *DelhiveryAdapter) buildShipment(req shipping.ShipmentRequest) delhiveryShipment {
	names := make([]string, 0, len(req.Lines))
	qty := 0
	for _, l := range req.Lines {
		names = append(names, l.Name)
		qty += l.Quantity
	}

	mode := "Prepaid"
	cod := "0"
	if req.IsCOD() {
		mode = "COD"
		cod = req.CODAmount.Amount().StringFixed(2)
	}
	total := req.SubTotal.Sub(req.Discount).Add(req.ShippingCharge)

	address := req.Address.Street
	if req.Address.Landmark != "" {
		address += ", " + req.Address.Landmark
	}
	return delhiveryShipment{
		Name:            req.Address.Name,
		Address:         address,
		Pincode:         req.Address.Pincode,
		City:            req.Address.City,
		State:           req.Address.State,
		Country:         "India",
		Phone:           req.Address.Phone,
		Order:           req.OrderNumber,
		PaymentMode:     mode,
		CODAmount:       cod,
		TotalAmount:     total.Amount().StringFixed(2),
		ProductsDesc:    strings.Join(names, ", "),
		Quantity:        strconv.Itoa(qty),
		OrderDate:       req.OrderDate.In(indiaTime).Format("2006-01-02 15:04:05"),
		WeightGrams:     req.Parcel.WeightKg * 1000,
		ShipmentLength:  req.Parcel.LengthCm,
		ShipmentWidth:   req.Parcel.BreadthCm,
		ShipmentHeight:  req.Parcel.HeightCm,
		ShippingMode:    "Surface",
		ClientReference: a.config.ClientName,
	}
}

var _ shipping.DelhiveryCarrier = (*DelhiveryAdapter)(nil)
