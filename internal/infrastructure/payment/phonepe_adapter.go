package payment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/internal/domain/payment"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/infrastructure/retry"
)

const defaultPhonePeTimeout = 20 * time.Second

// PhonePeAdapter implements payment.Gateway for PhonePe standard checkout
type PhonePeAdapter struct {
	config     *PhonePeConfig
	httpClient *http.Client
}

// PhonePeOption configures the adapter
type PhonePeOption func(*PhonePeAdapter)

// WithPhonePeHTTPClient replaces the HTTP client
func WithPhonePeHTTPClient(c *http.Client) PhonePeOption {
	return func(a *PhonePeAdapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// NewPhonePeAdapter creates a new PhonePe adapter
func NewPhonePeAdapter(cfg *PhonePeConfig, opts ...PhonePeOption) (*PhonePeAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = phonePeProductionBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPhonePeTimeout
	}
	a := &PhonePeAdapter{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// PhonePeTransactionID is the merchant transaction id of a payment attempt
func PhonePeTransactionID(orderNumber string, attempt int) string {
	return orderNumber + "_" + strconv.Itoa(max(attempt, 1))
}

// Provider returns the provider this gateway serves
func (a *PhonePeAdapter) Provider() order.PaymentProvider {
	return order.ProviderPhonePe
}

// CreateSession opens a PhonePe hosted payment page
func (a *PhonePeAdapter) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txnID := PhonePeTransactionID(req.OrderNumber, req.Attempt)
	payload := phonePePayRequest{
		MerchantID:            a.config.MerchantID,
		MerchantTransactionID: txnID,
		MerchantUserID:        "U" + strings.ReplaceAll(req.UserID.String(), "-", ""),
		Amount:                req.Amount.Paise(),
		RedirectURL:           a.redirectURL(req.OrderID.String()),
		RedirectMode:          "REDIRECT",
		CallbackURL:           a.config.CallbackURL,
		MobileNumber:          req.CustomerPhone,
		PaymentInstrument:     phonePePayInstrument{Type: "PAY_PAGE"},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("phonepe: failed to marshal request: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, fmt.Errorf("phonepe: failed to marshal request: %w", err)
	}

	env, err := a.doRequest(ctx, http.MethodPost, phonePePayPath, body, a.checksum(encoded+phonePePayPath))
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s - %s", payment.ErrGatewayRequestFailed, env.Code, env.Message)
	}
	redirect := env.Data.InstrumentResponse.RedirectInfo.URL
	if redirect == "" {
		return nil, fmt.Errorf("%w: redirect url missing", payment.ErrGatewayInvalidResponse)
	}

	return &payment.Session{
		Provider:       order.ProviderPhonePe,
		GatewayOrderID: txnID,
		AmountPaise:    req.Amount.Paise(),
		Currency:       string(valueobject.INR),
		RedirectURL:    redirect,
	}, nil
}

// FetchStatus polls the PhonePe status API for a merchant transaction
func (a *PhonePeAdapter) FetchStatus(ctx context.Context, query payment.StatusQuery) (*payment.StatusResult, error) {
	txnID := query.MerchantTxnID
	if txnID == "" {
		txnID = query.GatewayOrderID
	}
	if txnID == "" {
		return nil, fmt.Errorf("%w: merchant transaction id is required", payment.ErrInvalidSessionRequest)
	}

	path := fmt.Sprintf(phonePeStatusPath, a.config.MerchantID, txnID)
	env, err := a.doRequest(ctx, http.MethodGet, path, nil, a.checksum(path))
	if err != nil {
		return nil, err
	}
	return phonePeResult(env), nil
}

// ParseWebhook verifies the X-VERIFY header of a server-to-server callback
// and decodes the base64 response it carries
func (a *PhonePeAdapter) ParseWebhook(body []byte, signature string) (*payment.WebhookEvent, error) {
	var cb phonePeCallback
	if err := json.Unmarshal(body, &cb); err != nil || cb.Response == "" {
		return nil, fmt.Errorf("%w: malformed callback", payment.ErrGatewayInvalidResponse)
	}
	want := a.checksum(cb.Response)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(signature))) != 1 {
		return nil, payment.ErrInvalidSignature
	}

	decoded, err := base64.StdEncoding.DecodeString(cb.Response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}
	var env phonePeEnvelope
	if err := json.Unmarshal(decoded, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}
	result := phonePeResult(&env)
	return &payment.WebhookEvent{
		ID:             env.Data.MerchantTransactionID + ":" + env.Code,
		Type:           env.Code,
		GatewayOrderID: env.Data.MerchantTransactionID,
		PaymentID:      result.PaymentID,
		State:          result.State,
	}, nil
}

// checksum computes sha256(payload + saltKey) + "###" + saltIndex
func (a *PhonePeAdapter) checksum(payload string) string {
	sum := sha256.Sum256([]byte(payload + a.config.SaltKey))
	return hex.EncodeToString(sum[:]) + "###" + a.config.SaltIndex
}

func (a *PhonePeAdapter) redirectURL(orderID string) string {
	sep := "?"
	if strings.Contains(a.config.RedirectURL, "?") {
		sep = "&"
	}
	return a.config.RedirectURL + sep + "orderId=" + orderID
}

func (a *PhonePeAdapter) doRequest(ctx context.Context, method, path string, body []byte, xVerify string) (*phonePeEnvelope, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("phonepe: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-VERIFY", xVerify)
	req.Header.Set("X-MERCHANT-ID", a.config.MerchantID)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: phonepe: failed to read response: %v", payment.ErrGatewayUnavailable, err)
	}
	if isRetryableStatus(resp.StatusCode) {
		return nil, retry.ForStatus(fmt.Errorf("%w: HTTP %d", payment.ErrGatewayUnavailable, resp.StatusCode), resp.StatusCode)
	}

	var env phonePeEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: HTTP %d", payment.ErrGatewayRequestFailed, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s - %s", payment.ErrGatewayRequestFailed, env.Code, env.Message)
	}
	return &env, nil
}

func phonePeResult(env *phonePeEnvelope) *payment.StatusResult {
	result := &payment.StatusResult{
		State:         mapPhonePeStatus(env.Code, env.Data.State),
		PaymentID:     env.Data.TransactionID,
		GatewayStatus: env.Code,
	}
	if env.Data.Amount > 0 {
		m := valueobject.FromPaise(env.Data.Amount)
		result.Amount = &m
	}
	return result
}

func mapPhonePeStatus(code, state string) payment.State {
	switch {
	case code == phonePeCodeSuccess || state == phonePeStateDone:
		return payment.StateCompleted
	case code == phonePeCodeError || code == phonePeCodeDeclined || state == phonePeStateFailed:
		return payment.StateFailed
	default:
		return payment.StatePending
	}
}

var (
	_ payment.Gateway         = (*PhonePeAdapter)(nil)
	_ payment.WebhookVerifier = (*PhonePeAdapter)(nil)
)
