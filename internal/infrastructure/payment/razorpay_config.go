package payment

import (
	"errors"
	"time"

	"github.com/wellnest/backend/internal/infrastructure/config"
)

// RazorpayConfig contains configuration for the Razorpay Orders API
type RazorpayConfig struct {
	// KeyID is the public key id, also handed to the checkout widget
	KeyID string
	// KeySecret signs API calls and payment signatures
	KeySecret string
	// WebhookSecret verifies X-Razorpay-Signature on webhooks
	WebhookSecret string
	// BaseURL overrides the API host, empty uses the SDK default
	BaseURL string
	// Timeout bounds one API call
	Timeout time.Duration
}

// Errors for configuration validation
var (
	ErrRazorpayMissingKeyID     = errors.New("razorpay: missing key id")
	ErrRazorpayMissingKeySecret = errors.New("razorpay: missing key secret")
)

// RazorpayConfigFrom maps the razorpay config section
func RazorpayConfigFrom(cfg config.RazorpayConfig) *RazorpayConfig {
	return &RazorpayConfig{
		KeyID:         cfg.KeyID,
		KeySecret:     cfg.KeySecret,
		WebhookSecret: cfg.WebhookSecret,
		BaseURL:       cfg.BaseURL,
	}
}

// Validate validates the configuration
func (c *RazorpayConfig) Validate() error {
	if c.KeyID == "" {
		return ErrRazorpayMissingKeyID
	}
	if c.KeySecret == "" {
		return ErrRazorpayMissingKeySecret
	}
	return nil
}
