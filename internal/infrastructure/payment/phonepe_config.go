package payment

import (
	"errors"
	"time"

	"github.com/wellnest/backend/internal/infrastructure/config"
)

const phonePeProductionBaseURL = "https://api.phonepe.com/apis/hermes"

// PhonePeConfig contains configuration for PhonePe standard checkout
type PhonePeConfig struct {
	// MerchantID is the PhonePe merchant id
	MerchantID string
	// SaltKey signs X-VERIFY checksums
	SaltKey string
	// SaltIndex is appended to every checksum after ###
	SaltIndex string
	// BaseURL is the API host, the UAT sandbox or production
	BaseURL string
	// RedirectURL is where PhonePe sends the customer back
	RedirectURL string
	// CallbackURL receives the server-to-server notification
	CallbackURL string
	// Timeout bounds one API call
	Timeout time.Duration
}

// Errors for configuration validation
var (
	ErrPhonePeMissingMerchantID  = errors.New("phonepe: missing merchant id")
	ErrPhonePeMissingSaltKey     = errors.New("phonepe: missing salt key")
	ErrPhonePeMissingSaltIndex   = errors.New("phonepe: missing salt index")
	ErrPhonePeMissingRedirectURL = errors.New("phonepe: missing redirect url")
)

// PhonePeConfigFrom maps the phonepe config section
func PhonePeConfigFrom(cfg config.PhonePeConfig) *PhonePeConfig {
	return &PhonePeConfig{
		MerchantID:  cfg.MerchantID,
		SaltKey:     cfg.SaltKey,
		SaltIndex:   cfg.SaltIndex,
		BaseURL:     cfg.BaseURL,
		RedirectURL: cfg.RedirectURL,
		CallbackURL: cfg.CallbackURL,
	}
}

// Validate validates the configuration
func (c *PhonePeConfig) Validate() error {
	if c.MerchantID == "" {
		return ErrPhonePeMissingMerchantID
	}
	if c.SaltKey == "" {
		return ErrPhonePeMissingSaltKey
	}
	if c.SaltIndex == "" {
		return ErrPhonePeMissingSaltIndex
	}
	if c.RedirectURL == "" {
		return ErrPhonePeMissingRedirectURL
	}
	return nil
}
