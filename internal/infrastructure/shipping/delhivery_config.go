package shipping

import (
	"errors"
	"time"

	"github.com/wellnest/backend/internal/infrastructure/config"
)

const delhiveryDefaultBaseURL = "https://staging-express.delhivery.com"

// DelhiveryConfig contains configuration for the Delhivery CMU API
type DelhiveryConfig struct {
	APIToken string
	BaseURL  string
	// PickupName is the warehouse name registered with Delhivery
	PickupName string
	// ClientName is the client code Delhivery assigned to the account
	ClientName string
	Timeout    time.Duration
}

// Errors for configuration validation
var (
	ErrDelhiveryMissingToken  = errors.New("delhivery: missing api token")
	ErrDelhiveryMissingPickup = errors.New("delhivery: missing pickup name")
)

// DelhiveryConfigFrom maps the delhivery config section
func DelhiveryConfigFrom(cfg config.DelhiveryConfig) *DelhiveryConfig {
	return &DelhiveryConfig{
		APIToken:   cfg.APIToken,
		BaseURL:    cfg.BaseURL,
		PickupName: cfg.PickupName,
		ClientName: cfg.ClientName,
	}
}

// Validate validates the configuration
func (c *DelhiveryConfig) Validate() error {
	if c.APIToken == "" {
		return ErrDelhiveryMissingToken
	}
	if c.PickupName == "" {
		return ErrDelhiveryMissingPickup
	}
	return nil
}

func (c *DelhiveryConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = delhiveryDefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultCarrierTimeout
	}
}
