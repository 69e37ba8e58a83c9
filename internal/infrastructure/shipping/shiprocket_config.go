package shipping

import (
	"errors"
	"time"

	"github.com/wellnest/backend/internal/domain/shipping"
	"github.com/wellnest/backend/internal/infrastructure/config"
)

const (
	shiprocketDefaultBaseURL  = "https://apiv2.shiprocket.in/v1/external"
	shiprocketDefaultTokenTTL = 9 * 24 * time.Hour
)

// ShiprocketConfig contains configuration for the Shiprocket API
type ShiprocketConfig struct {
	Email    string
	Password string
	// BaseURL is the external API root, including /v1/external
	BaseURL string
	// PickupLocation is the pickup nickname registered in Shiprocket
	PickupLocation string
	// PickupPincode is used for serviceability checks
	PickupPincode string
	// TokenTTL is how long a login token is reused. Shiprocket tokens last 10 days
	TokenTTL time.Duration
	// DefaultParcel is used when the order carries no dimensions
	DefaultParcel shipping.ParcelSpec
	Timeout       time.Duration
}

// Errors for configuration validation
var (
	ErrShiprocketMissingCredentials = errors.New("shiprocket: missing email or password")
	ErrShiprocketMissingPickup      = errors.New("shiprocket: missing pickup location")
)

// ShiprocketConfigFrom maps the shiprocket config section
func ShiprocketConfigFrom(cfg config.ShiprocketConfig) *ShiprocketConfig {
	return &ShiprocketConfig{
		Email:          cfg.Email,
		Password:       cfg.Password,
		BaseURL:        cfg.BaseURL,
		PickupLocation: cfg.PickupLocation,
		PickupPincode:  cfg.PickupPincode,
		TokenTTL:       cfg.TokenTTL,
		DefaultParcel: shipping.ParcelSpec{
			WeightKg:  cfg.DefaultWeight,
			LengthCm:  cfg.DefaultLength,
			BreadthCm: cfg.DefaultBreadth,
			HeightCm:  cfg.DefaultHeight,
		},
	}
}

// Validate validates the configuration
func (c *ShiprocketConfig) Validate() error {
	if c.Email == "" || c.Password == "" {
		return ErrShiprocketMissingCredentials
	}
	if c.PickupLocation == "" {
		return ErrShiprocketMissingPickup
	}
	return nil
}

func (c *ShiprocketConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = shiprocketDefaultBaseURL
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = shiprocketDefaultTokenTTL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultCarrierTimeout
	}
	if c.DefaultParcel.WeightKg <= 0 {
		c.DefaultParcel.WeightKg = 0.5
	}
	if c.DefaultParcel.LengthCm <= 0 {
		c.DefaultParcel.LengthCm = 15
	}
	if c.DefaultParcel.BreadthCm <= 0 {
		c.DefaultParcel.BreadthCm = 10
	}
	if c.DefaultParcel.HeightCm <= 0 {
		c.DefaultParcel.HeightCm = 8
	}
}
