// Package config reads settings from config.toml and WELLNEST_* environment
// variables, the latter winning. Every key has a default so the service
// starts locally with no file at all.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DefaultJWTSecret signs development tokens. Production refuses it.
const DefaultJWTSecret = "wellnest-dev-secret-change-me-please-0000"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Swagger    SwaggerConfig    `mapstructure:"swagger"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Printing   PrintingConfig   `mapstructure:"printing"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Pyroscope  PyroscopeConfig  `mapstructure:"pyroscope"`
	Razorpay   RazorpayConfig   `mapstructure:"razorpay"`
	PhonePe    PhonePeConfig    `mapstructure:"phonepe"`
	Shiprocket ShiprocketConfig `mapstructure:"shiprocket"`
	Delhivery  DelhiveryConfig  `mapstructure:"delhivery"`
	Store      StoreConfig      `mapstructure:"store"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Mail       MailConfig       `mapstructure:"mail"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

func (a AppConfig) IsProduction() bool { return a.Env == "production" }

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN is a postgres:// URL with user and password escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`

	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	// the auth limit covers login, signup and OTP endpoints
	AuthRateLimitEnabled  bool          `mapstructure:"auth_rate_limit_enabled"`
	AuthRateLimitRequests int           `mapstructure:"auth_rate_limit_requests"`
	AuthRateLimitWindow   time.Duration `mapstructure:"auth_rate_limit_window"`

	// no origins means no cross-origin access
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string `mapstructure:"trusted_proxies"`
}

type SwaggerConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	AllowedIPs []string `mapstructure:"allowed_ips"`
}

// StorageConfig points at the S3-compatible bucket invoices are archived in.
type StorageConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Endpoint          string        `mapstructure:"endpoint"`
	Bucket            string        `mapstructure:"bucket"`
	AccessKey         string        `mapstructure:"access_key"`
	SecretKey         string        `mapstructure:"secret_key"`
	Region            string        `mapstructure:"region"`
	UseSSL            bool          `mapstructure:"use_ssl"`
	UsePathStyle      bool          `mapstructure:"use_path_style"`
	PresignExpiration time.Duration `mapstructure:"presign_expiration"`
}

type PrintingConfig struct {
	ChromePath    string        `mapstructure:"chrome_path"` // empty finds Chrome on PATH
	RemoteURL     string        `mapstructure:"remote_url"`  // DevTools websocket; wins over ChromePath
	PageSize      string        `mapstructure:"page_size"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// TelemetryConfig switches the OTLP signals. Metrics, logs and DB tracing
// need Enabled as well as their own flag.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

type PyroscopeConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServerAddress     string `mapstructure:"server_address"`
	BasicAuthUser     string `mapstructure:"basic_auth_user"`
	BasicAuthPassword string `mapstructure:"basic_auth_password"`
}

type RazorpayConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	KeyID         string `mapstructure:"key_id"`
	KeySecret     string `mapstructure:"key_secret"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	BaseURL       string `mapstructure:"base_url"` // tests only; empty uses the SDK's
}

type PhonePeConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MerchantID  string `mapstructure:"merchant_id"`
	SaltKey     string `mapstructure:"salt_key"`
	SaltIndex   string `mapstructure:"salt_index"`
	BaseURL     string `mapstructure:"base_url"`
	RedirectURL string `mapstructure:"redirect_url"` // where the customer lands after paying
	CallbackURL string `mapstructure:"callback_url"` // server-to-server notification
}

// ShiprocketConfig carries the account and the parcel dimensions used when a
// product has none.
type ShiprocketConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Email          string        `mapstructure:"email"`
	Password       string        `mapstructure:"password"`
	BaseURL        string        `mapstructure:"base_url"`
	PickupLocation string        `mapstructure:"pickup_location"`
	PickupPincode  string        `mapstructure:"pickup_pincode"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	DefaultWeight  float64       `mapstructure:"default_weight"`  // kg
	DefaultLength  float64       `mapstructure:"default_length"`  // cm
	DefaultBreadth float64       `mapstructure:"default_breadth"` // cm
	DefaultHeight  float64       `mapstructure:"default_height"`  // cm
}

type DelhiveryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIToken   string `mapstructure:"api_token"`
	BaseURL    string `mapstructure:"base_url"`
	PickupName string `mapstructure:"pickup_name"`
	ClientName string `mapstructure:"client_name"`
}

// StoreConfig is the seller identity printed on invoices plus checkout rules.
type StoreConfig struct {
	SellerName   string `mapstructure:"seller_name"`
	GSTIN        string `mapstructure:"gstin"`
	Address      string `mapstructure:"address"`
	SupportEmail string `mapstructure:"support_email"`
	SupportPhone string `mapstructure:"support_phone"`

	// parsed separately so a bad amount names its key
	DeliveryCharge    decimal.Decimal `mapstructure:"-"`
	FreeDeliveryAbove decimal.Decimal `mapstructure:"-"` // zero turns free delivery off

	CartTTL            time.Duration `mapstructure:"cart_ttl"`
	Currency           string        `mapstructure:"currency"`
	OrderNumberPrefix  string        `mapstructure:"order_number_prefix"`
	OrderNumberWorker  int           `mapstructure:"order_number_worker"` // 0-31, one per replica
	InvoiceArchivePath string        `mapstructure:"invoice_archive_path"`
}

// RetryConfig is the backoff for gateway and carrier calls.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"`
}

// MailConfig is the SMTP relay. Without a host mails are only logged.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type ReconcileConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	MinAge   time.Duration `mapstructure:"min_age"`
	Batch    int           `mapstructure:"batch"`
}

// defaults lists every key. A key missing here is not read from the
// environment, so secrets appear with an empty value.
var defaults = map[string]any{
	"app.name": "wellnest-backend",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "wellnest",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,
	"redis.prefix":   "wellnest:",

	"jwt.secret":                  DefaultJWTSecret,
	"jwt.access_token_expiration": "24h",
	"jwt.issuer":                  "wellnest",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout": "15s",
	// invoice rendering and carrier booking run inside the request
	"http.write_timeout":            "60s",
	"http.idle_timeout":             "60s",
	"http.max_header_bytes":         1 << 20,
	"http.max_body_size":            1 << 20,
	"http.rate_limit_enabled":       false,
	"http.rate_limit_requests":      100,
	"http.rate_limit_window":        "1m",
	"http.auth_rate_limit_enabled":  false,
	"http.auth_rate_limit_requests": 5,
	"http.auth_rate_limit_window":   "1m",
	"http.cors_allow_origins":       []string{},
	"http.cors_allow_methods":       []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
	"http.cors_allow_headers":       []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":          []string{},

	"swagger.enabled":     false,
	"swagger.allowed_ips": []string{},

	"storage.enabled":            false,
	"storage.endpoint":           "",
	"storage.bucket":             "",
	"storage.access_key":         "",
	"storage.secret_key":         "",
	"storage.region":             "ap-south-1",
	"storage.use_ssl":            false,
	"storage.use_path_style":     false,
	"storage.presign_expiration": "15m",

	"printing.chrome_path":    "",
	"printing.remote_url":     "",
	"printing.page_size":      "A4",
	"printing.timeout":        "30s",
	"printing.max_concurrent": 2,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": "200ms",

	"pyroscope.enabled":             false,
	"pyroscope.server_address":      "http://localhost:4040",
	"pyroscope.basic_auth_user":     "",
	"pyroscope.basic_auth_password": "",

	"razorpay.enabled":        false,
	"razorpay.key_id":         "",
	"razorpay.key_secret":     "",
	"razorpay.webhook_secret": "",
	"razorpay.base_url":       "",

	"phonepe.enabled":      false,
	"phonepe.merchant_id":  "",
	"phonepe.salt_key":     "",
	"phonepe.salt_index":   "1",
	"phonepe.base_url":     "https://api-preprod.phonepe.com/apis/pg-sandbox",
	"phonepe.redirect_url": "",
	"phonepe.callback_url": "",

	"shiprocket.enabled":         false,
	"shiprocket.email":           "",
	"shiprocket.password":        "",
	"shiprocket.base_url":        "https://apiv2.shiprocket.in/v1/external",
	"shiprocket.pickup_location": "Primary",
	"shiprocket.pickup_pincode":  "",
	// tokens last ten days; renew a day early
	"shiprocket.token_ttl":       "216h",
	"shiprocket.default_weight":  0.5,
	"shiprocket.default_length":  15.0,
	"shiprocket.default_breadth": 10.0,
	"shiprocket.default_height":  8.0,

	"delhivery.enabled":     false,
	"delhivery.api_token":   "",
	"delhivery.base_url":    "https://staging-express.delhivery.com",
	"delhivery.pickup_name": "",
	"delhivery.client_name": "",

	"store.seller_name":          "Wellnest",
	"store.gstin":                "",
	"store.address":              "",
	"store.support_email":        "",
	"store.support_phone":        "",
	"store.delivery_charge":      "30",
	"store.free_delivery_above":  "0",
	"store.cart_ttl":             "168h",
	"store.currency":             "INR",
	"store.order_number_prefix":  "WN-",
	"store.order_number_worker":  0,
	"store.invoice_archive_path": "invoices",

	"retry.max_attempts":     3,
	"retry.initial_interval": "300ms",
	"retry.max_interval":     "3s",
	"retry.max_elapsed":      "15s",

	"mail.host":     "",
	"mail.port":     587,
	"mail.user":     "",
	"mail.password": "",
	"mail.from":     "no-reply@wellnest.local",

	"reconcile.enabled":  false,
	"reconcile.interval": "5m",
	"reconcile.min_age":  "15m",
	"reconcile.batch":    50,
}

// Load reads ./config.toml, ./config/config.toml or /etc/wellnest/config.toml
// when one exists, then overlays the environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/wellnest")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("WELLNEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	var err error
	if cfg.Store.DeliveryCharge, err = readDecimal(v, "store.delivery_charge"); err != nil {
		return nil, err
	}
	if cfg.Store.FreeDeliveryAbove, err = readDecimal(v, "store.free_delivery_above"); err != nil {
		return nil, err
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal amount: %w", key, err)
	}
	return d, nil
}

func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	check(c.Store.OrderNumberWorker >= 0 && c.Store.OrderNumberWorker <= 31, "store.order_number_worker must be between 0 and 31")
	check(!c.Store.DeliveryCharge.IsNegative(), "store.delivery_charge cannot be negative")
	check(!c.Store.FreeDeliveryAbove.IsNegative(), "store.free_delivery_above cannot be negative")
	check(c.Retry.MaxAttempts >= 1, "retry.max_attempts must be at least 1")
	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)

	check(!c.Razorpay.Enabled || (c.Razorpay.KeyID != "" && c.Razorpay.KeySecret != ""),
		"razorpay.key_id and razorpay.key_secret are required when razorpay is enabled")
	check(!c.PhonePe.Enabled || (c.PhonePe.MerchantID != "" && c.PhonePe.SaltKey != ""),
		"phonepe.merchant_id and phonepe.salt_key are required when phonepe is enabled")
	check(!c.Shiprocket.Enabled || (c.Shiprocket.Email != "" && c.Shiprocket.Password != ""),
		"shiprocket.email and shiprocket.password are required when shiprocket is enabled")
	check(!c.Delhivery.Enabled || c.Delhivery.APIToken != "", "delhivery.api_token is required when delhivery is enabled")
	check(!c.Storage.Enabled || c.Storage.Bucket != "", "storage.bucket is required when storage is enabled")

	if c.App.IsProduction() {
		check(c.JWT.Secret != DefaultJWTSecret, "jwt.secret must be set in production")
		check(len(c.JWT.Secret) >= 32, "jwt.secret must be at least 32 characters in production")
		check(db.Password != "", "database.password is required in production")
		check(!c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
		for _, origin := range c.HTTP.CORSAllowOrigins {
			check(origin != "*", "http.cors_allow_origins cannot be '*' in production")
		}
	}
	return errors.Join(errs...)
}
