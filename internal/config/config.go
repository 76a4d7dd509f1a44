package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CustomerRef maps an RFID tag to the billing identity behind it.
type CustomerRef struct {
	ContractID    int64  `yaml:"contractId"`
	ContractIdent string `yaml:"contractIdent"`
	DebtorIdent   string `yaml:"debtorIdent"`
}

// HTTPConfig holds the local status API settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"STATION_HTTP_PORT"`
}

// BillingConfig holds the billing backend endpoints and credentials.
type BillingConfig struct {
	BaseURL        string `yaml:"baseUrl" env:"BILLING_BASE_URL"`
	OAuthURL       string `yaml:"oauthUrl" env:"BILLING_OAUTH_URL"`
	CredentialsB64 string `yaml:"credentials" env:"BILLING_CLIENT_CREDENTIALS"`
	ProductIdent   string `yaml:"productIdent" env:"BILLING_PRODUCT_IDENT"`
	TaxCountry     string `yaml:"taxCountry" env:"BILLING_TAX_COUNTRY"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" env:"BILLING_TIMEOUT"`
}

// PartnerConfig holds the optional partner notification endpoint.
type PartnerConfig struct {
	Enabled   bool   `yaml:"enabled" env:"PARTNER_ENABLED"`
	BaseURL   string `yaml:"baseUrl" env:"PARTNER_BASE_URL"`
	PartnerID string `yaml:"partnerId" env:"PARTNER_ID"`
	Article   string `yaml:"article" env:"PARTNER_ARTICLE"`
}

// HardwareConfig holds relay and RFID reader settings.
type HardwareConfig struct {
	RelayGPIO       int    `yaml:"relayGpio" env:"RELAY_GPIO"`
	RelayDisabled   bool   `yaml:"relayDisabled" env:"RELAY_DISABLED"`
	RFIDDevice      string `yaml:"rfidDevice" env:"RFID_DEVICE"`
	DebounceSeconds int    `yaml:"debounceSeconds" env:"RFID_DEBOUNCE"`
}

// DatabaseConfig holds the optional local session journal DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"STATION_POSTGRES_DSN"`
}

// RedisConfig holds the optional active-session store settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"STATION_REDIS_ADDR"`
	Password string `yaml:"password" env:"STATION_REDIS_PASSWORD"`
	TTL      int    `yaml:"ttlSeconds" env:"STATION_REDIS_TTL"`
}

// CoffeeConfig holds the side-purchase product sold at the kiosk.
type CoffeeConfig struct {
	ProductIdent string  `yaml:"productIdent" env:"COFFEE_PRODUCT_IDENT"`
	Price        float64 `yaml:"price" env:"COFFEE_PRICE"`
	Currency     string  `yaml:"currency" env:"COFFEE_CURRENCY"`
}

// Config defines the station agent configuration.
type Config struct {
	StationID string                 `yaml:"stationId" env:"STATION_ID"`
	Currency  string                 `yaml:"currency" env:"STATION_CURRENCY"`
	HTTP      HTTPConfig             `yaml:"http"`
	Billing   BillingConfig          `yaml:"billing"`
	Partner   PartnerConfig          `yaml:"partner"`
	Hardware  HardwareConfig         `yaml:"hardware"`
	Database  DatabaseConfig         `yaml:"database"`
	Redis     RedisConfig            `yaml:"redis"`
	Coffee    CoffeeConfig           `yaml:"coffee"`
	Customers map[string]CustomerRef `yaml:"customers" env:"-"`
}

// Load reads configuration from the optional YAML file plus environment.
func Load() (*Config, error) {
	cfg := &Config{
		StationID: "station-1",
		Currency:  "EUR",
		HTTP:      HTTPConfig{Port: "8090"},
		Billing: BillingConfig{
			TaxCountry:     "DE",
			TimeoutSeconds: 30,
		},
		Partner: PartnerConfig{Article: "charging"},
		Hardware: HardwareConfig{
			RelayGPIO:       17,
			RFIDDevice:      "/dev/rfid0",
			DebounceSeconds: 2,
		},
		Redis:  RedisConfig{TTL: 86400},
		Coffee: CoffeeConfig{Price: 2.50, Currency: "EUR"},
	}

	if err := hydrate(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Billing.BaseURL) == "" {
		return nil, errors.New("config: billing base url required")
	}
	if strings.TrimSpace(cfg.Billing.OAuthURL) == "" {
		return nil, errors.New("config: billing oauth url required")
	}
	if strings.TrimSpace(cfg.Billing.CredentialsB64) == "" {
		return nil, errors.New("config: billing client credentials required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// BillingTimeout returns the upstream request timeout as a duration.
func (c *Config) BillingTimeout() time.Duration {
	if c.Billing.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Billing.TimeoutSeconds) * time.Second
}

// TagDebounce returns the same-tag cooldown as a duration.
func (c *Config) TagDebounce() time.Duration {
	if c.Hardware.DebounceSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Hardware.DebounceSeconds) * time.Second
}

// ActiveSessionTTL returns the redis key lifetime.
func (c *Config) ActiveSessionTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}
