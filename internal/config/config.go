package config

import "time"

// Config represents the application configuration
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Panel    PanelConfig    `mapstructure:"panel"`
	Database DatabaseConfig `mapstructure:"database"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Web      WebConfig      `mapstructure:"web"`
	LogLevel string         `mapstructure:"log_level"`
}

// TelegramConfig holds the Telegram bot configuration
type TelegramConfig struct {
	Token    string  `mapstructure:"token"`
	AdminIDs []int64 `mapstructure:"admin_ids"`
}

// PanelConfig holds the configuration for the 3x-ui proxy panel
type PanelConfig struct {
	// Domain is the public host of the panel, also used in subscription links
	Domain   string `mapstructure:"domain"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	// APIURL is the base URL of the panel ("https://<domain>:2053" unless overridden)
	APIURL string `mapstructure:"api_url"`
	// VPNPort is the listen port of the shared VPN inbound
	VPNPort int `mapstructure:"vpn_port"`
}

// DatabaseConfig holds the SQLite database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PaymentsConfig holds the payment provider configuration
type PaymentsConfig struct {
	YooAccountID string        `mapstructure:"yoo_account_id"`
	YooSecretKey string        `mapstructure:"yoo_secret_key"`
	OxaAPIKey    string        `mapstructure:"oxa_api_key"`
	WaitTimeout  time.Duration `mapstructure:"wait_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// TrustMode skips provider status checks and treats every order as paid.
	// Development only.
	TrustMode bool `mapstructure:"trust_mode"`
}

// WebConfig holds the subscription web service configuration
type WebConfig struct {
	Listen string `mapstructure:"listen"`
}
