package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vpn-rent-bot/internal/constants"
	apperrors "vpn-rent-bot/internal/errors"
)

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("log_level", "info")

	// Define environment variables
	v.BindEnv("TG_TOKEN")
	v.BindEnv("TG_ADMIN_IDS")
	v.BindEnv("PANEL_DOMAIN")
	v.BindEnv("PANEL_USER")
	v.BindEnv("PANEL_PASSWORD")
	v.BindEnv("PANEL_API_URL")
	v.BindEnv("PANEL_VPN_PORT")
	v.BindEnv("DB_PATH")
	v.BindEnv("YOOKASSA_ACCOUNT_ID")
	v.BindEnv("YOOKASSA_SECRET_KEY")
	v.BindEnv("OXAPAY_API_KEY")
	v.BindEnv("PAYMENT_WAIT_TIMEOUT")
	v.BindEnv("PAYMENT_POLL_INTERVAL")
	v.BindEnv("PAYMENT_TRUST_MODE")
	v.BindEnv("WEB_LISTEN")
	v.BindEnv("LOG_LEVEL")

	cfg := &Config{
		LogLevel: v.GetString("log_level"),
		Telegram: TelegramConfig{
			Token: v.GetString("TG_TOKEN"),
		},
	}

	// Parse admin IDs
	adminIDsStr := v.GetString("TG_ADMIN_IDS")
	if adminIDsStr != "" {
		adminIDsSlice := strings.Split(adminIDsStr, ",")
		adminIDs := make([]int64, 0, len(adminIDsSlice))
		for _, idStr := range adminIDsSlice {
			var id int64
			if _, err := fmt.Sscanf(strings.TrimSpace(idStr), "%d", &id); err == nil {
				adminIDs = append(adminIDs, id)
			}
		}
		cfg.Telegram.AdminIDs = adminIDs
	}

	domain := strings.TrimSpace(v.GetString("PANEL_DOMAIN"))
	apiURL := strings.TrimSpace(v.GetString("PANEL_API_URL"))
	if apiURL == "" && domain != "" {
		apiURL = fmt.Sprintf("https://%s:2053", domain)
	}

	vpnPort := v.GetInt("PANEL_VPN_PORT")
	if vpnPort == 0 {
		vpnPort = constants.DefaultVPNPort
	}

	cfg.Panel = PanelConfig{
		Domain:   domain,
		User:     strings.TrimSpace(v.GetString("PANEL_USER")),
		Password: strings.TrimSpace(v.GetString("PANEL_PASSWORD")),
		APIURL:   apiURL,
		VPNPort:  vpnPort,
	}

	dbPath := v.GetString("DB_PATH")
	if dbPath == "" {
		dbPath = "data/bot.db"
	}
	cfg.Database = DatabaseConfig{Path: dbPath}

	waitTimeout := v.GetDuration("PAYMENT_WAIT_TIMEOUT")
	if waitTimeout == 0 {
		waitTimeout = constants.DefaultWaitTimeout * time.Second
	}
	pollInterval := v.GetDuration("PAYMENT_POLL_INTERVAL")
	if pollInterval == 0 {
		pollInterval = constants.DefaultPollInterval * time.Second
	}

	cfg.Payments = PaymentsConfig{
		YooAccountID: v.GetString("YOOKASSA_ACCOUNT_ID"),
		YooSecretKey: v.GetString("YOOKASSA_SECRET_KEY"),
		OxaAPIKey:    v.GetString("OXAPAY_API_KEY"),
		WaitTimeout:  waitTimeout,
		PollInterval: pollInterval,
		TrustMode:    v.GetBool("PAYMENT_TRUST_MODE"),
	}

	listen := v.GetString("WEB_LISTEN")
	if listen == "" {
		listen = ":8080"
	}
	cfg.Web = WebConfig{Listen: listen}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return &apperrors.ConfigError{Section: "telegram", Message: "TG_TOKEN is required"}
	}

	if len(cfg.Telegram.AdminIDs) == 0 {
		return &apperrors.ConfigError{Section: "telegram", Message: "TG_ADMIN_IDS is required"}
	}

	if cfg.Panel.Domain == "" {
		return &apperrors.ConfigError{Section: "panel", Message: "domain is required"}
	}
	if cfg.Panel.User == "" {
		return &apperrors.ConfigError{Section: "panel", Message: "user is required"}
	}
	if cfg.Panel.Password == "" {
		return &apperrors.ConfigError{Section: "panel", Message: "password is required"}
	}
	if cfg.Panel.APIURL == "" {
		return &apperrors.ConfigError{Section: "panel", Message: "API URL is required"}
	}

	return nil
}
