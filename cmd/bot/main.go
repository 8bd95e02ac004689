package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/config"
	"vpn-rent-bot/internal/handlers"
	"vpn-rent-bot/internal/notify"
	"vpn-rent-bot/internal/payments"
	"vpn-rent-bot/internal/permissions"
	"vpn-rent-bot/internal/scheduler"
	"vpn-rent-bot/internal/services"
	"vpn-rent-bot/internal/storage"
	"vpn-rent-bot/internal/web"
	"vpn-rent-bot/pkg/panelclient"
	"vpn-rent-bot/pkg/telegrambot"
)

func main() {
	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration:", err)
	}

	// Open local storage
	store, err := storage.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to open storage:", err)
	}

	// Initialize panel access
	panel := panelclient.NewClient(cfg.Panel, logger)
	vpnService := services.NewVPNService(panel, cfg, logger)

	// Initialize bot transport before the services that notify through it
	bot, err := telegrambot.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create bot:", err)
	}
	notifier := notify.NewTelegramNotifier(bot.Raw(), logger)

	// Initialize scheduler and expiry monitoring
	sched := scheduler.New(logger)
	expiryService := services.NewExpiryService(vpnService, store, notifier, sched, logger)
	if err := expiryService.ArmAll(); err != nil {
		logger.Errorf("Failed to arm expiry jobs: %v", err)
	}
	sched.Start()

	// Initialize order fulfillment
	provisioning := services.NewProvisioningService(vpnService, store, notifier, expiryService, logger)
	waiter := services.NewPaymentWaiter(provisioning, notifier, cfg.Payments.WaitTimeout, cfg.Payments.PollInterval, logger)

	// Initialize payment providers
	returnURL := fmt.Sprintf("https://t.me/%s", bot.Raw().Me.Username)
	rates := payments.NewRateSource()
	cardProvider := payments.NewCardProvider(cfg.Payments.YooAccountID, cfg.Payments.YooSecretKey, returnURL, logger)
	cryptoProvider := payments.NewCryptoProvider(cfg.Payments.OxaAPIKey, rates, logger)

	// Initialize chat flow
	stateService := services.NewUserStateService(logger)
	base := handlers.NewBaseHandler(stateService, store, vpnService, waiter, cardProvider, cryptoProvider, notifier, cfg, logger)
	factory := handlers.NewFactory(base)
	permController := permissions.NewController(cfg.Telegram.AdminIDs, logger)
	bot.Attach(factory, permController, store)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	// Start subscription web service
	webServer := web.NewServer(vpnService, cfg, logger)
	go func() {
		if err := webServer.Run(ctx); err != nil {
			logger.Errorf("Web service failed: %v", err)
			cancel()
		}
	}()

	// Start bot
	logger.Info("Starting VPN rental bot")
	if err := bot.Start(ctx); err != nil {
		logger.Fatal("Bot failed:", err)
	}

	sched.Stop()
}

// setupLogger sets up the logger
func setupLogger() *logrus.Logger {
	logger := logrus.New()

	// Set log level from environment variable or default to info
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Printf("Invalid log level %s, defaulting to info", logLevel)
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	// Set formatter
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return logger
}
