package telegrambot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"vpn-rent-bot/internal/config"
	"vpn-rent-bot/internal/handlers"
	"vpn-rent-bot/internal/permissions"
	"vpn-rent-bot/internal/storage"
)

// Bot represents the Telegram bot front-end. It is built in two phases:
// New connects to Telegram, Attach wires the handlers once the services
// that depend on the bot instance exist.
type Bot struct {
	bot      *telebot.Bot
	config   *config.Config
	handlers map[permissions.AccessType]handlers.MessageHandler
	permCtrl *permissions.Controller
	store    *storage.Storage
	logger   *logrus.Logger
}

// New creates a new Telegram bot
func New(cfg *config.Config, logger *logrus.Logger) (*Bot, error) {
	settings := telebot.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			logger.Errorf("Telegram bot error: %v", err)
			if c != nil {
				c.Send("An error occurred. Please try again later.")
			}
		},
	}

	b, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Bot{
		bot:      b,
		config:   cfg,
		handlers: make(map[permissions.AccessType]handlers.MessageHandler),
		logger:   logger,
	}, nil
}

// Raw returns the underlying telebot instance
func (b *Bot) Raw() *telebot.Bot {
	return b.bot
}

// Attach wires the message handlers and middleware
func (b *Bot) Attach(factory *handlers.Factory, permCtrl *permissions.Controller, store *storage.Storage) {
	b.permCtrl = permCtrl
	b.store = store

	b.handlers[permissions.Admin] = factory.CreateHandler(permissions.Admin)
	b.handlers[permissions.Member] = factory.CreateHandler(permissions.Member)

	b.setupMiddleware()
}

// Start starts the bot and blocks until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting Telegram bot")

	go func() {
		<-ctx.Done()
		b.logger.Info("Stopping Telegram bot")
		b.bot.Stop()
	}()

	b.bot.Start()
	return nil
}

// setupMiddleware sets up the bot middleware
func (b *Bot) setupMiddleware() {
	b.bot.Use(func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			b.logger.Debugf("Received message from %d: %s", c.Sender().ID, c.Text())
			b.registerUser(c)
			return next(c)
		}
	})

	b.bot.Handle(telebot.OnText, b.handleUpdate)
	b.bot.Handle(telebot.OnCallback, b.handleUpdate)
	b.bot.Handle("/start", b.handleUpdate)
}

// registerUser records the sender on first contact. A numeric /start payload
// is treated as the referrer's Telegram id.
func (b *Bot) registerUser(c telebot.Context) {
	sender := c.Sender()
	if sender == nil {
		return
	}

	if _, err := b.store.GetUser(sender.ID); err == nil {
		if err := b.store.SetActivity(sender.ID); err != nil {
			b.logger.Warnf("Failed to bump activity of user %d: %v", sender.ID, err)
		}
		return
	}

	referral := b.parseReferral(c)
	name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)

	if err := b.store.AddUser(sender.ID, sender.Username, name, referral); err != nil {
		b.logger.Errorf("Failed to register user %d: %v", sender.ID, err)
		return
	}

	if referral != 0 {
		if err := b.store.AddRef(referral); err != nil {
			b.logger.Warnf("Failed to count referral for %d: %v", referral, err)
		}
	}
}

// parseReferral extracts the referrer id from the /start payload.
// Self-referrals are ignored.
func (b *Bot) parseReferral(c telebot.Context) int64 {
	msg := c.Message()
	if msg == nil || msg.Payload == "" {
		return 0
	}

	referral, err := strconv.ParseInt(strings.TrimSpace(msg.Payload), 10, 64)
	if err != nil || referral == c.Sender().ID {
		return 0
	}
	return referral
}

// handleUpdate dispatches an update to the handler for the sender's access type
func (b *Bot) handleUpdate(c telebot.Context) error {
	accessType := b.permCtrl.GetAccessType(c.Sender().ID)

	handler, ok := b.handlers[accessType]
	if !ok {
		b.logger.Warnf("No handler for access type %d", accessType)
		return c.Send("You don't have permission to use this bot.")
	}

	return handler.Handle(context.Background(), c)
}
