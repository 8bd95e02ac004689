package handlers

import (
	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"vpn-rent-bot/internal/commands"
	"vpn-rent-bot/internal/config"
	"vpn-rent-bot/internal/notify"
	"vpn-rent-bot/internal/payments"
	"vpn-rent-bot/internal/services"
	"vpn-rent-bot/internal/storage"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	stateService   *services.UserStateService
	store          *storage.Storage
	vpn            *services.VPNService
	waiter         *services.PaymentWaiter
	cardProvider   *payments.CardProvider
	cryptoProvider *payments.CryptoProvider
	notifier       notify.Notifier
	config         *config.Config
	logger         *logrus.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(
	stateService *services.UserStateService,
	store *storage.Storage,
	vpn *services.VPNService,
	waiter *services.PaymentWaiter,
	cardProvider *payments.CardProvider,
	cryptoProvider *payments.CryptoProvider,
	notifier notify.Notifier,
	cfg *config.Config,
	logger *logrus.Logger,
) BaseHandler {
	return BaseHandler{
		stateService:   stateService,
		store:          store,
		vpn:            vpn,
		waiter:         waiter,
		cardProvider:   cardProvider,
		cryptoProvider: cryptoProvider,
		notifier:       notifier,
		config:         cfg,
		logger:         logger,
	}
}

// sendTextMessage sends a text message with optional markup
func (h *BaseHandler) sendTextMessage(c telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	opts := &telebot.SendOptions{
		ParseMode: telebot.ModeHTML,
	}
	if markup != nil {
		opts.ReplyMarkup = markup
	}

	_, err := c.Bot().Send(c.Recipient(), text, opts)
	if err != nil {
		h.logger.Errorf("Failed to send message: %v", err)
	}
	return err
}

// mainKeyboard builds the member main menu
func (h *BaseHandler) mainKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(telebot.Btn{Text: commands.RentVPN}, telebot.Btn{Text: commands.MyVPNs}),
		markup.Row(telebot.Btn{Text: commands.Renew}, telebot.Btn{Text: commands.Manage}),
		markup.Row(telebot.Btn{Text: commands.Referral}, telebot.Btn{Text: commands.Help}),
	)
	return markup
}

// cancelKeyboard builds a keyboard with a single cancel button
func (h *BaseHandler) cancelKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(markup.Row(telebot.Btn{Text: commands.Cancel}))
	return markup
}
