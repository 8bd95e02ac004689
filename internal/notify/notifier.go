package notify

import (
	"bytes"

	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	telebot "gopkg.in/telebot.v3"
)

// Notifier delivers messages to users. Implementations report delivery
// failures to the caller; the caller decides what a failed send means.
type Notifier interface {
	Send(userID int64, text string) error
	SendPhoto(userID int64, photo []byte, caption string) error
}

// TelegramNotifier sends messages through the Telegram bot API
type TelegramNotifier struct {
	bot    *telebot.Bot
	logger *logrus.Logger
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(bot *telebot.Bot, logger *logrus.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, logger: logger}
}

// Send sends an HTML-formatted text message
func (n *TelegramNotifier) Send(userID int64, text string) error {
	_, err := n.bot.Send(&telebot.User{ID: userID}, text, &telebot.SendOptions{
		ParseMode: telebot.ModeHTML,
	})
	if err != nil {
		n.logger.Warnf("Failed to send message to %d: %v", userID, err)
	}
	return err
}

// SendPhoto sends a photo with an HTML caption
func (n *TelegramNotifier) SendPhoto(userID int64, photo []byte, caption string) error {
	p := &telebot.Photo{File: telebot.FromReader(bytes.NewReader(photo)), Caption: caption}
	_, err := n.bot.Send(&telebot.User{ID: userID}, p, &telebot.SendOptions{
		ParseMode: telebot.ModeHTML,
	})
	if err != nil {
		n.logger.Warnf("Failed to send photo to %d: %v", userID, err)
	}
	return err
}

// QR renders a QR code image for the given text
func QR(text string) ([]byte, error) {
	return qrcode.Encode(text, qrcode.Medium, 256)
}
