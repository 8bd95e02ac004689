package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"vpn-rent-bot/internal/permissions"
)

// MessageHandler defines the interface for handling Telegram messages
type MessageHandler interface {
	Handle(ctx context.Context, c telebot.Context) error
}

// Factory creates message handlers per access type
type Factory struct {
	base BaseHandler
}

// NewFactory creates a new handler factory
func NewFactory(base BaseHandler) *Factory {
	return &Factory{base: base}
}

// CreateHandler creates a message handler for the given access type
func (f *Factory) CreateHandler(accessType permissions.AccessType) MessageHandler {
	member := NewMemberHandler(f.base)
	if accessType == permissions.Admin {
		return NewAdminHandler(member)
	}
	return member
}
