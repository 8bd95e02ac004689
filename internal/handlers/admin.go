package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"vpn-rent-bot/internal/commands"
	"vpn-rent-bot/internal/services"
)

// AdminHandler adds admin commands on top of the member flow
type AdminHandler struct {
	*MemberHandler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(member *MemberHandler) *AdminHandler {
	return &AdminHandler{MemberHandler: member}
}

// Handle handles a message from Telegram
func (h *AdminHandler) Handle(ctx context.Context, c telebot.Context) error {
	userID := c.Sender().ID
	state := h.stateService.GetState(userID)

	if state.State == services.AwaitingBroadcast {
		if c.Text() == commands.Cancel {
			return h.handleAdminStart(c)
		}
		return h.handleBroadcastText(c)
	}

	switch c.Text() {
	case commands.Broadcast:
		h.stateService.SetState(userID, services.UserState{State: services.AwaitingBroadcast})
		return h.sendTextMessage(c, "Send the message to broadcast to all users.", h.cancelKeyboard())
	case commands.Start, commands.Cancel, commands.ReturnToMainMenu:
		return h.handleAdminStart(c)
	}

	return h.MemberHandler.Handle(ctx, c)
}

// handleAdminStart shows the main menu with the admin row attached
func (h *AdminHandler) handleAdminStart(c telebot.Context) error {
	h.stateService.ClearState(c.Sender().ID)
	return h.sendTextMessage(c, "Welcome! Rent a personal VPN server in a couple of taps.", h.adminKeyboard())
}

func (h *AdminHandler) adminKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(telebot.Btn{Text: commands.RentVPN}, telebot.Btn{Text: commands.MyVPNs}),
		markup.Row(telebot.Btn{Text: commands.Renew}, telebot.Btn{Text: commands.Manage}),
		markup.Row(telebot.Btn{Text: commands.Referral}, telebot.Btn{Text: commands.Help}),
		markup.Row(telebot.Btn{Text: commands.Broadcast}),
	)
	return markup
}

// handleBroadcastText delivers the composed message to every user.
// An unreachable recipient is marked inactive; a reachable one that was
// inactive is reactivated.
func (h *AdminHandler) handleBroadcastText(c telebot.Context) error {
	text := c.Text()
	h.stateService.ClearState(c.Sender().ID)

	users, err := h.store.GetUsers()
	if err != nil {
		h.logger.Errorf("Broadcast failed to list users: %v", err)
		return h.sendTextMessage(c, "Broadcast failed.", h.adminKeyboard())
	}

	sent := 0
	for _, user := range users {
		if err := h.notifier.Send(user.TgID, text); err != nil {
			if err := h.store.SetActive(user.TgID, false); err != nil {
				h.logger.Errorf("Failed to deactivate user %d: %v", user.TgID, err)
			}
			continue
		}
		sent++
		if !user.Active {
			if err := h.store.SetActive(user.TgID, true); err != nil {
				h.logger.Errorf("Failed to reactivate user %d: %v", user.TgID, err)
			}
		}
	}

	h.logger.Infof("Broadcast delivered to %d of %d users", sent, len(users))
	return h.sendTextMessage(c, "Broadcast sent.", h.adminKeyboard())
}
