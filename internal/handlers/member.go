package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"vpn-rent-bot/internal/commands"
	"vpn-rent-bot/internal/constants"
	apperrors "vpn-rent-bot/internal/errors"
	"vpn-rent-bot/internal/models"
	"vpn-rent-bot/internal/payments"
	"vpn-rent-bot/internal/services"
)

type plan struct {
	months int
	price  int
}

// plans maps button texts to purchasable plans
var plans = map[string]plan{
	"1 month — 299₽":   {1, 299},
	"3 months — 849₽":  {3, 849},
	"6 months — 1599₽": {6, 1599},
}

// MemberHandler handles the customer chat flow
type MemberHandler struct {
	BaseHandler
	commandHandlers map[string]func(telebot.Context) error
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(base BaseHandler) *MemberHandler {
	handler := &MemberHandler{BaseHandler: base}
	handler.initializeCommands()
	return handler
}

// Handle handles a message from Telegram
func (h *MemberHandler) Handle(ctx context.Context, c telebot.Context) error {
	userID := c.Sender().ID
	state := h.stateService.GetState(userID)

	if c.Text() == commands.Cancel || c.Text() == commands.ReturnToMainMenu {
		return h.handleStart(c)
	}

	switch state.State {
	case services.AwaitingPlan:
		return h.handlePlanChoice(c, state)
	case services.AwaitingPaymentMethod:
		return h.handlePaymentMethod(ctx, c, state)
	case services.AwaitingRenewTarget:
		return h.handleRenewTarget(c, state)
	case services.AwaitingManageTarget:
		return h.handleManageTarget(c, state)
	case services.AwaitingManageAction:
		return h.handleManageAction(ctx, c, state)
	case services.AwaitingRename:
		return h.handleRenameText(c, state)
	default:
		return h.handleDefaultState(c)
	}
}

// initializeCommands initializes the command handlers
func (h *MemberHandler) initializeCommands() {
	h.commandHandlers = map[string]func(telebot.Context) error{
		commands.Start:    h.handleStart,
		commands.RentVPN:  h.handleRent,
		commands.MyVPNs:   h.handleMyVPNs,
		commands.Renew:    h.handleRenew,
		commands.Manage:   h.handleManage,
		commands.Referral: h.handleReferral,
		commands.Payout:   h.handlePayout,
		commands.Help:     h.handleHelp,
	}
}

// handleDefaultState handles the default state
func (h *MemberHandler) handleDefaultState(c telebot.Context) error {
	if handler, ok := h.commandHandlers[c.Text()]; ok {
		return handler(c)
	}
	return h.handleStart(c)
}

// handleStart handles the /start command
func (h *MemberHandler) handleStart(c telebot.Context) error {
	h.stateService.ClearState(c.Sender().ID)
	return h.sendTextMessage(c, "Welcome! Rent a personal VPN server in a couple of taps.", h.mainKeyboard())
}

// handleHelp shows the help text
func (h *MemberHandler) handleHelp(c telebot.Context) error {
	text := "Rent a VPN, pay by card or crypto, and import the subscription " +
		"link into the app via the QR code or deep link you receive.\n\n" +
		"Questions? Contact support."
	return h.sendTextMessage(c, text, h.mainKeyboard())
}

// handleRent starts a new purchase
func (h *MemberHandler) handleRent(c telebot.Context) error {
	userID := c.Sender().ID
	h.stateService.SetState(userID, services.UserState{
		State: services.AwaitingPlan,
		Order: models.Order{UserID: userID},
	})
	return h.sendTextMessage(c, "Choose a plan:", h.planKeyboard())
}

// handleRenew asks which subscription to extend
func (h *MemberHandler) handleRenew(c telebot.Context) error {
	userID := c.Sender().ID

	subs, err := h.store.GetUserSubscriptions(userID)
	if err != nil {
		h.logger.Errorf("Failed to list subscriptions of user %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong, please try again later.", h.mainKeyboard())
	}
	if len(subs) == 0 {
		return h.sendTextMessage(c, "You have no VPN servers to renew yet.", h.mainKeyboard())
	}

	var sb strings.Builder
	sb.WriteString("Reply with the number of the VPN to renew:\n")
	for i, sub := range subs {
		sb.WriteString(fmt.Sprintf("\n%d. <b>%s</b> — until %s", i+1, sub.Name, sub.ExpiresAt.Format(constants.DateFormat)))
	}

	h.stateService.SetState(userID, services.UserState{
		State: services.AwaitingRenewTarget,
		Order: models.Order{UserID: userID},
	})
	return h.sendTextMessage(c, sb.String(), h.cancelKeyboard())
}

// handleRenewTarget records the chosen subscription and moves to plans
func (h *MemberHandler) handleRenewTarget(c telebot.Context, state *services.UserState) error {
	userID := c.Sender().ID

	subs, err := h.store.GetUserSubscriptions(userID)
	if err != nil {
		h.logger.Errorf("Failed to list subscriptions of user %d: %v", userID, err)
		return h.handleStart(c)
	}

	index, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil || index < 1 || index > len(subs) {
		return h.sendTextMessage(c, "Please reply with one of the listed numbers.", h.cancelKeyboard())
	}

	state.Order.SubscriptionID = subs[index-1].ID
	state.State = services.AwaitingPlan
	h.stateService.SetState(userID, *state)

	return h.sendTextMessage(c, "Choose a plan:", h.planKeyboard())
}

// handleReferral shows the referral balance and the personal invite link
func (h *MemberHandler) handleReferral(c telebot.Context) error {
	userID := c.Sender().ID

	user, err := h.store.GetUser(userID)
	if err != nil {
		h.logger.Errorf("Failed to load user %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong, please try again later.", h.mainKeyboard())
	}

	link := fmt.Sprintf("https://t.me/%s?start=%d", c.Bot().Me.Username, userID)
	text := fmt.Sprintf(
		"<b>Referral program</b>\n\nInvited friends: %d\nBalance: %d₽\n\n"+
			"You earn half of every payment a friend makes during their first 3 months. "+
			"Your invite link:\n%s",
		user.Refs, user.Earn, link)

	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(telebot.Btn{Text: commands.Payout}),
		markup.Row(telebot.Btn{Text: commands.ReturnToMainMenu}),
	)
	return h.sendTextMessage(c, text, markup)
}

// handlePayout debits the full referral balance and alerts the admins
func (h *MemberHandler) handlePayout(c telebot.Context) error {
	userID := c.Sender().ID

	user, err := h.store.GetUser(userID)
	if err != nil {
		h.logger.Errorf("Failed to load user %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong, please try again later.", h.mainKeyboard())
	}

	if user.Earn <= 0 {
		return h.sendTextMessage(c, "Nothing to pay out yet, invite some friends first!", h.mainKeyboard())
	}

	if err := h.store.AddEarn(userID, -user.Earn); err != nil {
		h.logger.Errorf("Failed to debit referral balance of user %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong, please try again later.", h.mainKeyboard())
	}

	request := fmt.Sprintf("💸 Payout request: user %d (@%s) asks for %d₽", userID, user.Username, user.Earn)
	for _, adminID := range h.config.Telegram.AdminIDs {
		if err := h.notifier.Send(adminID, request); err != nil {
			h.logger.Warnf("Failed to alert admin %d about payout: %v", adminID, err)
		}
	}

	return h.sendTextMessage(c,
		fmt.Sprintf("Payout of %d₽ requested, we will contact you shortly.", user.Earn), h.mainKeyboard())
}

// handleManage asks which subscription to manage
func (h *MemberHandler) handleManage(c telebot.Context) error {
	userID := c.Sender().ID

	subs, err := h.store.GetUserSubscriptions(userID)
	if err != nil {
		h.logger.Errorf("Failed to list subscriptions of user %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong, please try again later.", h.mainKeyboard())
	}
	if len(subs) == 0 {
		return h.sendTextMessage(c, "You have no VPN servers to manage yet.", h.mainKeyboard())
	}

	var sb strings.Builder
	sb.WriteString("Reply with the number of the VPN to manage:\n")
	for i, sub := range subs {
		sb.WriteString(fmt.Sprintf("\n%d. <b>%s</b>", i+1, sub.Name))
	}

	h.stateService.SetState(userID, services.UserState{
		State: services.AwaitingManageTarget,
		Order: models.Order{UserID: userID},
	})
	return h.sendTextMessage(c, sb.String(), h.cancelKeyboard())
}

// handleManageTarget records the chosen subscription and shows the actions
func (h *MemberHandler) handleManageTarget(c telebot.Context, state *services.UserState) error {
	userID := c.Sender().ID

	subs, err := h.store.GetUserSubscriptions(userID)
	if err != nil {
		h.logger.Errorf("Failed to list subscriptions of user %d: %v", userID, err)
		return h.handleStart(c)
	}

	index, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil || index < 1 || index > len(subs) {
		return h.sendTextMessage(c, "Please reply with one of the listed numbers.", h.cancelKeyboard())
	}

	state.Order.SubscriptionID = subs[index-1].ID
	state.State = services.AwaitingManageAction
	h.stateService.SetState(userID, *state)

	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(telebot.Btn{Text: commands.Enable}, telebot.Btn{Text: commands.Disable}),
		markup.Row(telebot.Btn{Text: commands.Rename}, telebot.Btn{Text: commands.Delete}),
		markup.Row(telebot.Btn{Text: commands.Cancel}),
	)
	return h.sendTextMessage(c, fmt.Sprintf("What should happen to <b>%s</b>?", subs[index-1].Name), markup)
}

// handleManageAction applies the chosen action to the panel client
func (h *MemberHandler) handleManageAction(ctx context.Context, c telebot.Context, state *services.UserState) error {
	userID := c.Sender().ID

	sub, err := h.store.GetSubscription(state.Order.SubscriptionID)
	if err != nil || sub.UserID != userID {
		h.stateService.ClearState(userID)
		return h.sendTextMessage(c, "That VPN no longer exists.", h.mainKeyboard())
	}

	// Renaming is local only, no panel round trip needed
	if c.Text() == commands.Rename {
		state.State = services.AwaitingRename
		h.stateService.SetState(userID, *state)
		return h.sendTextMessage(c, fmt.Sprintf("Send the new name for <b>%s</b>.", sub.Name), h.cancelKeyboard())
	}

	if err := h.vpn.Authenticate(ctx); err != nil {
		h.logger.Errorf("Panel authentication failed for user %d: %v", userID, err)
		h.stateService.ClearState(userID)
		return h.sendTextMessage(c, "The VPN server is unreachable, please try again later.", h.mainKeyboard())
	}

	var text string
	switch c.Text() {
	case commands.Enable:
		err = h.vpn.ToggleClient(ctx, userID, sub.ClientID, true)
		text = fmt.Sprintf("<b>%s</b> is enabled.", sub.Name)
	case commands.Disable:
		err = h.vpn.ToggleClient(ctx, userID, sub.ClientID, false)
		text = fmt.Sprintf("<b>%s</b> is disabled.", sub.Name)
	case commands.Delete:
		err = h.vpn.DeleteClient(ctx, userID, sub.ClientID)
		if err == nil || apperrors.IsNotFound(err) {
			err = h.store.DeleteSubscription(sub.ID)
		}
		text = fmt.Sprintf("<b>%s</b> was deleted.", sub.Name)
	default:
		return h.sendTextMessage(c, "Please choose one of the listed actions.", nil)
	}

	h.stateService.ClearState(userID)
	if err != nil {
		h.logger.Errorf("Manage action %q failed for user %d: %v", c.Text(), userID, err)
		return h.sendTextMessage(c, "Something went wrong, please try again later.", h.mainKeyboard())
	}
	return h.sendTextMessage(c, text, h.mainKeyboard())
}

// handleRenameText applies the typed name to the chosen subscription
func (h *MemberHandler) handleRenameText(c telebot.Context, state *services.UserState) error {
	userID := c.Sender().ID

	sub, err := h.store.GetSubscription(state.Order.SubscriptionID)
	if err != nil || sub.UserID != userID {
		h.stateService.ClearState(userID)
		return h.sendTextMessage(c, "That VPN no longer exists.", h.mainKeyboard())
	}

	name := strings.TrimSpace(c.Text())
	if name == "" || len(name) > 64 {
		return h.sendTextMessage(c, "Please send a name up to 64 characters.", h.cancelKeyboard())
	}

	if err := h.store.RenameSubscription(sub.ID, name); err != nil {
		h.logger.Errorf("Failed to rename subscription %d: %v", sub.ID, err)
		h.stateService.ClearState(userID)
		return h.sendTextMessage(c, "Something went wrong, please try again later.", h.mainKeyboard())
	}

	h.stateService.ClearState(userID)
	return h.sendTextMessage(c, fmt.Sprintf("Renamed to <b>%s</b>.", name), h.mainKeyboard())
}

// handlePlanChoice records the chosen plan and asks for a payment method
func (h *MemberHandler) handlePlanChoice(c telebot.Context, state *services.UserState) error {
	userID := c.Sender().ID

	p, ok := plans[c.Text()]
	if !ok {
		return h.sendTextMessage(c, "Please choose one of the listed plans.", h.planKeyboard())
	}

	state.Order.Months = p.months
	state.Order.Price = p.price
	state.State = services.AwaitingPaymentMethod
	h.stateService.SetState(userID, *state)

	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(telebot.Btn{Text: commands.PayCard}, telebot.Btn{Text: commands.PayCrypto}),
		markup.Row(telebot.Btn{Text: commands.Cancel}),
	)
	return h.sendTextMessage(c, "How would you like to pay?", markup)
}

// handlePaymentMethod creates the payment and starts the background wait
func (h *MemberHandler) handlePaymentMethod(ctx context.Context, c telebot.Context, state *services.UserState) error {
	userID := c.Sender().ID
	order := state.Order

	var (
		payment *payments.Payment
		checker payments.StatusChecker
		err     error
	)

	description := fmt.Sprintf("VPN rental, %d month(s)", order.Months)

	switch c.Text() {
	case commands.PayCard:
		payment, err = h.cardProvider.CreatePayment(ctx, order.Price, description)
		checker = h.cardProvider
	case commands.PayCrypto:
		payment, err = h.cryptoProvider.CreateInvoice(ctx, order.Price)
		checker = h.cryptoProvider
	default:
		return h.sendTextMessage(c, "Please choose a payment method.", nil)
	}

	if err != nil {
		h.logger.Errorf("Failed to create payment for user %d: %v", userID, err)
		h.stateService.ClearState(userID)
		return h.sendTextMessage(c, "Could not create the payment, please try again later.", h.mainKeyboard())
	}

	if h.config.Payments.TrustMode {
		checker = payments.TrustChecker{}
	}

	h.waiter.StartWait(userID, order, payment.ID, checker)
	h.stateService.ClearState(userID)

	text := fmt.Sprintf(
		"Complete the payment within %d minutes:\n%s\n\nAccess is granted automatically once the payment is confirmed.",
		int(h.config.Payments.WaitTimeout/time.Minute), payment.URL)
	return h.sendTextMessage(c, text, h.mainKeyboard())
}

// handleMyVPNs lists the user's subscriptions
func (h *MemberHandler) handleMyVPNs(c telebot.Context) error {
	userID := c.Sender().ID

	subs, err := h.store.GetUserSubscriptions(userID)
	if err != nil {
		h.logger.Errorf("Failed to list subscriptions of user %d: %v", userID, err)
		return h.sendTextMessage(c, "Something went wrong, please try again later.", h.mainKeyboard())
	}
	if len(subs) == 0 {
		return h.sendTextMessage(c, "You have no VPN servers yet. Rent one from the main menu!", h.mainKeyboard())
	}

	var sb strings.Builder
	sb.WriteString("<b>Your VPN servers:</b>\n")
	for _, sub := range subs {
		days := int(time.Until(sub.ExpiresAt).Hours() / 24)
		sb.WriteString(fmt.Sprintf("\n<b>%s</b>\nExpires: %s (%d days left)\nLink: %s\n",
			sub.Name, sub.ExpiresAt.Format(constants.DateFormat), days, sub.Link))
	}
	return h.sendTextMessage(c, sb.String(), h.mainKeyboard())
}

// planKeyboard builds the plan selection keyboard
func (h *MemberHandler) planKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(telebot.Btn{Text: "1 month — 299₽"}),
		markup.Row(telebot.Btn{Text: "3 months — 849₽"}),
		markup.Row(telebot.Btn{Text: "6 months — 1599₽"}),
		markup.Row(telebot.Btn{Text: commands.Cancel}),
	)
	return markup
}
