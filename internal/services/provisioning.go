package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/constants"
	apperrors "vpn-rent-bot/internal/errors"
	"vpn-rent-bot/internal/models"
	"vpn-rent-bot/internal/notify"
	"vpn-rent-bot/internal/storage"
)

// OrderStore is the slice of local storage the provisioning workflow needs
type OrderStore interface {
	GetUser(tgID int64) (*storage.User, error)
	SetActive(tgID int64, active bool) error
	AddEarn(tgID int64, amount int) error
	AddSubscription(userID int64, clientID, name, link string, expiresAt time.Time) error
	GetSubscription(id int64) (*storage.Subscription, error)
	ExtendSubscription(id int64, months int) error
}

// ProvisioningService turns a paid order into VPN access: it renews an
// existing subscription or provisions a new panel client, notifies the
// user, credits referrers and arms expiry monitoring.
type ProvisioningService struct {
	vpn      *VPNService
	store    OrderStore
	notifier notify.Notifier
	expiry   *ExpiryService
	logger   *logrus.Logger
}

// NewProvisioningService creates a new provisioning service
func NewProvisioningService(
	vpn *VPNService,
	store OrderStore,
	notifier notify.Notifier,
	expiry *ExpiryService,
	logger *logrus.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		vpn:      vpn,
		store:    store,
		notifier: notifier,
		expiry:   expiry,
		logger:   logger,
	}
}

// Execute fulfills a paid order. Notification failures never roll back the
// subscription change; they deactivate the user locally instead.
func (s *ProvisioningService) Execute(ctx context.Context, order models.Order) {
	if order.SubscriptionID != 0 {
		s.renew(ctx, order)
	} else {
		s.provision(ctx, order)
	}

	s.creditReferral(order)
}

// renew extends the local record's expiry by whole calendar months
func (s *ProvisioningService) renew(ctx context.Context, order models.Order) {
	sub, err := s.store.GetSubscription(order.SubscriptionID)
	if err != nil || sub.UserID != order.UserID {
		s.logger.Warnf("Renewal target %d not found for user %d: %v", order.SubscriptionID, order.UserID, err)
		s.notifyOrDeactivate(order.UserID,
			"<b>⚠️ The subscription you are renewing no longer exists, please contact support</b>")
		return
	}

	if err := s.store.ExtendSubscription(sub.ID, order.Months); err != nil {
		s.logger.Errorf("Failed to extend subscription %d: %v", sub.ID, err)
		s.notifyOrDeactivate(order.UserID,
			"<b>⚠️ Something went wrong while renewing your VPN, please contact support</b>")
		return
	}

	s.logger.Infof("Renewed subscription %d of user %d by %d months", sub.ID, order.UserID, order.Months)
	s.notifyOrDeactivate(order.UserID, fmt.Sprintf(
		"<b>✅ <em>%s</em> was renewed successfully</b>\nReturn to the main menu to keep using it", sub.Name))
}

// provision creates a new panel client and the matching local record
func (s *ProvisioningService) provision(ctx context.Context, order models.Order) {
	if err := s.vpn.Authenticate(ctx); err != nil {
		s.logger.Errorf("Panel authentication failed during provisioning for user %d: %v", order.UserID, err)
		s.notifyProvisionFailure(order.UserID)
		return
	}

	result, err := s.vpn.AddClient(ctx, order.UserID, "")
	if err != nil {
		s.logger.Errorf("Provisioning failed for user %d: %v", order.UserID, err)
		s.notifyProvisionFailure(order.UserID)
		return
	}

	expiresAt := time.Now().AddDate(0, order.Months, 0)
	if err := s.store.AddSubscription(order.UserID, result.ClientID, result.Name, result.SubscriptionLink, expiresAt); err != nil {
		s.logger.Errorf("Failed to store subscription for user %d: %v", order.UserID, err)
		// Without a local record the expiry sweep would never reclaim the
		// panel client, so take it back out.
		if delErr := s.vpn.DeleteClient(ctx, order.UserID, result.ClientID); delErr != nil && !apperrors.IsNotFound(delErr) {
			s.logger.Errorf("Failed to roll back panel client %s: %v", result.ClientID, delErr)
		}
		s.notifyProvisionFailure(order.UserID)
		return
	}

	caption := fmt.Sprintf(
		"<b>✅ <em>%s</em> was rented successfully</b>\n\nSubscription link: %s\nQuick import: %s",
		result.Name, result.SubscriptionLink, result.DeepLink)

	if qr, qrErr := notify.QR(result.SubscriptionLink); qrErr == nil {
		if err := s.notifier.SendPhoto(order.UserID, qr, caption); err != nil {
			s.deactivate(order.UserID)
		}
	} else if err := s.notifier.Send(order.UserID, caption); err != nil {
		s.deactivate(order.UserID)
	}

	s.expiry.Arm(order.UserID)
}

// creditReferral pays the referrer half the order price when the referred
// user joined within the referral window.
func (s *ProvisioningService) creditReferral(order models.Order) {
	user, err := s.store.GetUser(order.UserID)
	if err != nil {
		s.logger.Warnf("Referral check skipped, user %d not found: %v", order.UserID, err)
		return
	}

	if user.Referral == 0 {
		return
	}
	if user.Entry.Before(time.Now().AddDate(0, -constants.ReferralWindowMonths, 0)) {
		return
	}

	earn := int(math.Round(float64(order.Price) * constants.ReferralShare))
	if err := s.store.AddEarn(user.Referral, earn); err != nil {
		s.logger.Errorf("Failed to credit referrer %d: %v", user.Referral, err)
		return
	}
	s.logger.Infof("Credited referrer %d with %d for order of user %d", user.Referral, earn, order.UserID)
}

func (s *ProvisioningService) notifyProvisionFailure(userID int64) {
	s.notifyOrDeactivate(userID,
		"<b>⚠️ Something went wrong while renting your VPN server, please contact support</b>")
}

func (s *ProvisioningService) notifyOrDeactivate(userID int64, text string) {
	if err := s.notifier.Send(userID, text); err != nil {
		s.deactivate(userID)
	}
}

func (s *ProvisioningService) deactivate(userID int64) {
	if err := s.store.SetActive(userID, false); err != nil {
		s.logger.Errorf("Failed to deactivate user %d: %v", userID, err)
	}
}
