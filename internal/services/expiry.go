package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/constants"
	apperrors "vpn-rent-bot/internal/errors"
	"vpn-rent-bot/internal/notify"
	"vpn-rent-bot/internal/scheduler"
	"vpn-rent-bot/internal/storage"
)

// ExpiryService runs the recurring per-user sweep that removes lapsed
// subscriptions from the panel and local storage. Each job retires itself
// once its user has no records left.
type ExpiryService struct {
	vpn      *VPNService
	store    *storage.Storage
	notifier notify.Notifier
	sched    *scheduler.Scheduler
	logger   *logrus.Logger
}

// NewExpiryService creates a new expiry service
func NewExpiryService(
	vpn *VPNService,
	store *storage.Storage,
	notifier notify.Notifier,
	sched *scheduler.Scheduler,
	logger *logrus.Logger,
) *ExpiryService {
	return &ExpiryService{
		vpn:      vpn,
		store:    store,
		notifier: notifier,
		sched:    sched,
		logger:   logger,
	}
}

// JobKey returns the scheduler key of a user's expiry job
func JobKey(userID int64) string {
	return constants.ExpiryJobPrefix + strconv.FormatInt(userID, 10)
}

// Arm schedules the daily expiry check for a user; re-arming is a no-op
func (s *ExpiryService) Arm(userID int64) {
	s.sched.Schedule(JobKey(userID), constants.ExpiryCheckHours*time.Hour, func() {
		s.RunFor(context.Background(), userID)
	})
}

// ArmAll re-arms expiry jobs for every user that still has records.
// Called at startup since scheduler state does not survive restarts.
func (s *ExpiryService) ArmAll() error {
	users, err := s.store.GetUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	for _, user := range users {
		subs, err := s.store.GetUserSubscriptions(user.TgID)
		if err != nil {
			s.logger.Errorf("Failed to list subscriptions of user %d: %v", user.TgID, err)
			continue
		}
		if len(subs) > 0 {
			s.Arm(user.TgID)
		}
	}
	return nil
}

// RunFor performs one expiry sweep for a user. Panel delete failures are
// logged and do not stop the rest of the scan.
func (s *ExpiryService) RunFor(ctx context.Context, userID int64) {
	subs, err := s.store.GetUserSubscriptions(userID)
	if err != nil {
		s.logger.Errorf("Expiry sweep failed to list subscriptions of user %d: %v", userID, err)
		return
	}

	if len(subs) == 0 {
		s.sched.Cancel(JobKey(userID))
		return
	}

	for _, sub := range subs {
		if !sub.Active {
			continue
		}
		if daysLeft(sub.ExpiresAt) > 0 {
			continue
		}

		text := fmt.Sprintf("😔 Unfortunately your VPN subscription <em>%s</em> has expired", sub.Name)
		if err := s.notifier.Send(userID, text); err != nil {
			if err := s.store.SetActive(userID, false); err != nil {
				s.logger.Errorf("Failed to deactivate user %d: %v", userID, err)
			}
		}

		if err := s.vpn.Authenticate(ctx); err != nil {
			s.logger.Errorf("Panel authentication failed during expiry sweep: %v", err)
		}
		if err := s.vpn.DeleteClient(ctx, userID, sub.ClientID); err != nil && !apperrors.IsNotFound(err) {
			s.logger.Errorf("Failed to delete expired client %s: %v", sub.ClientID, err)
		}

		if err := s.store.DeleteSubscription(sub.ID); err != nil {
			s.logger.Errorf("Failed to delete subscription %d: %v", sub.ID, err)
		}
	}

	remaining, err := s.store.GetUserSubscriptions(userID)
	if err != nil {
		s.logger.Errorf("Expiry sweep failed to re-list subscriptions of user %d: %v", userID, err)
		return
	}
	if len(remaining) == 0 {
		s.sched.Cancel(JobKey(userID))
	}
}

// daysLeft counts whole days until expiry; zero or negative means lapsed
func daysLeft(expiresAt time.Time) int {
	return int(time.Until(expiresAt).Hours() / 24)
}
