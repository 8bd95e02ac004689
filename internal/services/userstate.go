package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"vpn-rent-bot/internal/models"
)

// ConversationState represents where a user is in the chat flow
type ConversationState int

const (
	// Default is the initial state
	Default ConversationState = iota
	// AwaitingPlan is the state when the user is choosing a plan
	AwaitingPlan
	// AwaitingPaymentMethod is the state when the user is choosing how to pay
	AwaitingPaymentMethod
	// AwaitingRenewTarget is the state when the user is choosing a VPN to renew
	AwaitingRenewTarget
	// AwaitingManageTarget is the state when the user is choosing a VPN to manage
	AwaitingManageTarget
	// AwaitingManageAction is the state when the user is choosing what to do with a VPN
	AwaitingManageAction
	// AwaitingRename is the state when the user is typing a new VPN name
	AwaitingRename
	// AwaitingBroadcast is the state when an admin is composing a broadcast
	AwaitingBroadcast
)

// UserState holds a user's conversation state and the order being assembled
type UserState struct {
	State ConversationState
	Order models.Order
}

// UserStateService manages user conversation states
type UserStateService struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewUserStateService creates a new user state service
func NewUserStateService(logger *logrus.Logger) *UserStateService {
	return &UserStateService{
		cache:  cache.New(30*time.Minute, 10*time.Minute),
		logger: logger,
	}
}

// GetState gets a user's state
func (s *UserStateService) GetState(userID int64) *UserState {
	key := stateKey(userID)
	if data, found := s.cache.Get(key); found {
		if state, ok := data.(*UserState); ok {
			return state
		}
	}
	return &UserState{State: Default}
}

// SetState sets a user's state
func (s *UserStateService) SetState(userID int64, state UserState) {
	s.cache.Set(stateKey(userID), &state, cache.DefaultExpiration)
	s.logger.Debugf("Set state for user %d: %+v", userID, state)
}

// ClearState clears a user's state
func (s *UserStateService) ClearState(userID int64) {
	s.cache.Delete(stateKey(userID))
}

func stateKey(userID int64) string {
	return fmt.Sprintf("user_state_%d", userID)
}
