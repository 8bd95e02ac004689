package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "vpn-rent-bot/internal/errors"
)

// Storage provides access to local users and subscription records
type Storage struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open opens (creating if needed) the SQLite database at path
func Open(path string, logger *logrus.Logger) (*Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&User{}, &Subscription{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db, logger: logger}, nil
}

// AddUser registers a user if not already present
func (s *Storage) AddUser(tgID int64, username, name string, referral int64) error {
	var count int64
	if err := s.db.Model(&User{}).Where("tg_id = ?", tgID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	return s.db.Create(&User{
		TgID:     tgID,
		Username: username,
		Name:     name,
		Referral: referral,
		Active:   true,
		Entry:    now,
		Activity: now,
	}).Error
}

// GetUser returns the user with the given Telegram id
func (s *Storage) GetUser(tgID int64) (*User, error) {
	var user User
	err := s.db.Where("tg_id = ?", tgID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "user", ID: fmt.Sprintf("%d", tgID)}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers returns all registered users
func (s *Storage) GetUsers() ([]User, error) {
	var users []User
	if err := s.db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetActive flips the deliverability flag for a user
func (s *Storage) SetActive(tgID int64, active bool) error {
	return s.db.Model(&User{}).Where("tg_id = ?", tgID).Update("active", active).Error
}

// SetActivity bumps the last-seen timestamp for a user
func (s *Storage) SetActivity(tgID int64) error {
	return s.db.Model(&User{}).Where("tg_id = ?", tgID).Update("activity", time.Now()).Error
}

// AddRef increments the referral counter for a user
func (s *Storage) AddRef(tgID int64) error {
	return s.db.Model(&User{}).Where("tg_id = ?", tgID).
		Update("refs", gorm.Expr("refs + 1")).Error
}

// AddEarn credits a user's earnings balance
func (s *Storage) AddEarn(tgID int64, amount int) error {
	return s.db.Model(&User{}).Where("tg_id = ?", tgID).
		Update("earn", gorm.Expr("earn + ?", amount)).Error
}

// AddSubscription records a provisioned client
func (s *Storage) AddSubscription(userID int64, clientID, name, link string, expiresAt time.Time) error {
	return s.db.Create(&Subscription{
		UserID:    userID,
		ClientID:  clientID,
		Name:      name,
		Link:      link,
		Active:    true,
		ExpiresAt: expiresAt,
	}).Error
}

// GetUserSubscriptions returns all subscription records owned by a user
func (s *Storage) GetUserSubscriptions(userID int64) ([]Subscription, error) {
	var subs []Subscription
	if err := s.db.Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// GetSubscription returns the subscription record with the given id
func (s *Storage) GetSubscription(id int64) (*Subscription, error) {
	var sub Subscription
	err := s.db.First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "subscription", ID: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubscriptionByClientID returns the record for a panel client id
func (s *Storage) GetSubscriptionByClientID(clientID string) (*Subscription, error) {
	var sub Subscription
	err := s.db.Where("client_id = ?", clientID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "subscription", ID: clientID}
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ExtendSubscription advances a record's expiry by whole calendar months
func (s *Storage) ExtendSubscription(id int64, months int) error {
	sub, err := s.GetSubscription(id)
	if err != nil {
		return err
	}
	return s.db.Model(&Subscription{}).Where("id = ?", id).
		Update("expires_at", sub.ExpiresAt.AddDate(0, months, 0)).Error
}

// RenameSubscription updates a record's display name
func (s *Storage) RenameSubscription(id int64, name string) error {
	return s.db.Model(&Subscription{}).Where("id = ?", id).Update("name", name).Error
}

// DeleteSubscription removes a record
func (s *Storage) DeleteSubscription(id int64) error {
	return s.db.Delete(&Subscription{}, id).Error
}
