package storage

import "time"

// User is a bot user. TgID is the Telegram user id; Referral holds the
// TgID of the user who invited them, zero when none.
type User struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	TgID     int64 `gorm:"uniqueIndex"`
	Username string
	Name     string
	Referral int64
	Refs     int
	Earn     int
	Active   bool
	Entry    time.Time
	Activity time.Time
}

// Subscription links a user to a provisioned panel client. ExpiresAt is the
// durable source of truth for when the grant lapses; the panel client record
// is the source of truth for whether the credential is usable.
type Subscription struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"index"`
	ClientID  string `gorm:"uniqueIndex"`
	Name      string
	Link      string
	Active    bool
	ExpiresAt time.Time
	CreatedAt time.Time
}
