package model

import (
	"strings"
	"time"
)

// User is a shopkeeper who extends credit to clients.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName    string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100)" json:"last_name"`
	Email        string    `gorm:"type:varchar(200);uniqueIndex;not null" json:"email"`
	NationalID   string    `gorm:"type:varchar(20)" json:"national_id"`
	PasswordHash string    `gorm:"type:varchar(255)" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "app_user"
}

func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NotificationDevice is a push endpoint registered by a user. The latest
// registration wins.
type NotificationDevice struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	PlayerID     string    `gorm:"type:varchar(128);not null" json:"player_id"`
	RegisteredAt time.Time `gorm:"not null" json:"registered_at"`
}

func (NotificationDevice) TableName() string {
	return "notification_device"
}
