package model

import (
	"time"

	"creditledger/pkg/money"
)

// Client is a customer buying on credit from a user.
type Client struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	NationalID    string    `gorm:"type:varchar(20);not null" json:"national_id"`
	Name          string    `gorm:"type:varchar(200);not null" json:"name"`
	Email         string    `gorm:"type:varchar(200)" json:"email,omitempty"`
	Phone         string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	LoginEmail    string    `gorm:"type:varchar(200)" json:"-"`
	// AccountActive means the client has a self-service account and must
	// approve new debts before they count.
	AccountActive bool      `gorm:"not null;default:false" json:"account_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Client) TableName() string {
	return "client"
}

// CatalogItem is a product a user sells. Deleting it only flips Active, so
// snapshots in existing debts keep resolving.
type CatalogItem struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64       `gorm:"index;not null" json:"user_id"`
	Name        string      `gorm:"type:varchar(200);not null" json:"name"`
	Description string      `gorm:"type:varchar(500)" json:"description,omitempty"`
	Price       money.Cents `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int         `gorm:"not null;default:0" json:"stock"`
	Active      bool        `gorm:"index;not null" json:"active"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (CatalogItem) TableName() string {
	return "catalog_item"
}
