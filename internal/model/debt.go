package model

import (
	"time"

	"creditledger/pkg/money"
)

// ============================================================================
// Client approval
// ============================================================================

const (
	ApprovalNone     = "NONE"     // client has no account, debt is valid immediately
	ApprovalPending  = "PENDING"  // waiting for the client
	ApprovalApproved = "APPROVED" // accepted by the client
	ApprovalRejected = "REJECTED" // never stored, the debt row is deleted
)

var ValidApprovalTransitions = map[string][]string{
	ApprovalPending: {ApprovalApproved, ApprovalRejected},
}

func CanTransitionApproval(current, target string) bool {
	allowed, ok := ValidApprovalTransitions[current]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// ============================================================================
// Debt
// ============================================================================

// Debt is one extension of credit to a client. Balance is never stored; it is
// derived from Principal and the payment history by the ledger package.
type Debt struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	DebtNo         string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"debt_no"`
	UserID         int64       `gorm:"index;not null" json:"user_id"`
	ClientID       int64       `gorm:"index;not null" json:"client_id"`
	Principal      money.Cents `gorm:"type:decimal(12,2);not null" json:"principal"`
	DueDate        time.Time   `gorm:"index;not null" json:"due_date"`
	SettledAt      *time.Time  `json:"settled_at"`
	ApprovalStatus string      `gorm:"type:varchar(20);index;not null" json:"approval_status"`
	ApprovedAt     *time.Time  `json:"approved_at"`
	TxHash         *string     `gorm:"type:varchar(80)" json:"tx_hash"`
	OnChain        bool        `gorm:"not null;default:false" json:"on_chain"`
	CreatedAt      time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	Items    []DebtItem `gorm:"foreignKey:DebtID;constraint:OnDelete:CASCADE" json:"items"`
	Payments []Payment  `gorm:"foreignKey:DebtID;constraint:OnDelete:CASCADE" json:"-"`

	User   *User   `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Client *Client `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

func (Debt) TableName() string {
	return "debt"
}

func (d *Debt) IsPending() bool {
	return d.ApprovalStatus == ApprovalPending
}

// DebtItem is a priced line of a debt. Name and unit price are snapshots taken
// when the debt was created; ItemID becomes NULL if the catalog row goes away.
type DebtItem struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	DebtID    int64       `gorm:"index;not null" json:"debt_id"`
	ItemID    *int64      `gorm:"index" json:"item_id"`
	ItemName  string      `gorm:"type:varchar(200);not null" json:"item_name"`
	UnitPrice money.Cents `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity  int         `gorm:"not null;default:1" json:"quantity"`

	Item *CatalogItem `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

func (DebtItem) TableName() string {
	return "debt_item"
}

func (i DebtItem) Subtotal() (money.Cents, error) {
	return i.UnitPrice.Mul(i.Quantity)
}
