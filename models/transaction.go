package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies an application transaction.
type TransactionType string

const (
	TransactionTypeSubscription TransactionType = "SUBSCRIPTION"
	TransactionTypeAdjustment   TransactionType = "ADJUSTMENT"
)

// AppTransaction is a money movement attributed to an agent.
// A subscription purchase has exactly one Subscription attached.
type AppTransaction struct {
	ID           int64           `gorm:"primaryKey" json:"id"`
	Amount       decimal.Decimal `gorm:"type:decimal(7,2);not null" json:"amount"`
	Type         TransactionType `gorm:"not null" json:"type"`
	AgentID      *string         `gorm:"size:36" json:"agent_id,omitempty"`
	Date         time.Time       `json:"date"`
	Subscription *Subscription   `gorm:"foreignKey:AppTransactionID" json:"subscription,omitempty"`
}

func (AppTransaction) TableName() string { return "app_transactions" }

// Subscription is the paid period bought through an AppTransaction.
type Subscription struct {
	ID               int64           `gorm:"primaryKey" json:"id"`
	AppTransactionID int64           `gorm:"not null" json:"app_transaction_id"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	Price            decimal.Decimal `gorm:"type:decimal(7,2);not null" json:"price"`
	Payer            *Payer          `gorm:"foreignKey:SubscriptionID" json:"payer,omitempty"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Active reports whether the period covers t.
func (s *Subscription) Active(t time.Time) bool {
	return !t.Before(s.StartDate) && t.Before(s.EndDate)
}

// Payer is whoever paid for a subscription.
type Payer struct {
	ID             int64  `gorm:"primaryKey" json:"id"`
	SubscriptionID int64  `gorm:"not null" json:"subscription_id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
}

func (Payer) TableName() string { return "payers" }
