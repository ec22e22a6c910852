package models

import "github.com/shopspring/decimal"

// Wallet holds an agent's balance. One-to-one with Agent via AgentID.
type Wallet struct {
	ID      int64           `gorm:"primaryKey" json:"id"`
	AgentID string          `gorm:"size:36;not null" json:"agent_id"`
	Balance decimal.Decimal `gorm:"type:decimal(7,2);not null" json:"balance"`
}

func (Wallet) TableName() string { return "wallets" }
