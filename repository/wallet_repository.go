package repository

import (
	"context"
	"errors"
	"time"

	"membershipPortal/models"

	"gorm.io/gorm"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetByAgentID returns the agent's wallet, or nil when the agent has none.
func (r *WalletRepository) GetByAgentID(ctx context.Context, agentID string) (*models.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var w models.Wallet
	err := r.db.WithContext(ctx).Where("agent_id = ?", agentID).Take(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}
