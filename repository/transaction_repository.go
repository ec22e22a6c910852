package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"membershipPortal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionRepository stores app transactions with their subscriptions and payers.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListByAgent returns the agent's transactions, newest first, with
// subscription and payer loaded.
func (r *TransactionRepository) ListByAgent(ctx context.Context, agentID string) ([]models.AppTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.AppTransaction
	err := r.db.WithContext(ctx).
		Preload("Subscription.Payer").
		Where("agent_id = ?", agentID).
		Order("date DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSubscription writes t, its subscription and payer, and flags the
// agent as subscribed, all in one transaction. t.Subscription must be set.
func (r *TransactionRepository) CreateSubscription(ctx context.Context, t *models.AppTransaction) error {
	if t == nil || t.Subscription == nil {
		return errors.New("subscription transaction is incomplete")
	}
	if t.AgentID == nil {
		return errors.New("subscription transaction has no agent")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return err
		}
		s := t.Subscription
		s.AppTransactionID = t.ID
		if err := tx.Omit(clause.Associations).Create(s).Error; err != nil {
			return err
		}
		if s.Payer != nil {
			s.Payer.SubscriptionID = s.ID
			if err := tx.Create(s.Payer).Error; err != nil {
				return err
			}
		}
		res := tx.Model(&models.Agent{}).Where("id = ?", *t.AgentID).Update("subscribed", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	return classify(err)
}

// ExpireLapsed clears the subscribed flag of every agent that has no
// subscription ending after now, and returns how many agents changed.
func (r *TransactionRepository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db := r.db.WithContext(ctx)
	active := db.Table("app_transactions AS t").
		Select("t.agent_id").
		Joins("JOIN subscriptions s ON s.app_transaction_id = t.id").
		Where("t.agent_id IS NOT NULL AND s.end_date > ?", now.UTC())
	res := db.Model(&models.Agent{}).
		Where("subscribed = ?", true).
		Where("id NOT IN (?)", active).
		Update("subscribed", false)
	return res.RowsAffected, res.Error
}
