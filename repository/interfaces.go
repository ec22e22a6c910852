package repository

import (
	"context"
	"time"

	"membershipPortal/models"
)

// AgentRepositoryI defines operations on Agent entities.
type AgentRepositoryI interface {
	Create(ctx context.Context, a *models.Agent) error
	GetByID(ctx context.Context, id string) (*models.Agent, error)
	GetByUsername(ctx context.Context, username string) (*models.Agent, error)
	ListByReferrer(ctx context.Context, referrerID string) ([]models.Agent, error)
	List(ctx context.Context, p ListAgentsParams) ([]models.Agent, error)
	Count(ctx context.Context, t models.UserType) (int64, error)
	Update(ctx context.Context, a *models.Agent) error
	UpdateReferrer(ctx context.Context, id string, referrerID *string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// WalletRepositoryI defines read access to wallets.
type WalletRepositoryI interface {
	GetByAgentID(ctx context.Context, agentID string) (*models.Wallet, error)
}

// ClientRepositoryI defines operations on Client entities.
type ClientRepositoryI interface {
	Create(ctx context.Context, c *models.Client) error
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	List(ctx context.Context, p ListClientsParams) ([]models.Client, error)
	Count(ctx context.Context) (int64, error)
}

// ResourceRepositoryI defines operations on Resource entities.
type ResourceRepositoryI interface {
	Create(ctx context.Context, r *models.Resource) error
	GetByID(ctx context.Context, id int64) (*models.Resource, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]models.Resource, error)
	Count(ctx context.Context) (int64, error)
}

// TransactionRepositoryI defines operations on transactions and subscriptions.
type TransactionRepositoryI interface {
	ListByAgent(ctx context.Context, agentID string) ([]models.AppTransaction, error)
	CreateSubscription(ctx context.Context, t *models.AppTransaction) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ AgentRepositoryI       = (*AgentRepository)(nil)
	_ WalletRepositoryI      = (*WalletRepository)(nil)
	_ ClientRepositoryI      = (*ClientRepository)(nil)
	_ ResourceRepositoryI    = (*ResourceRepository)(nil)
	_ TransactionRepositoryI = (*TransactionRepository)(nil)
)
