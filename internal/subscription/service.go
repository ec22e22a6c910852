// Package subscription records paid agent subscriptions and expires them.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"membershipPortal/internal/logging"
	"membershipPortal/internal/metrics"
	"membershipPortal/models"
	"membershipPortal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput  = errors.New("invalid subscription")
	ErrAgentNotFound = errors.New("agent not found")
)

// MaxPrice is the largest amount a decimal(7,2) column holds.
var MaxPrice = decimal.RequireFromString("99999.99")

// AgentLookup finds the agent a subscription is for.
type AgentLookup interface {
	GetByID(ctx context.Context, id string) (*models.Agent, error)
}

// Store persists subscription transactions.
type Store interface {
	CreateSubscription(ctx context.Context, t *models.AppTransaction) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// RecordInput describes one purchased subscription.
type RecordInput struct {
	AgentID    string
	Price      decimal.Decimal
	Months     int
	Start      time.Time // zero means now
	PayerName  string
	PayerEmail string
	PayerPhone string
}

type Service struct {
	agents AgentLookup
	store  Store
	now    func() time.Time
}

func NewService(agents AgentLookup, store Store) *Service {
	return &Service{agents: agents, store: store, now: time.Now}
}

// Record stores a subscription transaction for in.AgentID and marks the
// agent subscribed.
func (s *Service) Record(ctx context.Context, in RecordInput) (*models.AppTransaction, error) {
	if strings.TrimSpace(in.AgentID) == "" {
		return nil, fmt.Errorf("%w: agent id is required", ErrInvalidInput)
	}
	if !in.Price.IsPositive() || in.Price.GreaterThan(MaxPrice) {
		return nil, fmt.Errorf("%w: price must be between 0.01 and %s", ErrInvalidInput, MaxPrice)
	}
	if in.Months < 1 {
		return nil, fmt.Errorf("%w: months must be at least 1", ErrInvalidInput)
	}
	a, err := s.agents.GetByID(ctx, in.AgentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: agent with id: %s", ErrAgentNotFound, in.AgentID)
	}

	now := s.now().UTC()
	start := in.Start.UTC()
	if in.Start.IsZero() {
		start = now
	}
	price := in.Price.Round(2)
	t := &models.AppTransaction{
		Amount:  price,
		Type:    models.TransactionTypeSubscription,
		AgentID: &a.ID,
		Date:    now,
		Subscription: &models.Subscription{
			StartDate: start,
			EndDate:   start.AddDate(0, in.Months, 0),
			Price:     price,
			Payer: &models.Payer{
				FullName: strings.TrimSpace(in.PayerName),
				Email:    strings.TrimSpace(in.PayerEmail),
				Phone:    strings.TrimSpace(in.PayerPhone),
			},
		},
	}
	if err := s.store.CreateSubscription(ctx, t); err != nil {
		return nil, fmt.Errorf("record subscription: %w", err)
	}
	logging.FromContext(ctx).Info().
		Str("agent_id", a.ID).
		Str("amount", price.StringFixed(2)).
		Time("end_date", t.Subscription.EndDate).
		Msg("subscription recorded")
	return t, nil
}

// ExpireLapsed clears the subscribed flag of agents whose subscriptions
// have all ended.
func (s *Service) ExpireLapsed(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireLapsed(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.SubscriptionsExpired(n)
	return n, nil
}

var _ Store = (*repository.TransactionRepository)(nil)
