package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"membershipPortal/internal/metrics"
	"membershipPortal/models"
)

// MaxDepth is the number of referral levels below the root that are resolved.
const MaxDepth = 3

// AgentStore is the read side of the user directory used for traversal.
// GetByID returns (nil, nil) for an unknown id.
type AgentStore interface {
	GetByID(ctx context.Context, id string) (*models.Agent, error)
	ListByReferrer(ctx context.Context, referrerID string) ([]models.Agent, error)
}

// Downline is an agent with three levels of referrals.
// LevelTwo is keyed by the id of each Direct agent and LevelThree by the
// id of each level-two agent; every such agent has a key, possibly with an
// empty slice.
type Downline struct {
	Agent      models.Agent
	Direct     []models.Agent
	LevelTwo   map[string][]models.Agent
	LevelThree map[string][]models.Agent
}

// Resolver builds downlines from an AgentStore.
type Resolver struct {
	store AgentStore
}

func NewResolver(store AgentStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the downline of rootID. An empty id is ErrInvalidInput;
// an unknown id is ErrNotFound. Agents reached again through a referral
// cycle are not repeated.
func (r *Resolver) Resolve(ctx context.Context, rootID string) (*Downline, error) {
	start := time.Now()
	d, err := r.resolve(ctx, rootID)
	metrics.ObserveDownline(outcome(err), time.Since(start))
	return d, err
}

func (r *Resolver) resolve(ctx context.Context, rootID string) (*Downline, error) {
	rootID = strings.TrimSpace(rootID)
	if rootID == "" {
		return nil, fmt.Errorf("%w: agent id is required", ErrInvalidInput)
	}
	root, err := r.store.GetByID(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", rootID, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: agent with id: %s", ErrNotFound, rootID)
	}

	seen := map[string]bool{root.ID: true}
	direct, err := r.children(ctx, root.ID, seen)
	if err != nil {
		return nil, err
	}
	levelTwo, err := r.expand(ctx, direct, seen)
	if err != nil {
		return nil, err
	}
	var second []models.Agent
	for _, a := range direct {
		second = append(second, levelTwo[a.ID]...)
	}
	levelThree, err := r.expand(ctx, second, seen)
	if err != nil {
		return nil, err
	}

	return &Downline{
		Agent:      *root,
		Direct:     direct,
		LevelTwo:   levelTwo,
		LevelThree: levelThree,
	}, nil
}

// expand lists the referrals of every parent, keyed by parent id.
func (r *Resolver) expand(ctx context.Context, parents []models.Agent, seen map[string]bool) (map[string][]models.Agent, error) {
	out := make(map[string][]models.Agent, len(parents))
	for _, p := range parents {
		kids, err := r.children(ctx, p.ID, seen)
		if err != nil {
			return nil, err
		}
		out[p.ID] = kids
	}
	return out, nil
}

// children lists referrals of id that were not placed yet and marks them seen.
func (r *Resolver) children(ctx context.Context, id string, seen map[string]bool) ([]models.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := r.store.ListByReferrer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list referrals of %s: %w", id, err)
	}
	out := make([]models.Agent, 0, len(all))
	for _, a := range all {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	return out, nil
}

// WouldCycle reports whether making referrerID the referrer of agentID
// would close a loop, walking up from referrerID.
func WouldCycle(ctx context.Context, store AgentStore, agentID, referrerID string) (bool, error) {
	if agentID == referrerID {
		return true, nil
	}
	visited := map[string]bool{}
	cur := referrerID
	for cur != "" && !visited[cur] {
		if cur == agentID {
			return true, nil
		}
		visited[cur] = true
		a, err := store.GetByID(ctx, cur)
		if err != nil {
			return false, err
		}
		if a == nil || a.ReferrerID == nil {
			return false, nil
		}
		cur = *a.ReferrerID
	}
	return false, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
