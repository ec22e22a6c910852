package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"membershipPortal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgentRepository stores members and agents in the agents table.
type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// ListAgentsParams filters List. Zero values mean no filter.
type ListAgentsParams struct {
	UserType  models.UserType
	ExcludeID string
	Limit     int
	Offset    int
}

// Create inserts the agent together with an empty wallet. A unique
// violation is returned as *DuplicateKeyError naming the column.
func (r *AgentRepository) Create(ctx context.Context, a *models.Agent) error {
	if a == nil {
		return errors.New("agent is nil")
	}
	a.Normalize()
	if a.UserType == "" {
		a.UserType = models.UserTypeAgent
	}
	if a.AgentType == "" {
		a.AgentType = models.AgentTypeBasic
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(a).Error; err != nil {
			return err
		}
		w := &models.Wallet{AgentID: a.ID, Balance: decimal.Zero}
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		a.Wallet = w
		return nil
	})
	return classify(err)
}

func (r *AgentRepository) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a models.Agent
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// GetByUsername looks the user up case-insensitively.
func (r *AgentRepository) GetByUsername(ctx context.Context, username string) (*models.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a models.Agent
	err := r.db.WithContext(ctx).Where("normalized_user_name = ?", models.NormalizeKey(username)).Take(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListByReferrer returns the agents whose referrer is referrerID, ordered
// by user name then id.
func (r *AgentRepository) ListByReferrer(ctx context.Context, referrerID string) ([]models.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.Agent
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("user_name, id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AgentRepository) List(ctx context.Context, p ListAgentsParams) ([]models.Agent, error) {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&models.Agent{})
	if p.UserType != "" {
		q = q.Where("user_type = ?", p.UserType)
	}
	if p.ExcludeID != "" {
		q = q.Where("id <> ?", p.ExcludeID)
	}
	var out []models.Agent
	if err := q.Order("user_name, id").Limit(p.Limit).Offset(p.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of users of the given type, or of all users when t is empty.
func (r *AgentRepository) Count(ctx context.Context, t models.UserType) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&models.Agent{})
	if t != "" {
		q = q.Where("user_type = ?", t)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// Update writes the profile columns of a (user name, names, phone, email).
func (r *AgentRepository) Update(ctx context.Context, a *models.Agent) error {
	if a == nil {
		return errors.New("agent is nil")
	}
	a.Normalize()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.db.WithContext(ctx).Model(a).
		Select("user_name", "normalized_user_name", "first_name", "last_name", "phone_number", "email", "normalized_email").
		Updates(a)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateReferrer sets (or clears, when referrerID is nil) the referrer of id.
func (r *AgentRepository) UpdateReferrer(ctx context.Context, id string, referrerID *string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.Agent{}).Where("id = ?", id).Update("referrer_id", referrerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPasswordHash replaces the stored bcrypt hash.
func (r *AgentRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.Agent{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
