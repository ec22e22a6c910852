package repository

import (
	"context"
	"errors"
	"time"

	"membershipPortal/models"

	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// ListClientsParams filters List by referring agent when ReferrerID is set.
type ListClientsParams struct {
	ReferrerID string
	Limit      int
	Offset     int
}

// Create inserts c. DateAdded defaults to now.
func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	if c == nil {
		return errors.New("client is nil")
	}
	if c.DateAdded.IsZero() {
		c.DateAdded = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return classify(r.db.WithContext(ctx).Create(c).Error)
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c models.Client
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// List returns clients newest first.
func (r *ClientRepository) List(ctx context.Context, p ListClientsParams) ([]models.Client, error) {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&models.Client{})
	if p.ReferrerID != "" {
		q = q.Where("referrer_id = ?", p.ReferrerID)
	}
	var out []models.Client
	if err := q.Order("date_added DESC, id DESC").Limit(p.Limit).Offset(p.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ClientRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Client{}).Count(&n).Error
	return n, err
}
