package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"membershipPortal/models"

	"gorm.io/gorm"
)

type ResourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) Create(ctx context.Context, res *models.Resource) error {
	if res == nil {
		return errors.New("resource is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return classify(r.db.WithContext(ctx).Create(res).Error)
}

func (r *ResourceRepository) GetByID(ctx context.Context, id int64) (*models.Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var res models.Resource
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

// Delete removes a resource. sql.ErrNoRows is returned when nothing matched.
func (r *ResourceRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Resource{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns resources newest first.
func (r *ResourceRepository) List(ctx context.Context, limit, offset int) ([]models.Resource, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.Resource
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ResourceRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Resource{}).Count(&n).Error
	return n, err
}
