package repository

import (
	"context"

	"helplink/internal/models"

	"gorm.io/gorm"
)

type ExportRepository interface {
	Create(ctx context.Context, record *models.ExportRecord) error
	List(ctx context.Context, limit int) ([]models.ExportRecord, error)
}

type exportRepository struct {
	db *gorm.DB
}

func NewExportRepository(db *gorm.DB) ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) Create(ctx context.Context, record *models.ExportRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *exportRepository) List(ctx context.Context, limit int) ([]models.ExportRecord, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var records []models.ExportRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).
		Error
	return records, err
}
