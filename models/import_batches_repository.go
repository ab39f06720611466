package models

import (
	"context"

	"gorm.io/gorm"
)

type ImportBatchesRepository struct {
	db *gorm.DB
}

func NewImportBatchesRepository(db *gorm.DB) *ImportBatchesRepository {
	return &ImportBatchesRepository{db: db}
}

func (r *ImportBatchesRepository) CreateImportBatch(ctx context.Context, batch *ImportBatch) error {
	return storeError(r.db.WithContext(ctx).Create(batch).Error)
}

// ListImportBatches returns the most recent batches first.
func (r *ImportBatchesRepository) ListImportBatches(ctx context.Context, limit int) ([]ImportBatch, error) {
	var batches []ImportBatch
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&batches).Error; err != nil {
		return nil, storeError(err)
	}
	return batches, nil
}
