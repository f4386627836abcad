package repository

import (
	"omr-audit-backend/internal/models"

	"gorm.io/gorm"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Expose DB if needed
func (r *BatchRepository) DB() *gorm.DB {
	return r.db
}

// FindByBatchID fetches a batch by its external identifier. Returns
// (nil, nil) when no row exists.
func (r *BatchRepository) FindByBatchID(batchID string) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.First(&batch, "batch_id = ?", batchID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}
