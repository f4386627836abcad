package repository

import (
	"time"

	"omr-audit-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) DB() *gorm.DB {
	return r.db
}

// GetByID fetches one item with its responses preloaded. Returns (nil, nil)
// when no row exists.
func (r *ItemRepository) GetByID(id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.db.Preload("Responses").First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByBatch returns every item of a batch with responses preloaded.
func (r *ItemRepository) ListByBatch(batchID string) ([]models.Item, error) {
	var items []models.Item
	err := r.db.Preload("Responses").
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// ListFilter narrows the audit listing.
type ListFilter struct {
	Status      string
	Template    string
	BatchID     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// StatusCounts aggregates item statuses over a filtered set.
type StatusCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Resolved int64 `json:"resolved"`
	Reopened int64 `json:"reopened"`
}

type statusRow struct {
	Status string
	Count  int64
}

func (r *ItemRepository) filtered(filter ListFilter) *gorm.DB {
	query := r.db.Model(&models.Item{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Template != "" {
		query = query.Where("template = ?", filter.Template)
	}
	if filter.BatchID != "" {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

// List returns one page of items plus status counts over the whole
// filtered set, newest first.
func (r *ItemRepository) List(filter ListFilter) ([]models.Item, StatusCounts, error) {
	var counts StatusCounts

	var rows []statusRow
	err := r.filtered(filter).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, counts, err
	}

	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case models.ItemPending:
			counts.Pending = row.Count
		case models.ItemResolved:
			counts.Resolved = row.Count
		case models.ItemReopened:
			counts.Reopened = row.Count
		}
	}

	offset := (filter.Page - 1) * filter.PageSize

	var items []models.Item
	err = r.filtered(filter).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, counts, err
	}

	return items, counts, nil
}
