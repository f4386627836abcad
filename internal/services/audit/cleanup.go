package audit

import (
	"log/slog"

	"omr-audit-backend/internal/models"

	"gorm.io/gorm"
)

// CleanupResult reports what a terminal cleanup removed.
type CleanupResult struct {
	BatchID      string   `json:"batch_id"`
	RemovedPaths []string `json:"removed_paths"`
}

// Cleanup archives a batch: every batch-scoped directory is removed and the
// batch row is deleted together with its items and responses. Only exported
// batches may be cleaned. The batch's lock entry is dropped afterwards, so
// this is terminal for the id.
func (s *Service) Cleanup(batchID string) (*CleanupResult, error) {
	var result *CleanupResult
	err := s.locks.WithLock(batchID, func() error {
		batch, err := s.batches.FindByBatchID(batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return ErrNotFound
		}
		if batch.Status != models.BatchExported {
			return ErrConflict
		}

		removed, err := s.paths.RemoveBatchDirs(batchID)
		if err != nil {
			slog.Error("failed to remove batch directories", "batch_id", batchID, "error", err)
			return err
		}

		// No reliance on DB-level cascade: responses, items and the batch
		// row go in one transaction, children first.
		err = s.db.Transaction(func(tx *gorm.DB) error {
			var itemIDs []string
			if err := tx.Model(&models.Item{}).
				Where("batch_id = ?", batchID).
				Pluck("id", &itemIDs).Error; err != nil {
				return err
			}
			if len(itemIDs) > 0 {
				if err := tx.Where("item_id IN ?", itemIDs).
					Delete(&models.Response{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("batch_id = ?", batchID).
				Delete(&models.Item{}).Error; err != nil {
				return err
			}
			return tx.Where("id = ?", batch.ID).Delete(&models.Batch{}).Error
		})
		if err != nil {
			slog.Error("failed to delete batch rows", "batch_id", batchID, "error", err)
			return err
		}

		result = &CleanupResult{BatchID: batchID, RemovedPaths: removed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.locks.Drop(batchID)
	return result, nil
}
