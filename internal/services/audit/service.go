package audit

import (
	"log/slog"

	"omr-audit-backend/internal/locks"
	"omr-audit-backend/internal/models"
	"omr-audit-backend/internal/repository"
	"omr-audit-backend/internal/storage"
	"omr-audit-backend/internal/validators"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns the audit workflow: ingest, decisions, reconciliation and
// cleanup. Reconciliation and cleanup for one batch are serialized through
// the injected lock registry.
type Service struct {
	db      *gorm.DB
	batches *repository.BatchRepository
	items   *repository.ItemRepository
	paths   *storage.Paths
	locks   *locks.Registry
}

func NewService(db *gorm.DB, paths *storage.Paths, registry *locks.Registry) *Service {
	return &Service{
		db:      db,
		batches: repository.NewBatchRepository(db),
		items:   repository.NewItemRepository(db),
		paths:   paths,
		locks:   registry,
	}
}

func (s *Service) DB() *gorm.DB {
	return s.db
}

// GetItem loads an item with its responses.
func (s *Service) GetItem(id uuid.UUID) (*models.Item, error) {
	item, err := s.items.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// ListItems returns one page of items plus status counts over the filtered
// set. Page defaults to 1, page size to 20 with a cap of 100.
func (s *Service) ListItems(filter repository.ListFilter) ([]models.Item, repository.StatusCounts, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	return s.items.List(filter)
}

// SubmitDecision applies a reviewer's corrections to an item. Every
// answered question must already have a response row and every non-empty
// value must be a valid answer. The decision and the export invalidation of
// the owning batch commit in one transaction.
func (s *Service) SubmitDecision(itemID uuid.UUID, answers map[string]string, notes string) (*models.Item, error) {
	item, err := s.items.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}

	responsesByQuestion := make(map[string]*models.Response, len(item.Responses))
	for i := range item.Responses {
		responsesByQuestion[item.Responses[i].Question] = &item.Responses[i]
	}

	var unknown []string
	for question := range answers {
		if _, ok := responsesByQuestion[question]; !ok {
			unknown = append(unknown, question)
		}
	}
	if len(unknown) > 0 {
		return nil, newValidationError("unknown questions for this item", unknown)
	}

	var invalid []string
	for question, value := range answers {
		if value != "" && !validators.ValidAnswerValue(value) {
			invalid = append(invalid, question+"="+value)
		}
	}
	if len(invalid) > 0 {
		return nil, newValidationError("invalid answer values", invalid)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for question, value := range answers {
			response := responsesByQuestion[question]
			var corrected *string
			if value != "" {
				v := value
				corrected = &v
			}
			if err := tx.Model(&models.Response{}).
				Where("id = ?", response.ID).
				Update("corrected_value", corrected).Error; err != nil {
				return err
			}
		}

		var sanitized *string
		if notes != "" {
			clean := validators.SanitizeUserInput(notes, 512)
			if clean != "" {
				sanitized = &clean
			}
		}

		if err := tx.Model(&models.Item{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"status":      models.ItemResolved,
				"notes":       sanitized,
				"exported_at": nil,
			}).Error; err != nil {
			return err
		}

		var batch models.Batch
		if err := tx.First(&batch, "batch_id = ?", item.BatchID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		return s.invalidateExport(tx, &batch)
	})
	if err != nil {
		slog.Error("decision submission failed", "item_id", itemID, "error", err)
		return nil, err
	}

	return s.GetItem(itemID)
}

// invalidateExport discards any cached export so the next reconcile
// regenerates it from current decisions. Runs inside the caller's
// transaction; the export directory removal is tolerant of absence.
func (s *Service) invalidateExport(tx *gorm.DB, batch *models.Batch) error {
	if err := s.paths.RemoveExportDir(batch.BatchID); err != nil {
		return err
	}

	if err := tx.Model(&models.Batch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"status":                 models.BatchPending,
			"corrected_results_path": nil,
			"manifest_path":          nil,
			"exported_at":            nil,
			"exported_by":            nil,
		}).Error; err != nil {
		return err
	}

	batch.Status = models.BatchPending
	batch.CorrectedResultsPath = nil
	batch.ManifestPath = nil
	batch.ExportedAt = nil
	batch.ExportedBy = nil
	return nil
}
