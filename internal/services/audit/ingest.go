package audit

import (
	"log/slog"
	"path/filepath"
	"time"

	"omr-audit-backend/internal/detector"
	"omr-audit-backend/internal/models"
	"omr-audit-backend/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessedRecord is one recognized sheet handed over by the recognition
// pipeline.
type ProcessedRecord struct {
	FileID          string            `json:"file_id"`
	Answers         map[string]string `json:"answers"`
	QuestionKeys    []string          `json:"question_keys"`
	MarkedImagePath string            `json:"marked_image"`
}

// IngestInput carries one batch of freshly recognized sheets.
type IngestInput struct {
	Template string
	BatchID  string
	CSVPath  string
	Records  []ProcessedRecord
	// Originals maps file id to the source path of the unannotated image.
	Originals map[string]string
}

// SummaryItem is the per-item view returned from ingest.
type SummaryItem struct {
	ID             uuid.UUID `json:"id"`
	FileID         string    `json:"file_id"`
	Template       string    `json:"template"`
	BatchID        string    `json:"batch_id"`
	Issues         []string  `json:"issues"`
	Status         string    `json:"status"`
	ImageURL       *string   `json:"image_url"`
	MarkedImageURL *string   `json:"marked_image_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary reports what ingest persisted for review.
type Summary struct {
	BatchID  string        `json:"batch_id"`
	Total    int           `json:"total"`
	Pending  int           `json:"pending"`
	Resolved int           `json:"resolved"`
	Status   string        `json:"status"`
	Items    []SummaryItem `json:"items"`
}

// PublicURL renders a public-root-relative path as a static URL.
func PublicURL(relative *string) *string {
	if relative == nil || *relative == "" {
		return nil
	}
	url := "/static/" + filepath.ToSlash(*relative)
	return &url
}

// Ingest turns recognized records into persisted review items, skipping
// records without issues. Re-ingesting an existing batch id invalidates any
// prior export and overwrites the stored original-results pointer.
func (s *Service) Ingest(input IngestInput) (*Summary, error) {
	summary := &Summary{
		BatchID: input.BatchID,
		Status:  models.BatchPending,
		Items:   []SummaryItem{},
	}

	if len(input.Records) == 0 {
		return summary, nil
	}

	// The original results file is kept batch-scoped so reconciliation can
	// re-read it after the processing area is gone.
	storedName := filepath.Base(input.CSVPath)
	storedPath := filepath.Join(s.paths.BatchResultsDir(input.BatchID), storedName)
	if err := storage.CopyFile(input.CSVPath, storedPath); err != nil {
		slog.Error("failed to store results file", "batch_id", input.BatchID, "error", err)
		return nil, err
	}
	storedRel := filepath.ToSlash(filepath.Join(input.BatchID, storedName))

	originalsDir := filepath.Join(s.paths.BatchPublicDir(input.BatchID), "original")
	markedDir := filepath.Join(s.paths.BatchPublicDir(input.BatchID), "marked")

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var batch models.Batch
		err := tx.First(&batch, "batch_id = ?", input.BatchID).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			batch = models.Batch{
				ID:                  uuid.New(),
				BatchID:             input.BatchID,
				Template:            input.Template,
				OriginalResultsPath: storedRel,
				Status:              models.BatchPending,
			}
			if err := tx.Create(&batch).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := s.invalidateExport(tx, &batch); err != nil {
				return err
			}
			if err := tx.Model(&models.Batch{}).
				Where("id = ?", batch.ID).
				Updates(map[string]interface{}{
					"template":              input.Template,
					"original_results_path": storedRel,
				}).Error; err != nil {
				return err
			}
		}

		for _, record := range input.Records {
			issues := detector.DetectIssues(record.Answers, record.QuestionKeys)
			if len(issues) == 0 {
				continue
			}

			var imagePath, markedImagePath *string

			if src := input.Originals[record.FileID]; src != "" {
				dest := filepath.Join(originalsDir, filepath.Base(src))
				copied, err := storage.CopyIfExists(src, dest)
				if err != nil {
					return err
				}
				if copied {
					rel := filepath.ToSlash(filepath.Join(input.BatchID, "original", filepath.Base(src)))
					imagePath = &rel
				}
			}

			if record.MarkedImagePath != "" {
				dest := filepath.Join(markedDir, filepath.Base(record.MarkedImagePath))
				copied, err := storage.CopyIfExists(record.MarkedImagePath, dest)
				if err != nil {
					return err
				}
				if copied {
					rel := filepath.ToSlash(filepath.Join(input.BatchID, "marked", filepath.Base(record.MarkedImagePath)))
					markedImagePath = &rel
				}
			}

			item := models.Item{
				ID:              uuid.New(),
				FileID:          record.FileID,
				Template:        input.Template,
				BatchID:         input.BatchID,
				ImagePath:       imagePath,
				MarkedImagePath: markedImagePath,
				ResultsPath:     storedRel,
				Status:          models.ItemPending,
			}
			item.SetIssues(issues)
			item.SetAnswerMap(record.Answers)

			if err := tx.Create(&item).Error; err != nil {
				return err
			}

			responses := make([]models.Response, 0, len(record.QuestionKeys))
			for _, question := range record.QuestionKeys {
				var readValue *string
				if value := record.Answers[question]; value != "" {
					v := value
					readValue = &v
				}
				responses = append(responses, models.Response{
					ID:        uuid.New(),
					ItemID:    item.ID,
					Question:  question,
					ReadValue: readValue,
				})
			}
			if len(responses) > 0 {
				if err := tx.Create(&responses).Error; err != nil {
					return err
				}
			}

			summary.Items = append(summary.Items, SummaryItem{
				ID:             item.ID,
				FileID:         item.FileID,
				Template:       item.Template,
				BatchID:        item.BatchID,
				Issues:         issues,
				Status:         item.Status,
				ImageURL:       PublicURL(imagePath),
				MarkedImageURL: PublicURL(markedImagePath),
				CreatedAt:      item.CreatedAt,
			})
		}

		summary.Status = batch.Status
		return nil
	})
	if err != nil {
		slog.Error("ingest failed", "batch_id", input.BatchID, "error", err)
		return nil, err
	}

	summary.Total = len(summary.Items)
	summary.Pending = len(summary.Items)
	return summary, nil
}
