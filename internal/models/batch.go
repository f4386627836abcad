package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch statuses. A cleaned batch has no row, so there is no "cleaned"
// status value in the database.
const (
	BatchPending  = "pending"
	BatchExported = "exported"
	BatchCleaned  = "cleaned"
)

type Batch struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"-"`
	BatchID              string     `gorm:"uniqueIndex" json:"batch_id"`
	Template             string     `gorm:"index" json:"template"`
	OriginalResultsPath  string     `json:"original_results_path"`
	CorrectedResultsPath *string    `json:"corrected_results_path"`
	ManifestPath         *string    `json:"manifest_path"`
	Status               string     `gorm:"index" json:"status"`
	ExportedAt           *time.Time `json:"exported_at"`
	ExportedBy           *string    `json:"exported_by"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
