package audit

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"omr-audit-backend/internal/models"
	"omr-audit-backend/internal/validators"

	"gorm.io/gorm"
)

const (
	correctedFileName = "Results_Corrigidos.csv"
	manifestFileName  = "results_manifest.json"
)

// ManifestItem is one item's audit trail inside a manifest.
type ManifestItem struct {
	ID         string     `json:"id"`
	FileID     string     `json:"file_id"`
	Status     string     `json:"status"`
	Issues     []string   `json:"issues"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ExportedAt *time.Time `json:"exported_at"`
}

// Manifest is the tamper-evident record written next to the corrected file.
type Manifest struct {
	BatchID        string            `json:"batch_id"`
	Template       string            `json:"template"`
	GeneratedAt    time.Time         `json:"generated_at"`
	ExportedBy     *string           `json:"exported_by"`
	HasCorrections bool              `json:"has_corrections"`
	Files          map[string]string `json:"files"`
	Hashes         map[string]string `json:"hashes"`
	Summary        map[string]int    `json:"summary"`
	Items          []ManifestItem    `json:"items"`
}

// ReconcileResult is what a successful (or cached) reconciliation returns.
type ReconcileResult struct {
	Batch         *models.Batch
	CorrectedPath string
	ManifestPath  string
	Hashes        map[string]string
}

// Reconcile merges reviewer corrections into the original recognition
// output and writes the corrected file plus its manifest. When a valid
// export already exists and force is false, the cached artifacts are
// returned untouched, so repeated calls are idempotent down to ExportedAt.
func (s *Service) Reconcile(batchID string, exportedBy string, force bool) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := s.locks.WithLock(batchID, func() error {
		var err error
		result, err = s.reconcileLocked(batchID, exportedBy, force)
		return err
	})
	return result, err
}

func (s *Service) reconcileLocked(batchID string, exportedBy string, force bool) (*ReconcileResult, error) {
	batch, err := s.batches.FindByBatchID(batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrNotFound
	}

	if cached := s.cachedExport(batch, force); cached != nil {
		return cached, nil
	}

	items, err := s.items.ListByBatch(batchID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	originalPath, err := validators.SafeJoin(s.paths.ResultsDir(), batch.OriginalResultsPath)
	if err != nil {
		slog.Error("results path escapes results root",
			"batch_id", batchID, "path", batch.OriginalResultsPath)
		return nil, ErrNotFound
	}
	if _, err := os.Stat(originalPath); err != nil {
		slog.Error("results file not found", "batch_id", batchID, "path", originalPath)
		return nil, ErrNotFound
	}

	header, rows, err := readResultsTable(originalPath)
	if err != nil {
		slog.Error("failed to read results file", "batch_id", batchID, "error", err)
		return nil, ErrNotFound
	}

	corrections, hasCorrections := effectiveValues(items)
	applyCorrections(header, rows, corrections)

	exportDir := s.paths.BatchExportsDir(batchID)
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		slog.Error("failed to create export directory", "batch_id", batchID, "error", err)
		return nil, ErrNotFound
	}

	correctedPath := filepath.Join(exportDir, correctedFileName)
	if err := writeResultsTable(correctedPath, header, rows); err != nil {
		slog.Error("failed to write corrected file", "batch_id", batchID, "error", err)
		return nil, ErrNotFound
	}

	generatedAt := time.Now().UTC()

	originalHash, err := hashFile(originalPath)
	if err != nil {
		slog.Error("failed to hash original file", "batch_id", batchID, "error", err)
		return nil, ErrNotFound
	}
	correctedHash, err := hashFile(correctedPath)
	if err != nil {
		slog.Error("failed to hash corrected file", "batch_id", batchID, "error", err)
		return nil, ErrNotFound
	}
	hashes := map[string]string{
		"original":  originalHash,
		"corrected": correctedHash,
	}

	summary := map[string]int{
		"total":    len(items),
		"pending":  0,
		"resolved": 0,
		"reopened": 0,
	}
	for i := range items {
		switch items[i].Status {
		case models.ItemPending:
			summary["pending"]++
		case models.ItemResolved:
			summary["resolved"]++
			items[i].ExportedAt = &generatedAt
		case models.ItemReopened:
			summary["reopened"]++
		}
	}

	correctedRel := filepath.ToSlash(filepath.Join(batchID, correctedFileName))
	manifestRel := filepath.ToSlash(filepath.Join(batchID, manifestFileName))

	manifest := Manifest{
		BatchID:        batch.BatchID,
		Template:       batch.Template,
		GeneratedAt:    generatedAt,
		HasCorrections: hasCorrections,
		Files: map[string]string{
			"original":  batch.OriginalResultsPath,
			"corrected": correctedRel,
		},
		Hashes:  hashes,
		Summary: summary,
		Items:   make([]ManifestItem, 0, len(items)),
	}
	if exportedBy != "" {
		manifest.ExportedBy = &exportedBy
	}
	for i := range items {
		manifest.Items = append(manifest.Items, ManifestItem{
			ID:         items[i].ID.String(),
			FileID:     items[i].FileID,
			Status:     items[i].Status,
			Issues:     items[i].IssueList(),
			UpdatedAt:  items[i].UpdatedAt,
			ExportedAt: items[i].ExportedAt,
		})
	}

	manifestPath := filepath.Join(exportDir, manifestFileName)
	if err := writeManifest(manifestPath, &manifest); err != nil {
		slog.Error("failed to write manifest", "batch_id", batchID, "error", err)
		return nil, ErrNotFound
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Item{}).
			Where("batch_id = ? AND status = ?", batchID, models.ItemResolved).
			Update("exported_at", generatedAt).Error; err != nil {
			return err
		}

		return tx.Model(&models.Batch{}).
			Where("id = ?", batch.ID).
			Updates(map[string]interface{}{
				"corrected_results_path": correctedRel,
				"manifest_path":          manifestRel,
				"status":                 models.BatchExported,
				"exported_at":            generatedAt,
				"exported_by":            manifest.ExportedBy,
			}).Error
	})
	if err != nil {
		slog.Error("failed to record export", "batch_id", batchID, "error", err)
		return nil, ErrNotFound
	}

	batch.CorrectedResultsPath = &correctedRel
	batch.ManifestPath = &manifestRel
	batch.Status = models.BatchExported
	batch.ExportedAt = &generatedAt
	batch.ExportedBy = manifest.ExportedBy

	return &ReconcileResult{
		Batch:         batch,
		CorrectedPath: correctedPath,
		ManifestPath:  manifestPath,
		Hashes:        hashes,
	}, nil
}

// cachedExport returns the previously generated artifacts when the batch is
// still exported and both files resolve inside the export root. Any
// traversal or missing file is treated as a cache miss.
func (s *Service) cachedExport(batch *models.Batch, force bool) *ReconcileResult {
	if force || batch.Status != models.BatchExported {
		return nil
	}
	if batch.CorrectedResultsPath == nil || batch.ManifestPath == nil {
		return nil
	}

	correctedPath, err := validators.SafeJoin(s.paths.ExportsDir(), *batch.CorrectedResultsPath)
	if err != nil {
		return nil
	}
	manifestPath, err := validators.SafeJoin(s.paths.ExportsDir(), *batch.ManifestPath)
	if err != nil {
		return nil
	}
	if _, err := os.Stat(correctedPath); err != nil {
		return nil
	}
	if _, err := os.Stat(manifestPath); err != nil {
		return nil
	}

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil
	}

	return &ReconcileResult{
		Batch:         batch,
		CorrectedPath: correctedPath,
		ManifestPath:  manifestPath,
		Hashes:        manifest.Hashes,
	}
}

// effectiveValues builds the per-file effective-value maps and reports
// whether any of them differs from the original reading.
func effectiveValues(items []models.Item) (map[string]map[string]string, bool) {
	corrections := make(map[string]map[string]string, len(items))
	hasCorrections := false

	for i := range items {
		values := make(map[string]string, len(items[i].Responses))
		for j := range items[i].Responses {
			response := &items[i].Responses[j]
			if response.CorrectedValue != nil {
				if response.ReadValue == nil || *response.CorrectedValue != *response.ReadValue {
					hasCorrections = true
				}
			}
			values[response.Question] = response.EffectiveValue()
		}
		corrections[items[i].FileID] = values
	}

	return corrections, hasCorrections
}

// applyCorrections overwrites known question columns for known file ids.
// Unknown rows and columns pass through untouched.
func applyCorrections(header []string, rows [][]string, corrections map[string]map[string]string) {
	fileIDCol := -1
	for i, name := range header {
		if name == "file_id" {
			fileIDCol = i
			break
		}
	}
	if fileIDCol < 0 {
		return
	}

	for _, row := range rows {
		if fileIDCol >= len(row) {
			continue
		}
		updates, ok := corrections[row[fileIDCol]]
		if !ok {
			continue
		}
		for col, name := range header {
			if col >= len(row) {
				continue
			}
			if value, ok := updates[name]; ok {
				row[col] = value
			}
		}
	}
}

func readResultsTable(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

func writeResultsTable(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

func writeManifest(path string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadManifest reads a manifest document back from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
