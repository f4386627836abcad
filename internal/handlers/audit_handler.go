package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"omr-audit-backend/internal/models"
	"omr-audit-backend/internal/repository"
	"omr-audit-backend/internal/services/audit"
	"omr-audit-backend/internal/storage"
	"omr-audit-backend/internal/validators"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditHandler struct {
	service *audit.Service
	paths   *storage.Paths
}

func NewAuditHandler(service *audit.Service, paths *storage.Paths) *AuditHandler {
	return &AuditHandler{service: service, paths: paths}
}

type responseView struct {
	Question       string  `json:"question"`
	ReadValue      *string `json:"read_value"`
	CorrectedValue *string `json:"corrected_value"`
}

type listItemView struct {
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

type detailView struct {
	listItemView
	Notes      *string           `json:"notes"`
	RawAnswers map[string]string `json:"raw_answers"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Responses  []responseView    `json:"responses"`
}

func toListItem(item *models.Item) listItemView {
	issues := item.IssueList()
	if issues == nil {
		issues = []string{}
	}
	return listItemView{
		ID:             item.ID,
		FileID:         item.FileID,
		Template:       item.Template,
		BatchID:        item.BatchID,
		Issues:         issues,
		Status:         item.Status,
		ImageURL:       audit.PublicURL(item.ImagePath),
		MarkedImageURL: audit.PublicURL(item.MarkedImagePath),
		CreatedAt:      item.CreatedAt,
	}
}

func toDetail(item *models.Item) detailView {
	responses := make([]responseView, 0, len(item.Responses))
	for i := range item.Responses {
		responses = append(responses, responseView{
			Question:       item.Responses[i].Question,
			ReadValue:      item.Responses[i].ReadValue,
			CorrectedValue: item.Responses[i].CorrectedValue,
		})
	}
	return detailView{
		listItemView: toListItem(item),
		Notes:        item.Notes,
		RawAnswers:   item.AnswerMap(),
		UpdatedAt:    item.UpdatedAt,
		Responses:    responses,
	}
}

// respondError maps service errors onto the client-facing taxonomy. Anything
// unclassified becomes a generic 500 without internal detail.
func respondError(c *gin.Context, err error) {
	var validation *audit.ValidationError
	switch {
	case errors.Is(err, audit.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.Is(err, audit.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// requireUser validates the exporting-identity header.
func requireUser(c *gin.Context) (string, bool) {
	user := c.GetHeader("X-Audit-User")
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Audit-User header is required"})
		return "", false
	}
	if !validators.ValidAuditUser(user) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Audit-User header contains invalid characters"})
		return "", false
	}
	return validators.SanitizeUserInput(user, 64), true
}

// List returns a filtered, paginated item listing with aggregate counts.
func (h *AuditHandler) List(c *gin.Context) {
	filter := repository.ListFilter{
		Status:   c.Query("status"),
		Template: c.Query("template"),
		BatchID:  c.Query("batch_id"),
	}

	if from := c.Query("created_from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_from timestamp"})
			return
		}
		filter.CreatedFrom = &parsed
	}
	if to := c.Query("created_to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_to timestamp"})
			return
		}
		filter.CreatedTo = &parsed
	}

	filter.Page = intQuery(c, "page", 1)
	filter.PageSize = intQuery(c, "page_size", 20)

	items, counts, err := h.service.ListItems(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]listItemView, 0, len(items))
	for i := range items {
		views = append(views, toListItem(&items[i]))
	}

	pageSize := filter.PageSize
	if pageSize > 100 {
		pageSize = 100
	}
	totalPages := int64(1)
	if counts.Total > 0 {
		totalPages = (counts.Total + int64(pageSize) - 1) / int64(pageSize)
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       views,
		"total":       counts.Total,
		"pending":     counts.Pending,
		"resolved":    counts.Resolved,
		"reopened":    counts.Reopened,
		"page":        filter.Page,
		"page_size":   pageSize,
		"total_pages": totalPages,
	})
}

// Get returns the full item record including responses.
func (h *AuditHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}

	item, err := h.service.GetItem(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDetail(item))
}

// Decision applies reviewer corrections to an item.
func (h *AuditHandler) Decision(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}

	var payload struct {
		Answers map[string]string `json:"answers" binding:"required"`
		Notes   string            `json:"notes"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	item, err := h.service.SubmitDecision(id, payload.Answers, payload.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDetail(item))
}

// Export reconciles the batch and returns either the corrected file or a
// JSON metadata view with the parsed manifest.
func (h *AuditHandler) Export(c *gin.Context) {
	batchID := c.Query("batch_id")
	if !validators.ValidBatchID(batchID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch_id"})
		return
	}

	format := c.DefaultQuery("format", "file")
	if format != "file" && format != "json" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be 'file' or 'json'"})
		return
	}

	user, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.service.Reconcile(batchID, user, false)
	if err != nil {
		respondError(c, err)
		return
	}

	batch := result.Batch
	if format == "json" {
		manifest, err := audit.LoadManifest(result.ManifestPath)
		if err != nil {
			respondError(c, audit.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"batch_id":               batch.BatchID,
			"status":                 batch.Status,
			"exported_at":            batch.ExportedAt,
			"exported_by":            batch.ExportedBy,
			"corrected_results_path": batch.CorrectedResultsPath,
			"manifest_path":          batch.ManifestPath,
			"manifest":               manifest,
		})
		return
	}

	c.FileAttachment(result.CorrectedPath, filepath.Base(result.CorrectedPath))
}

// Cleanup removes an exported batch and all its artifacts. Destructive, so
// it requires an explicit confirmation flag.
func (h *AuditHandler) Cleanup(c *gin.Context) {
	var payload struct {
		BatchID string `json:"batch_id" binding:"required"`
		Confirm bool   `json:"confirm"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if !payload.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirm cleanup by setting 'confirm' to true"})
		return
	}
	if !validators.ValidBatchID(payload.BatchID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch_id"})
		return
	}
	if _, ok := requireUser(c); !ok {
		return
	}

	result, err := h.service.Cleanup(payload.BatchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id":      result.BatchID,
		"status":        models.BatchCleaned,
		"removed_paths": result.RemovedPaths,
	})
}

// Ingest registers freshly recognized records for review. The upload and
// extraction layer is external; it calls this boundary with paths relative
// to the processing root.
func (h *AuditHandler) Ingest(c *gin.Context) {
	var payload struct {
		Template   string                  `json:"template" binding:"required"`
		BatchID    string                  `json:"batch_id" binding:"required"`
		ResultsCSV string                  `json:"results_csv" binding:"required"`
		Records    []audit.ProcessedRecord `json:"records"`
		Originals  map[string]string       `json:"originals"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if !validators.ValidTemplateName(payload.Template) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template name"})
		return
	}
	if !validators.ValidBatchID(payload.BatchID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch_id"})
		return
	}
	for i := range payload.Records {
		if !validators.ValidFileID(payload.Records[i].FileID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file_id: " + payload.Records[i].FileID})
			return
		}
	}

	processingRoot := h.paths.ProcessingDir()
	csvPath, err := validators.SafeJoin(processingRoot, payload.ResultsCSV)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid results_csv path"})
		return
	}

	records := make([]audit.ProcessedRecord, 0, len(payload.Records))
	for _, record := range payload.Records {
		if record.MarkedImagePath != "" {
			resolved, err := validators.SafeJoin(processingRoot, record.MarkedImagePath)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid marked image path for " + record.FileID})
				return
			}
			record.MarkedImagePath = resolved
		}
		records = append(records, record)
	}

	originals := make(map[string]string, len(payload.Originals))
	for fileID, path := range payload.Originals {
		resolved, err := validators.SafeJoin(processingRoot, path)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid original image path for " + fileID})
			return
		}
		originals[fileID] = resolved
	}

	summary, err := h.service.Ingest(audit.IngestInput{
		Template:  payload.Template,
		BatchID:   payload.BatchID,
		CSVPath:   csvPath,
		Records:   records,
		Originals: originals,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	value := c.Query(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
