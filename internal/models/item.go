package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Item statuses.
const (
	ItemPending  = "pending"
	ItemResolved = "resolved"
	ItemReopened = "reopened"
)

// Item is one reviewed answer sheet. Only sheets with at least one detected
// issue ever become Items.
type Item struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FileID          string         `gorm:"index" json:"file_id"`
	Template        string         `gorm:"index" json:"template"`
	BatchID         string         `gorm:"index" json:"batch_id"`
	Issues          datatypes.JSON `json:"issues"`
	ImagePath       *string        `json:"image_path"`
	MarkedImagePath *string        `json:"marked_image_path"`
	RawAnswers      datatypes.JSON `json:"raw_answers"`
	ResultsPath     string         `json:"results_path"`
	Status          string         `gorm:"index" json:"status"`
	Notes           *string        `json:"notes"`
	ExportedAt      *time.Time     `json:"exported_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	Responses []Response `gorm:"foreignKey:ItemID" json:"responses,omitempty"`
}

// IssueList decodes the JSON issues column.
func (i *Item) IssueList() []string {
	var issues []string
	if len(i.Issues) > 0 {
		_ = json.Unmarshal(i.Issues, &issues)
	}
	return issues
}

// SetIssues encodes the issues column.
func (i *Item) SetIssues(issues []string) {
	data, _ := json.Marshal(issues)
	i.Issues = data
}

// AnswerMap decodes the JSON raw-answers column.
func (i *Item) AnswerMap() map[string]string {
	answers := map[string]string{}
	if len(i.RawAnswers) > 0 {
		_ = json.Unmarshal(i.RawAnswers, &answers)
	}
	return answers
}

// SetAnswerMap encodes the raw-answers column.
func (i *Item) SetAnswerMap(answers map[string]string) {
	data, _ := json.Marshal(answers)
	i.RawAnswers = data
}
