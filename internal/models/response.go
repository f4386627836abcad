package models

import (
	"time"

	"github.com/google/uuid"
)

// Response is one question's recognized value plus the reviewer's optional
// correction. A nil CorrectedValue means "keep the original reading".
type Response struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ItemID         uuid.UUID `gorm:"type:uuid;index" json:"-"`
	Question       string    `gorm:"index" json:"question"`
	ReadValue      *string   `json:"read_value"`
	CorrectedValue *string   `json:"corrected_value"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// EffectiveValue resolves the value the export should carry: the correction
// when present, otherwise the original reading, otherwise empty.
func (r *Response) EffectiveValue() string {
	if r.CorrectedValue != nil {
		return *r.CorrectedValue
	}
	if r.ReadValue != nil {
		return *r.ReadValue
	}
	return ""
}
