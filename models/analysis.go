package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnalysisPayload holds the opaque nested analysis document produced by the
// analysis backend. It is stored as JSONB and never interpreted here; the
// typed view lives at the analysis client boundary.
type AnalysisPayload map[string]interface{}

// Value implements driver.Valuer for JSONB
func (p AnalysisPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *AnalysisPayload) Scan(value interface{}) error {
	if value == nil {
		*p = make(AnalysisPayload)
		return nil
	}

	// Handle different types that pgx might return for JSONB
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*p = make(AnalysisPayload)
		return nil
	}

	if len(bytes) == 0 {
		*p = make(AnalysisPayload)
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// FinancialAnalysis represents an uploaded financial document and its
// AI-derived analysis. Ownership is always by user; company/branch linkage
// is optional grouping metadata.
type FinancialAnalysis struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	CompanyID   *uuid.UUID      `json:"company_id,omitempty"`
	BranchID    *uuid.UUID      `json:"branch_id,omitempty"`
	FileName    string          `json:"file_name"`
	FileType    string          `json:"file_type"`
	FileSize    int64           `json:"file_size"`
	StoragePath string          `json:"-"`
	UploadGroup *string         `json:"upload_group,omitempty"`
	Period      *string         `json:"period,omitempty"`
	Payload     AnalysisPayload `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
