package service

import (
	"context"
	"errors"
	"math"

	"aicfo-backend/models"

	"github.com/google/uuid"
)

const (
	bytesPerMB = 1024 * 1024

	// Tolerance floor in MB; applies even to zero-byte candidates.
	duplicateSizeFloorMB = 0.01

	// Fraction of the candidate size tolerated as size drift.
	duplicateSizeFraction = 0.10
)

// AnalysisLister lists a user's stored analyses
type AnalysisLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.FinancialAnalysis, error)
}

// DuplicateChecker decides whether an upload candidate is "the same file"
// as one the user already stored. The heuristic is deliberately permissive:
// an exact filename match plus a size within max(0.01 MB, 10% of the
// candidate size) counts as a re-upload of the same document, which
// tolerates re-exports that shift the size slightly.
type DuplicateChecker struct {
	analyses AnalysisLister
}

// NewDuplicateChecker creates a new duplicate checker
func NewDuplicateChecker(analyses AnalysisLister) *DuplicateChecker {
	return &DuplicateChecker{analyses: analyses}
}

// DuplicateCheckResult reports the outcome of a duplicate check
type DuplicateCheckResult struct {
	IsDuplicate bool       `json:"is_duplicate"`
	ExistingID  *uuid.UUID `json:"existing_id,omitempty"`
}

// Check looks for a stored duplicate of the candidate among the user's
// files.
func (c *DuplicateChecker) Check(ctx context.Context, userID uuid.UUID, filename string, size int64) (*DuplicateCheckResult, error) {
	if c.analyses == nil {
		return nil, errors.New("analysis lister not set")
	}

	existing, err := c.analyses.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if match := FindDuplicate(existing, filename, size); match != nil {
		return &DuplicateCheckResult{IsDuplicate: true, ExistingID: &match.ID}, nil
	}
	return &DuplicateCheckResult{}, nil
}

// FindDuplicate returns the first stored file that matches the candidate,
// or nil. Filename comparison is exact and case-sensitive; without a name
// match no size is ever close enough. When several stored files share the
// name, the first match wins; no most-recent guarantee.
func FindDuplicate(existing []*models.FinancialAnalysis, filename string, size int64) *models.FinancialAnalysis {
	candidateMB := float64(size) / bytesPerMB
	tolerance := math.Max(duplicateSizeFloorMB, duplicateSizeFraction*candidateMB)

	for _, a := range existing {
		if a.FileName != filename {
			continue
		}
		diffMB := math.Abs(float64(a.FileSize)-float64(size)) / bytesPerMB
		if diffMB <= tolerance {
			return a
		}
	}
	return nil
}
