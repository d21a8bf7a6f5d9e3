package service

import (
	"context"
	"errors"
	"testing"

	"aicfo-backend/models"

	"github.com/google/uuid"
)

func mb(f float64) int64 {
	return int64(f * bytesPerMB)
}

func TestFindDuplicate(t *testing.T) {
	stored := []*models.FinancialAnalysis{
		{ID: uuid.New(), FileName: "q1_report.csv", FileSize: mb(5.00)},
		{ID: uuid.New(), FileName: "balance.xlsx", FileSize: mb(2.00)},
	}

	tests := []struct {
		name      string
		filename  string
		size      int64
		wantMatch bool
	}{
		{"same name within tolerance", "q1_report.csv", mb(5.40), true},
		{"same name at tolerance edge", "q1_report.csv", mb(5.50), true},
		{"same name outside tolerance", "q1_report.csv", mb(5.60), false},
		{"same name identical size", "q1_report.csv", mb(5.00), true},
		{"different name close size", "q2_report.csv", mb(5.00), false},
		{"case differs", "Q1_REPORT.CSV", mb(5.00), false},
		{"other stored file matches", "balance.xlsx", mb(1.85), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := FindDuplicate(stored, tt.filename, tt.size)
			if (match != nil) != tt.wantMatch {
				t.Errorf("FindDuplicate(%q, %d) match = %v, want %v", tt.filename, tt.size, match != nil, tt.wantMatch)
			}
		})
	}
}

func TestFindDuplicateZeroByteFloor(t *testing.T) {
	stored := []*models.FinancialAnalysis{
		{ID: uuid.New(), FileName: "empty.csv", FileSize: 0},
	}

	// A zero-byte candidate still gets the 0.01 MB floor, so a stored file
	// a few kilobytes larger counts as the same document.
	if FindDuplicate(stored, "empty.csv", 0) == nil {
		t.Error("expected zero-byte exact match to be a duplicate")
	}

	stored[0].FileSize = mb(0.009)
	if FindDuplicate(stored, "empty.csv", 0) == nil {
		t.Error("expected size within the floor to be a duplicate")
	}

	stored[0].FileSize = mb(0.02)
	if FindDuplicate(stored, "empty.csv", 0) != nil {
		t.Error("expected size beyond the floor to not be a duplicate")
	}
}

func TestFindDuplicateFirstMatchWins(t *testing.T) {
	first := &models.FinancialAnalysis{ID: uuid.New(), FileName: "data.csv", FileSize: mb(1.0)}
	second := &models.FinancialAnalysis{ID: uuid.New(), FileName: "data.csv", FileSize: mb(1.0)}

	match := FindDuplicate([]*models.FinancialAnalysis{first, second}, "data.csv", mb(1.0))
	if match == nil || match.ID != first.ID {
		t.Errorf("expected first stored match to win, got %v", match)
	}
}

type stubAnalysisLister struct {
	analyses []*models.FinancialAnalysis
	err      error
}

func (s *stubAnalysisLister) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.FinancialAnalysis, error) {
	return s.analyses, s.err
}

func TestDuplicateCheckerCheck(t *testing.T) {
	existingID := uuid.New()
	lister := &stubAnalysisLister{analyses: []*models.FinancialAnalysis{
		{ID: existingID, FileName: "ledger.pdf", FileSize: mb(3.0)},
	}}
	checker := NewDuplicateChecker(lister)

	result, err := checker.Check(context.Background(), uuid.New(), "ledger.pdf", mb(3.1))
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !result.IsDuplicate {
		t.Fatal("expected a duplicate")
	}
	if result.ExistingID == nil || *result.ExistingID != existingID {
		t.Errorf("ExistingID = %v, want %v", result.ExistingID, existingID)
	}

	result, err = checker.Check(context.Background(), uuid.New(), "other.pdf", mb(3.1))
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if result.IsDuplicate || result.ExistingID != nil {
		t.Errorf("expected no duplicate, got %+v", result)
	}
}

func TestDuplicateCheckerListError(t *testing.T) {
	wantErr := errors.New("db down")
	checker := NewDuplicateChecker(&stubAnalysisLister{err: wantErr})

	if _, err := checker.Check(context.Background(), uuid.New(), "ledger.pdf", 1); !errors.Is(err, wantErr) {
		t.Errorf("expected lister error to propagate, got %v", err)
	}
}
