package service

import (
	"context"
	"strings"
	"testing"

	"aicfo-backend/models"

	"github.com/google/generative-ai-go/genai"
)

func TestInsightGenerateWithoutClient(t *testing.T) {
	svc := NewInsightService(nil)

	result, err := svc.Generate(context.Background(), "Acme Corp", &AggregateResult{
		Consolidated: models.ConsolidatedMetrics{
			TotalRevenue: 5000,
			NetProfit:    1200,
			BranchCount:  3,
		},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if !result.Fallback {
		t.Error("Fallback = false, want true without a model client")
	}
	if !strings.Contains(result.Insights, "Acme Corp") {
		t.Errorf("fallback summary should name the company, got %q", result.Insights)
	}
	if !strings.Contains(result.Insights, "5000.00") {
		t.Errorf("fallback summary should carry revenue, got %q", result.Insights)
	}
}

func TestInsightGenerateNilResult(t *testing.T) {
	svc := NewInsightService(nil)
	if _, err := svc.Generate(context.Background(), "Acme Corp", nil); err == nil {
		t.Error("expected an error for a nil aggregate result")
	}
}

func TestBuildInsightPrompt(t *testing.T) {
	prompt := buildInsightPrompt("Acme Corp", &AggregateResult{
		Branches: []models.BranchMetrics{
			{BranchName: "Downtown", TotalRevenue: 1000, NetProfit: 200, RecordCount: 2},
			{BranchName: "Airport", TotalRevenue: 3000, NetProfit: 900, RecordCount: 4},
		},
		Consolidated: models.ConsolidatedMetrics{TotalRevenue: 4000, NetProfit: 1100, BranchCount: 2},
	})

	for _, want := range []string{"Acme Corp", "Downtown", "Airport", "4000.00"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestExtractText(t *testing.T) {
	if got := extractText(nil); got != "" {
		t.Errorf("extractText(nil) = %q, want empty", got)
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Revenue looks "), genai.Text("healthy.")}}},
		},
	}
	if got := extractText(resp); got != "Revenue looks healthy." {
		t.Errorf("extractText = %q", got)
	}
}
