package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aicfo-backend/logger"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

const insightModel = "gemini-1.5-flash"

// InsightService turns aggregated metrics into a short narrative using the
// Gemini model. When the model is unavailable it falls back to a plain
// numeric summary rather than failing the request.
type InsightService struct {
	gemini *genai.Client
}

// NewInsightService creates a new insight service
func NewInsightService(gemini *genai.Client) *InsightService {
	return &InsightService{gemini: gemini}
}

// InsightResult is the generated narrative plus whether it is fallback
// content
type InsightResult struct {
	Insights string `json:"insights"`
	Fallback bool   `json:"fallback"`
}

// Generate produces an insight narrative for a company's aggregated
// metrics.
func (s *InsightService) Generate(ctx context.Context, companyName string, result *AggregateResult) (*InsightResult, error) {
	if result == nil {
		return nil, errors.New("aggregate result required")
	}

	if s.gemini == nil {
		return &InsightResult{Insights: fallbackSummary(companyName, result), Fallback: true}, nil
	}

	model := s.gemini.GenerativeModel(insightModel)
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(buildInsightPrompt(companyName, result)))
	if err != nil {
		logger.FromContext(ctx).Warn("insight generation failed, serving fallback", zap.Error(err))
		return &InsightResult{Insights: fallbackSummary(companyName, result), Fallback: true}, nil
	}

	text := extractText(resp)
	if text == "" {
		return &InsightResult{Insights: fallbackSummary(companyName, result), Fallback: true}, nil
	}

	return &InsightResult{Insights: text}, nil
}

func buildInsightPrompt(companyName string, result *AggregateResult) string {
	var sb strings.Builder
	c := result.Consolidated

	fmt.Fprintf(&sb, "You are a CFO assistant. Write a concise plain-text assessment (max 200 words) of the financial position of %s based on these aggregated figures.\n\n", companyName)
	fmt.Fprintf(&sb, "Company-wide: revenue %.2f, expenses %.2f, net profit %.2f, cash flow %.2f, working capital %.2f, avg EBITDA %.2f, avg gross margin %.2f, avg profit margin %.2f, avg health score %.2f, avg current ratio %.2f.\n",
		c.TotalRevenue, c.TotalExpenses, c.NetProfit, c.TotalCashFlow, c.TotalWorkingCapital,
		c.AvgEBITDA, c.AvgGrossMargin, c.AvgProfitMargin, c.AvgHealthScore, c.AvgCurrentRatio)

	for _, b := range result.Branches {
		fmt.Fprintf(&sb, "Branch %s: revenue %.2f, expenses %.2f, net profit %.2f, profit margin %.2f, health score %.2f, critical alerts %d (%d records).\n",
			b.BranchName, b.TotalRevenue, b.TotalExpenses, b.NetProfit, b.ProfitMargin, b.HealthScore, b.CriticalAlerts, b.RecordCount)
	}

	sb.WriteString("\nHighlight the strongest and weakest branches and any liquidity or leverage concerns.")
	return sb.String()
}

func fallbackSummary(companyName string, result *AggregateResult) string {
	c := result.Consolidated
	return fmt.Sprintf(
		"%s: total revenue %.2f, total expenses %.2f, net profit %.2f across %d branches. Average profit margin %.2f, average health score %.2f. Detailed AI insights are temporarily unavailable.",
		companyName, c.TotalRevenue, c.TotalExpenses, c.NetProfit, c.BranchCount, c.AvgProfitMargin, c.AvgHealthScore,
	)
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}
