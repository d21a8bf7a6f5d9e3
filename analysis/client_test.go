package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestParseDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/parse" {
			t.Errorf("path = %q, want /api/parse", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("method = %q, want POST", r.Method)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		if header.Filename != "q1.csv" {
			t.Errorf("filename = %q, want q1.csv", header.Filename)
		}

		fmt.Fprint(w, `{
			"analysis": {"health_score": 82.5},
			"line_items": [
				{"account_name": "Product Sales", "category": "operating", "amount": "1200.50", "entry_type": "revenue", "period": "2025-Q1"},
				{"account_name": "Rent", "amount": "-800", "entry_type": "expense"}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.ParseDocument(context.Background(), "q1.csv", strings.NewReader("date,amount\n2025-01-01,100\n"))
	if err != nil {
		t.Fatalf("ParseDocument returned error: %v", err)
	}
	if result.Payload["health_score"] != 82.5 {
		t.Errorf("Payload[health_score] = %v, want 82.5", result.Payload["health_score"])
	}
	if len(result.LineItems) != 2 {
		t.Fatalf("got %d line items, want 2", len(result.LineItems))
	}
	first := result.LineItems[0]
	if first.AccountName != "Product Sales" || first.EntryType != "revenue" {
		t.Errorf("first line item = %+v", first)
	}
	if !first.Amount.Equal(decimal.RequireFromString("1200.50")) {
		t.Errorf("Amount = %s, want 1200.50", first.Amount)
	}
	if result.LineItems[1].Amount.Sign() >= 0 {
		t.Errorf("expense amount should stay negative, got %s", result.LineItems[1].Amount)
	}
}

func TestParseDocumentBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "parse failed", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.ParseDocument(context.Background(), "q1.csv", strings.NewReader("x")); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("error = %v, want ErrBackendUnavailable", err)
	}
}

func TestGetAnalysisDetail(t *testing.T) {
	analysisID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := fmt.Sprintf("/api/analyses/%s", analysisID)
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		fmt.Fprint(w, `{
			"profit_and_loss": {
				"revenue_analysis": {"total_revenue": 1200.5},
				"profitability": {"net_income": 300, "gross_margin": 0.4}
			},
			"cash_flow": {"free_cash_flow": 150},
			"executive_summary": {"health_score": 75, "critical_alerts": ["low runway"]}
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	detail, err := client.GetAnalysisDetail(context.Background(), analysisID)
	if err != nil {
		t.Fatalf("GetAnalysisDetail returned error: %v", err)
	}

	m := detail.Metrics()
	if m.Revenue != 1200.5 {
		t.Errorf("Revenue = %v, want 1200.5", m.Revenue)
	}
	if m.NetIncome != 300 {
		t.Errorf("NetIncome = %v, want 300", m.NetIncome)
	}
	if m.GrossMargin != 0.4 {
		t.Errorf("GrossMargin = %v, want 0.4", m.GrossMargin)
	}
	if m.FreeCashFlow != 150 {
		t.Errorf("FreeCashFlow = %v, want 150", m.FreeCashFlow)
	}
	if m.HealthScore != 75 {
		t.Errorf("HealthScore = %v, want 75", m.HealthScore)
	}
	if m.CriticalAlerts != 1 {
		t.Errorf("CriticalAlerts = %v, want 1", m.CriticalAlerts)
	}
	// Absent sections read as zero
	if m.Expenses != 0 || m.WorkingCapital != 0 || m.CurrentRatio != 0 {
		t.Errorf("expected zero defaults for missing fields, got %+v", m)
	}
}

func TestGetAnalysisDetailNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.GetAnalysisDetail(context.Background(), uuid.New()); !errors.Is(err, ErrAnalysisNotFound) {
		t.Errorf("error = %v, want ErrAnalysisNotFound", err)
	}
}

func TestChat(t *testing.T) {
	analysisID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Message != "how is revenue trending?" {
			t.Errorf("message = %q", req.Message)
		}
		if req.AnalysisID == nil || *req.AnalysisID != analysisID {
			t.Errorf("analysis_id = %v, want %v", req.AnalysisID, analysisID)
		}

		json.NewEncoder(w).Encode(ChatResponse{Reply: "Revenue is up 12% quarter over quarter."})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	resp, err := client.Chat(context.Background(), ChatRequest{Message: "how is revenue trending?", AnalysisID: &analysisID})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Reply != "Revenue is up 12% quarter over quarter." {
		t.Errorf("Reply = %q", resp.Reply)
	}
}

func TestCheckHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if err := client.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth returned error: %v", err)
	}

	server.Close()
	if err := client.CheckHealth(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("error = %v, want ErrBackendUnavailable", err)
	}
}
