package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBackendUnavailable = errors.New("analysis backend unavailable")
	ErrAnalysisNotFound   = errors.New("analysis not found on backend")
)

const (
	healthMaxRetries     = 5
	healthInitialBackoff = time.Second
)

// Client talks to the external analysis backend over HTTP. The backend does
// the actual financial intelligence; this client only moves JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the analysis backend.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ParseResult is the backend's response to a document parse request: the
// opaque analysis payload plus the parsed line items, when the document
// format yields them.
type ParseResult struct {
	Payload   map[string]interface{} `json:"analysis"`
	LineItems []LineItem             `json:"line_items"`
}

// LineItem is one parsed statement entry from the uploaded document.
type LineItem struct {
	AccountName string          `json:"account_name"`
	Category    *string         `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	EntryType   string          `json:"entry_type"`
	Period      *string         `json:"period,omitempty"`
}

// ParseDocument submits a document for parsing and returns the opaque
// analysis payload.
func (c *Client) ParseDocument(ctx context.Context, filename string, data io.Reader) (*ParseResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/parse", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d - %s", ErrBackendUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var result ParseResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode parse response: %w", err)
	}

	return &result, nil
}

// GetAnalysisDetail fetches the detailed analysis payload for a stored
// record. The payload is decoded once here into its typed form.
func (c *Client) GetAnalysisDetail(ctx context.Context, analysisID uuid.UUID) (*Detail, error) {
	url := fmt.Sprintf("%s/api/analyses/%s", c.baseURL, analysisID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrAnalysisNotFound
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d - %s", ErrBackendUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var detail Detail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("failed to decode analysis detail: %w", err)
	}

	return &detail, nil
}

// ChatRequest is a chat relay request.
type ChatRequest struct {
	Message    string     `json:"message"`
	AnalysisID *uuid.UUID `json:"analysis_id,omitempty"`
}

// ChatResponse is the backend's chat reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat relays a chat message to the backend.
func (c *Client) Chat(ctx context.Context, chatReq ChatRequest) (*ChatResponse, error) {
	jsonData, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d - %s", ErrBackendUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}

	return &chatResp, nil
}

// CheckHealth probes the backend's health endpoint once.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	return nil
}

// WaitHealthy probes the backend with exponential backoff and jitter until
// it responds or the retry budget is exhausted.
func (c *Client) WaitHealthy(ctx context.Context) error {
	backoff := healthInitialBackoff
	var lastErr error
	for attempt := 0; attempt < healthMaxRetries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = c.CheckHealth(probeCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
