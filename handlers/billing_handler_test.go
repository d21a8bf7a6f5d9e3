package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aicfo-backend/service"

	"github.com/gin-gonic/gin"
)

const webhookTestSecret = "whsec_handler_test"

func stripeSign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	billingSvc := service.NewBillingService(
		service.BillingWithConfig(service.BillingConfig{WebhookSecret: webhookTestSecret}),
	)
	handler := NewBillingHandler(billingSvc)

	r := gin.New()
	r.POST("/api/billing/webhook", handler.HandleWebhook)
	return r
}

func TestHandleWebhookEndpoint(t *testing.T) {
	router := newWebhookTestRouter()
	payload := []byte(`{"id": "evt_1", "api_version": "2024-04-10", "type": "payment_intent.created", "data": {"object": {}}}`)

	req := httptest.NewRequest("POST", "/api/billing/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", stripeSign(payload, webhookTestSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"received":true`)) {
		t.Errorf("body = %s, want received:true", w.Body.String())
	}
}

func TestHandleWebhookEndpointBadSignature(t *testing.T) {
	router := newWebhookTestRouter()
	payload := []byte(`{"id": "evt_1", "api_version": "2024-04-10", "type": "payment_intent.created", "data": {"object": {}}}`)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong secret", stripeSign(payload, "whsec_other")},
		{"garbage header", "t=1,v1=deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/billing/webhook", bytes.NewReader(payload))
			if tt.header != "" {
				req.Header.Set("Stripe-Signature", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
		})
	}
}
