package handlers

import (
	"errors"
	"io"
	"net/http"

	"aicfo-backend/logger"
	"aicfo-backend/middleware"
	"aicfo-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BillingHandler exposes the subscription lifecycle endpoints and the
// payment provider's webhook receiver
type BillingHandler struct {
	billingSvc *service.BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billingSvc *service.BillingService) *BillingHandler {
	return &BillingHandler{billingSvc: billingSvc}
}

// CreateCheckout handles POST /api/billing/checkout
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	url, err := h.billingSvc.CreateCheckoutSession(c.Request.Context(), user)
	if err != nil {
		internalError(c, "Failed to create checkout session", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreatePortal handles POST /api/billing/portal
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	url, err := h.billingSvc.CreatePortalSession(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, service.ErrStripeNotLinked) {
			badRequest(c, "No billing account linked")
			return
		}
		internalError(c, "Failed to create portal session", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GetStatus handles GET /api/billing/status
func (h *BillingHandler) GetStatus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	sub, err := h.billingSvc.GetStatus(c.Request.Context(), user.ID)
	if err != nil {
		internalError(c, "Failed to load subscription status", err)
		return
	}

	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": sub.IsEntitled(), "subscription": sub})
}

// CancelSubscription handles POST /api/billing/cancel. The subscription
// stays active until the paid period runs out.
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	sub, err := h.billingSvc.CancelAtPeriodEnd(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrNoSubscription) {
			notFound(c, "No active subscription")
			return
		}
		internalError(c, "Failed to cancel subscription", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// HandleWebhook handles POST /api/billing/webhook. The route is
// unauthenticated; the signature header is the only gate. Processing
// failures past signature verification are acknowledged with 200 so the
// provider does not retry events we have already logged.
func (h *BillingHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "Failed to read request body")
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if err := h.billingSvc.HandleWebhook(c.Request.Context(), payload, sigHeader); err != nil {
		if errors.Is(err, service.ErrWebhookSignature) {
			logger.FromGin(c).Warn("Webhook signature verification failed", zap.Error(err))
			badRequest(c, "Invalid webhook signature")
			return
		}
		internalError(c, "Failed to process webhook", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
