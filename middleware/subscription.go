package middleware

import (
	"context"
	"net/http"

	"aicfo-backend/logger"
	"aicfo-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntitlementStore resolves the authoritative subscription for a user
type EntitlementStore interface {
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// RequireSubscription gates paid features behind an active-or-trialing
// subscription. Admin users pass regardless.
func RequireSubscription(subs EntitlementStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if user.IsAdmin {
			c.Next()
			return
		}

		sub, err := subs.GetActiveByUser(c.Request.Context(), user.ID)
		if err != nil {
			logger.FromGin(c).Error("subscription lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to check subscription",
				"details": err.Error(),
			})
			return
		}
		if !sub.IsEntitled() {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "Subscription required"})
			return
		}

		c.Next()
	}
}
