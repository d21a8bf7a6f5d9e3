package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"aicfo-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubEntitlementStore struct {
	sub *models.Subscription
	err error
}

func (s *stubEntitlementStore) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.sub, s.err
}

func newSubscriptionTestRouter(user *models.User, store EntitlementStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/paid",
		func(c *gin.Context) {
			if user != nil {
				c.Set(userContextKey, user)
			}
		},
		RequireSubscription(store),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		},
	)
	return r
}

func TestRequireSubscription(t *testing.T) {
	member := &models.User{ID: uuid.New()}
	admin := &models.User{ID: uuid.New(), IsAdmin: true}

	tests := []struct {
		name       string
		user       *models.User
		store      *stubEntitlementStore
		wantStatus int
	}{
		{
			"entitled user passes",
			member,
			&stubEntitlementStore{sub: &models.Subscription{Status: models.SubscriptionStatusActive}},
			http.StatusOK,
		},
		{
			"trialing user passes",
			member,
			&stubEntitlementStore{sub: &models.Subscription{Status: models.SubscriptionStatusTrialing}},
			http.StatusOK,
		},
		{
			"no subscription blocked",
			member,
			&stubEntitlementStore{},
			http.StatusPaymentRequired,
		},
		{
			"canceled subscription blocked",
			member,
			&stubEntitlementStore{sub: &models.Subscription{Status: models.SubscriptionStatusCanceled}},
			http.StatusPaymentRequired,
		},
		{
			"admin bypasses paywall",
			admin,
			&stubEntitlementStore{},
			http.StatusOK,
		},
		{
			"unauthenticated request",
			nil,
			&stubEntitlementStore{},
			http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newSubscriptionTestRouter(tt.user, tt.store)
			req := httptest.NewRequest("GET", "/paid", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
