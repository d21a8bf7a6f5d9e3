package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"aicfo-backend/logger"
	"aicfo-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

const userContextKey = "user"

// SessionClaims represents the identity provider's session token claims.
// The subject is the provider's stable user id.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionUserStore resolves a session subject to a local user row
type SessionUserStore interface {
	UpsertByExternalID(ctx context.Context, externalID, email string) (*models.User, error)
}

// AuthMiddleware verifies identity-provider session tokens and lazily
// upserts the local user row on first sight of a subject.
type AuthMiddleware struct {
	signingKey string
	users      SessionUserStore
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(signingKey string, users SessionUserStore) *AuthMiddleware {
	return &AuthMiddleware{signingKey: signingKey, users: users}
}

// RequireSession authenticates the request. Missing or invalid sessions get
// a 401 with the canonical `{"error": "Unauthorized"}` body.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := m.validateToken(parts[1])
		if err != nil {
			logger.FromGin(c).Debug("session token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		user, err := m.users.UpsertByExternalID(c.Request.Context(), claims.Subject, claims.Email)
		if err != nil {
			logger.FromGin(c).Error("failed to upsert user from session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to resolve user",
				"details": err.Error(),
			})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// validateToken validates and parses the session token
func (m *AuthMiddleware) validateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.signingKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token carries no subject")
	}

	return claims, nil
}

// CurrentUser retrieves the authenticated user from the Gin context
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
