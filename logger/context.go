package logger

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type contextKey string

const loggerKey contextKey = "logger"

// FromContext retrieves the logger from the context
func FromContext(ctx context.Context) *zap.Logger {
	logger, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok {
		return GetLogger()
	}
	return logger
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromGin retrieves the request-scoped logger from the Gin context
func FromGin(c *gin.Context) *zap.Logger {
	logger, ok := c.Get("logger")
	if !ok {
		return GetLogger()
	}
	l, ok := logger.(*zap.Logger)
	if !ok {
		return GetLogger()
	}
	return l
}
