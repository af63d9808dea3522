package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by WebhookAuth
const (
	ClaimsKey     = "webhook_claims"
	TenantIDKey   = "tenant_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenVerifier checks a bearer token
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// WebhookAuth requires a valid bearer token from the host system and puts
// the token's tenant on the gin and request contexts
func WebhookAuth(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) || strings.TrimPrefix(header, BearerPrefix) == "" {
			abortAuth(c, log, auth.ErrInvalidToken, "Missing bearer token")
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), strings.TrimPrefix(header, BearerPrefix))
		if err != nil {
			abortAuth(c, log, err, "Token validation failed")
			return
		}
		tenantID, err := claims.Tenant()
		if err != nil {
			abortAuth(c, log, err, "Token has no tenant")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		c.Next()
	}
}

func abortAuth(c *gin.Context, log *zap.Logger, err error, message string) {
	logger.L(c.Request.Context(), log).Warn("webhook authentication failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("reason", message),
		zap.Error(err),
	)

	code := dto.ErrCodeUnauthorized
	msg := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenReplayed):
		code, msg = dto.ErrCodeTokenReplayed, "Token has already been used"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingTenantID), errors.Is(err, auth.ErrMissingTokenID):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, msg, logger.RequestID(c.Request.Context())))
}

// TenantID returns the tenant set by WebhookAuth
func TenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
