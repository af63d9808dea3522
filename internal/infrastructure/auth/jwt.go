// Package auth verifies the HMAC-signed tokens that the host system sends
// with webhook and on-request calls.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSecret    = errors.New("jwt secret is required")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingTenantID  = errors.New("missing tenant_id in claims")
	ErrMissingTokenID   = errors.New("missing jti in claims")
	ErrTokenReplayed    = errors.New("token has already been used")
)

// Claims carried by a webhook token
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
}

// Tenant parses the tenant id claim
func (c *Claims) Tenant() (uuid.UUID, error) {
	if c.TenantID == "" {
		return uuid.Nil, ErrMissingTenantID
	}
	id, err := uuid.Parse(c.TenantID)
	if err != nil {
		return uuid.Nil, ErrMissingTenantID
	}
	return id, nil
}

// WebhookVerifier signs and verifies HS256 webhook tokens
type WebhookVerifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	replay   *ReplayGuard
	now      func() time.Time
}

// NewWebhookVerifier creates a verifier. replay may be nil to accept a token
// more than once within its lifetime.
func NewWebhookVerifier(cfg config.JWTConfig, replay *ReplayGuard) (*WebhookVerifier, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	return &WebhookVerifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
		replay:   replay,
		now:      time.Now,
	}, nil
}

// Sign issues a token for tenantID valid for ttl. The CLI uses it to call a
// running server, and tests use it to build requests.
func (v *WebhookVerifier) Sign(tenantID uuid.UUID, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: tenantID.String(),
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify checks signature, time window, issuer, audience and tenant, then
// consumes the token id when a replay guard is configured
func (v *WebhookVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.Tenant(); err != nil {
		return nil, err
	}

	if v.replay != nil {
		if claims.ID == "" {
			return nil, ErrMissingTokenID
		}
		if err := v.replay.Consume(ctx, claims.ID, claims.ExpiresAt.Time.Add(v.leeway).Sub(v.now())); err != nil {
			return nil, err
		}
	}
	return claims, nil
}
