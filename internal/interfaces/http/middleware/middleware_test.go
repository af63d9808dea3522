package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newVerifier(t *testing.T) *auth.WebhookVerifier {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	v, err := auth.NewWebhookVerifier(config.JWTConfig{
		Secret:   "test-secret-with-enough-length",
		Issuer:   "host",
		Audience: "fulfillment",
	}, auth.NewReplayGuard(store))
	require.NoError(t, err)
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestWebhookAuth(t *testing.T) {
	verifier := newVerifier(t)
	tenantID := uuid.New()

	engine := gin.New()
	engine.Use(WebhookAuth(verifier, nil))
	engine.POST("/hook", func(c *gin.Context) {
		id, ok := TenantID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		if header != "" {
			req.Header.Set(AuthHeaderKey, header)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	t.Run("accepts signed token", func(t *testing.T) {
		token, err := verifier.Sign(tenantID, time.Minute)
		require.NoError(t, err)

		w := call(BearerPrefix + token)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tenantID.String(), w.Body.String())
	})

	t.Run("rejects replayed token", func(t *testing.T) {
		token, err := verifier.Sign(tenantID, time.Minute)
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, call(BearerPrefix+token).Code)
		w := call(BearerPrefix + token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenReplayed, errorCode(t, w))
	})

	t.Run("rejects missing header", func(t *testing.T) {
		w := call("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, errorCode(t, w))
	})

	t.Run("rejects non bearer scheme", func(t *testing.T) {
		w := call("Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		w := call(BearerPrefix + "not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, errorCode(t, w))
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := verifier.Sign(tenantID, -time.Minute)
		require.NoError(t, err)

		w := call(BearerPrefix + token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenExpired, errorCode(t, w))
	})
}

func TestTenantIDMissing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := TenantID(c)
	assert.False(t, ok)

	c.Set(TenantIDKey, "not-a-uuid-value")
	_, ok = TenantID(c)
	assert.False(t, ok)
}

func TestBodyLimit(t *testing.T) {
	newEngine := func(limit int64) *gin.Engine {
		engine := gin.New()
		engine.Use(BodyLimit(limit))
		engine.POST("/test", func(c *gin.Context) {
			var body map[string]any
			if err := c.ShouldBindJSON(&body); err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					c.Status(http.StatusRequestEntityTooLarge)
					return
				}
				c.Status(http.StatusBadRequest)
				return
			}
			c.Status(http.StatusOK)
		})
		return engine
	}

	t.Run("allows body within limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"a":1}`))
		w := httptest.NewRecorder()
		newEngine(1024).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects declared length over limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader([]byte(strings.Repeat("x", 200))))
		w := httptest.NewRecorder()
		newEngine(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, errorCode(t, w))
	})

	t.Run("caps streamed body", func(t *testing.T) {
		payload := `{"a":"` + strings.Repeat("x", 200) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(payload))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		newEngine(50).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("zero disables", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"a":"`+strings.Repeat("x", 500)+`"}`))
		w := httptest.NewRecorder()
		newEngine(0).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

type countRequest struct {
	Name     string          `json:"name" binding:"required,max=3"`
	Quantity decimal.Decimal `json:"quantity" binding:"nonneg_decimal"`
}

func TestValidation(t *testing.T) {
	SetupValidator()

	bind := func(body string) error {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var req countRequest
		return c.ShouldBindJSON(&req)
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, bind(`{"name":"a","quantity":"0"}`))
	})

	t.Run("negative decimal", func(t *testing.T) {
		err := bind(`{"name":"a","quantity":"-0.5"}`)
		require.Error(t, err)

		resp := FormatValidationErrors(err, "req-1")
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "quantity", resp.Error.Details[0].Field)
		assert.Equal(t, "Must not be negative", resp.Error.Details[0].Message)
	})

	t.Run("json field names", func(t *testing.T) {
		err := bind(`{"quantity":"1"}`)
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "name", verrs[0].Field())
		assert.Equal(t, "This field is required", getValidationMessage(verrs[0]))
	})

	t.Run("string max message", func(t *testing.T) {
		err := bind(`{"name":"abcd","quantity":"1"}`)
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "Must be at most 3 characters", getValidationMessage(verrs[0]))
	})
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tenantID := uuid.New()
	engine := gin.New()
	engine.Use(Tracing("fulfillment-test", true), TraceAttributes())
	engine.GET("/ok", func(c *gin.Context) {
		c.Set(TenantIDKey, tenantID)
		c.Status(http.StatusOK)
	})
	engine.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/boom"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	var tenantAttr string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "tenant_id" {
			tenantAttr = kv.Value.AsString()
		}
	}
	assert.Equal(t, tenantID.String(), tenantAttr)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestTracingDisabled(t *testing.T) {
	engine := gin.New()
	engine.Use(Tracing("fulfillment-test", false), TraceAttributes())
	engine.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
