package router

import (
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies are the handlers and collaborators the API is built from
type Dependencies struct {
	HTTP         config.HTTPConfig
	ServiceName  string
	Tracing      bool
	Verifier     middleware.TokenVerifier
	Fulfillment  *handler.FulfillmentHandler
	Inventory    *handler.InventoryHandler
	TimeTracking *handler.TimeTrackingHandler
	System       *handler.SystemHandler
	Logger       *zap.Logger
}

// NewEngine builds the gin engine. Health stays unauthenticated; every
// other route requires a webhook token.
func NewEngine(deps Dependencies) (*gin.Engine, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(deps.HTTP.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Tracing(deps.ServiceName, deps.Tracing),
		middleware.TraceAttributes(),
		middleware.BodyLimit(deps.HTTP.MaxBodySize),
	)

	r := NewRouter(engine)

	r.Register(NewDomainGroup("system", "").GET("/health", deps.System.Health))

	secured := middleware.WebhookAuth(deps.Verifier, log)
	r.Register(NewDomainGroup("orders", "/orders").Use(secured).
		POST("/:id/fulfill", deps.Fulfillment.FulfillOrder))
	r.Register(NewDomainGroup("fulfillments", "/fulfillments").Use(secured).
		POST("/:id/reverse", deps.Fulfillment.Reverse))
	r.Register(NewDomainGroup("batch", "/batch").Use(secured).
		POST("/run", deps.Fulfillment.RunBatch))
	r.Register(NewDomainGroup("time-entries", "/time-entries").Use(secured).
		POST("/import", deps.TimeTracking.Import))
	r.Register(NewDomainGroup("inventory", "/inventory/staging").Use(secured).
		POST("/:batch", deps.Inventory.StageCounts).
		POST("/:batch/reconcile", deps.Inventory.Reconcile))

	r.Setup()
	return engine, nil
}
