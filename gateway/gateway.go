package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/example/storefront/gateway/docs"
	"github.com/example/storefront/pkg/audit"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/order"
	"github.com/example/storefront/pkg/port"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// Services are the use cases the HTTP API exposes.
type Services struct {
	Orders     *order.Workflow
	History    *order.History
	Inventory  *inventory.Service
	Carts      *cart.Service
	Reconciler *cart.Reconciler
	Users      port.UserDirectory

	// AuditTrail is optional; the admin audit route is only mounted when set.
	AuditTrail audit.Reader
	Metrics    *metrics.Metrics

	// Ready is consulted by /health. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Gateway struct {
	config   *config.Config
	services Services
	currency currency.Unit
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
}

func NewGateway(cfg *config.Config, logger *zap.Logger, services Services) (*Gateway, error) {
	unit, err := cfg.Shop.CurrencyUnit()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	g := &Gateway{
		config:   cfg,
		services: services,
		currency: unit,
		logger:   logger,
		router:   router,
	}
	g.setupRoutes()
	return g, nil
}

func (g *Gateway) setupRoutes() {
	g.router.GET("/health", g.health)
	if g.services.Metrics != nil {
		g.router.GET("/metrics", gin.WrapH(g.services.Metrics.Handler()))
	}

	v1 := g.router.Group("/api/v1")
	v1.Use(sessionMiddleware(g.services.Users))
	{
		v1.GET("/products/:id/availability", g.productAvailability)

		orders := v1.Group("/orders")
		{
			orders.POST("", g.placeOrder)
			orders.GET("/me", requireUser(), g.myOrders)
			orders.GET("/:id", requireUser(), g.getOrder)
		}

		carts := v1.Group("/cart")
		{
			carts.GET("", g.getCart)
			carts.DELETE("", g.clearCart)
			carts.POST("/lines", g.addCartLine)
			carts.PATCH("/lines/:lineId", g.setCartLineQuantity)
			carts.DELETE("/lines/:lineId", g.removeCartLine)
		}

		session := v1.Group("/session")
		{
			session.POST("/login", requireUser(), g.login)
			session.POST("/logout", g.logout)
		}

		admin := v1.Group("/admin", requireUser(), requireAdmin())
		{
			admin.GET("/orders", g.listAllOrders)
			admin.PATCH("/orders/:id/status", g.updateOrderStatus)
			admin.PATCH("/orders/:id/shipping", g.updateOrderShipping)
			admin.PATCH("/products/:id/stock", g.adjustStock)
			if g.services.AuditTrail != nil {
				admin.GET("/audit/:entityId", g.auditTrail)
			}
		}
	}

	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Gateway.Host, g.config.Gateway.Port)
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

// @Summary  Liveness and readiness
// @Tags     ops
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /health [get]
func (g *Gateway) health(c *gin.Context) {
	if g.services.Ready != nil {
		if err := g.services.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
