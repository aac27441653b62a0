// Package gateway is the HTTP surface of the order service. Identity comes
// from headers set by the edge proxy; payment callbacks are authenticated
// by signature instead.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/account"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/cart"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/order"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/payment"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/view"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	RoleAdmin      = "ADMIN"

	callerKey = "caller"
)

// HealthProber reports failing dependencies by name.
type HealthProber interface {
	Probe(ctx context.Context) map[string]error
}

type Services struct {
	Carts       *cart.Service
	Builder     *order.Builder
	Coordinator *order.Coordinator
	Accounts    *account.Service
	Health      HealthProber
}

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	services Services
}

func NewGateway(cfg *config.Config, logger *zap.Logger, services Services) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		logger:   logger.Named("gateway"),
		router:   router,
		services: services,
	}
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)

	v1 := g.router.Group("/api/v1")
	v1.POST("/payments/callback", g.paymentCallback)

	api := v1.Group("", identityMiddleware())
	{
		carts := api.Group("/cart")
		{
			carts.GET("", g.getCart)
			carts.DELETE("", g.clearCart)
			carts.POST("/items", g.addCartItem)
			carts.PATCH("/items/:menuItemId", g.adjustCartItem)
			carts.POST("/items/:menuItemId/increment", g.incrementCartItem)
			carts.POST("/items/:menuItemId/decrement", g.decrementCartItem)
			carts.DELETE("/lines/:lineId", g.removeCartLine)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", g.placeOrder)
			orders.GET("/me", g.myOrders)
			orders.GET("/:id", g.getOrder)
			orders.GET("/items/:itemId", g.getOrderItem)

			admin := orders.Group("", requireAdmin())
			admin.GET("", g.listOrders)
			admin.PUT("/:id/status", g.updateOrderStatus)
			admin.GET("/:id/payments", g.orderPayments)
			admin.GET("/:id/audit", g.orderAudit)
			admin.GET("/customers/count", g.countCustomers)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/intents", g.initiatePayment)

			admin := payments.Group("", requireAdmin())
			admin.GET("", g.listPayments)
			admin.GET("/:id", g.getPayment)
		}

		accounts := api.Group("/account")
		{
			accounts.GET("", g.getAccount)
			accounts.POST("/deactivate", g.deactivateAccount)
		}
	}
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Server returns an http.Server bound to server.host and http.port.
func (g *Gateway) Server() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.HTTP.Port),
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (g *Gateway) health(c *gin.Context) {
	if g.services.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	failed := g.services.Health.Probe(c.Request.Context())
	if len(failed) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	deps := make(gin.H, len(failed))
	for name, err := range failed {
		deps[name] = err.Error()
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "dependencies": deps})
}

// fail renders err as {"error":{"code","message"}} with the mapped status.
func (g *Gateway) fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		g.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code":    apperrors.GetCode(err),
		"message": apperrors.PublicMessage(err),
	}})
}

func caller(c *gin.Context) order.Caller {
	return c.MustGet(callerKey).(order.Caller)
}

func uintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperrors.Validation(name + " must be a positive integer")
	}
	return uint(v), nil
}

func pageQuery(c *gin.Context) (int, int, error) {
	page, err := intQuery(c, "page")
	if err != nil {
		return 0, 0, err
	}
	size, err := intQuery(c, "page_size")
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation(name + " must be an integer")
	}
	return v, nil
}

// Cart

type addItemRequest struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required"`
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

func (g *Gateway) getCart(c *gin.Context) {
	current, err := g.services.Carts.Snapshot(c.Request.Context(), caller(c).ID)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (g *Gateway) clearCart(c *gin.Context) {
	if err := g.services.Carts.Clear(c.Request.Context(), caller(c).ID); err != nil {
		g.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *Gateway) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.fail(c, apperrors.Validation(err.Error()))
		return
	}
	current, err := g.services.Carts.AddItem(c.Request.Context(), caller(c).ID, req.MenuItemID, req.Quantity)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (g *Gateway) adjustCartItem(c *gin.Context) {
	id, err := uintParam(c, "menuItemId")
	if err != nil {
		g.fail(c, err)
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.fail(c, apperrors.Validation(err.Error()))
		return
	}
	current, err := g.services.Carts.AdjustQuantity(c.Request.Context(), caller(c).ID, id, req.Delta)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (g *Gateway) incrementCartItem(c *gin.Context) {
	g.stepCartItem(c, g.services.Carts.Increment)
}

func (g *Gateway) decrementCartItem(c *gin.Context) {
	g.stepCartItem(c, g.services.Carts.Decrement)
}

func (g *Gateway) stepCartItem(c *gin.Context, step func(context.Context, string, uint) (view.Cart, error)) {
	id, err := uintParam(c, "menuItemId")
	if err != nil {
		g.fail(c, err)
		return
	}
	current, err := step(c.Request.Context(), caller(c).ID, id)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (g *Gateway) removeCartLine(c *gin.Context) {
	id, err := uintParam(c, "lineId")
	if err != nil {
		g.fail(c, err)
		return
	}
	current, err := g.services.Carts.RemoveItem(c.Request.Context(), caller(c).ID, id)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

// Orders

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (g *Gateway) placeOrder(c *gin.Context) {
	o, err := g.services.Builder.PlaceOrder(c.Request.Context(), caller(c).ID)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (g *Gateway) myOrders(c *gin.Context) {
	orders, err := g.services.Coordinator.ListCustomerOrders(c.Request.Context(), caller(c).ID)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orders})
}

func (g *Gateway) getOrder(c *gin.Context) {
	o, err := g.services.Coordinator.GetOrder(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) getOrderItem(c *gin.Context) {
	id, err := uintParam(c, "itemId")
	if err != nil {
		g.fail(c, err)
		return
	}
	item, err := g.services.Coordinator.GetOrderItem(c.Request.Context(), caller(c), id)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (g *Gateway) listOrders(c *gin.Context) {
	page, size, err := pageQuery(c)
	if err != nil {
		g.fail(c, err)
		return
	}
	var status *models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		st, ok := models.ParseOrderStatus(raw)
		if !ok {
			g.fail(c, apperrors.Validation("unknown order status "+raw))
			return
		}
		status = &st
	}
	result, err := g.services.Coordinator.ListOrders(c.Request.Context(), status, page, size)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.fail(c, apperrors.Validation(err.Error()))
		return
	}
	next, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		g.fail(c, apperrors.Validation("unknown order status "+req.Status))
		return
	}
	o, err := g.services.Coordinator.AdvanceOrderStatus(c.Request.Context(), caller(c).ID, c.Param("id"), next)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) orderPayments(c *gin.Context) {
	payments, err := g.services.Coordinator.OrderPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": payments})
}

func (g *Gateway) orderAudit(c *gin.Context) {
	trail, err := g.services.Coordinator.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": trail})
}

func (g *Gateway) countCustomers(c *gin.Context) {
	n, err := g.services.Coordinator.CountUniqueCustomers(c.Request.Context())
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Payments

type intentRequest struct {
	OrderID string          `json:"order_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

func (g *Gateway) initiatePayment(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.fail(c, apperrors.Validation(err.Error()))
		return
	}
	intent, err := g.services.Coordinator.InitiatePayment(c.Request.Context(), caller(c).ID, req.OrderID, req.Amount)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (g *Gateway) paymentCallback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		g.fail(c, apperrors.Validation("unreadable callback body"))
		return
	}
	outcome, err := payment.ParseCallback(body, c.GetHeader(payment.SignatureHeader), g.config.Payment.CallbackSecret)
	if err != nil {
		g.fail(c, err)
		return
	}
	result, err := g.services.Coordinator.RecordPaymentOutcome(c.Request.Context(), outcome)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (g *Gateway) listPayments(c *gin.Context) {
	page, size, err := pageQuery(c)
	if err != nil {
		g.fail(c, err)
		return
	}
	var status *models.PaymentStatus
	if raw := c.Query("status"); raw != "" {
		st, ok := models.ParsePaymentStatus(raw)
		if !ok {
			g.fail(c, apperrors.Validation("unknown payment status "+raw))
			return
		}
		status = &st
	}
	result, err := g.services.Coordinator.ListPayments(c.Request.Context(), status, page, size)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (g *Gateway) getPayment(c *gin.Context) {
	p, err := g.services.Coordinator.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Account

func (g *Gateway) getAccount(c *gin.Context) {
	p, err := g.services.Accounts.Profile(c.Request.Context(), caller(c).ID)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (g *Gateway) deactivateAccount(c *gin.Context) {
	if err := g.services.Accounts.Deactivate(c.Request.Context(), caller(c).ID); err != nil {
		g.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Middleware

func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderUserID)
		if id == "" {
			abort(c, apperrors.New(apperrors.CodeUnauthorized, "missing caller identity"))
			return
		}
		c.Set(callerKey, order.Caller{ID: id, Admin: c.GetHeader(HeaderUserRole) == RoleAdmin})
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !caller(c).Admin {
			abort(c, apperrors.New(apperrors.CodeForbidden, "admin role required"))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": gin.H{
		"code":    err.Code,
		"message": err.Message,
	}})
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("caller", c.GetHeader(HeaderUserID)),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
