package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/order"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type orderResponse struct {
	*models.Order
	Currency     string `json:"currency"`
	TotalDisplay string `json:"total_display"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type stockRequest struct {
	Delta int `json:"delta"`
}

var displayPrinter = message.NewPrinter(language.English)

func formatMoney(unit currency.Unit, amount decimal.Decimal) string {
	return displayPrinter.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}

func (g *Gateway) orderView(o *models.Order) orderResponse {
	return orderResponse{
		Order:        o,
		Currency:     g.currency.String(),
		TotalDisplay: formatMoney(g.currency, o.TotalAmount),
	}
}

func (g *Gateway) orderViews(orders []models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, g.orderView(&orders[i]))
	}
	return out
}

// @Summary  Place an order
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    X-Session-ID  header  string                 false  "session id"
// @Param    X-User-ID     header  string                 false  "authenticated user id"
// @Param    order         body    order.PlaceOrderInput  true   "checkout"
// @Success  201  {object}  orderResponse
// @Failure  400  {object}  errorResponse
// @Failure  404  {object}  errorResponse
// @Failure  409  {object}  errorResponse
// @Failure  410  {object}  errorResponse
// @Router   /orders [post]
func (g *Gateway) placeOrder(c *gin.Context) {
	var in order.PlaceOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		g.badRequest(c, err)
		return
	}
	if sess := sessionFrom(c); sess.Authenticated() {
		in.UserID = sess.User.ID
	}

	o, err := g.services.Orders.PlaceOrder(c.Request.Context(), in)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g.orderView(o))
}

// @Summary  Get one order
// @Tags     orders
// @Produce  json
// @Param    id  path  string  true  "order id"
// @Success  200  {object}  orderResponse
// @Failure  403  {object}  errorResponse
// @Failure  404  {object}  errorResponse
// @Router   /orders/{id} [get]
func (g *Gateway) getOrder(c *gin.Context) {
	o, err := g.services.History.GetOrder(c.Request.Context(), sessionFrom(c).User, c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g.orderView(o))
}

// @Summary  List the caller's orders, newest first
// @Tags     orders
// @Produce  json
// @Success  200  {array}  orderResponse
// @Router   /orders/me [get]
func (g *Gateway) myOrders(c *gin.Context) {
	user := sessionFrom(c).User
	orders, err := g.services.History.ListForUser(c.Request.Context(), user, user.ID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g.orderViews(orders))
}

// @Summary  List all orders
// @Tags     admin
// @Produce  json
// @Param    status  query  string  false  "PENDING, SHIPPED, COMPLETED or CANCELLED"
// @Success  200  {array}  orderResponse
// @Router   /admin/orders [get]
func (g *Gateway) listAllOrders(c *gin.Context) {
	orders, err := g.services.History.ListAll(c.Request.Context(), sessionFrom(c).User, c.Query("status"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g.orderViews(orders))
}

// @Summary  Move an order to a new status
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    id      path  string         true  "order id"
// @Param    status  body  statusRequest  true  "target status"
// @Success  200  {object}  orderResponse
// @Failure  422  {object}  errorResponse
// @Router   /admin/orders/{id}/status [patch]
func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	o, err := g.services.Orders.UpdateStatus(c.Request.Context(), sessionFrom(c).User, c.Param("id"), req.Status)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g.orderView(o))
}

// @Summary  Edit the shipping details of an open order
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    id        path  string          true  "order id"
// @Param    shipping  body  order.Customer  true  "shipping details"
// @Success  200  {object}  orderResponse
// @Failure  422  {object}  errorResponse
// @Router   /admin/orders/{id}/shipping [patch]
func (g *Gateway) updateOrderShipping(c *gin.Context) {
	var req order.Customer
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	o, err := g.services.Orders.UpdateShipping(c.Request.Context(), sessionFrom(c).User, c.Param("id"), req)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g.orderView(o))
}

// @Summary  Check whether a quantity of a product is in stock
// @Tags     products
// @Produce  json
// @Param    id   path   int  true   "product id"
// @Param    qty  query  int  false  "quantity, defaults to 1"
// @Success  200  {object}  inventory.Availability
// @Failure  404  {object}  errorResponse
// @Failure  410  {object}  errorResponse
// @Router   /products/{id}/availability [get]
func (g *Gateway) productAvailability(c *gin.Context) {
	productID, err := productIDParam(c)
	if err != nil {
		g.badRequest(c, err)
		return
	}
	qty, err := strconv.Atoi(c.DefaultQuery("qty", "1"))
	if err != nil {
		g.badRequest(c, fmt.Errorf("qty: %w", errs.ErrInvalidQuantity))
		return
	}

	av, err := g.services.Inventory.Availability(c.Request.Context(), productID, qty)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, av)
}

// @Summary  Add to or take from a product's stock
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    id     path  int           true  "product id"
// @Param    delta  body  stockRequest  true  "signed stock change"
// @Success  200  {object}  models.Product
// @Failure  400  {object}  errorResponse
// @Router   /admin/products/{id}/stock [patch]
func (g *Gateway) adjustStock(c *gin.Context) {
	productID, err := productIDParam(c)
	if err != nil {
		g.badRequest(c, err)
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}

	p, err := g.services.Inventory.Adjust(c.Request.Context(), sessionFrom(c).User, productID, req.Delta)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary  Audit trail of one entity, newest first
// @Tags     admin
// @Produce  json
// @Param    entityId  path   string  true   "e.g. order:<id> or product:<id>"
// @Param    limit     query  int     false  "at most this many events, defaults to 50"
// @Success  200  {array}  audit.Event
// @Router   /admin/audit/{entityId} [get]
func (g *Gateway) auditTrail(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 {
		g.badRequest(c, fmt.Errorf("limit must be a positive integer: %w", errs.ErrInvalidInput))
		return
	}

	events, err := g.services.AuditTrail.AuditTrail(c.Request.Context(), c.Param("entityId"), limit)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func productIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("product id %q: %w", c.Param("id"), errs.ErrInvalidInput)
	}
	return id, nil
}
