package gateway

import (
	"net/http"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type cartResponse struct {
	Lines        []models.CartLine  `json:"lines"`
	Total        decimal.Decimal    `json:"total"`
	Currency     string             `json:"currency"`
	TotalDisplay string             `json:"total_display"`
	Merged       int                `json:"merged,omitempty"`
	Failed       []cart.LineFailure `json:"failed,omitempty"`
	Replayed     bool               `json:"replayed,omitempty"`
}

type addLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type loginRequest struct {
	// LoginEventID makes a retried login merge at most once.
	LoginEventID string `json:"login_event_id"`
}

func (g *Gateway) cartView(lines []models.CartLine, total decimal.Decimal) cartResponse {
	if lines == nil {
		lines = []models.CartLine{}
	}
	return cartResponse{
		Lines:        lines,
		Total:        total,
		Currency:     g.currency.String(),
		TotalDisplay: formatMoney(g.currency, total),
	}
}

func (g *Gateway) currentCart(c *gin.Context) (cart.Cart, bool) {
	ct, err := g.services.Carts.For(sessionFrom(c))
	if err != nil {
		g.writeError(c, err)
		return nil, false
	}
	return ct, true
}

func (g *Gateway) renderCart(c *gin.Context, status int, ct cart.Cart) {
	lines, err := ct.Lines(c.Request.Context())
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(status, g.cartView(lines, models.SumLines(lines)))
}

// @Summary  Show the caller's cart
// @Tags     cart
// @Produce  json
// @Param    X-Session-ID  header  string  false  "session id, required when anonymous"
// @Success  200  {object}  cartResponse
// @Router   /cart [get]
func (g *Gateway) getCart(c *gin.Context) {
	ct, ok := g.currentCart(c)
	if !ok {
		return
	}
	g.renderCart(c, http.StatusOK, ct)
}

// @Summary  Add a product to the cart
// @Tags     cart
// @Accept   json
// @Produce  json
// @Param    line  body  addLineRequest  true  "product and quantity"
// @Success  201  {object}  cartResponse
// @Failure  404  {object}  errorResponse
// @Failure  410  {object}  errorResponse
// @Router   /cart/lines [post]
func (g *Gateway) addCartLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}
	ct, ok := g.currentCart(c)
	if !ok {
		return
	}
	if _, err := ct.AddLine(c.Request.Context(), req.ProductID, req.Quantity); err != nil {
		g.writeError(c, err)
		return
	}
	g.renderCart(c, http.StatusCreated, ct)
}

// @Summary  Set the quantity of a line; zero or less removes it
// @Tags     cart
// @Accept   json
// @Produce  json
// @Param    lineId    path  string           true  "line id"
// @Param    quantity  body  quantityRequest  true  "new quantity"
// @Success  200  {object}  cartResponse
// @Failure  404  {object}  errorResponse
// @Router   /cart/lines/{lineId} [patch]
func (g *Gateway) setCartLineQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, err)
		return
	}
	ct, ok := g.currentCart(c)
	if !ok {
		return
	}
	if err := ct.SetQuantity(c.Request.Context(), c.Param("lineId"), req.Quantity); err != nil {
		g.writeError(c, err)
		return
	}
	g.renderCart(c, http.StatusOK, ct)
}

// @Summary  Remove a line
// @Tags     cart
// @Produce  json
// @Param    lineId  path  string  true  "line id"
// @Success  200  {object}  cartResponse
// @Failure  404  {object}  errorResponse
// @Router   /cart/lines/{lineId} [delete]
func (g *Gateway) removeCartLine(c *gin.Context) {
	ct, ok := g.currentCart(c)
	if !ok {
		return
	}
	if err := ct.RemoveLine(c.Request.Context(), c.Param("lineId")); err != nil {
		g.writeError(c, err)
		return
	}
	g.renderCart(c, http.StatusOK, ct)
}

// @Summary  Empty the cart
// @Tags     cart
// @Success  204
// @Router   /cart [delete]
func (g *Gateway) clearCart(c *gin.Context) {
	ct, ok := g.currentCart(c)
	if !ok {
		return
	}
	if err := ct.Clear(c.Request.Context()); err != nil {
		g.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary  Merge the session cart into the account cart after login
// @Tags     session
// @Accept   json
// @Produce  json
// @Param    X-Session-ID  header  string        true   "session id the visitor shopped under"
// @Param    X-User-ID     header  string        true   "user that just logged in"
// @Param    login         body    loginRequest  false  "login event"
// @Success  200  {object}  cartResponse
// @Router   /session/login [post]
func (g *Gateway) login(c *gin.Context) {
	var req loginRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			g.badRequest(c, err)
			return
		}
	}

	sess := sessionFrom(c)
	res, err := g.services.Reconciler.ReconcileOnLogin(c.Request.Context(), sess.ID, sess.User.ID, req.LoginEventID)
	if err != nil {
		g.writeError(c, err)
		return
	}

	view := g.cartView(res.Lines, res.Total)
	view.Merged = res.Merged
	view.Failed = res.Failed
	view.Replayed = res.Replayed
	c.JSON(http.StatusOK, view)
}

// @Summary  Drop the session cart
// @Tags     session
// @Success  204
// @Router   /session/logout [post]
func (g *Gateway) logout(c *gin.Context) {
	if sess := sessionFrom(c); sess.ID != "" {
		if err := g.services.Reconciler.OnLogout(c.Request.Context(), sess.ID); err != nil {
			g.writeError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
