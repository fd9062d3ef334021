package gateway

import (
	"errors"
	"net/http"

	"github.com/example/storefront/pkg/errs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}

// writeError is the single place where domain errors become HTTP responses.
func (g *Gateway) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var stockErr *errs.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"code":       "insufficient_stock",
			"message":    err.Error(),
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.Is(err, errs.ErrProductNotFound),
		errors.Is(err, errs.ErrOrderNotFound),
		errors.Is(err, errs.ErrLineNotFound),
		errors.Is(err, errs.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errs.ErrProductUnavailable):
		abortWithError(c, http.StatusGone, "product_unavailable", err.Error())
	case errors.Is(err, errs.ErrInvalidQuantity):
		abortWithError(c, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, errs.ErrInvalidInput), errors.Is(err, errs.ErrInvalidStatus):
		abortWithError(c, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, errs.ErrUnauthenticated):
		abortWithError(c, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		abortWithError(c, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, errs.ErrTransactionConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"code":      "transaction_conflict",
			"message":   err.Error(),
			"retryable": true,
		})
	case errors.Is(err, errs.ErrInvalidTransition):
		abortWithError(c, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	default:
		g.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (g *Gateway) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	abortWithError(c, http.StatusBadRequest, "invalid_input", err.Error())
}
