package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/port"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// Both headers are set by the upstream auth proxy.
	headerSessionID = "X-Session-ID"
	headerUserID    = "X-User-ID"

	sessionKey = "storefront.session"
)

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("HTTP request", fields...)
	}
}

// sessionMiddleware resolves the caller into a cart.Session. An unknown user id
// is rejected rather than treated as anonymous.
func sessionMiddleware(users port.UserDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := cart.Session{ID: c.GetHeader(headerSessionID)}

		if userID := c.GetHeader(headerUserID); userID != "" {
			u, err := users.GetUser(c.Request.Context(), userID)
			if errors.Is(err, errs.ErrUserNotFound) {
				abortWithError(c, http.StatusUnauthorized, "unauthenticated", "unknown user")
				return
			}
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "internal", "failed to resolve user")
				return
			}
			sess.User = u
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) cart.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(cart.Session); ok {
			return sess
		}
	}
	return cart.Session{}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sessionFrom(c).Authenticated() {
			abortWithError(c, http.StatusUnauthorized, "unauthenticated", errs.ErrUnauthenticated.Error())
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sessionFrom(c).User.IsAdmin() {
			abortWithError(c, http.StatusForbidden, "unauthorized", errs.ErrUnauthorized.Error())
			return
		}
		c.Next()
	}
}
