package middleware

import (
	"net/http"
	"time"

	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyHeader carries the client-chosen key of a payment request
const IdempotencyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the header value
const maxIdempotencyKeyLength = 128

// Idempotency claims the Idempotency-Key of a request in the store before
// the handler runs. A second request with a claimed key gets 409. A claim
// is released when the handler answers with an error status, so the client
// may retry. Requests without the header pass through.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWithError(c, http.StatusBadRequest, "ERR_INVALID_INPUT",
				"El encabezado Idempotency-Key es demasiado largo")
			return
		}

		ctx := logger.WithIdempotencyKey(c.Request.Context(), key)
		c.Request = c.Request.WithContext(ctx)
		storeKey := "http:" + c.Request.Method + ":" + c.FullPath() + ":" + key

		claimed, err := store.MarkProcessed(ctx, storeKey, ttl)
		if err != nil {
			logger.L(ctx).Error("idempotency store unavailable", zap.Error(err))
			abortWithError(c, http.StatusServiceUnavailable, "ERR_UNAVAILABLE",
				"Servicio no disponible, intente más tarde")
			return
		}
		if !claimed {
			abortWithError(c, http.StatusConflict, "ERR_DUPLICATE_REQUEST",
				shared.ErrDuplicateRequest.Message)
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(ctx, storeKey); err != nil {
				logger.L(ctx).Warn("failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
