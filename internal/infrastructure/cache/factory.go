package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Idempotency backends accepted by ledger.idempotency_backend
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// NewIdempotencyStore builds the store selected by configuration.
// A redis backend that cannot be reached is an error, never a silent
// downgrade, because replays across instances would go undetected.
func NewIdempotencyStore(ctx context.Context, backend string, redisCfg config.RedisConfig, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch backend {
	case BackendRedis:
		store, err := NewRedisIdempotencyStore(ctx, RedisConfig{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis idempotency store: %w", err)
		}
		logger.Info("using Redis idempotency store", zap.String("addr", redisCfg.Addr()))
		return store, nil
	case BackendMemory, "":
		logger.Warn("using in-memory idempotency store, replays are only detected within this instance")
		return NewInMemoryIdempotencyStore(5 * time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}
