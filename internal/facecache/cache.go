// Package facecache remembers the most prominent face of candidate images by
// image URL, so repeated searches over the same posts skip download and inference.
package facecache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/facematch"
	"github.com/kozaktomas/face-finder/internal/logging"
)

// Cache stores one face observation per key. Callers key by image URL plus
// whatever selection settings shaped the observation. A nil observation records
// that the image has no usable face.
type Cache interface {
	Get(ctx context.Context, key string) (obs *facematch.Observation, found bool, err error)
	Put(ctx context.Context, key string, obs *facematch.Observation) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// New builds the cache selected by cfg.Cache.Backend. It returns nil for "none".
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Cache, error) {
	logger = logging.OrNop(logger)
	switch cfg.Cache.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		c, err := NewMemory(cfg.Cache.Size)
		if err != nil {
			return nil, err
		}
		logger.Info("using in-memory face cache", zap.Int("size", cfg.Cache.Size))
		return c, nil
	case BackendPostgres:
		c, err := OpenPostgres(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("using PostgreSQL face cache")
		return c, nil
	default:
		return nil, fmt.Errorf("unknown face cache backend %q", cfg.Cache.Backend)
	}
}
