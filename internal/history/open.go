package history

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Open picks the backend: DATABASE_URL wins over REDIS_URL, otherwise memory.
func Open(ctx context.Context, databaseURL, redisURL string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case strings.TrimSpace(databaseURL) != "":
		s, err := OpenPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("history_store", zap.String("backend", "postgres"))
		return s, nil
	case strings.TrimSpace(redisURL) != "":
		s, err := OpenRedis(ctx, redisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("history_store", zap.String("backend", "redis"))
		return s, nil
	default:
		logger.Info("history_store", zap.String("backend", "memory"))
		return NewMemoryStore(), nil
	}
}
