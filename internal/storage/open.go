package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

// Backend kinds accepted by Open.
const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindRedis    = "redis"
	KindPostgres = "postgres"
)

// BackendConfig selects and configures a persistence backend.
type BackendConfig struct {
	Kind        string
	Path        string
	PostgresDSN string
	Redis       RedisConfig
}

// Opened bundles a backend with the transition log that shares its
// connection.
type Opened struct {
	Backend service.Backend
	History service.TransitionLog
}

// Close releases the backend.
func (o *Opened) Close() error {
	if o == nil || o.Backend == nil {
		return nil
	}
	return o.Backend.Close()
}

// Open creates the backend named by cfg.Kind. The sqlite backend is
// migrated before it is returned.
func Open(ctx context.Context, cfg BackendConfig, logger *slog.Logger) (*Opened, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	logger = common.OrDefault(logger)

	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindMemory:
		return &Opened{Backend: NewMemoryBackend(), History: NewMemoryTransitionLog()}, nil

	case KindFile:
		fb, err := NewFileBackend(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Opened{Backend: fb, History: NewMemoryTransitionLog()}, nil

	case KindSQLite, "":
		sb, err := NewSQLiteBackend(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		if err := sb.Migrate(ctx); err != nil {
			_ = sb.Close()
			return nil, err
		}
		return &Opened{Backend: sb, History: sb}, nil

	case KindRedis:
		rb, err := NewRedisBackend(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return &Opened{Backend: rb, History: rb}, nil

	case KindPostgres:
		pb, err := NewPostgresBackend(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		return &Opened{Backend: pb, History: pb}, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", common.ErrInvalidConfig, cfg.Kind)
	}
}
