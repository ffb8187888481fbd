package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/storage"
)

// DefaultDataDir holds the default database and snapshot files.
const DefaultDataDir = "~/.local/share/deals"

// Config is the decoded application configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Board    BoardConfig    `mapstructure:"board"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	SeedFile string `mapstructure:"seed_file"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	Key      string `mapstructure:"key"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// BoardConfig configures the interactive board.
type BoardConfig struct {
	TransitionTimeout time.Duration `mapstructure:"transition_timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", storage.KindSQLite)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.seed_file", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", storage.DefaultRedisKey)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("board.transition_timeout", time.Duration(0))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load decodes v into a Config, fills derived defaults and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = storage.KindSQLite
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath(cfg.Storage.Backend)
	}
	cfg.Storage.Path = ExpandPath(cfg.Storage.Path)
	cfg.Storage.SeedFile = ExpandPath(cfg.Storage.SeedFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultStoragePath returns where a file-based backend keeps its data.
// Network backends need no path.
func DefaultStoragePath(backend string) string {
	switch backend {
	case storage.KindSQLite:
		return filepath.Join(DefaultDataDir, "deals.db")
	case storage.KindFile:
		return filepath.Join(DefaultDataDir, "deals.json")
	default:
		return ""
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case storage.KindMemory, storage.KindFile, storage.KindSQLite:
	case storage.KindRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis backend", common.ErrMissingConfig)
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("%w: redis.db cannot be negative", common.ErrInvalidConfig)
		}
	case storage.KindPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres.dsn is required for the postgres backend", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.backend %q", common.ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Board.TransitionTimeout < 0 {
		return fmt.Errorf("%w: board.transition_timeout cannot be negative", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// BackendConfig maps the configuration onto storage.Open's input.
func (c *Config) BackendConfig() storage.BackendConfig {
	return storage.BackendConfig{
		Kind:        c.Storage.Backend,
		Path:        c.Storage.Path,
		PostgresDSN: c.Postgres.DSN,
		Redis: storage.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			Key:      c.Redis.Key,
			DB:       c.Redis.DB,
		},
	}
}
