package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/storage"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, storage.KindSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(home, ".local/share/deals/deals.db"), cfg.Storage.Path)
	assert.Empty(t, cfg.Storage.SeedFile)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, storage.DefaultRedisKey, cfg.Redis.Key)
	assert.Zero(t, cfg.Board.TransitionTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(newViper(t, `
storage:
  backend: File
  path: `+dir+`/pipeline.json
  seed_file: `+dir+`/seed.toml
board:
  transition_timeout: 3s
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, storage.KindFile, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "pipeline.json"), cfg.Storage.Path)
	assert.Equal(t, filepath.Join(dir, "seed.toml"), cfg.Storage.SeedFile)
	assert.Equal(t, 3*time.Second, cfg.Board.TransitionTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)

	bc := cfg.BackendConfig()
	assert.Equal(t, storage.KindFile, bc.Kind)
	assert.Equal(t, cfg.Storage.Path, bc.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEALS_STORAGE_BACKEND", "redis")
	t.Setenv("DEALS_REDIS_ADDR", "cache:6380")
	t.Setenv("DEALS_REDIS_KEY", "team_pipeline")

	v := newViper(t, "")
	v.SetEnvPrefix("DEALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)

	bc := cfg.BackendConfig()
	assert.Equal(t, storage.KindRedis, bc.Kind)
	assert.Empty(t, bc.Path)
	assert.Equal(t, "cache:6380", bc.Redis.Addr)
	assert.Equal(t, "team_pipeline", bc.Redis.Key)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		yaml    string
	}{
		{name: "unknown backend", yaml: "storage:\n  backend: etcd\n", wantErr: common.ErrInvalidConfig},
		{name: "postgres without dsn", yaml: "storage:\n  backend: postgres\n", wantErr: common.ErrMissingConfig},
		{name: "redis without addr", yaml: "storage:\n  backend: redis\nredis:\n  addr: \"\"\n", wantErr: common.ErrMissingConfig},
		{name: "negative redis db", yaml: "storage:\n  backend: redis\nredis:\n  db: -1\n", wantErr: common.ErrInvalidConfig},
		{name: "negative timeout", yaml: "board:\n  transition_timeout: -1s\n", wantErr: common.ErrInvalidConfig},
		{name: "unknown log level", yaml: "logging:\n  level: chatty\n", wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultStoragePath(t *testing.T) {
	assert.Equal(t, "~/.local/share/deals/deals.db", DefaultStoragePath(storage.KindSQLite))
	assert.Equal(t, "~/.local/share/deals/deals.json", DefaultStoragePath(storage.KindFile))
	assert.Empty(t, DefaultStoragePath(storage.KindPostgres))
	assert.Empty(t, DefaultStoragePath(storage.KindMemory))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("DEALS_TEST_DIR", "/srv/deals")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/deals.db", want: filepath.Join(home, "deals.db")},
		{in: "$DEALS_TEST_DIR/deals.db", want: "/srv/deals/deals.db"},
		{in: "/abs/path", want: "/abs/path"},
		{in: "~other/deals.db", want: "~other/deals.db"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoadSheetsConfig(t *testing.T) {
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET", "GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_SPREADSHEET_ID", "GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}

	t.Run("viper values", func(t *testing.T) {
		cfg, err := LoadSheetsConfig(newViper(t, `
sheets:
  service_account_path: /keys/sa.json
  spreadsheet_id: abc123
  spreadsheet_name: Sales
  sheet_title: Board
`))
		require.NoError(t, err)
		assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)
		assert.Equal(t, "abc123", cfg.SpreadsheetID)
		assert.Equal(t, "Sales", cfg.SpreadsheetName)
		assert.Equal(t, "Board", cfg.SheetTitle)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "id")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "refresh")

		cfg, err := LoadSheetsConfig(newViper(t, ""))
		require.NoError(t, err)
		assert.Equal(t, "id", cfg.ClientID)
		assert.Equal(t, "Pipeline", cfg.SheetTitle)
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := LoadSheetsConfig(newViper(t, ""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no authentication method configured")
	})
}
