package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader(files ...string) aconfig.Config {
	return aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "FLOWERSHOP",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := load(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "file:flowershop.db", cfg.Database.URL)
	assert.True(t, cfg.Seed.OnStartup)
	assert.Equal(t, 5*time.Second, cfg.Orders.CommitTimeout)
	assert.Empty(t, cfg.Events.Brokers)
	assert.Equal(t, "flowershop.orders", cfg.Events.Topic)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("FLOWERSHOP_ADDR", "127.0.0.1:9000")
	t.Setenv("FLOWERSHOP_DATABASE_URL", "postgres://shop@localhost/shop")
	t.Setenv("DATABASE_URL", "postgres://ignored@localhost/other")

	cfg, err := load(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "postgres://shop@localhost/shop", cfg.Database.URL)
}

func TestLoad_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://render@db/shop")
	t.Setenv("PORT", "10000")

	cfg, err := load(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "postgres://render@db/shop", cfg.Database.URL)
	assert.Equal(t, "0.0.0.0:10000", cfg.Addr)
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: 127.0.0.1:7000
database:
  url: file:/var/lib/flowershop/shop.db
events:
  topic: orders.v2
`), 0o600))

	cfg, err := load(testLoader(path))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, "file:/var/lib/flowershop/shop.db", cfg.Database.URL)
	assert.Equal(t, "orders.v2", cfg.Events.Topic)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:  DatabaseConfig{URL: "file:test.db"},
			Orders:    OrdersConfig{CommitTimeout: time.Second},
			Events:    EventsConfig{Topic: "t"},
			RateLimit: RateLimitConfig{Max: 10, Window: time.Minute},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no database", mutate: func(c *Config) { c.Database.URL = "" }, errMsg: "database URL is required"},
		{name: "zero commit timeout", mutate: func(c *Config) { c.Orders.CommitTimeout = 0 }, errMsg: "commit timeout"},
		{name: "zero window", mutate: func(c *Config) { c.RateLimit.Window = 0 }, errMsg: "rate limit window"},
		{name: "rate limit disabled", mutate: func(c *Config) { c.RateLimit = RateLimitConfig{} }},
		{
			name:   "brokers without topic",
			mutate: func(c *Config) { c.Events = EventsConfig{Brokers: []string{"kafka:9092"}} },
			errMsg: "events topic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FLOWERSHOP_TEST_DOTENV=from-file\nFLOWERSHOP_TEST_PRESET=from-file\n"), 0o600))
	t.Setenv("FLOWERSHOP_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("FLOWERSHOP_TEST_DOTENV"))
	t.Setenv("FLOWERSHOP_TEST_PRESET", "from-env")

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("FLOWERSHOP_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("FLOWERSHOP_TEST_PRESET"))
}
