package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("labelens"), "labelens.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)
		assert.Equal(t, "", cfg.Store.URL)

		// Verify rate limit defaults
		assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, 10*time.Minute, cfg.RateLimit.IdleTTL)
		assert.Equal(t, "X-Client-Id", cfg.RateLimit.ClientHeader)

		// Verify extraction defaults
		assert.Equal(t, "extract", cfg.Extract.Role)
		assert.Equal(t, "nutrition-label", cfg.Extract.DefaultPrompt)

		// Verify ambient defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "structured", cfg.Logging.Profile)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
		assert.Equal(t, 4, cfg.Workers)
		assert.InDelta(t, 0.9, cfg.UpstreamMargin, 0.001)
	})

	t.Run("ConfigFileOverridesDefaults", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
rate_limit:
  max_requests: 3
  window: 30s
`), 0o600))

		SetConfigFile(path)
		t.Cleanup(func() { SetConfigFile("") })

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, 3, cfg.RateLimit.MaxRequests)
		assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
		// Untouched values keep defaults.
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 10*time.Minute, cfg.RateLimit.IdleTTL)
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("LABELENS_PORT", "7070")
		t.Setenv("LABELENS_RATE_LIMIT_MAX_REQUESTS", "5")
		t.Setenv("LABELENS_LOG_LEVEL", "debug")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("RuntimeOverridesWin", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := Load(ctx, map[string]any{
			"server": map[string]any{"port": 4242},
		})
		require.NoError(t, err)
		assert.Equal(t, 4242, cfg.Server.Port)
	})

	t.Run("AILinkProviderEnvOverrides", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("LABELENS_AILINK_PROVIDERS_ANTHROPIC_ENABLED", "true")
		t.Setenv("LABELENS_AILINK_PROVIDERS_ANTHROPIC_AI_PROVIDER", "anthropic")
		t.Setenv("LABELENS_AILINK_PROVIDERS_ANTHROPIC_MODELS_DEFAULT", "claude-sonnet-4-5")
		t.Setenv("LABELENS_AILINK_PROVIDERS_ANTHROPIC_CREDENTIALS_0_API_KEY", "sk-test")
		t.Setenv("LABELENS_AILINK_PROVIDERS_ANTHROPIC_CREDENTIALS_0_ENABLED", "true")
		t.Setenv("LABELENS_AILINK_ROUTING_EXTRACT", "anthropic")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		provider, ok := cfg.AILink.Providers["anthropic"]
		require.True(t, ok)
		assert.True(t, provider.Enabled)
		assert.Equal(t, "anthropic", provider.AIProvider)
		assert.Equal(t, "claude-sonnet-4-5", provider.Models["default"])
		require.Len(t, provider.Credentials, 1)
		assert.Equal(t, "sk-test", provider.Credentials[0].APIKey)
		assert.True(t, provider.Credentials[0].Enabled)
		assert.Equal(t, "anthropic", cfg.AILink.Routing["extract"])
	})

	t.Run("GetConfigReturnsLastLoad", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.Same(t, cfg, GetConfig())
	})
}

func TestMergeLayer(t *testing.T) {
	base := map[string]any{
		"a": 1,
		"nested": map[string]any{
			"keep":    "yes",
			"replace": "old",
		},
	}
	mergeLayer(base, map[string]any{
		"a": 2,
		"nested": map[string]any{
			"replace": "new",
			"added":   true,
		},
	})

	assert.Equal(t, 2, base["a"])
	nested := base["nested"].(map[string]any)
	assert.Equal(t, "yes", nested["keep"])
	assert.Equal(t, "new", nested["replace"])
	assert.Equal(t, true, nested["added"])
}

func TestToSlug(t *testing.T) {
	assert.Equal(t, "extract", toSlug("EXTRACT"))
	assert.Equal(t, "label-check", toSlug("LABEL_CHECK"))
	assert.Equal(t, "", toSlug("__"))
}
