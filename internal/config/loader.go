// Package config provides centralized configuration management for LabeLens.
// Configuration merges four layers, lowest precedence first:
// built-in defaults, the user config file (XDG discovery), environment
// variables, and runtime overrides.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/labelens/labelens/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig  *Config
	configMu   sync.RWMutex
	configFile string
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetConfigFile forces a specific config file instead of XDG discovery.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configFile = strings.TrimSpace(path)
}

// Load loads configuration and stores it for GetConfig.
//
// This function is safe to call multiple times (e.g., for config reload).
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	identity, err := appid.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load app identity: %w", err)
	}

	merged := defaults()

	fileLayer, err := loadUserConfigFile()
	if err != nil {
		return nil, err
	}
	mergeLayer(merged, fileLayer)

	prefix := identity.EnvPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	applyAILinkDynamicEnvOverrides(prefix, envOverrides)

	if value := strings.TrimSpace(os.Getenv(prefix + "UPSTREAM_MARGIN")); value != "" {
		margin, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream margin: %w", err)
		}
		envOverrides["upstream_margin"] = margin
	}

	mergeLayer(merged, envOverrides)
	for _, overrides := range runtimeOverrides {
		mergeLayer(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)

	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host":             "localhost",
			"port":             8080,
			"read_timeout":     "30s",
			"write_timeout":    "30s",
			"idle_timeout":     "120s",
			"shutdown_timeout": "10s",
			"max_body_bytes":   int64(10 << 20),
		},
		"logging": map[string]any{
			"level":   "info",
			"profile": "structured",
		},
		"store": map[string]any{
			"driver": "libsql",
		},
		"ailink": map[string]any{
			"default_timeout": "60s",
		},
		"extract": map[string]any{
			"role":           "extract",
			"default_prompt": "nutrition-label",
		},
		"rate_limit": map[string]any{
			"max_requests":  10,
			"window":        "60s",
			"idle_ttl":      "10m",
			"client_header": "X-Client-Id",
		},
		"upstream_limits": map[string]int{},
		"upstream_margin": 0.9,
		"metrics": map[string]any{
			"enabled": true,
			"port":    9090,
		},
		"health": map[string]any{
			"enabled": true,
		},
		"workers": 4,
		"debug": map[string]any{
			"enabled":       false,
			"pprof_enabled": false,
		},
	}
}

// loadUserConfigFile reads the first config file found, or the forced file.
func loadUserConfigFile() (map[string]any, error) {
	paths := userConfigPaths()
	for _, path := range paths {
		data, err := os.ReadFile(path) // #nosec G304 -- config paths come from XDG discovery or the --config flag
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		layer := map[string]any{}
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		return layer, nil
	}
	return nil, nil
}

func userConfigPaths() []string {
	configMu.RLock()
	forced := configFile
	configMu.RUnlock()
	if forced != "" {
		return []string{forced}
	}

	configName, binaryName := appNamesForPaths()
	legacyNames := []string{}
	if binaryName != "" && binaryName != configName {
		legacyNames = append(legacyNames, binaryName)
	}
	return gfconfig.GetAppConfigPaths(configName, legacyNames...)
}

// mergeLayer deep-merges overlay into base. Nested maps merge key by key;
// everything else replaces.
func mergeLayer(base map[string]any, overlay map[string]any) {
	for key, value := range overlay {
		overlayMap, overlayIsMap := value.(map[string]any)
		if !overlayIsMap {
			base[key] = value
			continue
		}
		baseMap, baseIsMap := base[key].(map[string]any)
		if !baseIsMap {
			base[key] = overlayMap
			continue
		}
		mergeLayer(baseMap, overlayMap)
	}
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs(prefix string) []EnvVarSpec {
	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},
		{Name: prefix + "MAX_BODY_BYTES", Path: []string{"server", "max_body_bytes"}, Type: EnvInt},

		// Logging config (REQUIRED per Workhorse Standard)
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// AILink config
		{Name: prefix + "AILINK_DEFAULT_PROVIDER", Path: []string{"ailink", "default_provider"}, Type: EnvString},
		{Name: prefix + "AILINK_DEFAULT_TIMEOUT", Path: []string{"ailink", "default_timeout"}, Type: EnvString},
		{Name: prefix + "AILINK_PROMPTS_DIR", Path: []string{"ailink", "prompts_dir"}, Type: EnvString},
		{Name: prefix + "AILINK_DEBUG_TRACE_ENABLED", Path: []string{"ailink", "debug", "trace_enabled"}, Type: EnvBool},
		{Name: prefix + "AILINK_DEBUG_TRACE_FILE", Path: []string{"ailink", "debug", "trace_file"}, Type: EnvString},

		// Extraction config
		{Name: prefix + "EXTRACT_ROLE", Path: []string{"extract", "role"}, Type: EnvString},
		{Name: prefix + "EXTRACT_DEFAULT_PROMPT", Path: []string{"extract", "default_prompt"}, Type: EnvString},

		// Client rate limit config
		{Name: prefix + "RATE_LIMIT_MAX_REQUESTS", Path: []string{"rate_limit", "max_requests"}, Type: EnvInt},
		{Name: prefix + "RATE_LIMIT_WINDOW", Path: []string{"rate_limit", "window"}, Type: EnvString},
		{Name: prefix + "RATE_LIMIT_IDLE_TTL", Path: []string{"rate_limit", "idle_ttl"}, Type: EnvString},
		{Name: prefix + "RATE_LIMIT_CLIENT_HEADER", Path: []string{"rate_limit", "client_header"}, Type: EnvString},
		{Name: prefix + "RATE_LIMIT_TRUST_FORWARDED_FOR", Path: []string{"rate_limit", "trust_forwarded_for"}, Type: EnvBool},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Debug config
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},

		// Workers
		{Name: prefix + "WORKERS", Path: []string{"workers"}, Type: EnvInt},
	}
}

// appNamesForPaths returns the config name and binary name from app identity,
// falling back to "labelens" if not set.
func appNamesForPaths() (configName string, binaryName string) {
	configName = "labelens"
	binaryName = "labelens"

	identity, err := appid.Get(context.Background())
	if err != nil {
		return configName, binaryName
	}

	if strings.TrimSpace(identity.ConfigName) != "" {
		configName = identity.ConfigName
	}
	if strings.TrimSpace(identity.BinaryName) != "" {
		binaryName = identity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultCacheDir returns the XDG-compliant cache directory for the app.
func DefaultCacheDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppCacheDir(configName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}

func applyAILinkDynamicEnvOverrides(prefix string, envOverrides map[string]any) {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(key, providerPrefix):
			applyAILinkProviderOverride(envOverrides, key[len(providerPrefix):], value)
		case strings.HasPrefix(key, routingPrefix):
			applyAILinkRoutingOverride(envOverrides, key[len(routingPrefix):], value)
		}
	}
}

func applyAILinkRoutingOverride(envOverrides map[string]any, rawRole string, providerID string) {
	role := toSlug(rawRole)
	providerID = strings.TrimSpace(providerID)
	if role == "" || providerID == "" {
		return
	}

	ailink := ensureMap(envOverrides, "ailink")
	routing := ensureMap(ailink, "routing")
	routing[role] = providerID
}

func applyAILinkProviderOverride(envOverrides map[string]any, raw string, value string) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) < 2 {
		return
	}

	section := -1
	for i, part := range parts {
		switch part {
		case "ENABLED", "AI", "BASE", "MODELS", "CREDENTIALS":
			section = i
		}
		if section != -1 {
			break
		}
	}
	if section <= 0 {
		return
	}

	providerID := strings.ToLower(strings.Join(parts[:section], "-"))
	if providerID == "" {
		return
	}

	ailink := ensureMap(envOverrides, "ailink")
	providers := ensureMap(ailink, "providers")
	provider := ensureMap(providers, providerID)

	rest := parts[section:]
	switch {
	case len(rest) == 1 && rest[0] == "ENABLED":
		provider["enabled"] = strings.EqualFold(strings.TrimSpace(value), "true")
	case len(rest) == 2 && rest[0] == "AI" && rest[1] == "PROVIDER":
		provider["ai_provider"] = strings.ToLower(strings.TrimSpace(value))
	case len(rest) == 2 && rest[0] == "DEFAULT" && rest[1] == "CREDENTIAL":
		provider["default_credential"] = strings.TrimSpace(value)
	case len(rest) == 2 && rest[0] == "SELECTION" && rest[1] == "POLICY":
		provider["selection_policy"] = strings.ToLower(strings.TrimSpace(value))
	case len(rest) == 2 && rest[0] == "BASE" && rest[1] == "URL":
		provider["base_url"] = strings.TrimSpace(value)
	case len(rest) >= 2 && rest[0] == "MODELS":
		modelKey := strings.ToLower(strings.Join(rest[1:], "_"))
		models := ensureMap(provider, "models")
		models[modelKey] = strings.TrimSpace(value)
	case len(rest) >= 3 && rest[0] == "CREDENTIALS":
		idx, err := strconv.Atoi(rest[1])
		if err != nil || idx < 0 {
			return
		}
		field := strings.ToLower(strings.Join(rest[2:], "_"))
		if field == "" {
			return
		}

		creds := ensureSlice(provider, "credentials", idx+1)
		cred := ensureSliceMap(creds, idx)
		if field == "priority" {
			if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				cred[field] = parsed
			} else {
				cred[field] = strings.TrimSpace(value)
			}
			return
		}
		if field == "enabled" {
			cred[field] = strings.EqualFold(strings.TrimSpace(value), "true")
			return
		}
		cred[field] = strings.TrimSpace(value)
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if parent == nil {
		return map[string]any{}
	}
	if existing, ok := parent[key]; ok {
		if typed, ok := existing.(map[string]any); ok {
			return typed
		}
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func ensureSlice(parent map[string]any, key string, length int) []any {
	var existing []any
	if raw, ok := parent[key]; ok {
		existing, _ = raw.([]any)
	}
	for len(existing) < length {
		existing = append(existing, map[string]any{})
	}
	parent[key] = existing
	return existing
}

func ensureSliceMap(slice []any, idx int) map[string]any {
	if idx < 0 || idx >= len(slice) {
		return map[string]any{}
	}
	if typed, ok := slice[idx].(map[string]any); ok {
		return typed
	}
	m := map[string]any{}
	slice[idx] = m
	return m
}

func toSlug(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		clean = append(clean, p)
	}
	return strings.Join(clean, "-")
}
