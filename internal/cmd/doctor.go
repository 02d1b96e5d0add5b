package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/labelens/labelens/internal/config"
	"github.com/labelens/labelens/internal/core/store"
	errwrap "github.com/labelens/labelens/internal/errors"
	"github.com/labelens/labelens/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		identity := GetAppIdentity()
		bannerName := "doctor"
		if identity != nil && identity.BinaryName != "" {
			bannerName = identity.BinaryName + " doctor"
		}
		observability.CLILogger.Info("=== " + bannerName + " ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		allChecks := true
		totalChecks := 8

		// Check 1: Go version
		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			observability.CLILogger.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		// Check 2: Crucible access
		version := crucible.GetVersion()
		if version.Crucible != "" {
			observability.CLILogger.Info(fmt.Sprintf("[2/%d] Checking Crucible access... ✅ v%s", totalChecks, version.Crucible), zap.String("crucible_version", version.Crucible))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[2/%d] Checking Crucible access... ❌ Cannot access Crucible", totalChecks))
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Cannot access Crucible", errwrap.NewExternalServiceError("Crucible service unavailable"))
			allChecks = false
		}

		// Check 3: Gofulmen access
		if version.Gofulmen != "" {
			observability.CLILogger.Info(fmt.Sprintf("[3/%d] Checking Gofulmen access... ✅ v%s", totalChecks, version.Gofulmen), zap.String("gofulmen_version", version.Gofulmen))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[3/%d] Checking Gofulmen access... ❌ Cannot access Gofulmen", totalChecks))
			allChecks = false
		}

		// Check 4: Config directory
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			observability.CLILogger.Error(fmt.Sprintf("[4/%d] Checking config directory... ❌ Cannot resolve config directory", totalChecks))
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Cannot resolve config directory", errwrap.NewInternalError("config directory not resolved"))
			allChecks = false
		} else {
			configDir := filepath.Dir(configPath)
			observability.CLILogger.Info(fmt.Sprintf("[4/%d] Checking config directory... ✅ %s", totalChecks, configDir), zap.String("config_dir", configDir))
		}

		// Check 5: Environment
		observability.CLILogger.Info(fmt.Sprintf("[5/%d] Checking environment... ✅ %s/%s", totalChecks, runtime.GOOS, runtime.GOARCH),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		// Check 6: Database
		cfg, cfgErr := config.Load(ctx)
		if cfgErr != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  config not loaded", totalChecks), zap.Error(cfgErr))
			allChecks = false
		} else {
			if cfg.Store.URL != "" {
				observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking database... ✅ %s (remote)", totalChecks, cfg.Store.URL),
					zap.String("db_url", cfg.Store.URL))
				goto storeCheck
			}

			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = config.DefaultStorePath()
			}
			// Resolve to absolute path for clarity
			absPath, _ := filepath.Abs(dbPath)
			if info, statErr := os.Stat(absPath); statErr == nil {
				sizeStr := formatFileSize(info.Size())
				observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking database... ✅ %s (%s)", totalChecks, absPath, sizeStr),
					zap.String("db_path", absPath),
					zap.Int64("db_size", info.Size()))
			} else if os.IsNotExist(statErr) {
				observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  %s (not created yet)", totalChecks, absPath),
					zap.String("db_path", absPath))
			} else {
				observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  %s (error: %v)", totalChecks, absPath, statErr),
					zap.String("db_path", absPath),
					zap.Error(statErr))
				allChecks = false
			}
		}

		// Check 7: Rate limit store
	storeCheck:
		if cfgErr == nil {
			db, storeErr := openStore(ctx)
			if storeErr != nil {
				observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking rate limit store... ⚠️  cannot open store", totalChecks), zap.Error(storeErr))
				allChecks = false
			} else {
				defer db.Close() //nolint:errcheck
				count, countErr := db.CountRateLimits(ctx, store.RateLimitQuery{All: true})
				if countErr != nil {
					observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking rate limit store... ⚠️  cannot read state", totalChecks), zap.Error(countErr))
					allChecks = false
				} else {
					observability.CLILogger.Info(fmt.Sprintf("[7/%d] Checking rate limit store... ✅ %d tracked endpoint(s)", totalChecks, count),
						zap.Int("endpoint_count", count))
				}
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking rate limit store... ⚠️  skipped (config not loaded)", totalChecks))
		}

		// Check 8: AI backend
		if cfgErr == nil {
			if isAIBackendConfigured(cfg.AILink) {
				observability.CLILogger.Info(fmt.Sprintf("[8/%d] Checking AI backend... ✅ configured", totalChecks))
			} else {
				observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking AI backend... ⚠️  not configured (run 'labelens doctor init' or see docs)", totalChecks))
				observability.CLILogger.Info("       Nutrition label extraction requires a vision-capable AI backend.")
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking AI backend... ⚠️  skipped (config not loaded)", totalChecks))
		}

		observability.CLILogger.Info("")
		if allChecks {
			appName := "labelens"
			if identity != nil && identity.BinaryName != "" {
				appName = identity.BinaryName
			}
			observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appName))
		} else {
			observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Diagnostics ===")
	},
}

var (
	doctorInitForce   bool
	doctorInitAPIKey  string
	doctorResetConfig bool
	doctorResetData   bool
	doctorResetAll    bool
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		apiKey := strings.TrimSpace(doctorInitAPIKey)
		if strings.EqualFold(apiKey, "prompt") {
			key, err := promptForValue("Enter provider API key (leave blank to skip): ")
			if err != nil {
				return err
			}
			apiKey = key
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		mode := os.FileMode(0644)
		if apiKey != "" {
			mode = 0600
		}

		if err := os.WriteFile(configPath, []byte(buildInitConfig(apiKey)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		configExists := fileExists(configPath)

		dataDir := config.DefaultDataDir()
		cacheDir := config.DefaultCacheDir()

		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(configExists)))
		if dataDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Data directory: %s (%s)", dataDir, existenceStatus(fileExists(dataDir))))
		} else {
			observability.CLILogger.Info("  Data directory: (not resolved)")
		}
		if cacheDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Cache directory: %s (%s)", cacheDir, existenceStatus(fileExists(cacheDir))))
		} else {
			observability.CLILogger.Info("  Cache directory: (not resolved)")
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
		} else {
			if cfg.Store.URL != "" {
				observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (remote)", cfg.Store.URL))
			} else {
				dbPath := cfg.Store.Path
				if dbPath == "" {
					dbPath = config.DefaultStorePath()
				}
				absPath, _ := filepath.Abs(dbPath)
				if info, statErr := os.Stat(absPath); statErr == nil {
					observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (%s)", absPath, formatFileSize(info.Size())))
				} else if os.IsNotExist(statErr) {
					observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (not created yet)", absPath))
				} else {
					observability.CLILogger.Warn("Database status error", zap.String("db_path", absPath), zap.Error(statErr))
				}
			}

			db, storeErr := openStore(cmd.Context())
			if storeErr != nil {
				observability.CLILogger.Warn("Rate limit store: not initialized (cannot open store)", zap.Error(storeErr))
			} else {
				defer db.Close() //nolint:errcheck
				count, countErr := db.CountRateLimits(cmd.Context(), store.RateLimitQuery{All: true})
				if countErr != nil {
					observability.CLILogger.Warn("Rate limit store: not initialized (state unavailable)", zap.Error(countErr))
				} else {
					observability.CLILogger.Info(fmt.Sprintf("  Rate limit store: %d tracked endpoint(s)", count))
				}
			}

			observability.CLILogger.Info("")
			observability.CLILogger.Info("Environment:")
			observability.CLILogger.Info("  LABELENS_AILINK_PROVIDERS_LABELENS_ANTHROPIC_CREDENTIALS_0_API_KEY: " + envStatus("LABELENS_AILINK_PROVIDERS_LABELENS_ANTHROPIC_CREDENTIALS_0_API_KEY"))

			observability.CLILogger.Info("")
			observability.CLILogger.Info("Effective Settings:")
			observability.CLILogger.Info(fmt.Sprintf("  extract.default_prompt: %s", cfg.Extract.DefaultPrompt))
			observability.CLILogger.Info(fmt.Sprintf("  rate_limit.max_requests: %d", cfg.RateLimit.MaxRequests))
			observability.CLILogger.Info(fmt.Sprintf("  rate_limit.window: %s", cfg.RateLimit.Window))
		}

		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration and/or data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if doctorResetAll {
			doctorResetConfig = true
			doctorResetData = true
		}

		if !doctorResetConfig && !doctorResetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if doctorResetConfig {
			configPath := config.DefaultConfigPath()
			if configPath == "" {
				observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			} else if err := os.Remove(configPath); err == nil {
				observability.CLILogger.Info("Config removed", zap.String("path", configPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Config already removed", zap.String("path", configPath))
			} else {
				return fmt.Errorf("remove config file: %w", err)
			}
		}

		if doctorResetData {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.URL != "" {
				return fmt.Errorf("remote store configured; database reset is not supported")
			}

			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = config.DefaultStorePath()
			}
			absPath, _ := filepath.Abs(dbPath)
			if err := os.Remove(absPath); err == nil {
				observability.CLILogger.Info("Database removed", zap.String("path", absPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Database already removed", zap.String("path", absPath))
			} else {
				return fmt.Errorf("remove database: %w", err)
			}
		}

		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}

		if _, err := config.Load(cmd.Context()); err != nil {
			return err
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAPIKey, "api-key", "", "set provider api key or use 'prompt' to enter")

	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local database")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

func buildInitConfig(apiKey string) string {
	lines := []string{
		"# labelens config - created by 'labelens doctor init'",
		"ailink:",
		"  default_provider: labelens-anthropic",
		"  providers:",
		"    labelens-anthropic:",
		"      enabled: true",
		"      ai_provider: anthropic",
		"      models:",
		"        default: claude-sonnet-4-20250514",
		"      capabilities:",
		"        images: true",
		"      roles:",
		"        - extract",
		"      credentials:",
		"        - label: default",
		"          enabled: true",
		"          priority: 0",
	}

	if strings.TrimSpace(apiKey) != "" {
		lines = append(lines, fmt.Sprintf("          api_key: %q", apiKey))
	} else {
		lines = append(lines, "          # api_key: \"\"  # Set via LABELENS_AILINK_PROVIDERS_LABELENS_ANTHROPIC_CREDENTIALS_0_API_KEY or uncomment")
	}

	lines = append(lines,
		"extract:",
		"  default_prompt: nutrition-label",
		"rate_limit:",
		"  max_requests: 10",
		"  window: 60s",
	)

	return strings.Join(lines, "\n") + "\n"
}

func promptForValue(prompt string) (string, error) {
	if _, err := fmt.Fprint(os.Stdout, prompt); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}
