package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/labelens/labelens/internal/ailink"
	"github.com/labelens/labelens/internal/config"
	"github.com/labelens/labelens/internal/core/engine"
	"github.com/labelens/labelens/internal/observability"
	"github.com/labelens/labelens/internal/output"
)

const maxImageFileSize = 10 << 20 // matches the server body cap

var extractCmd = &cobra.Command{
	Use:   "extract <image> [image...]",
	Short: "Extract nutrition facts from label photos",
	Long: `Extract calorie and protein values from one or more nutrition
label photos using the configured vision provider.

Parse and validation failures still print a row with zeroed values so
downstream tooling can treat them as "no data found".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("prompt", "", "Prompt slug override (defaults to config)")
	extractCmd.Flags().String("model", "", "Model override")
	extractCmd.Flags().String("timeout", "", "Per-image timeout (e.g. 45s)")
	extractCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	extractCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	extractCmd.Flags().String("out-dir", "", "Write output to a directory")
	extractCmd.Flags().Bool("no-rate-limit", false, "Skip the persisted upstream budget check")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	promptSlug, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return err
	}
	model, err := cmd.Flags().GetString("model")
	if err != nil {
		return err
	}
	timeoutValue, err := cmd.Flags().GetString("timeout")
	if err != nil {
		return err
	}
	noRateLimit, err := cmd.Flags().GetBool("no-rate-limit")
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	timeoutSec := 0
	if trimmed := strings.TrimSpace(timeoutValue); trimmed != "" {
		d, err := time.ParseDuration(trimmed)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		timeoutSec = int(d.Seconds())
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	cfg := config.GetConfig()
	if cfg == nil {
		return errors.New("config not loaded")
	}

	showProviderGuidanceWarning(cfg.AILink, os.Stderr)

	service, err := ailink.NewService(cfg.AILink)
	if err != nil {
		return err
	}

	var upstream *engine.UpstreamLimiter
	endpoint := upstreamEndpoint(cfg)
	if !noRateLimit {
		upstream = &engine.UpstreamLimiter{Store: db}
		upstream.ApplyOverrides(cfg.UpstreamLimits)
		upstream.ApplySafetyMargin(cfg.UpstreamMargin)
	}

	if promptSlug == "" {
		promptSlug = cfg.Extract.DefaultPrompt
	}

	reports := make([]*output.Report, 0, len(args))
	for _, path := range args {
		report, err := extractOne(ctx, service, upstream, endpoint, path, promptSlug, model, timeoutSec)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}

	if outDir != "" {
		var err error
		outDir, err = ensureOutDir(outDir)
		if err != nil {
			return err
		}
		base := sanitizeFilename(strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])))
		if len(args) > 1 {
			base = "extract"
		}
		outPath = filepath.Join(outDir, fmt.Sprintf("%s.%s", base, outputExtension(format)))
	}

	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	rendered, err := output.FormatReportList(format, reports)
	if err != nil {
		return err
	}
	if rendered != "" {
		_, _ = fmt.Fprintln(sink.writer, rendered)
	}
	return nil
}

func extractOne(ctx context.Context, service *ailink.Service, upstream *engine.UpstreamLimiter, endpoint, path, promptSlug, model string, timeoutSec int) (*output.Report, error) {
	image, err := readImageFile(path)
	if err != nil {
		return nil, err
	}

	if upstream != nil {
		allowed, wait, limErr := upstream.Allow(ctx, endpoint)
		if limErr != nil {
			observability.CLILogger.Warn("Upstream limiter check failed", zap.Error(limErr))
		}
		if !allowed {
			return nil, fmt.Errorf("upstream request budget exhausted, retry in %s", wait.Round(time.Second))
		}
	}

	start := time.Now()
	result, extractErr := service.Extract(ctx, ailink.ExtractRequest{
		Image:      image,
		PromptSlug: promptSlug,
		Model:      model,
		TimeoutSec: timeoutSec,
	})

	// Missing input and resolution failures never reach the network, so they
	// do not consume the provider budget.
	networkAttempted := extractErr == nil ||
		(extractErr.Kind != ailink.KindMissingInput && extractErr.Kind != ailink.KindInternal)
	if upstream != nil && networkAttempted {
		if err := upstream.Record(ctx, endpoint); err != nil {
			observability.CLILogger.Warn("Failed to record upstream request", zap.Error(err))
		}
		if extractErr != nil && extractErr.StatusCode == 429 {
			if err := upstream.Record429(ctx, endpoint, time.Minute); err != nil {
				observability.CLILogger.Warn("Failed to record upstream backoff", zap.Error(err))
			}
		}
	}

	if extractErr != nil && !extractErr.Degraded() {
		return nil, fmt.Errorf("%s: %s", path, extractErr.Message)
	}

	report := output.NewReport(filepath.Base(path), result, extractErr)
	report.DurationMs = time.Since(start).Milliseconds()
	return report, nil
}

func readImageFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxImageFileSize {
		return nil, fmt.Errorf("%s: image exceeds %d byte limit", path, maxImageFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: image file is empty", path)
	}
	return data, nil
}
