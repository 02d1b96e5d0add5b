package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/labelens/labelens/internal/ailink"
)

// providerGuidanceShown tracks if the provider configuration warning has been
// shown this session to avoid repeating it.
var providerGuidanceShown bool

// isAIBackendConfigured checks if any AI provider has a valid API key configured.
func isAIBackendConfigured(cfg ailink.Config) bool {
	for _, provider := range cfg.Providers {
		if !provider.Enabled {
			continue
		}
		for _, cred := range provider.Credentials {
			if cred.Enabled && strings.TrimSpace(cred.APIKey) != "" {
				return true
			}
		}
	}
	return false
}

// showProviderGuidanceWarning prints setup instructions when no vision
// provider is configured. Shows once per session.
// Writes to stderr to avoid interfering with JSON/structured output.
func showProviderGuidanceWarning(cfg ailink.Config, w io.Writer) {
	if providerGuidanceShown {
		return
	}
	if isAIBackendConfigured(cfg) {
		return
	}

	if w == nil {
		w = os.Stderr
	}

	// Informational output to stderr - errors are best-effort
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Note: No vision provider configured. Extraction requires an AI backend.")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "  Create a config with:")
	_, _ = fmt.Fprintln(w, "    labelens doctor init --api-key prompt")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "  Or export the key directly:")
	_, _ = fmt.Fprintln(w, "    export LABELENS_AILINK_PROVIDERS_LABELENS_ANTHROPIC_CREDENTIALS_0_API_KEY=sk-...")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "  Then run: labelens extract photo.jpg")
	_, _ = fmt.Fprintln(w, "")

	providerGuidanceShown = true
}

// resetProviderGuidance resets the shown flag (for testing).
func resetProviderGuidance() {
	providerGuidanceShown = false
}
