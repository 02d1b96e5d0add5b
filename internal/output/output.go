package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/labelens/labelens/internal/ailink"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Report is a single extraction outcome, ready for rendering.
type Report struct {
	Source     string  `json:"source"`
	Kcal       int     `json:"kcal"`
	Protein    float64 `json:"protein"`
	Provider   string  `json:"provider,omitempty"`
	Model      string  `json:"model,omitempty"`
	MediaType  string  `json:"media_type,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`

	// Degraded marks a parse or validation failure where the zeroed
	// values above stand in for real data.
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewReport builds a Report from a pipeline outcome.
func NewReport(source string, result *ailink.ExtractResult, extractErr *ailink.ExtractError) *Report {
	report := &Report{Source: source}
	if result != nil {
		report.Kcal = result.Facts.Kcal
		report.Protein = result.Facts.Protein
		report.Provider = result.Provider
		report.Model = result.Model
		report.MediaType = result.MediaType
	}
	if extractErr != nil {
		report.Error = extractErr.Message
		report.Degraded = extractErr.Degraded()
	}
	return report
}

// Formatter renders extraction reports.
type Formatter interface {
	FormatReport(report *Report) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatReportList renders multiple reports using the requested format.
func FormatReportList(format Format, reports []*Report) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	formatter := NewFormatter(format)
	var sections []string
	for _, report := range reports {
		rendered, err := formatter.FormatReport(report)
		if err != nil {
			return "", err
		}
		if rendered != "" {
			sections = append(sections, rendered)
		}
	}
	return strings.Join(sections, "\n\n"), nil
}
