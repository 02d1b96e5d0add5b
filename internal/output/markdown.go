package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders reports as a markdown table.
type MarkdownFormatter struct{}

// FormatReport renders an extraction report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(report.Source)))
	sb.WriteString("| Kcal | Protein (g) | Status |\n")
	sb.WriteString("|------|-------------|--------|\n")
	sb.WriteString(fmt.Sprintf("| %d | %.1f | %s |\n",
		report.Kcal,
		report.Protein,
		escapeMarkdownCell(statusLabel(report)),
	))

	if report.Provider != "" {
		sb.WriteString(fmt.Sprintf("\n**Provider**: %s", report.Provider))
		if report.Model != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", report.Model))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
