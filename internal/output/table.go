package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders reports as an ASCII table.
type TableFormatter struct{}

// FormatReport renders an extraction report as a table.
func (f *TableFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Source", "Kcal", "Protein (g)", "Status"})
	t.AppendRow(table.Row{
		report.Source,
		report.Kcal,
		fmt.Sprintf("%.1f", report.Protein),
		statusLabel(report),
	})

	if report.Provider != "" || report.Model != "" {
		t.AppendFooter(table.Row{
			"",
			"",
			report.Provider,
			report.Model,
		})
	}

	return t.Render(), nil
}

func statusLabel(report *Report) string {
	switch {
	case report.Error == "":
		return "ok"
	case report.Degraded:
		return "degraded: " + report.Error
	default:
		return "error: " + report.Error
	}
}
