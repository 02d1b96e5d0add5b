package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelens/labelens/internal/ailink"
)

func sampleReport() *Report {
	return &Report{
		Source:   "label.jpg",
		Kcal:     450,
		Protein:  25.5,
		Provider: "anthropic",
		Model:    "claude-sonnet-4-20250514",
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"":         FormatTable,
		"table":    FormatTable,
		" JSON ":   FormatJSON,
		"markdown": FormatMarkdown,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFormat("yaml")
	require.Error(t, err)
}

func TestNewReport(t *testing.T) {
	result := &ailink.ExtractResult{
		Facts:    ailink.NutritionFacts{Kcal: 120, Protein: 3.4},
		Provider: "anthropic",
		Model:    "claude-sonnet-4-20250514",
	}
	report := NewReport("snack.png", result, nil)
	assert.Equal(t, "snack.png", report.Source)
	assert.Equal(t, 120, report.Kcal)
	assert.Equal(t, 3.4, report.Protein)
	assert.Empty(t, report.Error)
	assert.False(t, report.Degraded)
}

func TestNewReportDegraded(t *testing.T) {
	result := &ailink.ExtractResult{}
	extractErr := &ailink.ExtractError{
		Kind:    ailink.KindParseFailure,
		Message: "reply is not a JSON object",
	}
	report := NewReport("blurry.jpg", result, extractErr)
	assert.True(t, report.Degraded)
	assert.Equal(t, 0, report.Kcal)
	assert.Zero(t, report.Protein)
	assert.Contains(t, report.Error, "not a JSON object")
}

func TestJSONFormatter(t *testing.T) {
	rendered, err := (&JSONFormatter{Indent: true}).FormatReport(sampleReport())
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	assert.Equal(t, 450, decoded.Kcal)
	assert.Equal(t, 25.5, decoded.Protein)
}

func TestTableFormatter(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatReport(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, rendered, "label.jpg")
	assert.Contains(t, rendered, "450")
	assert.Contains(t, rendered, "25.5")
	assert.Contains(t, rendered, "ok")
}

func TestMarkdownFormatter(t *testing.T) {
	report := sampleReport()
	report.Source = "weird|name.jpg"
	rendered, err := (&MarkdownFormatter{}).FormatReport(report)
	require.NoError(t, err)
	assert.Contains(t, rendered, "weird\\|name.jpg")
	assert.Contains(t, rendered, "| 450 | 25.5 | ok |")
	assert.Contains(t, rendered, "**Provider**: anthropic")
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "ok", statusLabel(sampleReport()))
	assert.Equal(t, "degraded: bad reply", statusLabel(&Report{Degraded: true, Error: "bad reply"}))
	assert.Equal(t, "error: boom", statusLabel(&Report{Error: "boom"}))
}

func TestFormatReportListJSON(t *testing.T) {
	rendered, err := FormatReportList(FormatJSON, []*Report{sampleReport(), sampleReport()})
	require.NoError(t, err)

	var decoded []Report
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded, 2)
}

func TestFormatReportListTable(t *testing.T) {
	first := sampleReport()
	second := sampleReport()
	second.Source = "other.png"
	rendered, err := FormatReportList(FormatTable, []*Report{first, second})
	require.NoError(t, err)
	assert.Contains(t, rendered, "label.jpg")
	assert.Contains(t, rendered, "other.png")
	assert.Equal(t, 2, strings.Count(strings.ToUpper(rendered), "KCAL"))
}
