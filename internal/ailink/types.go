package ailink

import "fmt"

// ExtractRequest is the high-level request for a label extraction.
type ExtractRequest struct {
	Image      []byte
	PromptSlug string
	Model      string
	TimeoutSec int
}

// NutritionFacts holds the per-100g values read from a label.
type NutritionFacts struct {
	Kcal    int     `json:"kcal"`
	Protein float64 `json:"protein"`
}

// ExtractResult is a successful (or degraded) extraction outcome.
type ExtractResult struct {
	Facts     NutritionFacts `json:"facts"`
	Provider  string         `json:"provider,omitempty"`
	Model     string         `json:"model,omitempty"`
	MediaType string         `json:"media_type,omitempty"`
	RawReply  string         `json:"raw_reply,omitempty"`
}

// ErrorKind classifies extraction failures.
type ErrorKind string

const (
	KindMissingInput    ErrorKind = "missing_input"
	KindUpstreamError   ErrorKind = "upstream_error"
	KindMalformedReply  ErrorKind = "malformed_upstream_reply"
	KindParseFailure    ErrorKind = "parse_failure"
	KindValidationError ErrorKind = "validation_failure"
	KindInternal        ErrorKind = "internal"
)

// ExtractError captures an extraction failure with enough context to map it
// onto an HTTP response.
type ExtractError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Body       string    `json:"body,omitempty"`
}

func (e *ExtractError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Degraded reports whether the failure still carries zeroed nutrition facts
// in the reply, rather than a bare error.
func (e *ExtractError) Degraded() bool {
	if e == nil {
		return false
	}
	return e.Kind == KindParseFailure || e.Kind == KindValidationError
}
