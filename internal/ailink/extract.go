package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/labelens/labelens/internal/ailink/content"
	"github.com/labelens/labelens/internal/ailink/driver"
	"github.com/labelens/labelens/internal/ailink/imagemeta"
	"github.com/labelens/labelens/internal/ailink/prompt"
)

const (
	// DefaultPromptSlug selects the built-in nutrition label prompt.
	DefaultPromptSlug = "nutrition-label"

	// RoleExtract routes extraction requests to a provider.
	RoleExtract = "extract"

	defaultTimeout   = 60 * time.Second
	maxTimeout       = 5 * time.Minute
	extractMaxTokens = 1000
)

// Service runs label extractions against a configured provider.
type Service struct {
	cfg      Config
	registry *Registry
	prompts  prompt.Registry
}

// NewService wires a Service from configuration. Prompts come from the
// embedded set unless cfg.PromptsDir overrides them.
func NewService(cfg Config) (*Service, error) {
	prompts, err := buildPromptRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		registry: NewRegistry(cfg),
		prompts:  prompts,
	}, nil
}

// NewServiceWithRegistry is a test seam for injecting a prepared registry.
func NewServiceWithRegistry(cfg Config, reg *Registry, prompts prompt.Registry) *Service {
	return &Service{cfg: cfg, registry: reg, prompts: prompts}
}

func buildPromptRegistry(cfg Config) (prompt.Registry, error) {
	if dir := strings.TrimSpace(cfg.PromptsDir); dir != "" {
		prompts, err := prompt.LoadFromDir(dir)
		if err != nil {
			return nil, err
		}
		return prompt.NewRegistry(prompts)
	}
	return prompt.DefaultRegistry()
}

// Extract runs the full pipeline: validate input, resolve provider, call the
// model, and parse the reply into nutrition facts. On parse or validation
// failures the returned result still carries zeroed facts alongside the error.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, *ExtractError) {
	if len(req.Image) == 0 {
		return nil, &ExtractError{Kind: KindMissingInput, Message: "image data is required"}
	}

	meta := imagemeta.Sniff(req.Image)

	slug := strings.TrimSpace(req.PromptSlug)
	if slug == "" {
		slug = DefaultPromptSlug
	}
	promptDef, err := s.prompts.Get(slug)
	if err != nil {
		return nil, &ExtractError{Kind: KindInternal, Message: err.Error()}
	}

	resolved, err := s.registry.Resolve(RoleExtract, req.Model)
	if err != nil {
		return nil, &ExtractError{Kind: KindInternal, Message: err.Error()}
	}

	timeout := s.timeoutFor(req.TimeoutSec)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	driverReq := &driver.Request{
		Model:  resolved.Model,
		System: promptDef.Config.SystemTemplate,
		Messages: []content.Message{
			{
				Role: content.RoleUser,
				Content: []content.ContentBlock{
					{
						Type:      content.ContentTypeImage,
						MediaType: meta.MediaType,
						Data:      req.Image,
					},
				},
			},
		},
		MaxTokens: intPtr(extractMaxTokens),
	}

	resp, err := resolved.Driver.Complete(callCtx, driverReq)
	if err != nil {
		return nil, classifyDriverError(err)
	}

	text, err := firstText(resp)
	if err != nil {
		return nil, &ExtractError{Kind: KindMalformedReply, Message: err.Error()}
	}

	result := &ExtractResult{
		Provider:  resolved.ProviderID,
		Model:     resolved.Model,
		MediaType: meta.MediaType,
		RawReply:  text,
	}

	facts, extractErr := parseNutritionReply(text)
	result.Facts = facts
	if extractErr != nil {
		return result, extractErr
	}
	return result, nil
}

func (s *Service) timeoutFor(timeoutSec int) time.Duration {
	timeout := s.cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeoutSec > 0 {
		timeout = time.Duration(timeoutSec) * time.Second
	}
	if timeout > maxTimeout {
		timeout = maxTimeout
	}
	return timeout
}

func classifyDriverError(err error) *ExtractError {
	var provErr *driver.ProviderError
	if errors.As(err, &provErr) {
		return &ExtractError{
			Kind:       KindUpstreamError,
			Message:    provErr.Message,
			StatusCode: provErr.StatusCode,
			Body:       string(provErr.RawResponse),
		}
	}
	if errors.Is(err, driver.ErrMalformedReply) {
		return &ExtractError{Kind: KindMalformedReply, Message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExtractError{Kind: KindUpstreamError, Message: "provider request timed out"}
	}
	return &ExtractError{Kind: KindInternal, Message: err.Error()}
}

func firstText(resp *driver.Response) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("empty provider response")
	}
	for _, block := range resp.Content {
		if block.Type == content.ContentTypeText && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("provider response has no text content")
}

// parseNutritionReply turns model output into validated facts. Models
// sometimes wrap JSON in markdown fences despite instructions, so fences are
// stripped before parsing.
func parseNutritionReply(text string) (NutritionFacts, *ExtractError) {
	cleaned := stripCodeFence(text)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return NutritionFacts{}, &ExtractError{
			Kind:    KindParseFailure,
			Message: fmt.Sprintf("reply is not a JSON object: %v", err),
		}
	}

	kcal, err := numericField(fields, "kcal")
	if err != nil {
		return NutritionFacts{}, &ExtractError{Kind: KindValidationError, Message: err.Error()}
	}
	protein, err := numericField(fields, "protein")
	if err != nil {
		return NutritionFacts{}, &ExtractError{Kind: KindValidationError, Message: err.Error()}
	}

	return NutritionFacts{
		Kcal:    int(math.Round(kcal)),
		Protein: math.Round(protein*10) / 10,
	}, nil
}

func numericField(fields map[string]json.RawMessage, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("reply is missing %q", name)
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("reply field %q is not numeric", name)
	}
	return value, nil
}

// stripCodeFence removes a single wrapping markdown code fence, with or
// without a language tag.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || isFenceTag(firstLine) {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return s != ""
}

func intPtr(v int) *int { return &v }
