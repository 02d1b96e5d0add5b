package ailink

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/labelens/labelens/internal/ailink/prompt"
)

func testConfig(baseURL string) Config {
	return Config{
		DefaultProvider: "test-anthropic",
		DefaultTimeout:  5 * time.Second,
		Providers: map[string]ProviderInstanceConfig{
			"test-anthropic": {
				Enabled:    true,
				AIProvider: "anthropic",
				BaseURL:    baseURL,
				Models:     map[string]string{"default": "claude-test"},
				Roles:      []string{RoleExtract},
				Credentials: []CredentialConfig{
					{Enabled: true, Label: "primary", APIKey: "test-key"},
				},
			},
		},
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	prompts, err := prompt.DefaultRegistry()
	require.NoError(t, err)

	return NewServiceWithRegistry(cfg, NewRegistry(cfg), prompts), &calls
}

func textReply(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"content":[{"type":"text","text":%q}],"stop_reason":"end_turn","usage":{"input_tokens":100,"output_tokens":20}}`, text)
	}
}

var testImage = []byte("\xff\xd8\xff\xe0not-really-a-jpeg")

func TestExtractParsesBareJSON(t *testing.T) {
	svc, _ := newTestService(t, textReply(`{"kcal": 450, "protein": 25}`))

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.Nil(t, extractErr)
	require.Equal(t, 450, result.Facts.Kcal)
	require.Equal(t, 25.0, result.Facts.Protein)
	require.Equal(t, "test-anthropic", result.Provider)
	require.Equal(t, "claude-test", result.Model)
}

func TestExtractStripsCodeFence(t *testing.T) {
	fenced := "```json\n{\"kcal\": 450, \"protein\": 25}\n```"
	svc, _ := newTestService(t, textReply(fenced))

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.Nil(t, extractErr)
	require.Equal(t, 450, result.Facts.Kcal)
	require.Equal(t, 25.0, result.Facts.Protein)
}

func TestExtractRoundsValues(t *testing.T) {
	svc, _ := newTestService(t, textReply(`{"kcal": 450.4, "protein": 24.96}`))

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.Nil(t, extractErr)
	require.Equal(t, 450, result.Facts.Kcal)
	require.Equal(t, 25.0, result.Facts.Protein)
}

func TestExtractAcceptsNegativeValues(t *testing.T) {
	// Validation checks types only; range is not enforced.
	svc, _ := newTestService(t, textReply(`{"kcal": -5, "protein": 10}`))

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.Nil(t, extractErr)
	require.Equal(t, -5, result.Facts.Kcal)
	require.Equal(t, 10.0, result.Facts.Protein)
}

func TestExtractParseFailureIsDegraded(t *testing.T) {
	svc, _ := newTestService(t, textReply("not json at all"))

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.NotNil(t, extractErr)
	require.Equal(t, KindParseFailure, extractErr.Kind)
	require.True(t, extractErr.Degraded())

	// Degraded results still carry zeroed facts.
	require.NotNil(t, result)
	require.Equal(t, 0, result.Facts.Kcal)
	require.Equal(t, 0.0, result.Facts.Protein)
}

func TestExtractNonNumericFieldIsValidationFailure(t *testing.T) {
	svc, _ := newTestService(t, textReply(`{"kcal": "high", "protein": 10}`))

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.NotNil(t, extractErr)
	require.Equal(t, KindValidationError, extractErr.Kind)
	require.True(t, extractErr.Degraded())
	require.NotNil(t, result)
	require.Equal(t, NutritionFacts{}, result.Facts)
}

func TestExtractMissingFieldIsValidationFailure(t *testing.T) {
	svc, _ := newTestService(t, textReply(`{"kcal": 210}`))

	_, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.NotNil(t, extractErr)
	require.Equal(t, KindValidationError, extractErr.Kind)
	require.Contains(t, extractErr.Message, "protein")
}

func TestExtractUpstreamErrorCarriesStatusAndBody(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		fmt.Fprint(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.Nil(t, result)
	require.NotNil(t, extractErr)
	require.Equal(t, KindUpstreamError, extractErr.Kind)
	require.Equal(t, 529, extractErr.StatusCode)
	require.Contains(t, extractErr.Body, "overloaded_error")
	require.False(t, extractErr.Degraded())
}

func TestExtractEmptyImageSkipsNetwork(t *testing.T) {
	svc, calls := newTestService(t, textReply(`{"kcal": 1, "protein": 1}`))

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: nil})
	require.Nil(t, result)
	require.NotNil(t, extractErr)
	require.Equal(t, KindMissingInput, extractErr.Kind)
	require.Equal(t, int64(0), calls.Load())
}

func TestExtractMalformedReply(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":[],"stop_reason":"end_turn"}`)
	})

	result, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.Nil(t, result)
	require.NotNil(t, extractErr)
	require.Equal(t, KindMalformedReply, extractErr.Kind)
}

func TestExtractSendsAnthropicHeaders(t *testing.T) {
	var gotAPIKey, gotVersion string
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		textReply(`{"kcal": 100, "protein": 5}`)(w, r)
	})

	_, extractErr := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.Nil(t, extractErr)
	require.Equal(t, "test-key", gotAPIKey)
	require.Equal(t, "2023-06-01", gotVersion)
}

func TestExtractIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, textReply(`{"kcal": 450, "protein": 25}`))

	first, err1 := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	second, err2 := svc.Extract(context.Background(), ExtractRequest{Image: testImage})
	require.Nil(t, err1)
	require.Nil(t, err2)
	require.Equal(t, first.Facts, second.Facts)
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"{\"a\":1}", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"```JSON\n{\"a\": [1, 2]}\n```", `{"a": [1, 2]}`},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, stripCodeFence(tc.input), "input %q", tc.input)
	}
}
