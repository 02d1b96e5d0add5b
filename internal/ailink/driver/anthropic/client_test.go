package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/labelens/labelens/internal/ailink/content"
	"github.com/labelens/labelens/internal/ailink/driver"
)

func userMessage(text string) []content.Message {
	return []content.Message{{
		Role: content.RoleUser,
		Content: []content.ContentBlock{
			{Type: content.ContentTypeText, Text: text},
		},
	}}
}

func TestCompleteSendsMessagesRequest(t *testing.T) {
	var gotPath string
	var gotHeaders http.Header
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello"}],"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":3}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	resp, err := client.Complete(context.Background(), &driver.Request{
		Model:    "claude-sonnet-4-20250514",
		System:   "be terse",
		Messages: userMessage("hi"),
	})
	require.NoError(t, err)

	require.Equal(t, "/v1/messages", gotPath)
	require.Equal(t, "test-key", gotHeaders.Get("x-api-key"))
	require.Equal(t, "2023-06-01", gotHeaders.Get("anthropic-version"))
	require.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	require.Equal(t, "claude-sonnet-4-20250514", gotPayload["model"])
	require.Equal(t, "be terse", gotPayload["system"])
	require.Equal(t, float64(defaultMaxTokens), gotPayload["max_tokens"])

	require.Len(t, resp.Content, 1)
	require.Equal(t, "hello", resp.Content[0].Text)
	require.Equal(t, "end_turn", resp.StopReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 12, resp.Usage.InputTokens)
	require.Equal(t, 3, resp.Usage.OutputTokens)
}

func TestCompleteNonOKStatusReturnsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "claude-sonnet-4-20250514",
		Messages: userMessage("hi"),
	})
	require.Error(t, err)

	var provErr *driver.ProviderError
	require.True(t, errors.As(err, &provErr))
	require.Equal(t, "anthropic", provErr.Provider)
	require.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
	require.Contains(t, provErr.Message, "rate_limit_error")
}

func TestCompleteMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "claude-sonnet-4-20250514",
		Messages: userMessage("hi"),
	})
	require.ErrorIs(t, err, driver.ErrMalformedReply)
}

func TestCompleteEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "claude-sonnet-4-20250514",
		Messages: userMessage("hi"),
	})
	require.ErrorIs(t, err, driver.ErrMalformedReply)
}

func TestCompleteSkipsNonTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"thinking","text":"..."},{"type":"text","text":"answer"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	resp, err := client.Complete(context.Background(), &driver.Request{
		Model:    "claude-sonnet-4-20250514",
		Messages: userMessage("hi"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	require.Equal(t, "answer", resp.Content[0].Text)
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "claude-sonnet-4-20250514",
		Messages: userMessage("hi"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("  ", " key ")
	require.Equal(t, defaultBaseURL, client.BaseURL)
	require.Equal(t, "key", client.APIKey)
	require.Equal(t, "anthropic", client.Name())
	require.True(t, client.Capabilities().SupportsImages)
	require.False(t, client.Capabilities().SupportsStreaming)
}
