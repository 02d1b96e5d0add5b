package anthropic

import (
	"fmt"
	"strings"

	"github.com/labelens/labelens/internal/ailink/content"
	"github.com/labelens/labelens/internal/ailink/driver"
	"github.com/labelens/labelens/internal/ailink/encode"
)

// messagesRequest is the /v1/messages wire payload.
type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// defaultMaxTokens applies when the caller does not set a budget; the
// Messages API requires max_tokens on every request.
const defaultMaxTokens = 1024

func buildMessagesRequest(req *driver.Request) (*messagesRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	payload := &messagesRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	return payload, nil
}

func convertMessages(messages []content.Message) ([]chatMessage, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}
	result := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		blocks, err := convertContent(msg.Content)
		if err != nil {
			return nil, err
		}
		result = append(result, chatMessage{Role: msg.Role, Content: blocks})
	}
	return result, nil
}

func convertContent(blocks []content.ContentBlock) ([]contentBlock, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("message content is required")
	}

	converted := make([]contentBlock, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case content.ContentTypeText:
			converted = append(converted, contentBlock{Type: "text", Text: block.Text})
		case content.ContentTypeImage:
			if len(block.Data) == 0 {
				return nil, fmt.Errorf("image block has no data")
			}
			mediaType := block.MediaType
			if mediaType == "" {
				mediaType = "image/jpeg"
			}
			converted = append(converted, contentBlock{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      encode.EncodeBase64String(block.Data),
				},
			})
		default:
			return nil, fmt.Errorf("unsupported content type: %s", block.Type)
		}
	}
	return converted, nil
}
