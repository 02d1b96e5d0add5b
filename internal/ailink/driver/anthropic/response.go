package anthropic

import (
	"fmt"

	"github.com/labelens/labelens/internal/ailink/content"
	"github.com/labelens/labelens/internal/ailink/driver"
)

type messagesResponse struct {
	Content    []responseBlock `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      *usage          `json:"usage,omitempty"`
}

type responseBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func toDriverResponse(resp *messagesResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Content) == 0 {
		return nil, fmt.Errorf("%w: empty content", driver.ErrMalformedReply)
	}

	blocks := make([]content.ContentBlock, 0, len(resp.Content))
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		blocks = append(blocks, content.ContentBlock{Type: content.ContentTypeText, Text: block.Text})
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no text content", driver.ErrMalformedReply)
	}

	response := &driver.Response{
		Content:    blocks,
		StopReason: resp.StopReason,
	}

	if resp.Usage != nil {
		response.Usage = &driver.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	}

	return response, nil
}
