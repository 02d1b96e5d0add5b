package content

// ContentType represents supported content types using IANA media types.
type ContentType string

const (
	ContentTypeText  ContentType = "text/plain"
	ContentTypeJSON  ContentType = "application/json"
	ContentTypeImage ContentType = "image"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentBlock represents a single piece of content.
//
// Image blocks carry raw bytes plus the declared media type; drivers are
// responsible for any wire encoding (e.g. base64).
type ContentBlock struct {
	Type      ContentType `json:"type"`
	Text      string      `json:"text,omitempty"`
	MediaType string      `json:"media_type,omitempty"`
	Data      []byte      `json:"data,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}
