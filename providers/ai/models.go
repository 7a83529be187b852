package ai

import "github.com/leofalp/storypaint/internal/jsonschema"

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest is a single, stateless call to a generative model.
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`             // Model name; providers fall back to their default
	SystemPrompt     string            `json:"system_prompt,omitempty"`     // Optional system instruction
	Messages         []Message         `json:"messages"`                    // Conversation turns, oldest first
	ResponseFormat   *ResponseFormat   `json:"response_format,omitempty"`   // Optional structured output
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"` // Optional sampling and modality settings
}

// Message is one turn of the conversation. When ContentParts is set it takes
// precedence over Content.
type Message struct {
	Role         MessageRole   `json:"role"`
	Content      string        `json:"content,omitempty"`
	ContentParts []ContentPart `json:"content_parts,omitempty"`
}

// Parts returns the message as content parts, turning a plain Content into a
// single text part.
func (m Message) Parts() []ContentPart {
	if len(m.ContentParts) > 0 {
		return m.ContentParts
	}
	if m.Content == "" {
		return nil
	}
	return []ContentPart{NewTextPart(m.Content)}
}

// ContentType tells which field of a ContentPart is populated.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// ContentPart is a piece of multimodal message content.
type ContentPart struct {
	Type  ContentType `json:"type"`
	Text  string      `json:"text,omitempty"`
	Image *ImageData  `json:"image,omitempty"`
}

// ImageData is an inline image. Data holds the raw bytes; providers encode
// them as their wire format requires.
type ImageData struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// NewTextPart returns a text content part.
func NewTextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// NewImagePart returns an inline image content part.
func NewImagePart(mimeType string, data []byte) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &ImageData{MimeType: mimeType, Data: data}}
}

// Modality is an output kind the model may produce.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityImage Modality = "IMAGE"
)

type GenerationConfig struct {
	Temperature        *float64   `json:"temperature,omitempty"`         // Sampling temperature; nil keeps the model default
	MaxOutputTokens    int        `json:"max_output_tokens,omitempty"`   // Zero keeps the model default
	ResponseModalities []Modality `json:"response_modalities,omitempty"` // e.g. TEXT and IMAGE for image models
}

// Response format types.
const (
	FormatText       = "text"
	FormatJSONObject = "json_object"
	FormatJSONSchema = "json_schema"
)

// ResponseFormat asks the model for structured output.
type ResponseFormat struct {
	Type         string             `json:"type,omitempty"`          // FormatText, FormatJSONObject or FormatJSONSchema
	OutputSchema *jsonschema.Schema `json:"output_schema,omitempty"` // implies FormatJSONSchema
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse is the provider-neutral view of a model answer. Raw keeps the
// undecoded response so callers can search it for data the typed view drops.
type ChatResponse struct {
	Id           string      `json:"id,omitempty"`
	Model        string      `json:"model"`
	Content      string      `json:"content"`
	Images       []ImageData `json:"images,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *Usage      `json:"usage,omitempty"`

	Raw any `json:"-"`
}

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
)
