package genaisdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/leofalp/storypaint/internal/utils"
	"github.com/leofalp/storypaint/providers/ai"
	"github.com/leofalp/storypaint/providers/observability"
)

const (
	providerName = "genai"
	defaultModel = "gemini-2.0-flash"
)

// Config configures the SDK client.
type Config struct {
	APIKey     string
	BaseURL    string // Optional endpoint override, used by tests and proxies
	HTTPClient *http.Client
}

// Provider sends requests through a genai.Client.
type Provider struct {
	client *genai.Client
}

var _ ai.Provider = (*Provider)(nil)

// New creates a Gemini API backed provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", providerName, ai.ErrMissingAPIKey)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string {
	return providerName
}

// SendMessage calls Models.GenerateContent. API errors are converted to
// *ai.StatusError.
func (p *Provider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	model := request.Model
	if model == "" {
		model = defaultModel
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, providerName),
			observability.String(observability.AttrLLMModel, model),
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, buildContents(request.Messages), buildConfig(request))
	if err != nil {
		return nil, convertError(err)
	}

	result := toGeneric(resp)
	if result.Model == "" {
		result.Model = model
	}
	return result, nil
}

func buildContents(messages []ai.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == ai.RoleAssistant {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		for _, p := range msg.Parts() {
			switch {
			case p.Type == ai.ContentTypeText:
				parts = append(parts, genai.NewPartFromText(p.Text))
			case p.Type == ai.ContentTypeImage && p.Image != nil:
				parts = append(parts, genai.NewPartFromBytes(p.Image.Data, p.Image.MimeType))
			}
		}
		if len(parts) > 0 {
			contents = append(contents, genai.NewContentFromParts(parts, role))
		}
	}
	return contents
}

func buildConfig(request ai.ChatRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if request.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemPrompt, genai.RoleUser)
	}

	if gc := request.GenerationConfig; gc != nil {
		if gc.Temperature != nil {
			config.Temperature = utils.Ptr(float32(*gc.Temperature))
		}
		if gc.MaxOutputTokens > 0 {
			config.MaxOutputTokens = int32(gc.MaxOutputTokens)
		}
		for _, modality := range gc.ResponseModalities {
			config.ResponseModalities = append(config.ResponseModalities, string(modality))
		}
	}

	if format := request.ResponseFormat; format != nil {
		if format.OutputSchema != nil || format.Type == ai.FormatJSONObject || format.Type == ai.FormatJSONSchema {
			config.ResponseMIMEType = "application/json"
		}
		if format.OutputSchema != nil {
			config.ResponseJsonSchema = format.OutputSchema
		}
	}
	return config
}

func toGeneric(resp *genai.GenerateContentResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:    resp.ResponseID,
		Model: resp.ModelVersion,
		Raw:   resp,
	}

	if usage := resp.UsageMetadata; usage != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 {
		result.FinishReason = "error"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			result.FinishReason = "content_filter"
		}
		return result
	}

	first := resp.Candidates[0]
	result.FinishReason = mapFinishReason(first.FinishReason)
	result.Content = resp.Text()
	if first.Content != nil {
		for _, part := range first.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				result.Images = append(result.Images, ai.ImageData{
					MimeType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				})
			}
		}
	}
	return result
}

func mapFinishReason(reason genai.FinishReason) string {
	switch string(reason) {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "IMAGE_SAFETY":
		return "content_filter"
	default:
		return "stop"
	}
}

// convertError maps SDK API errors to *ai.StatusError so retry classification
// is the same for both backends.
func convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.StatusError{Provider: providerName, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return err
}
