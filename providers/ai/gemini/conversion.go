package gemini

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/leofalp/storypaint/internal/utils"
	"github.com/leofalp/storypaint/providers/ai"
)

func requestToGemini(request ai.ChatRequest) generateContentRequest {
	req := generateContentRequest{
		Contents:         buildContents(request.Messages),
		GenerationConfig: buildGenerationConfig(request.GenerationConfig, request.ResponseFormat),
	}
	if request.SystemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: request.SystemPrompt}}}
	}
	return req
}

// buildContents maps roles (assistant becomes model) and encodes inline
// images as base64.
func buildContents(messages []ai.Message) []content {
	contents := make([]content, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == ai.RoleAssistant {
			role = "model"
		}

		var parts []part
		for _, p := range msg.Parts() {
			switch p.Type {
			case ai.ContentTypeText:
				parts = append(parts, part{Text: p.Text})
			case ai.ContentTypeImage:
				if p.Image != nil {
					parts = append(parts, part{InlineData: &inlineData{
						MimeType: p.Image.MimeType,
						Data:     base64.StdEncoding.EncodeToString(p.Image.Data),
					}})
				}
			}
		}
		if len(parts) > 0 {
			contents = append(contents, content{Role: role, Parts: parts})
		}
	}
	return contents
}

func buildGenerationConfig(cfg *ai.GenerationConfig, format *ai.ResponseFormat) *generationConfig {
	if cfg == nil && format == nil {
		return nil
	}

	gc := &generationConfig{}
	if cfg != nil {
		gc.Temperature = cfg.Temperature
		if cfg.MaxOutputTokens > 0 {
			gc.MaxOutputTokens = utils.Ptr(cfg.MaxOutputTokens)
		}
		for _, modality := range cfg.ResponseModalities {
			gc.ResponseModalities = append(gc.ResponseModalities, string(modality))
		}
	}

	if format != nil {
		switch {
		case format.OutputSchema != nil:
			gc.ResponseMimeType = "application/json"
			if schema, err := json.Marshal(format.OutputSchema); err == nil {
				gc.ResponseSchema = schema
			}
		case format.Type == ai.FormatJSONObject || format.Type == ai.FormatJSONSchema:
			gc.ResponseMimeType = "application/json"
		}
	}
	return gc
}

// geminiToGeneric maps the typed response. Inline data that is not valid
// base64 is skipped here; the raw response still holds it.
func geminiToGeneric(resp generateContentResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:    resp.ResponseID,
		Model: resp.ModelVersion,
	}

	if resp.UsageMetadata != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
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
	if first.Content == nil {
		return result
	}

	var text []string
	for _, p := range first.Content.Parts {
		if p.Text != "" && !p.Thought {
			text = append(text, p.Text)
		}
		if p.InlineData != nil {
			if data, err := base64.StdEncoding.DecodeString(p.InlineData.Data); err == nil && len(data) > 0 {
				result.Images = append(result.Images, ai.ImageData{MimeType: p.InlineData.MimeType, Data: data})
			}
		}
	}
	result.Content = strings.Join(text, "\n")
	return result
}

func mapFinishReason(reason string) string {
	switch reason {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "IMAGE_SAFETY":
		return "content_filter"
	default:
		return "stop"
	}
}
