package image

import (
	"context"
	"fmt"
	"strings"

	"colorizer/internal/domain"
	"colorizer/internal/infra"
	"colorizer/internal/providers/genai"
)

// ContentGenerator is the subset of the genai client used by the adapter.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req genai.ContentRequest) (*genai.ContentResponse, error)
}

// GeminiAdapter drives a multimodal Gemini model with the upload as inline data.
type GeminiAdapter struct {
	client  ContentGenerator
	profile Profile
	logger  *infra.Logger
}

// NewGeminiAdapter wires the adapter around an existing genai client.
func NewGeminiAdapter(client ContentGenerator, profile Profile, logger *infra.Logger) *GeminiAdapter {
	if logger == nil {
		logger = infra.NopLogger()
	}
	if profile.Provider == "" {
		profile.Provider = infra.ProviderGemini
	}
	if profile.DefaultInstruction == "" {
		profile.DefaultInstruction = DefaultGeminiInstruction
	}
	return &GeminiAdapter{client: client, profile: profile, logger: logger}
}

// GeminiProfile builds the parameter bundles from configuration. Custom
// instructions run slightly hotter than the built-in prompt.
func GeminiProfile(cfg *infra.Config) Profile {
	base := Params{
		Temperature:        cfg.GeminiTemperature,
		TopK:               cfg.GeminiTopK,
		TopP:               cfg.GeminiTopP,
		MaxOutputTokens:    cfg.GeminiMaxOutputTokens,
		ResponseModalities: cfg.GeminiResponseModalities,
	}
	custom := base
	custom.Temperature = cfg.GeminiCustomTemperature
	return Profile{
		Provider:           infra.ProviderGemini,
		DefaultInstruction: DefaultGeminiInstruction,
		Params:             base,
		CustomParams:       custom,
	}
}

func (g *GeminiAdapter) Profile() Profile {
	return g.profile
}

// Generate prefers the first inline image part. A response without any image
// but with text is returned as a text output.
func (g *GeminiAdapter) Generate(ctx context.Context, req GenerateRequest) (*Output, error) {
	resp, err := g.client.GenerateContent(ctx, genai.ContentRequest{
		Instruction: req.Instruction,
		Image:       req.Image.Data,
		MIMEType:    req.Image.MIMEType,
		RequestID:   req.JobID,
		Config: genai.GenerationConfig{
			Temperature:        req.Params.Temperature,
			TopK:               req.Params.TopK,
			TopP:               req.Params.TopP,
			MaxOutputTokens:    req.Params.MaxOutputTokens,
			ResponseModalities: req.Params.ResponseModalities,
		},
	})
	if err != nil {
		return nil, err
	}

	if inline := resp.FirstInline(); inline != nil {
		mime := inline.MIMEType
		if mime == "" {
			mime = DetectMIME("", inline.Data)
		}
		return &Output{Kind: OutputImage, Data: inline.Data, MIMEType: mime}, nil
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini: %w: response has neither image nor text (finish reason %q)", domain.ErrAdapter, resp.FinishReason)
	}
	g.logger.Warn().
		Str("job_id", req.JobID).
		Int("text_len", len(text)).
		Msg("gemini: model answered with text only")
	return &Output{Kind: OutputText, Text: text}, nil
}

var _ Adapter = (*GeminiAdapter)(nil)
