package translator

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// ============================================================================
// GEMINI CLIENT — Google Gemini through the genai SDK
// ============================================================================
// Requests JSON output so the envelope path in ExtractSQL usually wins.
// ============================================================================

// GeminiClient implements LLM using Google Gemini.
type GeminiClient struct {
	client *genai.Client
	config Config
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("translator: GEMINI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiConfig("").Model
	}
	cfg.Temperature = ClampTemperature(cfg.Temperature)

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "create gemini client")
	}
	return &GeminiClient{client: cli, config: cfg}, nil
}

// Name returns the provider name.
func (g *GeminiClient) Name() string { return "gemini:" + g.config.Model }

// Complete sends the system instruction and user message.
func (g *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	temp := float32(g.config.Temperature)
	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: user}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			Temperature:       &temp,
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		return "", eris.Wrap(err, "gemini generate content")
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", eris.New("gemini: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
