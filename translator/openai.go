package translator

import (
	"context"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements LLM with the chat completions API.
type OpenAIClient struct {
	client *openai.Client
	config Config
}

// NewOpenAI creates an OpenAI-compatible client. BaseURL may point at any
// compatible gateway.
func NewOpenAI(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("translator: OPENAI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIConfig("").Model
	}
	cfg.Temperature = ClampTemperature(cfg.Temperature)

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(oc), config: cfg}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai:" + c.config.Model }

// Complete sends one system+user exchange and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: float32(c.config.Temperature),
	})
	if err != nil {
		return "", eris.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
