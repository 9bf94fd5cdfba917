package scorer

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/CodeAndHammer/eikensim/internal/config"
)

// GeminiGenerator talks to Gemini through its OpenAI-compatible endpoint.
type GeminiGenerator struct {
	client openai.Client
	model  string
}

// NewGenerator returns a Gemini-backed Generator, or one that always fails
// with ErrNotConfigured when no API key is set.
func NewGenerator(cfg config.ScorerConfig) Generator {
	if !cfg.Enabled() {
		return unconfiguredGenerator{}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}

	return &GeminiGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("gemini chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("gemini chat completion: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

type unconfiguredGenerator struct{}

func (unconfiguredGenerator) Generate(context.Context, GenerateRequest) (string, error) {
	return "", ErrNotConfigured
}
