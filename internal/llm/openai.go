package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider calls the chat completions API (or a compatible endpoint).
type OpenAIProvider struct {
	client openaigo.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base+"/"))
	}

	return &OpenAIProvider{
		client: openaigo.NewClient(opts...),
		model:  orModel(model, DefaultOpenAIModel),
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(p.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.UserMessage(prompt),
		},
		ResponseFormat: openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI + ":" + p.model
}
