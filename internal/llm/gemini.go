package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/auth/credentials"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/AnshRaj112/safeharbor-backend/internal/config"
)

const (
	DefaultGeminiModel = "gemini-1.5-flash-latest"
	DefaultVertexModel = "gemini-1.5-flash"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// Sensitive topics are expected in a wellness chat, so only medium-and-above
// harm is blocked.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

// GenAIProvider talks to Gemini either through the Gemini API or Vertex AI.
type GenAIProvider struct {
	client *genai.Client
	model  string
	name   string
}

// NewGemini creates a provider backed by the Gemini API (API key auth).
func NewGemini(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
	}
	return newGenAI(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, orModel(model, DefaultGeminiModel), ProviderGemini)
}

// NewVertex creates a provider backed by Vertex AI. Credentials come from the
// service-account JSON, the client email / private key pair, or application
// default credentials, in that order.
func NewVertex(ctx context.Context, cfg config.LLMConfig) (*GenAIProvider, error) {
	if cfg.VertexProject == "" {
		return nil, fmt.Errorf("VERTEX_PROJECT is required for the vertex provider")
	}

	cc := &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  cfg.VertexProject,
		Location: cfg.VertexLocation,
	}

	credsJSON, err := ServiceAccountJSON(cfg)
	if err != nil {
		return nil, err
	}
	if credsJSON != nil {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes:          []string{cloudPlatformScope},
			CredentialsJSON: credsJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("load vertex credentials: %w", err)
		}
		cc.Credentials = creds
	}

	return newGenAI(ctx, cc, orModel(cfg.Model, DefaultVertexModel), ProviderVertex)
}

func newGenAI(ctx context.Context, cc *genai.ClientConfig, model, name string) (*GenAIProvider, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIProvider{client: client, model: model, name: name}, nil
}

// Generate asks the model for a JSON answer to prompt.
func (p *GenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		SafetySettings:   safetySettings,
	})
	if err != nil {
		return "", fmt.Errorf("%s generate failed: %w", p.name, err)
	}

	text := resp.Text()
	if text == "" {
		zap.L().Warn("genai returned no text", zap.String("provider", p.name), zap.Any("prompt_feedback", resp.PromptFeedback))
	}
	return text, nil
}

func (p *GenAIProvider) Name() string {
	return p.name + ":" + p.model
}

// ServiceAccountJSON returns the credentials document to use for Vertex, or nil
// when application default credentials should be used. A discrete email/key pair
// is assembled into a service_account document; escaped "\n" sequences in the key
// (as stored in most env files) are unescaped.
func ServiceAccountJSON(cfg config.LLMConfig) ([]byte, error) {
	if strings.TrimSpace(cfg.ServiceAccountJSON) != "" {
		return []byte(cfg.ServiceAccountJSON), nil
	}
	if cfg.ClientEmail == "" && cfg.PrivateKey == "" {
		return nil, nil
	}
	if cfg.ClientEmail == "" || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY must be set together")
	}

	doc := map[string]string{
		"type":         "service_account",
		"project_id":   cfg.VertexProject,
		"client_email": cfg.ClientEmail,
		"private_key":  strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n"),
		"token_uri":    "https://oauth2.googleapis.com/token",
	}
	return json.Marshal(doc)
}

func orModel(model, def string) string {
	if strings.TrimSpace(model) == "" {
		return def
	}
	return strings.TrimSpace(model)
}
