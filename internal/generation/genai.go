package generation

import (
	"context"
	"fmt"
	"strings"

	"code-sprint/internal/models"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GenAI implements Generator with Google's Gemini API.
type GenAI struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGenAI(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GenAI, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAI{client: client, model: model, logger: logger}, nil
}

func (g *GenAI) Reference(ctx context.Context, problem, language string) (string, error) {
	return g.code(ctx, referencePrompt(problem, language))
}

func (g *GenAI) Starter(ctx context.Context, problem, language string) (string, error) {
	return g.code(ctx, starterPrompt(problem, language))
}

func (g *GenAI) Practice(ctx context.Context, q models.Question) (string, error) {
	text, err := g.complete(ctx, practicePrompt(q))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

func (g *GenAI) code(ctx context.Context, prompt string) (string, error) {
	text, err := g.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	code := StripFences(text)
	if strings.TrimSpace(code) == "" {
		return "", ErrEmptyGeneration
	}
	return code, nil
}

func (g *GenAI) complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		g.logger.Warn("generation request failed", zap.String("model", g.model), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return resp.Text(), nil
}
