package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/intentbot/pkg/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGenAIModel is the Gemini model used when none is configured.
const DefaultGenAIModel = "gemini-2.5-flash"

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenAIResponder answers every message with a generative model instead of the
// local classifier. Failures are returned as "Error: ..." text.
type GenAIResponder struct {
	gen    Generator
	logger *zap.Logger
}

// NewGenAIResponder creates a responder backed by the Gemini API.
func NewGenAIResponder(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GenAIResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai engine requires an API key")
	}
	if model == "" {
		model = DefaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewGeneratorResponder(&geminiGenerator{client: client, model: model}, logger), nil
}

// NewGeneratorResponder wraps any Generator.
func NewGeneratorResponder(gen Generator, logger *zap.Logger) *GenAIResponder {
	return &GenAIResponder{gen: gen, logger: utils.OrNop(logger)}
}

// Respond implements Responder.
func (r *GenAIResponder) Respond(ctx context.Context, message string) Reply {
	text, err := r.gen.Generate(ctx, message)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty response from model")
	}
	if err != nil {
		r.logger.Warn("generative reply failed", zap.Error(err))
		return Reply{Text: errorText(err)}
	}
	return Reply{Text: text, Matched: true, Confidence: 1}
}

// Reply answers message with text only.
func (r *GenAIResponder) Reply(ctx context.Context, message string) string {
	return r.Respond(ctx, message).Text
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	content := genai.NewContentFromText(prompt, genai.RoleUser)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}
