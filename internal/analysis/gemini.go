package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the slice of the genai client the analyzer needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model through the Gemini API.
type Gemini struct {
	models generator
	model  string
	config *genai.GenerateContentConfig
}

// NewGemini creates a client for the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrDisabled
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing Gemini client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models generator, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		models: models,
		model:  model,
		config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: "You write brief, factual portfolio commentary for a single user. Never give tax or legal advice."}}},
		},
	}
}

// Analyze sends prompt as a single user turn and returns the text parts of the first candidate.
func (g *Gemini) Analyze(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("generate content with %s: %w", g.model, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}
