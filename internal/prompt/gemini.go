package prompt

import (
	"context"
	"strings"

	"github.com/dmorgan81/imagine/internal/log"
	"google.golang.org/genai"
)

// ContentGenerator is the slice of *genai.Models used for enhancement.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiEnhancer struct {
	Models ContentGenerator
	Model  string
}

func NewGeminiEnhancer(ctx context.Context, apiKey, model string) (*GeminiEnhancer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiEnhancer{Models: client.Models, Model: model}, nil
}

func (e *GeminiEnhancer) Enhance(ctx context.Context, prompt string, style Style) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("gemini").With("model", e.Model)
	log.Info("requesting prompt enhancement via gemini")

	resp, err := e.Models.GenerateContent(ctx, e.Model, genai.Text(userInstruction(prompt, style)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errMissingContent
	}
	return strings.TrimSpace(resp.Text()), nil
}
