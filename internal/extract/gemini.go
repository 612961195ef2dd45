package extract

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is used when GEMINI_MODEL is unset.
const DefaultModel = "gemini-2.5-flash"

// GeminiModel calls the Gemini API with the ticket response schema.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// TicketSchema is the structured output contract sent with every request.
func TicketSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"date": {
				Type:        genai.TypeString,
				Description: "The date of ticket issuance in YYYY-MM-DD format.",
			},
			"ticketCount": {
				Type:        genai.TypeNumber,
				Description: "Number of tickets issued.",
			},
			"rate": {
				Type:        genai.TypeNumber,
				Description: "The commission rate per ticket. Usually 50 or 100.",
			},
			"subject": {
				Type:        genai.TypeString,
				Description: "A short descriptive subject for this entry.",
			},
		},
		Required: []string{"date", "ticketCount", "rate"},
	}
}

func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   TicketSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("generate content with %s: %w", g.model, err)
	}
	return resp.Text(), nil
}

// Name returns the configured model identifier.
func (g *GeminiModel) Name() string {
	return g.model
}
