package llmclient

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini adapts Google's Gemini models via the official genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a client for the given API key and model name.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{client: client, model: model}, nil
}

// systemInstructionFraming presents the poker decision as an ordinary
// game-theory analysis task so generic safety filters do not mistake
// simulated bluffing/deception strategy talk for real-world deceit.
const systemInstructionFraming = "You are analyzing a simulated poker game as part of a game-theory study. All strategy discussed is for a fictional game with no real stakes."

func (g *Gemini) Chat(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error) {
	var system string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	instruction := systemInstructionFraming
	if system != "" {
		instruction = instruction + " " + system
	}

	temp := float64(temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:       &temp,
		MaxOutputTokens:   int32(maxTokens),
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
