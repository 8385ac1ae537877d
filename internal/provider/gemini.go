package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider uses the Google GenAI SDK against the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini client. An empty baseURL uses the public API.
func NewGemini(ctx context.Context, baseURL, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Name() string { return "google" }

func (g *GeminiProvider) ModelName() string { return g.model }

func (g *GeminiProvider) Models(_ context.Context) ([]string, error) {
	return []string{
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
		"gemini-1.5-pro",
	}, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, msgs []Message) (<-chan StreamChunk, error) {
	var system []string
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: defaultMaxTokens,
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	// Pull the first response here so request failures reach the caller
	// (and WithRetry) instead of arriving as an in-stream error.
	next, stop := iter.Pull2(g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg))
	resp, err, ok := next()
	if ok && err != nil {
		stop()
		return nil, geminiError(err)
	}

	ch := make(chan StreamChunk, 64)
	go func() {
		defer close(ch)
		defer stop()
		for ok {
			if err != nil {
				ch <- StreamChunk{Error: geminiError(err), Done: true}
				return
			}
			if text := resp.Text(); text != "" {
				ch <- StreamChunk{Delta: text}
			}
			resp, err, ok = next()
		}
		ch <- StreamChunk{Done: true}
	}()
	return ch, nil
}

// geminiError maps API errors onto StatusError so retries see the HTTP code.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: "google", Code: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("gemini: %w", err)
}
