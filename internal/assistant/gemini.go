package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/erazemk/sinalizacao/internal/model"
)

const (
	DefaultEndpoint    = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion  = "v1beta"
	DefaultModel       = "gemini-3-pro-preview"
	DefaultTemperature = 0.4
)

// Asker answers a question about items.
type Asker interface {
	Ask(ctx context.Context, items []model.Item, question string) (string, error)
}

// Gemini asks the Gemini API through the genai SDK.
type Gemini struct {
	Endpoint    string
	Model       string
	APIKey      string
	Temperature float32
	Client      *http.Client
}

// NewGemini creates a client with the default endpoint, model and
// temperature.
func NewGemini(apiKey string, client *http.Client) *Gemini {
	return &Gemini{
		Endpoint:    DefaultEndpoint,
		Model:       DefaultModel,
		APIKey:      apiKey,
		Temperature: DefaultTemperature,
		Client:      client,
	}
}

func (g *Gemini) client(ctx context.Context) (*genai.Client, error) {
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     g.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.Client,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    endpoint,
			APIVersion: DefaultAPIVersion,
		},
	})
}

// Ask sends the question with the stock context. A response without text
// yields EmptyAnswerMessage.
func (g *Gemini) Ask(ctx context.Context, items []model.Item, question string) (string, error) {
	if g == nil || g.APIKey == "" {
		return "", fmt.Errorf("assistant: api key not configured")
	}
	modelName := g.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := g.client(ctx)
	if err != nil {
		return "", fmt.Errorf("creating gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(question), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction(items), genai.RoleUser),
		Temperature:       genai.Ptr(g.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}

	answer := resp.Text()
	if strings.TrimSpace(answer) == "" {
		return EmptyAnswerMessage, nil
	}
	return answer, nil
}

// AskOrFallback never fails: provider errors are logged and replaced with
// FallbackMessage.
func AskOrFallback(ctx context.Context, a Asker, items []model.Item, question string) (answer string, ok bool) {
	if a == nil {
		return FallbackMessage, false
	}
	answer, err := a.Ask(ctx, items, question)
	if err != nil {
		slog.Error("assistant request failed", "error", err)
		return FallbackMessage, false
	}
	return answer, true
}
