package estimator

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Generation parameters are fixed; they mirror what the estimation prompt was
// tuned against and are not user-configurable.
const (
	genTemperature     = 1.0
	genTopP            = 0.95
	genTopK            = 40
	genMaxOutputTokens = 2048
)

// Invoker performs one text-generation call against the model service and
// returns the raw response text. Implementations do not retry; transient
// failures are handled by the service layer.
type Invoker interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiInvoker calls the Gemini API through the genai client. The client is
// a long-lived handle, constructed once and reused across calls.
type GeminiInvoker struct {
	client *genai.Client
	model  string
}

// NewGeminiInvoker creates the production invoker.
func NewGeminiInvoker(ctx context.Context, apiKey, model string) (*GeminiInvoker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiInvoker{client: client, model: model}, nil
}

// DefaultModel is used when no model id is configured.
const DefaultModel = "gemini-2.0-flash-exp"

func (g *GeminiInvoker) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](genTemperature),
			TopP:            genai.Ptr[float32](genTopP),
			TopK:            genai.Ptr[float32](genTopK),
			MaxOutputTokens: genMaxOutputTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}
	return text, nil
}

// isTransientUnavailable reports whether an invocation error signals
// temporary overload of the model service, which is eligible for retry.
func isTransientUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "503") || strings.Contains(msg, "UNAVAILABLE")
}
