package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/okhval/hindsite/internal/model"
)

// Hinter asks an LLM to guess the blogging platform behind a URL when
// no agent recognized it. Output is advisory only: it is appended to
// the needs-attention suggestions and never influences agent selection
// or collection.
type Hinter struct {
	client *openai.Client
	model  string
}

// NewHinter creates a hinter from configuration. Returns nil (hinting
// disabled) when no provider is configured.
func NewHinter(cfg model.LLMConfig) (*Hinter, error) {
	if cfg.Provider == "" {
		return nil, nil
	}
	if cfg.Provider != "openai" {
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", cfg.Provider)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	hintModel := cfg.Model
	if hintModel == "" {
		hintModel = openai.GPT4oMini
	}

	return &Hinter{
		client: openai.NewClientWithConfig(clientConfig),
		model:  hintModel,
	}, nil
}

// IsAvailable checks that the provider is reachable.
func (h *Hinter) IsAvailable(ctx context.Context) bool {
	_, err := h.client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "LLM availability check failed: %v\n", err)
		return false
	}
	return true
}

const hintPrompt = `You are helping a blog-archive collector identify an unrecognized
publishing platform. Given the URL below, state in one short paragraph which
blogging platform or CMS most likely powers it and what archive-discovery route
(feed path, sitemap, API endpoint) would be worth trying. If you cannot tell,
say so plainly.

URL: %s`

// PlatformHint returns a one-paragraph platform guess for the URL.
func (h *Hinter) PlatformHint(ctx context.Context, url string) (string, error) {
	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     h.model,
		MaxTokens: 200,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(hintPrompt, url)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("platform hint: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("platform hint: empty response")
	}

	return "LLM hint: " + strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
