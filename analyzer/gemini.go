package analyzer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Generator produces free-form text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig configures the Gemini generator
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	SearchGrounding bool
}

// GeminiGenerator calls the Gemini API. The underlying client is created on
// first use and shared for the lifetime of the process.
type GeminiGenerator struct {
	config GeminiConfig
	log    zerolog.Logger

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiGenerator creates a generator; no network activity happens until Generate
func NewGeminiGenerator(config GeminiConfig, log zerolog.Logger) *GeminiGenerator {
	return &GeminiGenerator{
		config: config,
		log:    log.With().Str("provider", "gemini").Logger(),
	}
}

func (g *GeminiGenerator) init(ctx context.Context) error {
	g.once.Do(func() {
		clientConfig := &genai.ClientConfig{
			APIKey:  g.config.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if g.config.BaseURL != "" {
			clientConfig.HTTPOptions = genai.HTTPOptions{
				BaseURL: g.config.BaseURL,
			}
		}

		client, err := genai.NewClient(ctx, clientConfig)
		if err != nil {
			g.initErr = fmt.Errorf("failed to create Gemini client: %w", err)
			return
		}
		g.client = client
	})
	return g.initErr
}

// Generate sends prompt to the configured model in a single attempt
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.config.APIKey == "" {
		return "", newError(KindConfiguration, "API key is not configured", nil)
	}

	if err := g.init(ctx); err != nil {
		return "", newError(KindConfiguration, "client initialization failed", err)
	}

	config := &genai.GenerateContentConfig{}
	if g.config.SearchGrounding {
		config.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), config)
	if err != nil {
		g.log.Error().Err(err).Str("model", g.config.Model).Msg("Gemini generation failed")
		upstream := newError(KindUpstream, "generation failed", err)
		if looksLikeAuthFailure(err) {
			upstream.Public = userMessages[KindConfiguration]
		}
		return "", upstream
	}

	var content strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				content.WriteString(part.Text)
			}
		}
	}

	text := content.String()
	if strings.TrimSpace(text) == "" {
		return "", newError(KindUpstream, "no response from AI", nil)
	}
	return text, nil
}

func looksLikeAuthFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") ||
		strings.Contains(msg, "api_key") ||
		strings.Contains(msg, "permission_denied") ||
		strings.Contains(msg, "unauthenticated")
}
