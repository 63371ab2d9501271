package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
)

const (
	defaultModel      = "claude-sonnet-4-5"
	defaultMaxTokens  = 2048
	defaultMaxRetries = 2
)

const systemPrompt = `You write short, plain-language descriptions of health conditions for a personal health dashboard.
Reply with a single JSON object and nothing else. Each key is one of the condition names you were given, spelled exactly as given.
Each value is one or two sentences describing the condition. Do not give medical advice or mention probabilities.`

var _ port.DescriptionGenerator = (*AnthropicGenerator)(nil)

// AnthropicGenerator implements port.DescriptionGenerator on the Anthropic
// Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// Option configures an AnthropicGenerator.
type Option func(*generatorConfig)

type generatorConfig struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	maxRetries int
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *generatorConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(c *generatorConfig) {
		c.baseURL = url
	}
}

// WithMaxTokens caps the output tokens of a single request.
func WithMaxTokens(n int) Option {
	return func(c *generatorConfig) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithMaxRetries sets the number of retries on transient API errors.
func WithMaxRetries(n int) Option {
	return func(c *generatorConfig) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// NewAnthropicGenerator creates a generator. It returns an error when apiKey
// is empty.
func NewAnthropicGenerator(apiKey string, opts ...Option) (*AnthropicGenerator, error) {
	cfg := generatorConfig{
		apiKey:     apiKey,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		maxRetries: defaultMaxRetries,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.apiKey == "" {
		return nil, errors.New("llm: ANTHROPIC_API_KEY not set")
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &AnthropicGenerator{
		client:    anthropic.NewClient(clientOpts...),
		model:     cfg.model,
		maxTokens: int64(cfg.maxTokens),
	}, nil
}

// Model returns the configured model name.
func (g *AnthropicGenerator) Model() string {
	return g.model
}

// Describe asks the model for one description per name. Keys the model
// invents are dropped and keys are mapped back to the requested spelling.
func (g *AnthropicGenerator) Describe(ctx context.Context, names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(names))),
		},
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: description request failed: %w", err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(variant.Text)
		}
	}

	return ParseDescriptions(content.String(), names)
}

func buildPrompt(names []string) string {
	var b strings.Builder
	b.WriteString("Describe these conditions:\n")
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseDescriptions extracts the JSON object from a model reply. Surrounding
// prose or code fences are ignored.
func ParseDescriptions(reply string, names []string) (map[string]string, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("llm: reply contains no JSON object")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("llm: failed to decode reply: %w", err)
	}

	wanted := make(map[string]string, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = n
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		name, ok := wanted[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			continue
		}
		text, ok := v.(string)
		if !ok {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			out[name] = text
		}
	}
	return out, nil
}
