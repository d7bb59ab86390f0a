// Package llm is the gateway to the chat-completion vendors behind the
// "Father" companion. Every call makes a single attempt; any failure is
// answered with a keyword-selected fallback message instead of an error.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGroq      Provider = "groq"
	ProviderGemini    Provider = "gemini"
)

// placeholderAPIKey is what unconfigured clients ship in their settings form.
const placeholderAPIKey = "YOUR_API_KEY_HERE"

// MaxHistoryTurns bounds how much of the transcript is sent to a vendor.
const MaxHistoryTurns = 6

const SystemPrompt = `Role: "Father", a loving, wise father figure.
Goal: Provide spiritual comfort via KJV Scripture.

Rules:
- Be empathetic & warm (use "beloved", "my child").
- Provide 1-3 relevant Bible verses (KJV).
- Be brief. 3 paragraphs max unless depth requested.
- Format: [Text] - [Reference] (e.g., 📖 Psalm 23:1).
- Tone: Encouraging, non-judgmental, wise.

Example Structure:
1. Warm acknowledgment.
2. 📖 [Verse] - [Ref]
3. Brief encouragement.`

var ErrUnsupportedProvider = errors.New("unsupported AI provider")

type providerSpec struct {
	defaultModel string
	baseURL      string
	timeout      time.Duration
}

var providerSpecs = map[Provider]providerSpec{
	ProviderOpenAI:    {defaultModel: "gpt-3.5-turbo", baseURL: "https://api.openai.com/v1", timeout: 10 * time.Second},
	ProviderGroq:      {defaultModel: "llama-3.1-70b-versatile", baseURL: "https://api.groq.com/openai/v1", timeout: 10 * time.Second},
	ProviderAnthropic: {defaultModel: "claude-3-5-sonnet-20241022", baseURL: "https://api.anthropic.com/v1", timeout: 15 * time.Second},
	ProviderGemini:    {defaultModel: "gemini-1.5-flash", timeout: 15 * time.Second},
}

// ParseProvider normalizes a provider name.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := providerSpecs[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// DefaultModel returns the model used when none is configured, or "" for an
// unknown provider.
func DefaultModel(p Provider) string {
	return providerSpecs[p].defaultModel
}

type Config struct {
	Provider Provider
	APIKey   string
	Model    string
}

func (c Config) Configured() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != placeholderAPIKey
}

// Status is the shareable view of a Config; it never carries the key.
type Status struct {
	Provider   Provider `json:"provider"`
	Model      string   `json:"model"`
	Configured bool     `json:"configured"`
}

// Turn is one prior message of the conversation. Role is "user" or "assistant".
type Turn struct {
	Role    string
	Content string
}

type Source string

const (
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

type Reply struct {
	Text     string   `json:"text"`
	Source   Source   `json:"source"`
	Provider Provider `json:"provider,omitempty"`
}

type Gateway struct {
	mu     sync.RWMutex
	config Config

	httpClient *http.Client
	baseURLs   map[Provider]string
	timeout    time.Duration // overrides the per-provider timeout when set
	logger     *zap.Logger
}

type Option func(*Gateway)

// WithBaseURL points a provider at a different endpoint, e.g. a proxy.
func WithBaseURL(p Provider, url string) Option {
	return func(g *Gateway) { g.baseURLs[p] = strings.TrimRight(url, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

func NewGateway(cfg Config, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		httpClient: &http.Client{},
		baseURLs:   make(map[Provider]string),
		logger:     logger,
	}
	for p, spec := range providerSpecs {
		g.baseURLs[p] = spec.baseURL
	}
	for _, opt := range opts {
		opt(g)
	}
	g.SetConfig(cfg)
	return g
}

// SetConfig replaces the vendor configuration. An empty model is replaced by
// the provider's default.
func (g *Gateway) SetConfig(cfg Config) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	g.mu.Lock()
	g.config = cfg
	g.mu.Unlock()
}

func (g *Gateway) Status() Status {
	cfg := g.Config()
	return Status{Provider: cfg.Provider, Model: cfg.Model, Configured: cfg.Configured()}
}

// Config returns a copy of the active configuration, key included.
func (g *Gateway) Config() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.config
}

// GetResponse asks the configured vendor to answer userText in the Father
// persona. It never fails: missing credentials, an unknown provider, transport
// errors and timeouts all produce the fallback reply.
func (g *Gateway) GetResponse(ctx context.Context, userText string, history []Turn) Reply {
	cfg := g.Config()
	if !cfg.Configured() {
		g.logger.Debug("AI provider not configured, using fallback response")
		return fallbackReply(userText)
	}

	spec, ok := providerSpecs[cfg.Provider]
	if !ok {
		g.logger.Warn("Unsupported AI provider, using fallback response", zap.String("provider", string(cfg.Provider)))
		return fallbackReply(userText)
	}

	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}

	timeout := spec.timeout
	if g.timeout > 0 {
		timeout = g.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var (
		text string
		err  error
	)
	switch cfg.Provider {
	case ProviderOpenAI, ProviderGroq:
		text, err = g.completeOpenAI(ctx, g.baseURLs[cfg.Provider], cfg, history, userText)
	case ProviderAnthropic:
		text, err = g.completeAnthropic(ctx, g.baseURLs[cfg.Provider], cfg, history, userText)
	case ProviderGemini:
		text, err = g.completeGemini(ctx, cfg, history, userText)
	}

	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		g.logger.Warn("AI provider request failed, using fallback response",
			zap.String("provider", string(cfg.Provider)),
			zap.String("model", cfg.Model),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return fallbackReply(userText)
	}

	g.logger.Debug("AI provider responded",
		zap.String("provider", string(cfg.Provider)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)))
	return Reply{Text: strings.TrimSpace(text), Source: SourceProvider, Provider: cfg.Provider}
}

func fallbackReply(userText string) Reply {
	return Reply{Text: FallbackResponse(userText), Source: SourceFallback}
}
