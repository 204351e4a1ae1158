// Package gateway talks to generative model providers on behalf of the
// portfolio: asset parsing, advisory answers, market insights and quote
// fallback.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"uniasset/pkg/uniasset"
)

// Provider names.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default models per provider.
const (
	defaultGeminiModel    = "gemini-2.5-flash"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
)

const (
	defaultTimeout    = 60 * time.Second
	aiMaxOutputTokens = 2048
	historyTurns      = 5
	insightCount      = 3
)

const advisorSystemPrompt = "You are a sophisticated financial analyst AI helper."

// Config selects and authenticates a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Client implements uniasset.AIGateway.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

var _ uniasset.AIGateway = (*Client)(nil)

// New returns a client for cfg. An empty provider means Gemini.
func New(cfg Config) *Client {
	cfg.Provider = NormalizeProvider(cfg.Provider)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel(cfg.Provider)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, logger: logger}
}

// NormalizeProvider maps a provider name onto a supported one.
func NormalizeProvider(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderAnthropic, "claude":
		return ProviderAnthropic
	default:
		return ProviderGemini
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return defaultOpenAIModel
	case ProviderAnthropic:
		return defaultAnthropicModel
	}
	return defaultGeminiModel
}

// Provider returns the configured provider.
func (c *Client) Provider() string { return c.cfg.Provider }

// Model returns the configured model.
func (c *Client) Model() string { return c.cfg.Model }

// Available reports whether a credential is configured.
func (c *Client) Available() bool {
	return c != nil && c.cfg.APIKey != ""
}

type completionRequest struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
	Image        *uniasset.ImageInput
	// JSON asks for a JSON document; Schema constrains it where supported.
	JSON   bool
	Schema *genai.Schema
	Logger *slog.Logger
}

var (
	geminiCompletion    = requestGemini
	openAICompletion    = requestOpenAI
	anthropicCompletion = requestAnthropic
)

func (c *Client) complete(ctx context.Context, req completionRequest) (string, error) {
	if !c.Available() {
		return "", uniasset.NewError(uniasset.ErrCodeAIUnavailable, "AI API key not configured")
	}
	req.APIKey = c.cfg.APIKey
	req.Model = c.cfg.Model
	req.BaseURL = c.cfg.BaseURL
	req.Logger = c.logger

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	logAIPromptDebug(c.logger, c.cfg.Provider, req.Model, req.SystemPrompt, req.UserPrompt)
	var (
		content string
		err     error
	)
	switch c.cfg.Provider {
	case ProviderOpenAI:
		content, err = openAICompletion(ctx, req)
	case ProviderAnthropic:
		content, err = anthropicCompletion(ctx, req)
	default:
		content, err = geminiCompletion(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.cfg.Provider, err)
	}
	return strings.TrimSpace(content), nil
}

// ParseAssetEntry extracts a draft from free text and/or an image.
func (c *Client) ParseAssetEntry(ctx context.Context, text string, image *uniasset.ImageInput) (uniasset.AssetDraft, error) {
	prompt := fmt.Sprintf(`Extract asset details from this user input: %q.
Return a JSON object with the keys platform, productType, symbol, quantity, unitPrice, totalValue, currency, exposureTags.
If a field is missing, omit it or use a sensible default (e.g., currency USD).
productType must be one of %s.
For 'exposureTags', infer 2-3 tags like 'US Tech', 'Crypto', 'Safe Haven' based on the asset.`,
		text, strings.Join(productTypeNames(), ", "))
	if image != nil {
		prompt += "\nThe attached image is a brokerage or wallet screenshot; read the position from it."
	}
	content, err := c.complete(ctx, completionRequest{
		SystemPrompt: "You convert portfolio descriptions into structured data. Answer with JSON only.",
		UserPrompt:   prompt,
		Image:        image,
		JSON:         true,
		Schema:       assetSchema(),
	})
	if err != nil {
		return uniasset.AssetDraft{}, err
	}
	draft, err := parseAssetDraft(content)
	if err != nil {
		c.logger.Warn("asset parse returned unusable JSON", "err", err)
		return uniasset.AssetDraft{}, err
	}
	return draft, nil
}

// AdvisoryResponse answers a question about the portfolio.
func (c *Client) AdvisoryResponse(ctx context.Context, req uniasset.AdvisoryRequest) (string, error) {
	return c.complete(ctx, completionRequest{
		SystemPrompt: advisorSystemPrompt,
		UserPrompt:   buildAdvisoryPrompt(req),
	})
}

// MarketInsights generates events (1 past, 2 upcoming) that would move the
// portfolio.
func (c *Client) MarketInsights(ctx context.Context, portfolio []uniasset.Asset) ([]uniasset.MarketEvent, error) {
	if len(portfolio) == 0 {
		return []uniasset.MarketEvent{}, nil
	}
	symbols := make([]string, 0, len(portfolio))
	for _, a := range portfolio {
		symbols = append(symbols, a.Symbol)
	}
	prompt := fmt.Sprintf(`Generate %d realistic market events (1 past, 2 upcoming) that would specifically impact this portfolio: %s.
Make them sound professional (e.g. Fed decisions, Earnings, Geopolitical).
Return a JSON array of objects with the keys type (past|upcoming), title, date (YYYY-MM-DD), affectedAssets (symbols or themes), impactStrength (low|medium|high), direction (positive|negative|mixed|neutral), reasoning.`,
		insightCount, strings.Join(symbols, ", "))
	content, err := c.complete(ctx, completionRequest{
		SystemPrompt: "You are a market strategist. Answer with JSON only.",
		UserPrompt:   prompt,
		JSON:         true,
		Schema:       eventsSchema(),
	})
	if err != nil {
		return nil, err
	}
	return parseEvents(content)
}

// MarketData asks the model for the latest known price of a symbol.
func (c *Client) MarketData(ctx context.Context, symbol string) (uniasset.Quote, error) {
	prompt := fmt.Sprintf(`Provide the latest known market data for the ticker %q.
Return a JSON object with the keys price (number, USD), name (full instrument name) and productType (one of %s).`,
		symbol, strings.Join(productTypeNames(), ", "))
	content, err := c.complete(ctx, completionRequest{
		SystemPrompt: "You are a market data assistant. Answer with JSON only.",
		UserPrompt:   prompt,
		JSON:         true,
		Schema:       quoteSchema(),
	})
	if err != nil {
		return uniasset.Quote{}, err
	}
	return parseQuote(content)
}

func buildAdvisoryPrompt(req uniasset.AdvisoryRequest) string {
	holdings := make([]string, 0, len(req.Portfolio))
	for _, a := range req.Portfolio {
		holdings = append(holdings, fmt.Sprintf("%s %s (%s) [%s]",
			a.Quantity.String(), a.Symbol, uniasset.FormatMoney(a.TotalValue, a.Currency), strings.Join(a.ExposureTags, ", ")))
	}
	portfolio := strings.Join(holdings, "; ")
	if portfolio == "" {
		portfolio = "Empty Portfolio"
	}

	events := make([]string, 0, len(req.Events))
	for _, e := range req.Events {
		events = append(events, fmt.Sprintf("[%s] %s (%s): Impacts %s",
			strings.ToUpper(string(e.Type)), e.Title, e.Date, strings.Join(e.AffectedAssets, ", ")))
	}

	history := req.History
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	turns := make([]string, 0, len(history))
	for _, m := range history {
		turns = append(turns, fmt.Sprintf("%s: %s", m.Role, m.Text))
	}

	var b strings.Builder
	b.WriteString("You are an AI Investment Advisor for the Unified Asset Intelligence Platform.\n\n")
	b.WriteString("User Context:\n")
	fmt.Fprintf(&b, "- Current Portfolio: %s\n", portfolio)
	fmt.Fprintf(&b, "- Market Events:\n%s\n\n", strings.Join(events, "\n"))
	fmt.Fprintf(&b, "Chat History:\n%s\n\n", strings.Join(turns, "\n"))
	fmt.Fprintf(&b, "User Query: %q\n\n", req.Query)
	b.WriteString(`Task:
Provide a concise, professional, and data-backed answer.
1. Analyze the user's exposure relative to their portfolio.
2. Reference specific market events if relevant.
3. Do not give financial advice as absolute truth, but as risk analysis.
4. Keep it under 200 words unless detailed explanation is requested.`)
	return b.String()
}

func productTypeNames() []string {
	names := make([]string, len(uniasset.ProductTypes))
	for i, pt := range uniasset.ProductTypes {
		names[i] = string(pt)
	}
	return names
}

func logAIPromptDebug(logger *slog.Logger, provider, model, systemPrompt, userPrompt string) {
	if logger == nil || !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	logger.Debug("ai prompt",
		"provider", provider,
		"model", model,
		"system_prompt_len", len(systemPrompt),
		"user_prompt", truncate(userPrompt, 2000),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
