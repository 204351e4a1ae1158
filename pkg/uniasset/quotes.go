package uniasset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// maxResponseSize bounds quote API bodies.
const maxResponseSize = 1 << 20

// Quote sources.
const (
	SourceCoinGecko = "CoinGecko"
	SourceYahoo     = "Yahoo Finance"
	SourceAI        = "AI"
)

// ErrNoQuote reports that no source returned a price.
var ErrNoQuote = errors.New("no quote available")

// Quote is the market data of a symbol.
type Quote struct {
	Symbol      string      `json:"symbol"`
	Price       Amount      `json:"price"`
	Name        string      `json:"name,omitempty"`
	ProductType ProductType `json:"product_type,omitempty"`
	Source      string      `json:"source"`
	Cached      bool        `json:"cached"`
}

// ApplyQuote prices a draft from a quote: unit price and total follow the
// quote, the product type is adopted when present and the name is appended
// to the notes.
func ApplyQuote(d AssetDraft, q Quote) AssetDraft {
	if !q.Price.IsPositive() {
		return d
	}
	d = d.WithUnitPrice(q.Price)
	if q.ProductType != "" {
		d.ProductType = q.ProductType
	}
	if q.Name != "" {
		if d.Notes != "" {
			d.Notes = fmt.Sprintf("%s (%s)", d.Notes, q.Name)
		} else {
			d.Notes = q.Name
		}
	}
	return d
}

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// coinGeckoIDs maps tickers to CoinGecko coin ids.
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"USDC":  "usd-coin",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"PEPE":  "pepe",
	"JUP":   "jupiter-exchange-solana",
	"WIF":   "dogwifcoin",
	"PYTH":  "pyth-network",
	"MATIC": "matic-network",
	"WETH":  "weth",
	"MKR":   "maker",
	"AAVE":  "aave",
	"BONK":  "bonk",
}

type quoteFetcherOptions struct {
	Logger        *slog.Logger
	CacheTTL      time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
	HTTPTimeout   time.Duration
	HTTPClient    HTTPDoer
	Gateway       AIGateway
}

type quoteFetcher struct {
	logger        *slog.Logger
	cacheTTL      time.Duration
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration
	client        HTTPDoer
	gateway       AIGateway

	cacheMu      sync.RWMutex
	cache        map[string]quoteEntry
	circuitMu    sync.Mutex
	serviceState map[string]*serviceState
}

type quoteEntry struct {
	quote Quote
	ts    time.Time
}

type serviceState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

func newQuoteFetcher(opts quoteFetcherOptions) *quoteFetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.HTTPTimeout}
	}
	gateway := opts.Gateway
	if gateway == nil {
		gateway = disabledGateway{}
	}
	return &quoteFetcher{
		logger:        logger,
		cacheTTL:      opts.CacheTTL,
		failThreshold: opts.FailThreshold,
		failWindow:    opts.FailWindow,
		cooldown:      opts.Cooldown,
		client:        client,
		gateway:       gateway,
		cache:         map[string]quoteEntry{},
		serviceState:  map[string]*serviceState{},
	}
}

type fetchAttempt struct {
	name string
	fn   func(ctx context.Context) (Quote, error)
}

func (qf *quoteFetcher) fetch(ctx context.Context, symbol string) (Quote, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return Quote{}, NewError(ErrCodeValidation, "symbol is required")
	}
	if q, ok := qf.getCached(symbol); ok {
		q.Cached = true
		return q, nil
	}

	var failures []string
	for _, attempt := range qf.buildAttempts(symbol) {
		if !qf.serviceAvailable(attempt.name) {
			failures = append(failures, attempt.name+": cooling down")
			continue
		}
		q, err := attempt.fn(ctx)
		if err == nil && q.Price.IsPositive() {
			qf.recordServiceSuccess(attempt.name)
			q.Symbol = symbol
			q.Source = attempt.name
			qf.setCached(symbol, q)
			return q, nil
		}
		if err == nil {
			err = ErrNoQuote
		}
		failures = append(failures, fmt.Sprintf("%s: %v", attempt.name, err))
		if !IsErrorCode(err, ErrCodeAIUnavailable) {
			qf.recordServiceFailure(attempt.name)
		}
	}
	qf.logger.Warn("quote lookup failed", "symbol", symbol, "attempts", failures)
	return Quote{}, WrapError(ErrCodeNotFound, "no quote for "+symbol+": "+strings.Join(failures, "; "), ErrNoQuote)
}

func (qf *quoteFetcher) buildAttempts(symbol string) []fetchAttempt {
	var attempts []fetchAttempt
	if _, ok := coinGeckoIDs[symbol]; ok {
		attempts = append(attempts, fetchAttempt{SourceCoinGecko, func(ctx context.Context) (Quote, error) {
			return qf.coinGeckoFetch(ctx, symbol)
		}})
	} else {
		attempts = append(attempts, fetchAttempt{SourceYahoo, func(ctx context.Context) (Quote, error) {
			return qf.yahooFetch(ctx, symbol)
		}})
	}
	if qf.gateway.Available() {
		attempts = append(attempts, fetchAttempt{SourceAI, func(ctx context.Context) (Quote, error) {
			return qf.gateway.MarketData(ctx, symbol)
		}})
	}
	return attempts
}

func (qf *quoteFetcher) coinGeckoFetch(ctx context.Context, symbol string) (Quote, error) {
	id := coinGeckoIDs[symbol]
	u := "https://api.coingecko.com/api/v3/simple/price?vs_currencies=usd&ids=" + url.QueryEscape(id)
	doc, err := qf.getJSON(ctx, u)
	if err != nil {
		return Quote{}, err
	}
	price, err := lookupFloat(doc, fmt.Sprintf(`$["%s"].usd`, id))
	if err != nil {
		return Quote{}, err
	}
	q := Quote{Price: NewAmount(price), ProductType: ProductCrypto}
	if info, ok := LookupSymbol(symbol); ok {
		q.Name = info.Name
	}
	return q, nil
}

func (qf *quoteFetcher) yahooFetch(ctx context.Context, symbol string) (Quote, error) {
	u := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=1d", url.PathEscape(symbol))
	doc, err := qf.getJSON(ctx, u)
	if err != nil {
		return Quote{}, err
	}
	price, err := lookupFloat(doc, "$.chart.result[0].meta.regularMarketPrice")
	if err != nil || price <= 0 {
		closes, cerr := jsonpath.Get("$.chart.result[0].indicators.quote[0].close", doc)
		if cerr != nil {
			return Quote{}, ErrNoQuote
		}
		list, _ := closes.([]any)
		if len(list) == 0 {
			return Quote{}, ErrNoQuote
		}
		if price, err = parseFloat(list[len(list)-1]); err != nil {
			return Quote{}, err
		}
	}
	q := Quote{Price: NewAmount(price)}
	if name, err := jsonpath.Get("$.chart.result[0].meta.longName", doc); err == nil {
		q.Name, _ = name.(string)
	}
	if kind, err := jsonpath.Get("$.chart.result[0].meta.instrumentType", doc); err == nil {
		if s, ok := kind.(string); ok {
			q.ProductType = yahooProductType(s)
		}
	}
	if info, ok := LookupSymbol(symbol); ok {
		if q.Name == "" {
			q.Name = info.Name
		}
		if q.ProductType == "" {
			q.ProductType = info.ProductType
		}
	}
	return q, nil
}

func yahooProductType(instrument string) ProductType {
	switch strings.ToUpper(instrument) {
	case "EQUITY":
		return ProductStock
	case "ETF", "MUTUALFUND":
		return ProductETF
	case "CRYPTOCURRENCY":
		return ProductCrypto
	case "FUTURE", "OPTION":
		return ProductDerivatives
	case "MONEYMARKET":
		return ProductCashYield
	}
	return ""
}

func (qf *quoteFetcher) getJSON(ctx context.Context, u string) (any, error) {
	body, err := qf.httpGet(ctx, u, map[string]string{"User-Agent": "Mozilla/5.0", "Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (qf *quoteFetcher) httpGet(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := qf.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

func (qf *quoteFetcher) getCached(symbol string) (Quote, bool) {
	qf.cacheMu.RLock()
	defer qf.cacheMu.RUnlock()
	entry, ok := qf.cache[symbol]
	if !ok || nowFunc().Sub(entry.ts) > qf.cacheTTL {
		return Quote{}, false
	}
	return entry.quote, true
}

func (qf *quoteFetcher) setCached(symbol string, q Quote) {
	qf.cacheMu.Lock()
	defer qf.cacheMu.Unlock()
	qf.cache[symbol] = quoteEntry{quote: q, ts: nowFunc()}
}

func (qf *quoteFetcher) serviceAvailable(service string) bool {
	qf.circuitMu.Lock()
	defer qf.circuitMu.Unlock()
	state, ok := qf.serviceState[service]
	if !ok {
		return true
	}
	return nowFunc().After(state.cooldownUntil)
}

func (qf *quoteFetcher) recordServiceFailure(service string) {
	qf.circuitMu.Lock()
	defer qf.circuitMu.Unlock()
	state := qf.serviceState[service]
	t := nowFunc()
	if state == nil {
		state = &serviceState{firstFailAt: t}
		qf.serviceState[service] = state
	}
	if t.Sub(state.firstFailAt) > qf.failWindow {
		state.failCount = 0
		state.firstFailAt = t
	}
	state.failCount++
	if state.failCount >= qf.failThreshold {
		state.cooldownUntil = t.Add(qf.cooldown)
	}
}

func (qf *quoteFetcher) recordServiceSuccess(service string) {
	qf.circuitMu.Lock()
	defer qf.circuitMu.Unlock()
	delete(qf.serviceState, service)
}

func lookupFloat(doc any, path string) (float64, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return 0, err
	}
	return parseFloat(v)
}

func parseFloat(value any) (float64, error) {
	f, err := parseNumber(value)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", value)
	}
	return f, nil
}

func parseNumber(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, errors.New("no value")
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		if v == "" {
			return 0, errors.New("empty")
		}
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
