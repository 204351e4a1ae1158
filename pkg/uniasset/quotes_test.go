package uniasset

import (
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// routeHTTPClient answers by URL host.
type routeHTTPClient struct {
	mu     sync.Mutex
	status int
	bodies map[string]string
	calls  int
}

func (m *routeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(m.bodies[req.URL.Host])),
		Header:     make(http.Header),
	}, nil
}

func newTestQuoteFetcher(client HTTPDoer, gw AIGateway) *quoteFetcher {
	return newQuoteFetcher(quoteFetcherOptions{
		CacheTTL:      time.Minute,
		FailThreshold: 2,
		FailWindow:    time.Minute,
		Cooldown:      time.Hour,
		HTTPTimeout:   time.Second,
		HTTPClient:    client,
		Gateway:       gw,
	})
}

func TestQuoteFromCoinGecko(t *testing.T) {
	client := &routeHTTPClient{bodies: map[string]string{
		"api.coingecko.com": `{"usd-coin":{"usd":0.9998}}`,
	}}
	qf := newTestQuoteFetcher(client, nil)
	q, err := qf.fetch(context.Background(), "usdc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.Symbol != "USDC" || q.Source != SourceCoinGecko || q.ProductType != ProductCrypto || q.Name != "USD Coin" {
		t.Fatalf("quote = %+v", q)
	}
	if !q.Price.Equal(mustAmount("0.9998")) {
		t.Fatalf("price = %s", q.Price)
	}

	again, err := qf.fetch(context.Background(), "USDC")
	if err != nil || !again.Cached || client.calls != 1 {
		t.Fatalf("second fetch = %+v, %v, calls %d", again, err, client.calls)
	}
}

func TestQuoteFromYahoo(t *testing.T) {
	client := &routeHTTPClient{bodies: map[string]string{
		"query1.finance.yahoo.com": `{"chart":{"result":[{"meta":{"regularMarketPrice":190.5,"longName":"Apple Inc.","instrumentType":"EQUITY"}}]}}`,
	}}
	q, err := newTestQuoteFetcher(client, nil).fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.Source != SourceYahoo || q.Name != "Apple Inc." || q.ProductType != ProductStock || !q.Price.Equal(mustAmount("190.5")) {
		t.Fatalf("quote = %+v", q)
	}
}

func TestQuoteYahooFallsBackToLastClose(t *testing.T) {
	client := &routeHTTPClient{bodies: map[string]string{
		"query1.finance.yahoo.com": `{"chart":{"result":[{"meta":{},"indicators":{"quote":[{"close":[10.5,11.25]}]}}]}}`,
	}}
	q, err := newTestQuoteFetcher(client, nil).fetch(context.Background(), "TLT")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !q.Price.Equal(mustAmount("11.25")) || q.ProductType != ProductETF {
		t.Fatalf("quote = %+v", q)
	}
}

func TestQuoteRejectsNonFinitePrices(t *testing.T) {
	tests := []struct {
		name string
		host string
		body string
	}{
		{"coingecko nan", "api.coingecko.com", `{"bitcoin":{"usd":"NaN"}}`},
		{"yahoo infinity", "query1.finance.yahoo.com", `{"chart":{"result":[{"meta":{"regularMarketPrice":"Infinity"}}]}}`},
		{"yahoo close inf", "query1.finance.yahoo.com", `{"chart":{"result":[{"meta":{},"indicators":{"quote":[{"close":["-Inf"]}]}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &routeHTTPClient{bodies: map[string]string{tt.host: tt.body}}
			symbol := "AAPL"
			if tt.host == "api.coingecko.com" {
				symbol = "BTC"
			}
			if q, err := newTestQuoteFetcher(client, nil).fetch(context.Background(), symbol); err == nil {
				t.Fatalf("fetch = %+v, want error", q)
			}
		})
	}
}

func TestParseFloatNonFinite(t *testing.T) {
	for _, v := range []any{"NaN", "nan", "Infinity", "-Inf", math.Inf(1), math.NaN()} {
		if _, err := parseFloat(v); err == nil {
			t.Fatalf("parseFloat(%v) accepted a non-finite value", v)
		}
	}
	if f, err := parseFloat("12.5"); err != nil || f != 12.5 {
		t.Fatalf("parseFloat(12.5) = %v, %v", f, err)
	}
}

func TestQuoteFallsBackToAI(t *testing.T) {
	client := &routeHTTPClient{status: http.StatusInternalServerError}
	gw := &fakeGateway{available: true, quote: Quote{Price: mustAmount("42"), Name: "Example"}}
	q, err := newTestQuoteFetcher(client, gw).fetch(context.Background(), "XYZ")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.Source != SourceAI || !q.Price.Equal(mustAmount("42")) {
		t.Fatalf("quote = %+v", q)
	}
}

func TestQuoteCircuitBreaker(t *testing.T) {
	client := &routeHTTPClient{status: http.StatusBadGateway}
	qf := newTestQuoteFetcher(client, nil)
	for i := 0; i < 2; i++ {
		if _, err := qf.fetch(context.Background(), "AAPL"); !IsErrorCode(err, ErrCodeNotFound) {
			t.Fatalf("attempt %d err = %v", i, err)
		}
	}
	if qf.serviceAvailable(SourceYahoo) {
		t.Fatalf("expected Yahoo in cooldown")
	}
	calls := client.calls
	if _, err := qf.fetch(context.Background(), "AAPL"); err == nil {
		t.Fatalf("expected failure during cooldown")
	}
	if client.calls != calls {
		t.Fatalf("cooled-down source was called")
	}

	qf.recordServiceSuccess(SourceYahoo)
	if !qf.serviceAvailable(SourceYahoo) {
		t.Fatalf("success should reset the breaker")
	}
}

func TestApplyQuote(t *testing.T) {
	d := mustDraft(t, "AAPL", "10", "0")
	d.Notes = "long term"
	out := ApplyQuote(d, Quote{Price: mustAmount("190"), Name: "Apple Inc.", ProductType: ProductStock})
	if !out.TotalValue.Equal(mustAmount("1900")) || out.ProductType != ProductStock || out.Notes != "long term (Apple Inc.)" {
		t.Fatalf("draft = %+v", out)
	}
	fresh := ApplyQuote(mustDraft(t, "AAPL", "1", "0"), Quote{Price: mustAmount("190"), Name: "Apple Inc."})
	if fresh.Notes != "Apple Inc." {
		t.Fatalf("notes = %q", fresh.Notes)
	}
	unchanged := ApplyQuote(d, Quote{})
	if !unchanged.UnitPrice.IsZero() {
		t.Fatalf("zero quote applied")
	}
}
