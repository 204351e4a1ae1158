package uniasset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// setupTestCore opens a Core with an in-memory log and a zero-latency wallet
// service. The core is closed when the test ends.
func setupTestCore(t *testing.T, opts Options) *Core {
	t.Helper()
	if opts.Fetcher == nil {
		opts.Fetcher = MockWalletService{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	core, err := OpenWithOptions(opts)
	if err != nil {
		t.Fatalf("open core: %v", err)
	}
	t.Cleanup(func() { core.Close() })
	return core
}

func mustDraft(t *testing.T, symbol, qty, price string) AssetDraft {
	t.Helper()
	d := NewDraft()
	d.Symbol = symbol
	d.Quantity = mustAmount(qty)
	d.UnitPrice = mustAmount(price)
	return d
}

// gatedFetcher blocks the next fetch after arm until the gate is closed.
type gatedFetcher struct {
	mu      sync.Mutex
	gate    chan struct{}
	started chan struct{}
}

func (f *gatedFetcher) arm() (started, gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.started = make(chan struct{})
	return f.started, f.gate
}

func (f *gatedFetcher) FetchAssets(ctx context.Context, w Wallet) ([]Asset, error) {
	f.mu.Lock()
	gate, started := f.gate, f.started
	f.gate, f.started = nil, nil
	f.mu.Unlock()
	if gate != nil {
		close(started)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return SynthesizeHoldings(w, now()), nil
}

// failingFetcher fails for one address and synthesizes the rest.
type failingFetcher struct {
	address string
}

func (f failingFetcher) FetchAssets(_ context.Context, w Wallet) ([]Asset, error) {
	if w.Address == f.address {
		return nil, errors.New("explorer unreachable")
	}
	return SynthesizeHoldings(w, now()), nil
}

// fakeGateway is a scripted AIGateway.
type fakeGateway struct {
	available bool
	draft     AssetDraft
	answer    string
	events    []MarketEvent
	quote     Quote
	err       error

	mu       sync.Mutex
	requests []AdvisoryRequest
	block    chan struct{}
}

func (g *fakeGateway) Available() bool { return g.available }

func (g *fakeGateway) ParseAssetEntry(context.Context, string, *ImageInput) (AssetDraft, error) {
	return g.draft, g.err
}

func (g *fakeGateway) AdvisoryResponse(_ context.Context, req AdvisoryRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	block := g.block
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	return g.answer, g.err
}

func (g *fakeGateway) MarketInsights(context.Context, []Asset) ([]MarketEvent, error) {
	return g.events, g.err
}

func (g *fakeGateway) MarketData(context.Context, string) (Quote, error) {
	return g.quote, g.err
}

// switchFetcher starts failing for an address once fail is set.
type switchFetcher struct {
	fail string
}

func (f *switchFetcher) FetchAssets(_ context.Context, w Wallet) ([]Asset, error) {
	if f.fail != "" && w.Address == f.fail {
		return nil, errors.New("explorer unreachable")
	}
	return SynthesizeHoldings(w, now()), nil
}
