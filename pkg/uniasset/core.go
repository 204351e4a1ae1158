package uniasset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryDB keeps the operation log in memory.
const MemoryDB = ":memory:"

// Options controls Core initialization.
type Options struct {
	// DBPath is the operation-log database; empty means MemoryDB.
	DBPath string
	Logger *slog.Logger
	// Gateway is the AI backend; nil disables AI features.
	Gateway AIGateway
	// Fetcher loads wallet holdings; nil uses MockWalletService with SyncDelay.
	Fetcher   WalletFetcher
	SyncDelay time.Duration
	// SeedDemo loads the demonstration assets and events.
	SeedDemo bool

	QuoteCacheTTL      time.Duration
	QuoteFailThreshold int
	QuoteFailWindow    time.Duration
	QuoteCooldown      time.Duration
	HTTPTimeout        time.Duration
	HTTPClient         HTTPDoer
}

// Core is the portfolio state of one session together with the services
// that feed it.
type Core struct {
	db      *sql.DB
	dbPath  string
	logger  *slog.Logger
	store   *Store
	fetcher WalletFetcher
	gateway AIGateway
	quotes  *quoteFetcher
	summary summaryCache

	advisorOnce sync.Once
	advisor     *Advisor
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = MemoryDB
	}
	if dbPath != MemoryDB {
		dbPath = filepath.Clean(dbPath)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}
	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	gateway := opts.Gateway
	if gateway == nil {
		gateway = disabledGateway{}
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = MockWalletService{Delay: defaultDuration(opts.SyncDelay, DefaultSyncDelay)}
	}

	store := NewStore()
	if opts.SeedDemo {
		store.Seed(SeedAssets(), SeedEvents())
	}

	return &Core{
		db:      db,
		dbPath:  dbPath,
		logger:  logger,
		store:   store,
		fetcher: fetcher,
		gateway: gateway,
		quotes: newQuoteFetcher(quoteFetcherOptions{
			Logger:        logger,
			CacheTTL:      defaultDuration(opts.QuoteCacheTTL, 30*time.Second),
			FailThreshold: defaultInt(opts.QuoteFailThreshold, 3),
			FailWindow:    defaultDuration(opts.QuoteFailWindow, 60*time.Second),
			Cooldown:      defaultDuration(opts.QuoteCooldown, 120*time.Second),
			HTTPTimeout:   defaultDuration(opts.HTTPTimeout, 10*time.Second),
			HTTPClient:    opts.HTTPClient,
			Gateway:       gateway,
		}),
	}, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the operation-log database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Store exposes the underlying state store.
func (c *Core) Store() *Store {
	return c.store
}

// AIAvailable reports whether an AI credential is configured.
func (c *Core) AIAvailable() bool {
	return c.gateway.Available()
}

// Assets lists the portfolio.
func (c *Core) Assets() []Asset {
	return c.store.Assets()
}

// Asset returns one asset.
func (c *Core) Asset(id string) (Asset, error) {
	return c.store.Asset(id)
}

// AddAsset submits a draft.
func (c *Core) AddAsset(ctx context.Context, d AssetDraft) (Asset, error) {
	asset, err := c.store.AddAsset(d)
	if err != nil {
		return Asset{}, err
	}
	c.summary.invalidate()
	c.logger.Info("asset added", "id", asset.ID, "symbol", asset.Symbol, "total", asset.TotalValue.String())
	c.record(ctx, OperationLog{
		Operation: OpAssetAdd,
		Symbol:    stringPtr(asset.Symbol),
		Details:   stringPtr(fmt.Sprintf("%s %s on %s", asset.Quantity, asset.Symbol, asset.Platform)),
		NewValue:  amountPtr(asset.TotalValue),
	})
	return asset, nil
}

// UpdateAsset edits an asset and records the tracked changes in its history.
func (c *Core) UpdateAsset(ctx context.Context, id string, d AssetDraft) (Asset, error) {
	before, err := c.store.Asset(id)
	if err != nil {
		return Asset{}, err
	}
	asset, changes, err := c.store.UpdateAsset(id, d)
	if err != nil {
		return Asset{}, err
	}
	c.summary.invalidate()
	fields := make([]string, 0, len(changes))
	for _, ch := range changes {
		fields = append(fields, fmt.Sprintf("%s: %s -> %s", ch.Field, ch.OldValue, ch.NewValue))
	}
	c.record(ctx, OperationLog{
		Operation: OpAssetUpdate,
		Symbol:    stringPtr(asset.Symbol),
		Wallet:    stringPtr(asset.WalletAddress),
		Details:   stringPtr(strings.Join(fields, "; ")),
		OldValue:  amountPtr(before.TotalValue),
		NewValue:  amountPtr(asset.TotalValue),
	})
	return asset, nil
}

// DeleteAsset removes an asset.
func (c *Core) DeleteAsset(ctx context.Context, id string) error {
	removed, err := c.store.DeleteAsset(id)
	if err != nil {
		return err
	}
	c.summary.invalidate()
	c.record(ctx, OperationLog{
		Operation: OpAssetDelete,
		Symbol:    stringPtr(removed.Symbol),
		Wallet:    stringPtr(removed.WalletAddress),
		OldValue:  amountPtr(removed.TotalValue),
	})
	return nil
}

// ParseDraft asks the AI gateway to read free text and/or an image and
// merges the result onto current.
func (c *Core) ParseDraft(ctx context.Context, current AssetDraft, text string, image *ImageInput) (AssetDraft, error) {
	if strings.TrimSpace(text) == "" && (image == nil || len(image.Data) == 0) {
		return current, NewError(ErrCodeValidation, "text or image is required")
	}
	parsed, err := c.gateway.ParseAssetEntry(ctx, text, image)
	if err != nil {
		c.logger.Warn("asset parse failed", "err", err)
		var coded *Error
		if errors.As(err, &coded) {
			return current, err
		}
		return current, WrapError(ErrCodeAIUnavailable, "failed to interpret asset", err)
	}
	return MergeParsedDraft(current, parsed), nil
}

// LookupQuote returns market data for a symbol.
func (c *Core) LookupQuote(ctx context.Context, symbol string) (Quote, error) {
	return c.quotes.fetch(ctx, symbol)
}

// Dashboard returns the overview, memoized per store version.
func (c *Core) Dashboard() DashboardSummary {
	version := c.store.Version()
	if cached, ok := c.summary.get(version); ok {
		return cached
	}
	assets, events := c.store.Snapshot()
	summary := BuildDashboard(assets, len(c.store.Wallets()), events)
	c.summary.set(version, summary)
	return summary
}

// Events lists market events in arrival order.
func (c *Core) Events() []MarketEvent {
	return c.store.Events()
}

// EventFeed returns events split by type with their exposure.
func (c *Core) EventFeed() EventFeed {
	assets, events := c.store.Snapshot()
	return BuildEventFeed(events, assets)
}

// EventExposure returns the portfolio exposure of one event.
func (c *Core) EventExposure(id string) (Exposure, error) {
	event, err := c.store.Event(id)
	if err != nil {
		return Exposure{}, err
	}
	return MatchExposure(event, c.store.Assets()), nil
}

// RefreshInsights asks the gateway for events about the current portfolio
// and appends the ones with new titles. An empty portfolio or a missing
// credential adds nothing; gateway errors leave the events untouched.
func (c *Core) RefreshInsights(ctx context.Context) ([]MarketEvent, error) {
	assets := c.store.Assets()
	if len(assets) == 0 || !c.gateway.Available() {
		return []MarketEvent{}, nil
	}
	raw, err := c.gateway.MarketInsights(ctx, assets)
	if err != nil {
		c.logger.Warn("market insight refresh failed", "err", err)
		return nil, WrapError(ErrCodeAIUnavailable, "market insight refresh failed", err)
	}
	valid := make([]MarketEvent, 0, len(raw))
	for _, e := range raw {
		if n, ok := NormalizeEvent(e); ok {
			valid = append(valid, n)
		}
	}
	added := c.store.MergeEvents(valid)
	if len(added) > 0 {
		c.summary.invalidate()
	}
	c.logger.Info("market insights refreshed", "received", len(raw), "added", len(added))
	return added, nil
}

// Advisor returns the chat transcript of the session. The welcome message
// reflects the portfolio at first access.
func (c *Core) Advisor() *Advisor {
	c.advisorOnce.Do(func() {
		c.advisor = NewAdvisor(c.gateway, c.logger, c.store.Assets())
	})
	return c.advisor
}

// SendMessage asks the advisor a question about the current portfolio.
func (c *Core) SendMessage(ctx context.Context, text string) (ChatMessage, error) {
	assets, events := c.store.Snapshot()
	return c.Advisor().Send(ctx, text, assets, events)
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
