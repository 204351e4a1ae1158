package uniasset

import (
	"context"
	"errors"
	"fmt"
)

// SyncAllResult reports a sync-all run.
type SyncAllResult struct {
	Synced  int      `json:"synced"`
	Stale   []string `json:"stale"`
	Wallets []Wallet `json:"wallets"`
}

// Wallets lists connected wallets.
func (c *Core) Wallets() []Wallet {
	return c.store.Wallets()
}

// ConnectWallet validates and classifies an address, fetches its holdings
// and only then commits the wallet and its assets. chain may be empty to
// accept the classification.
func (c *Core) ConnectWallet(ctx context.Context, address string, chain Chain) (Wallet, []Asset, error) {
	address = normalizeAddress(address)
	if address == "" {
		return Wallet{}, nil, NewError(ErrCodeValidation, "address is required")
	}
	resolved, err := resolveChain(address, chain)
	if err != nil {
		return Wallet{}, nil, err
	}
	if c.store.HasAddress(address) {
		return Wallet{}, nil, NewError(ErrCodeDuplicate, "wallet already connected: "+address)
	}

	wallet := Wallet{ID: newID(), Address: address, Chain: resolved}
	holdings, err := c.fetchHoldings(ctx, wallet)
	if err != nil {
		return Wallet{}, nil, err
	}
	wallet.LastSynced = now()
	if _, err := c.store.AddWallet(wallet, holdings); err != nil {
		return Wallet{}, nil, err
	}
	c.summary.invalidate()
	c.logger.Info("wallet connected", "address", address, "chain", resolved, "assets", len(holdings))
	c.record(ctx, OperationLog{
		Operation: OpWalletConnect,
		Wallet:    stringPtr(address),
		Details:   stringPtr(fmt.Sprintf("%s, %d assets", resolved, len(holdings))),
		NewValue:  amountPtr(totalOf(holdings)),
	})
	return wallet, holdings, nil
}

// SyncWallet refetches one wallet and replaces its synced assets. A result
// that arrives after the wallet was removed or re-synced is discarded with
// ErrCodeStaleSync.
func (c *Core) SyncWallet(ctx context.Context, id string) (Wallet, []Asset, error) {
	ticket, err := c.store.BeginSync(id)
	if err != nil {
		return Wallet{}, nil, err
	}
	holdings, err := c.fetchHoldings(ctx, ticket.Wallet)
	if err != nil {
		return Wallet{}, nil, err
	}
	at := now()
	if err := c.store.CommitSync(SyncResult{Ticket: ticket, Holdings: holdings}, at); err != nil {
		c.logger.Warn("discarded stale sync result", "address", ticket.Wallet.Address)
		return Wallet{}, nil, err
	}
	c.summary.invalidate()
	c.record(ctx, OperationLog{
		Operation: OpWalletSync,
		Wallet:    stringPtr(ticket.Wallet.Address),
		Details:   stringPtr(fmt.Sprintf("%d assets", len(holdings))),
		NewValue:  amountPtr(totalOf(holdings)),
	})
	wallet := ticket.Wallet
	wallet.LastSynced = at
	return wallet, holdings, nil
}

// SyncAll refetches every wallet in connection order and commits all fresh
// results in one write. Any fetch failure aborts the run before the store is
// touched.
func (c *Core) SyncAll(ctx context.Context) (SyncAllResult, error) {
	tickets := c.store.BeginSyncAll()
	results := make([]SyncResult, 0, len(tickets))
	for _, t := range tickets {
		holdings, err := c.fetchHoldings(ctx, t.Wallet)
		if err != nil {
			return SyncAllResult{}, err
		}
		results = append(results, SyncResult{Ticket: t, Holdings: holdings})
	}
	synced, stale := c.store.CommitSyncBatch(results, now())
	if len(stale) > 0 {
		c.logger.Warn("discarded stale sync results", "addresses", stale)
	}
	if synced > 0 {
		c.summary.invalidate()
	}
	for _, r := range results {
		if containsString(stale, r.Ticket.Wallet.Address) {
			continue
		}
		c.record(ctx, OperationLog{
			Operation: OpWalletSync,
			Wallet:    stringPtr(r.Ticket.Wallet.Address),
			Details:   stringPtr(fmt.Sprintf("%d assets (sync all)", len(r.Holdings))),
			NewValue:  amountPtr(totalOf(r.Holdings)),
		})
	}
	if stale == nil {
		stale = []string{}
	}
	return SyncAllResult{Synced: synced, Stale: stale, Wallets: c.store.Wallets()}, nil
}

// RemoveWallet disconnects a wallet and deletes every asset carrying its
// address.
func (c *Core) RemoveWallet(ctx context.Context, id string) (Wallet, int, error) {
	wallet, removed, err := c.store.RemoveWallet(id)
	if err != nil {
		return Wallet{}, 0, err
	}
	c.summary.invalidate()
	c.logger.Info("wallet removed", "address", wallet.Address, "assets_removed", removed)
	c.record(ctx, OperationLog{
		Operation: OpWalletRemove,
		Wallet:    stringPtr(wallet.Address),
		Details:   stringPtr(fmt.Sprintf("%d assets removed", removed)),
	})
	return wallet, removed, nil
}

func (c *Core) fetchHoldings(ctx context.Context, wallet Wallet) ([]Asset, error) {
	holdings, err := c.fetcher.FetchAssets(ctx, wallet)
	if err != nil {
		c.logger.Warn("wallet fetch failed", "address", wallet.Address, "err", err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, WrapError(ErrCodeSyncFailed, "wallet sync cancelled", err)
		}
		return nil, WrapError(ErrCodeSyncFailed, "failed to sync wallet "+wallet.Address, err)
	}
	return holdings, nil
}

func totalOf(assets []Asset) Amount {
	values := make([]Amount, len(assets))
	for i, a := range assets {
		values[i] = a.TotalValue
	}
	return sumAmounts(values)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
