package uniasset

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Store owns the asset, wallet and event collections of a session. Every
// mutation goes through one of its methods and is applied under a single
// lock, whole or not at all. Readers get deep copies.
type Store struct {
	mu      sync.Mutex
	assets  []Asset
	wallets []Wallet
	events  []MarketEvent
	// syncGen is the current sync generation per wallet id.
	syncGen map[string]uint64
	version uint64
	change  func() float64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		syncGen: map[string]uint64{},
		change:  func() float64 { return rand.Float64()*5 - 2.5 },
	}
}

// Version increases with every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Seed replaces the collections wholesale; used for demo data.
func (s *Store) Seed(assets []Asset, events []MarketEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = cloneAssets(assets)
	s.events = cloneEvents(events)
	s.version++
}

// Assets returns every asset in insertion order.
func (s *Store) Assets() []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAssets(s.assets)
}

// Asset returns the asset with id.
func (s *Store) Asset(id string) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOfAsset(s.assets, id)
	if idx < 0 {
		return Asset{}, NewError(ErrCodeNotFound, "asset not found: "+id)
	}
	return s.assets[idx].clone(), nil
}

// AddAsset finalizes a draft and appends the new asset.
func (s *Store) AddAsset(d AssetDraft) (Asset, error) {
	final, err := d.Finalize()
	if err != nil {
		return Asset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	asset := newAssetFromDraft(final, now(), s.change())
	s.assets = append(s.assets, asset)
	s.version++
	return asset.clone(), nil
}

// UpdateAsset applies an edit to an existing asset and returns the tracked
// field changes it produced.
func (s *Store) UpdateAsset(id string, d AssetDraft) (Asset, []FieldChange, error) {
	final, err := d.Finalize()
	if err != nil {
		return Asset{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOfAsset(s.assets, id)
	if idx < 0 {
		return Asset{}, nil, NewError(ErrCodeNotFound, "asset not found: "+id)
	}
	edited, changes := applyEdit(s.assets[idx], final, now())
	s.assets[idx] = edited
	s.version++
	return edited.clone(), changes, nil
}

// DeleteAsset removes an asset.
func (s *Store) DeleteAsset(id string) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOfAsset(s.assets, id)
	if idx < 0 {
		return Asset{}, NewError(ErrCodeNotFound, "asset not found: "+id)
	}
	removed := s.assets[idx]
	s.assets = append(s.assets[:idx:idx], s.assets[idx+1:]...)
	s.version++
	return removed, nil
}

// Wallets returns the connected wallets in connection order.
func (s *Store) Wallets() []Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Wallet, len(s.wallets))
	copy(out, s.wallets)
	return out
}

// Wallet returns the wallet with id.
func (s *Store) Wallet(id string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOfWallet(s.wallets, id)
	if idx < 0 {
		return Wallet{}, NewError(ErrCodeNotFound, "wallet not found: "+id)
	}
	return s.wallets[idx], nil
}

// HasAddress reports whether a wallet with address is connected.
func (s *Store) HasAddress(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOfAddress(s.wallets, address) >= 0
}

// AddWallet connects a wallet together with its first synced holdings.
// A wallet whose address is already connected is rejected.
func (s *Store) AddWallet(w Wallet, holdings []Asset) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOfAddress(s.wallets, w.Address) >= 0 {
		return Wallet{}, NewError(ErrCodeDuplicate, "wallet already connected: "+w.Address)
	}
	s.wallets = append(s.wallets, w)
	s.syncGen[w.ID] = 0
	s.assets = replaceWalletAssets(s.assets, w.Address, holdings)
	s.version++
	return w, nil
}

// RemoveWallet deletes a wallet and every asset carrying its address. Any
// sync still in flight for it becomes stale.
func (s *Store) RemoveWallet(id string) (Wallet, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOfWallet(s.wallets, id)
	if idx < 0 {
		return Wallet{}, 0, NewError(ErrCodeNotFound, "wallet not found: "+id)
	}
	w := s.wallets[idx]
	s.wallets = append(s.wallets[:idx:idx], s.wallets[idx+1:]...)
	delete(s.syncGen, id)
	var removed int
	s.assets, removed = removeWalletAssets(s.assets, w.Address)
	s.version++
	return w, removed, nil
}

// SyncTicket identifies one sync attempt of a wallet.
type SyncTicket struct {
	Wallet     Wallet
	Generation uint64
}

// BeginSync starts a sync of the wallet and supersedes any earlier attempt.
func (s *Store) BeginSync(id string) (SyncTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOfWallet(s.wallets, id)
	if idx < 0 {
		return SyncTicket{}, NewError(ErrCodeNotFound, "wallet not found: "+id)
	}
	s.syncGen[id]++
	return SyncTicket{Wallet: s.wallets[idx], Generation: s.syncGen[id]}, nil
}

// BeginSyncAll starts a sync of every connected wallet.
func (s *Store) BeginSyncAll() []SyncTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	tickets := make([]SyncTicket, 0, len(s.wallets))
	for _, w := range s.wallets {
		s.syncGen[w.ID]++
		tickets = append(tickets, SyncTicket{Wallet: w, Generation: s.syncGen[w.ID]})
	}
	return tickets
}

// SyncResult pairs a ticket with the holdings fetched for it.
type SyncResult struct {
	Ticket   SyncTicket
	Holdings []Asset
}

// CommitSync replaces the wallet's synced assets with fresh holdings. It
// fails with ErrCodeStaleSync when the wallet was removed or a newer sync
// started after the ticket was issued.
func (s *Store) CommitSync(result SyncResult, at time.Time) error {
	committed, _ := s.CommitSyncBatch([]SyncResult{result}, at)
	if committed == 0 {
		return NewError(ErrCodeStaleSync, "sync result discarded for "+result.Ticket.Wallet.Address)
	}
	return nil
}

// CommitSyncBatch applies every fresh result in one write and returns how
// many were applied and the addresses whose results were stale.
func (s *Store) CommitSyncBatch(results []SyncResult, at time.Time) (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stale []string
	committed := 0
	for _, r := range results {
		id := r.Ticket.Wallet.ID
		idx := indexOfWallet(s.wallets, id)
		gen, ok := s.syncGen[id]
		if idx < 0 || !ok || gen != r.Ticket.Generation {
			stale = append(stale, r.Ticket.Wallet.Address)
			continue
		}
		s.assets = replaceWalletAssets(s.assets, s.wallets[idx].Address, r.Holdings)
		s.wallets[idx].LastSynced = at
		committed++
	}
	if committed > 0 {
		s.version++
	}
	return committed, stale
}

// Events returns the market events in arrival order.
func (s *Store) Events() []MarketEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.events)
}

// Event returns the event with id.
func (s *Store) Event(id string) (MarketEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			return cloneEvent(e), nil
		}
	}
	return MarketEvent{}, NewError(ErrCodeNotFound, "event not found: "+id)
}

// MergeEvents appends the events whose titles are not known yet and returns
// the ones added.
func (s *Store) MergeEvents(incoming []MarketEvent) []MarketEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, added := mergeEventsByTitle(s.events, incoming)
	s.events = merged
	if len(added) > 0 {
		s.version++
	}
	return cloneEvents(added)
}

// Snapshot returns a consistent copy of the assets and events.
func (s *Store) Snapshot() ([]Asset, []MarketEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAssets(s.assets), cloneEvents(s.events)
}

func replaceWalletAssets(assets []Asset, address string, fresh []Asset) []Asset {
	kept, _ := removeWalletAssets(assets, address)
	for _, a := range fresh {
		c := a.clone()
		c.WalletAddress = address
		kept = append(kept, c)
	}
	return kept
}

func removeWalletAssets(assets []Asset, address string) ([]Asset, int) {
	kept := make([]Asset, 0, len(assets))
	removed := 0
	for _, a := range assets {
		if a.FromWallet() && a.WalletAddress == address {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}

func indexOfAsset(assets []Asset, id string) int {
	for i, a := range assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func indexOfWallet(wallets []Wallet, id string) int {
	for i, w := range wallets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func indexOfAddress(wallets []Wallet, address string) int {
	for i, w := range wallets {
		if w.Address == address {
			return i
		}
	}
	return -1
}

func cloneAssets(in []Asset) []Asset {
	out := make([]Asset, len(in))
	for i, a := range in {
		out[i] = a.clone()
	}
	return out
}
