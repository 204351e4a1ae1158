package uniasset

import (
	"context"
	"fmt"
	"math"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"
)

// WalletFetcher loads the holdings of a wallet.
type WalletFetcher interface {
	FetchAssets(ctx context.Context, wallet Wallet) ([]Asset, error)
}

// DefaultSyncDelay models the latency of a chain explorer round trip.
const DefaultSyncDelay = time.Second

// quantityScale is the multiplier of the synthesized quantity function.
const quantityScale = 0.123

// expensiveTokenPrice marks tokens whose synthesized quantity is scaled down
// by 100 to keep notional values plausible.
var expensiveTokenPrice = decimal.NewFromInt(1000)

type demoToken struct {
	symbol string
	price  Amount
	qty    Amount
	tags   []string
}

type demoWallet struct {
	chain  Chain
	tokens []demoToken
}

type catalogToken struct {
	symbol string
	price  Amount
	tags   []string
}

func mustAmount(s string) Amount {
	return Amount{decimal.RequireFromString(s)}
}

// demoWallets are fixed datasets returned verbatim for their addresses.
var demoWallets = map[string]demoWallet{
	"0x1111111111111111111111111111111111111111": {
		chain: ChainEthereum,
		tokens: []demoToken{
			{"ETH", mustAmount("3250.00"), mustAmount("150.5"), []string{"Layer 1", "Staked"}},
			{"USDC", mustAmount("1.00"), mustAmount("500000"), []string{"Stablecoin", "Cash"}},
			{"MKR", mustAmount("2800.00"), mustAmount("45"), []string{"DeFi", "Governance"}},
			{"AAVE", mustAmount("115.20"), mustAmount("300"), []string{"DeFi", "Lending"}},
		},
	},
	"SolanaDemoAddress123456789": {
		chain: ChainSolana,
		tokens: []demoToken{
			{"SOL", mustAmount("148.50"), mustAmount("1250"), []string{"Layer 1", "High Speed"}},
			{"JUP", mustAmount("1.25"), mustAmount("50000"), []string{"DEX", "Aggregator"}},
			{"BONK", mustAmount("0.000025"), mustAmount("100000000"), []string{"Meme", "Solana"}},
		},
	},
	"bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh": {
		chain: ChainBitcoin,
		tokens: []demoToken{
			{"BTC", mustAmount("68500.00"), mustAmount("5.25"), []string{"Store of Value", "Layer 1"}},
		},
	},
}

// tokenCatalogs drive the synthesized holdings of non-demo addresses.
var tokenCatalogs = map[Chain][]catalogToken{
	ChainEthereum: {
		{"ETH", mustAmount("3200"), []string{"Layer 1", "Smart Contracts"}},
		{"USDC", mustAmount("1.00"), []string{"Stablecoin", "Cash Equivalent"}},
		{"LINK", mustAmount("18.50"), []string{"Oracle", "Infrastructure"}},
		{"UNI", mustAmount("12.20"), []string{"DeFi", "DEX"}},
		{"PEPE", mustAmount("0.000008"), []string{"Meme", "Speculative"}},
	},
	ChainSolana: {
		{"SOL", mustAmount("145.00"), []string{"Layer 1", "High Speed"}},
		{"JUP", mustAmount("1.20"), []string{"DeFi", "Aggregator"}},
		{"WIF", mustAmount("3.50"), []string{"Meme", "Solana Ecosystem"}},
		{"PYTH", mustAmount("0.45"), []string{"Oracle", "Data"}},
	},
	ChainBitcoin: {
		{"BTC", mustAmount("68500"), []string{"Store of Value", "Layer 1"}},
	},
	ChainPolygon: {
		{"MATIC", mustAmount("0.85"), []string{"Layer 2", "Scaling"}},
		{"WETH", mustAmount("3200"), []string{"Wrapped", "DeFi"}},
	},
}

// IsDemoAddress reports whether address has a fixed demonstration dataset.
func IsDemoAddress(address string) bool {
	_, ok := demoWallets[address]
	return ok
}

// MockWalletService simulates a chain explorer. Holdings are deterministic
// per (address, chain).
type MockWalletService struct {
	Delay time.Duration
}

// FetchAssets waits for the simulated latency and returns the wallet's
// holdings. It returns early with the context error when ctx is done.
func (s MockWalletService) FetchAssets(ctx context.Context, wallet Wallet) ([]Asset, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SynthesizeHoldings(wallet, now()), nil
}

// SynthesizeHoldings derives the holdings of a wallet without latency.
// Demo addresses return their dataset; any other address gets a seeded
// selection from its chain's token catalog (Ethereum when the chain is
// unknown).
func SynthesizeHoldings(wallet Wallet, at time.Time) []Asset {
	seed := addressSeed(wallet.Address)
	if demo, ok := demoWallets[wallet.Address]; ok {
		assets := make([]Asset, 0, len(demo.tokens))
		for idx, token := range demo.tokens {
			assets = append(assets, walletAsset(wallet, idx, token.symbol, token.qty, token.price, token.tags, seed, at))
		}
		return assets
	}

	catalog, ok := tokenCatalogs[wallet.Chain]
	if !ok {
		catalog = tokenCatalogs[ChainEthereum]
	}
	count := int(seed%4) + 1
	assets := make([]Asset, 0, count)
	for i := 0; i < count; i++ {
		token := catalog[int((seed+uint64(i))%uint64(len(catalog)))]
		qty := seededQuantity(seed, i, token.price)
		assets = append(assets, walletAsset(wallet, i, token.symbol, qty, token.price, token.tags, seed, at))
	}
	return assets
}

func walletAsset(wallet Wallet, idx int, symbol string, qty, price Amount, tags []string, seed uint64, at time.Time) Asset {
	change := seededChange(seed, idx)
	return Asset{
		ID:            fmt.Sprintf("%s-%s-%d", wallet.Address, symbol, idx),
		Platform:      "Wallet",
		ProductType:   ProductCrypto,
		Symbol:        symbol,
		Quantity:      qty,
		UnitPrice:     price,
		TotalValue:    qty.Mul(price).Round(2),
		Currency:      defaultCurrency,
		ExposureTags:  append([]string{"Crypto"}, tags...),
		Notes:         fmt.Sprintf("%s Wallet Import", wallet.Chain),
		Change24h:     &change,
		CreatedAt:     at,
		WalletAddress: wallet.Address,
		IsAutoSynced:  true,
		UpdateHistory: []ChangeRecord{},
	}
}

// addressSeed sums the UTF-16 code units of address, so the seed matches
// what a browser computes for the same string.
func addressSeed(address string) uint64 {
	var sum uint64
	for _, unit := range utf16.Encode([]rune(address)) {
		sum += uint64(unit)
	}
	return sum
}

// seededQuantity is (seed * (i+1) * 0.123) mod 1000, divided by 100 for
// tokens priced above 1000, rounded to 4 places.
func seededQuantity(seed uint64, i int, price Amount) Amount {
	q := math.Mod(float64(seed*uint64(i+1))*quantityScale, 1000)
	d := decimal.NewFromFloat(q)
	if price.Decimal.GreaterThan(expensiveTokenPrice) {
		d = d.Div(decimal.NewFromInt(100))
	}
	return Amount{d.Round(4)}
}

// seededChange draws a 24h change in [-5, 5) percent from a splitmix64
// stream keyed by seed and index.
func seededChange(seed uint64, idx int) float64 {
	x := splitmix64(seed ^ (uint64(idx+1) * 0x9e3779b97f4a7c15))
	unit := float64(x>>11) / float64(1<<53)
	return math.Round((unit*10-5)*100) / 100
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
