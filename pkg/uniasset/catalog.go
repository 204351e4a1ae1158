package uniasset

import "strings"

// maxSuggestions caps autocomplete results.
const maxSuggestions = 5

// SymbolInfo is a well-known ticker offered by autocomplete.
type SymbolInfo struct {
	Symbol      string      `json:"symbol"`
	Name        string      `json:"name"`
	ProductType ProductType `json:"product_type"`
}

var commonSymbols = []SymbolInfo{
	{"AAPL", "Apple Inc.", ProductStock},
	{"NVDA", "NVIDIA Corp.", ProductStock},
	{"MSFT", "Microsoft Corp.", ProductStock},
	{"AMZN", "Amazon.com Inc.", ProductStock},
	{"GOOGL", "Alphabet Inc.", ProductStock},
	{"TSLA", "Tesla Inc.", ProductStock},
	{"META", "Meta Platforms", ProductStock},
	{"AMD", "Advanced Micro Devices", ProductStock},
	{"COIN", "Coinbase Global", ProductStock},
	{"PLTR", "Palantir Technologies", ProductStock},
	{"BTC", "Bitcoin", ProductCrypto},
	{"ETH", "Ethereum", ProductCrypto},
	{"SOL", "Solana", ProductCrypto},
	{"DOGE", "Dogecoin", ProductCrypto},
	{"SPY", "SPDR S&P 500 ETF", ProductETF},
	{"QQQ", "Invesco QQQ", ProductETF},
	{"VOO", "Vanguard S&P 500", ProductETF},
	{"TLT", "iShares 20+ Year Treasury", ProductETF},
	{"GLD", "SPDR Gold Shares", ProductCommodities},
	{"USDC", "USD Coin", ProductCashYield},
}

var commonPlatforms = []string{
	"Robinhood", "Fidelity", "Coinbase", "Binance", "E*TRADE",
	"Charles Schwab", "Interactive Brokers", "Webull", "Kraken", "Vanguard",
}

// SuggestSymbols returns up to 5 catalog entries whose symbol or upper-cased
// name contains the upper-cased query.
func SuggestSymbols(query string) []SymbolInfo {
	q := strings.ToUpper(strings.TrimSpace(query))
	out := []SymbolInfo{}
	if q == "" {
		return out
	}
	for _, s := range commonSymbols {
		if strings.Contains(s.Symbol, q) || strings.Contains(strings.ToUpper(s.Name), q) {
			out = append(out, s)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// SuggestPlatforms returns up to 5 platforms containing query, ignoring case.
func SuggestPlatforms(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	if q == "" {
		return out
	}
	for _, p := range commonPlatforms {
		if strings.Contains(strings.ToLower(p), q) {
			out = append(out, p)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// LookupSymbol returns the catalog entry for symbol.
func LookupSymbol(symbol string) (SymbolInfo, bool) {
	s := normalizeSymbol(symbol)
	for _, info := range commonSymbols {
		if info.Symbol == s {
			return info, true
		}
	}
	return SymbolInfo{}, false
}

// Symbols returns the whole catalog.
func Symbols() []SymbolInfo {
	return append([]SymbolInfo(nil), commonSymbols...)
}
