package uniasset

import (
	"strings"
	"time"
)

// SeedAssets returns the demonstration portfolio.
func SeedAssets() []Asset {
	mk := func(id, platform string, pt ProductType, symbol, qty, price string, tags []string, change float64, created string) Asset {
		at, _ := time.Parse(time.RFC3339, created)
		q, p := mustAmount(qty), mustAmount(price)
		return Asset{
			ID:            id,
			Platform:      platform,
			ProductType:   pt,
			Symbol:        symbol,
			Quantity:      q,
			UnitPrice:     p,
			TotalValue:    q.Mul(p),
			Currency:      defaultCurrency,
			ExposureTags:  tags,
			Change24h:     &change,
			CreatedAt:     at,
			UpdateHistory: []ChangeRecord{},
		}
	}
	return []Asset{
		mk("1", "Fidelity", ProductStock, "NVDA", "50", "850", []string{"AI Hardware", "Semiconductors", "Growth"}, 3.2, "2024-01-15T09:00:00Z"),
		mk("2", "Coinbase", ProductCrypto, "ETH", "4.5", "3200", []string{"Crypto Layer 1", "Risk-on", "DeFi"}, -1.5, "2024-02-20T14:30:00Z"),
		mk("3", "Robinhood", ProductETF, "TLT", "200", "94", []string{"US Treasury", "Interest Rate Sensitive", "Defensive"}, 0.4, "2024-03-10T11:15:00Z"),
	}
}

// SeedEvents returns the demonstration market events.
func SeedEvents() []MarketEvent {
	return []MarketEvent{
		{
			ID:             "e1",
			Type:           EventPast,
			Title:          "Fed Holds Interest Rates Steady",
			Date:           "2024-05-01",
			AffectedAssets: []string{"TLT", "Growth Stocks"},
			ImpactStrength: ImpactHigh,
			Direction:      DirectionMixed,
			Reasoning:      "Jerome Powell signaled rates will stay higher for longer, suppressing bond prices but removing the immediate fear of a hike.",
		},
		{
			ID:             "e2",
			Type:           EventUpcoming,
			Title:          "NVIDIA Earnings Report",
			Date:           "2024-05-22",
			AffectedAssets: []string{"NVDA", "AI Hardware", "Nasdaq"},
			ImpactStrength: ImpactHigh,
			Direction:      DirectionNeutral,
			Reasoning:      "Market expectations are extremely high. Any miss in guidance could trigger a sector-wide correction in AI stocks.",
		},
		{
			ID:             "e3",
			Type:           EventUpcoming,
			Title:          "Ethereum ETF Decision Deadline",
			Date:           "2024-05-23",
			AffectedAssets: []string{"ETH", "Crypto"},
			ImpactStrength: ImpactMedium,
			Direction:      DirectionPositive,
			Reasoning:      "Speculation is mounting regarding the SEC approval of Spot ETH ETFs. Approval would likely lead to significant inflows.",
		},
	}
}

// NormalizeEvent validates a model-produced event and fills its id. Events
// without a title or with an unknown type are rejected.
func NormalizeEvent(e MarketEvent) (MarketEvent, bool) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return e, false
	}
	switch EventType(normalizeLabel(string(e.Type))) {
	case EventPast:
		e.Type = EventPast
	case EventUpcoming:
		e.Type = EventUpcoming
	default:
		return e, false
	}
	switch ImpactStrength(normalizeLabel(string(e.ImpactStrength))) {
	case ImpactHigh:
		e.ImpactStrength = ImpactHigh
	case ImpactMedium:
		e.ImpactStrength = ImpactMedium
	default:
		e.ImpactStrength = ImpactLow
	}
	switch ImpactDirection(normalizeLabel(string(e.Direction))) {
	case DirectionPositive:
		e.Direction = DirectionPositive
	case DirectionNegative:
		e.Direction = DirectionNegative
	case DirectionMixed:
		e.Direction = DirectionMixed
	default:
		e.Direction = DirectionNeutral
	}
	e.AffectedAssets = normalizeTags(e.AffectedAssets)
	if e.ID == "" {
		e.ID = newID()
	}
	return e, true
}

// mergeEventsByTitle appends incoming events whose titles are not present,
// including duplicates within incoming itself.
func mergeEventsByTitle(existing, incoming []MarketEvent) (merged, added []MarketEvent) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, e := range existing {
		seen[e.Title] = struct{}{}
	}
	merged = cloneEvents(existing)
	for _, e := range incoming {
		if _, dup := seen[e.Title]; dup {
			continue
		}
		seen[e.Title] = struct{}{}
		c := cloneEvent(e)
		merged = append(merged, c)
		added = append(added, c)
	}
	return merged, added
}

func cloneEvent(e MarketEvent) MarketEvent {
	e.AffectedAssets = append([]string(nil), e.AffectedAssets...)
	return e
}

func cloneEvents(in []MarketEvent) []MarketEvent {
	out := make([]MarketEvent, len(in))
	for i, e := range in {
		out[i] = cloneEvent(e)
	}
	return out
}
