package uniasset

import "sort"

// maxUpcomingRisks caps the risk list of the dashboard.
const maxUpcomingRisks = 3

// Exposure is the part of a portfolio an event touches.
type Exposure struct {
	Event         MarketEvent `json:"event"`
	MatchedAssets []Asset     `json:"matched_assets"`
	ExposureValue Amount      `json:"exposure_value"`
	MatchedLabels []string    `json:"matched_labels"`
}

// MatchExposure returns every asset whose symbol is listed by the event or
// whose exposure tags intersect the event's affected assets, with the summed
// total value. Labels compare exactly.
func MatchExposure(event MarketEvent, assets []Asset) Exposure {
	affected := make(map[string]struct{}, len(event.AffectedAssets))
	for _, label := range event.AffectedAssets {
		affected[label] = struct{}{}
	}
	out := Exposure{Event: cloneEvent(event), MatchedAssets: []Asset{}, MatchedLabels: []string{}}
	hit := map[string]struct{}{}
	var values []Amount
	for _, a := range assets {
		matched := false
		if _, ok := affected[a.Symbol]; ok {
			matched = true
			hit[a.Symbol] = struct{}{}
		}
		for _, tag := range a.ExposureTags {
			if _, ok := affected[tag]; ok {
				matched = true
				hit[tag] = struct{}{}
			}
		}
		if matched {
			out.MatchedAssets = append(out.MatchedAssets, a.clone())
			values = append(values, a.TotalValue)
		}
	}
	for _, label := range event.AffectedAssets {
		if _, ok := hit[label]; ok {
			out.MatchedLabels = append(out.MatchedLabels, label)
		}
	}
	out.ExposureValue = sumAmounts(values)
	return out
}

// EventFeed is the intelligence view: events split by type, each with its
// exposure.
type EventFeed struct {
	Past     []Exposure `json:"past"`
	Upcoming []Exposure `json:"upcoming"`
}

// BuildEventFeed splits events into past and upcoming, keeping their order.
func BuildEventFeed(events []MarketEvent, assets []Asset) EventFeed {
	feed := EventFeed{Past: []Exposure{}, Upcoming: []Exposure{}}
	for _, e := range events {
		x := MatchExposure(e, assets)
		if e.Type == EventPast {
			feed.Past = append(feed.Past, x)
		} else {
			feed.Upcoming = append(feed.Upcoming, x)
		}
	}
	return feed
}

// AllocationSlice is the value held in one product type.
type AllocationSlice struct {
	ProductType ProductType `json:"product_type"`
	Value       Amount      `json:"value"`
	Percent     float64     `json:"percent"`
	Count       int         `json:"count"`
}

// DashboardSummary aggregates the portfolio for the overview screen.
type DashboardSummary struct {
	TotalValue     Amount            `json:"total_value"`
	TotalDisplay   string            `json:"total_display"`
	AssetCount     int               `json:"asset_count"`
	WalletCount    int               `json:"wallet_count"`
	Allocation     []AllocationSlice `json:"allocation"`
	UpcomingRisks  []Exposure        `json:"upcoming_risks"`
	WeightedChange float64           `json:"weighted_change_24h"`
}

// BuildDashboard derives the summary. Allocation is ordered by value
// descending; risks are the first 3 upcoming high-impact events.
func BuildDashboard(assets []Asset, wallets int, events []MarketEvent) DashboardSummary {
	values := make([]Amount, 0, len(assets))
	byType := map[ProductType]*AllocationSlice{}
	var weighted float64
	for _, a := range assets {
		values = append(values, a.TotalValue)
		slice, ok := byType[a.ProductType]
		if !ok {
			slice = &AllocationSlice{ProductType: a.ProductType}
			byType[a.ProductType] = slice
		}
		slice.Value = slice.Value.Add(a.TotalValue)
		slice.Count++
		if a.Change24h != nil {
			weighted += a.TotalValue.Float64() * *a.Change24h
		}
	}
	total := sumAmounts(values)

	summary := DashboardSummary{
		TotalValue:    total,
		TotalDisplay:  FormatMoney(total, defaultCurrency),
		AssetCount:    len(assets),
		WalletCount:   wallets,
		Allocation:    []AllocationSlice{},
		UpcomingRisks: []Exposure{},
	}
	totalF := total.Float64()
	for _, pt := range ProductTypes {
		if slice, ok := byType[pt]; ok {
			summary.Allocation = append(summary.Allocation, *slice)
			delete(byType, pt)
		}
	}
	for _, slice := range byType {
		summary.Allocation = append(summary.Allocation, *slice)
	}
	for i := range summary.Allocation {
		if totalF > 0 {
			summary.Allocation[i].Percent = roundTo(summary.Allocation[i].Value.Float64()/totalF*100, 2)
		}
	}
	sort.SliceStable(summary.Allocation, func(i, j int) bool {
		return summary.Allocation[i].Value.GreaterThan(summary.Allocation[j].Value.Decimal)
	})
	if totalF > 0 {
		summary.WeightedChange = roundTo(weighted/totalF, 2)
	}

	for _, e := range events {
		if e.Type != EventUpcoming || e.ImpactStrength != ImpactHigh {
			continue
		}
		summary.UpcomingRisks = append(summary.UpcomingRisks, MatchExposure(e, assets))
		if len(summary.UpcomingRisks) == maxUpcomingRisks {
			break
		}
	}
	return summary
}
