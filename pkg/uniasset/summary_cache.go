package uniasset

import "sync"

// summaryCache memoizes the dashboard for one store version.
type summaryCache struct {
	mu      sync.RWMutex
	summary DashboardSummary
	version uint64
	valid   bool
}

func (c *summaryCache) get(version uint64) (DashboardSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.version != version {
		return DashboardSummary{}, false
	}
	return c.summary.clone(), true
}

func (c *summaryCache) set(version uint64, summary DashboardSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = summary.clone()
	c.version = version
	c.valid = true
}

func (c *summaryCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = DashboardSummary{}
	c.valid = false
}

// clone copies the slices so callers cannot reach the cached summary.
func (d DashboardSummary) clone() DashboardSummary {
	out := d
	out.Allocation = make([]AllocationSlice, len(d.Allocation))
	copy(out.Allocation, d.Allocation)
	out.UpcomingRisks = make([]Exposure, len(d.UpcomingRisks))
	for i, e := range d.UpcomingRisks {
		e.Event = cloneEvent(e.Event)
		e.MatchedAssets = cloneAssets(e.MatchedAssets)
		labels := make([]string, len(e.MatchedLabels))
		copy(labels, e.MatchedLabels)
		e.MatchedLabels = labels
		out.UpcomingRisks[i] = e
	}
	return out
}
