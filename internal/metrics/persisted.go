package metrics

// persisted forwards to a Metrics implementation and mirrors the counters
// into a MetricsStore, so /stats survives restarts.
type persisted struct {
	Metrics
	store MetricsStore
}

// WithStore returns m with every counter also incremented in store.
func WithStore(m Metrics, store MetricsStore) Metrics {
	return &persisted{Metrics: m, store: store}
}

func (p *persisted) IncPolls() {
	p.Metrics.IncPolls()
	p.store.Increment(KeyPolls)
}

func (p *persisted) IncPollFailures() {
	p.Metrics.IncPollFailures()
	p.store.Increment(KeyPollFailures)
}

func (p *persisted) IncTrophyChange(category string) {
	p.Metrics.IncTrophyChange(category)
	p.store.Increment(KeyTrophyChanges)
	p.store.Increment(keyCategoryPrefix + category)
}

func (p *persisted) IncNotifSent() {
	p.Metrics.IncNotifSent()
	p.store.Increment(KeyNotifSent)
}

func (p *persisted) IncNotifFailed() {
	p.Metrics.IncNotifFailed()
	p.store.Increment(KeyNotifFailed)
}

func (p *persisted) IncSummaryRuns() {
	p.Metrics.IncSummaryRuns()
	p.store.Increment(KeySummaryRuns)
}
