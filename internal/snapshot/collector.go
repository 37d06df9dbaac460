package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stockrelay/internal/logger"
	"stockrelay/internal/provider"
)

// Collector fetches the latest quote for each ticker, one at a time.
type Collector struct {
	Provider provider.Provider
	Log      *zap.Logger
	// Now stamps last_updated. Defaults to time.Now.
	Now func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(p provider.Provider, log *zap.Logger) *Collector {
	return &Collector{Provider: p, Log: logger.OrNop(log), Now: time.Now}
}

// FetchAll fetches tickers sequentially and returns a snapshot holding the
// symbols that succeeded. Tickers with no data or a failed fetch are logged
// and skipped; they never abort the run. The timestamp is taken after the
// last fetch completes.
func (c *Collector) FetchAll(ctx context.Context, tickers []string) *Snapshot {
	log := logger.OrNop(c.Log)
	stocks := New(time.Time{})

	for _, ticker := range tickers {
		res, err := c.Provider.FetchLatest(ctx, ticker)
		if err != nil {
			log.Warn("fetch failed", zap.String("provider", c.Provider.Name()), zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		if res.IsNone() {
			log.Warn("no data", zap.String("provider", c.Provider.Name()), zap.String("ticker", ticker))
			continue
		}
		q := res.Unwrap()
		stocks.Put(q)
		log.Info("fetched", zap.String("symbol", q.Symbol), zap.String("date", q.Date), zap.Float64("close", q.Close))
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	stocks.LastUpdated = now()
	return stocks
}
