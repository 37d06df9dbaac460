package stooqadapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"

	"stockrelay/internal/apperr"
	"stockrelay/internal/provider"
	"stockrelay/internal/provider/stooq"
)

// HistoryClient is the part of the Stooq client the adapter needs.
type HistoryClient interface {
	GetDailyHistory(ctx context.Context, symbol string, from, to time.Time, interval string, opts ...stooq.Option) ([]stooq.Row, error)
}

type Config struct {
	Name       string // display name, default: Stooq
	Interval   string // bar interval, default: d
	WindowDays int    // trailing window ending today, default: 5
	Suffix     string // exchange suffix stripped from keys; empty keeps tickers whole
	// Now returns the wall-clock time used for the window. Defaults to time.Now.
	Now func() time.Time
}

type Adapter struct {
	cfg    Config
	client HistoryClient
}

func New(cfg Config, client HistoryClient) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Stooq"
	}
	if cfg.Interval == "" {
		cfg.Interval = stooq.IntervalDaily
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// FetchLatest returns the first data row of the trailing window as the latest
// quote. The provider lists newest first; rows are not re-sorted by date.
func (a *Adapter) FetchLatest(ctx context.Context, ticker string) (optional.Option[provider.Quote], error) {
	to := a.cfg.Now()
	from := to.AddDate(0, 0, -a.cfg.WindowDays)

	rows, err := a.client.GetDailyHistory(ctx, ticker, from, to, a.cfg.Interval)
	if err != nil {
		return optional.None[provider.Quote](), apperr.Wrapf(apperr.ErrFetch, err, "fetch %s", ticker)
	}
	if len(rows) == 0 {
		return optional.None[provider.Quote](), nil
	}

	q, err := toQuote(provider.NormalizeSymbol(ticker, a.cfg.Suffix), rows[0])
	if err != nil {
		return optional.None[provider.Quote](), apperr.Wrapf(apperr.ErrFetch, err, "parse %s", ticker)
	}
	return optional.Some(q), nil
}

func toQuote(symbol string, r stooq.Row) (provider.Quote, error) {
	q := provider.Quote{Symbol: symbol, Date: r.Date}
	var err error
	if q.Open, err = parseFloat("Open", r.Open); err != nil {
		return provider.Quote{}, err
	}
	if q.High, err = parseFloat("High", r.High); err != nil {
		return provider.Quote{}, err
	}
	if q.Low, err = parseFloat("Low", r.Low); err != nil {
		return provider.Quote{}, err
	}
	if q.Close, err = parseFloat("Close", r.Close); err != nil {
		return provider.Quote{}, err
	}
	if q.Volume, err = strconv.ParseInt(strings.TrimSpace(r.Volume), 10, 64); err != nil {
		return provider.Quote{}, fmt.Errorf("Volume %q: %w", r.Volume, err)
	}
	return q, nil
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, s, err)
	}
	return v, nil
}
