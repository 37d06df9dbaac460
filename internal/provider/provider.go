package provider

import (
	"context"
	"strings"

	"github.com/moznion/go-optional"
)

// DefaultSuffix is the exchange suffix stripped from tickers when keying quotes.
const DefaultSuffix = ".US"

// Quote is the normalized end-of-day record for one symbol.
// Values are passed through from the provider apart from type coercion.
type Quote struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Provider fetches the latest quote for a ticker. None means the provider had
// no data rows for it; an error means the fetch or parse failed.
type Provider interface {
	Name() string
	FetchLatest(ctx context.Context, ticker string) (optional.Option[Quote], error)
}

// NormalizeSymbol strips a trailing exchange suffix ("AAPL.US" -> "AAPL").
// An empty suffix leaves the ticker untouched.
func NormalizeSymbol(ticker, suffix string) string {
	if suffix == "" {
		return ticker
	}
	return strings.TrimSuffix(ticker, suffix)
}
