package stooq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gocarina/gocsv"
)

// DateLayout is the d1/d2 bound format expected by the download endpoint.
const DateLayout = "20060102"

// IntervalDaily selects daily bars.
const IntervalDaily = "d"

// Row is one CSV data row exactly as the provider sent it.
type Row struct {
	Date   string `csv:"Date"`
	Open   string `csv:"Open"`
	High   string `csv:"High"`
	Low    string `csv:"Low"`
	Close  string `csv:"Close"`
	Volume string `csv:"Volume"`
}

// GetDailyHistory downloads the bars for symbol between from and to
// (inclusive, by calendar date). Rows keep the provider's order. A body with
// no data rows (empty, header only, or a plain "No data" page) yields an
// empty slice and no error.
func (c *Client) GetDailyHistory(ctx context.Context, symbol string, from, to time.Time, interval string, opts ...Option) ([]Row, error) {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
	}
	for _, opt := range opts {
		opt(override)
	}
	if interval == "" {
		interval = IntervalDaily
	}

	query := url.Values{}
	query.Set("s", symbol)
	query.Set("i", interval)
	query.Set("d1", from.Format(DateLayout))
	query.Set("d2", to.Format(DateLayout))

	url := fmt.Sprintf("%s/q/d/l/?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		if len(body) > 2<<10 {
			body = body[:2<<10]
		}
		return nil, fmt.Errorf("unexpected status code: %d: %s", res.StatusCode, string(body))
	}

	return decodeRows(body)
}

func decodeRows(body []byte) ([]Row, error) {
	// Some responses carry a UTF-8 BOM before the header.
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(body)) == 0 {
		return []Row{}, nil
	}

	var rows []Row
	if err := gocsv.UnmarshalBytes(body, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []Row{}, nil
		}
		return nil, fmt.Errorf("decoding csv: %w", err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}
