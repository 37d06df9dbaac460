package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/pretty"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"stockrelay/internal/provider"
)

// Snapshot is the persisted set of latest quotes, keyed by normalized symbol
// in fetch order.
type Snapshot struct {
	LastUpdated time.Time                                      `json:"last_updated"`
	Stocks      *orderedmap.OrderedMap[string, provider.Quote] `json:"stocks"`
}

// New returns an empty snapshot stamped with ts.
func New(ts time.Time) *Snapshot {
	return &Snapshot{LastUpdated: ts, Stocks: orderedmap.New[string, provider.Quote]()}
}

// Put stores q under its symbol. Re-putting a symbol replaces the value and
// keeps its original position.
func (s *Snapshot) Put(q provider.Quote) {
	s.Stocks.Set(q.Symbol, q)
}

// Len is the number of symbols held.
func (s *Snapshot) Len() int {
	if s.Stocks == nil {
		return 0
	}
	return s.Stocks.Len()
}

// Each calls fn for every (symbol, quote) pair in insertion order.
func (s *Snapshot) Each(fn func(symbol string, q provider.Quote)) {
	if s.Stocks == nil {
		return
	}
	for pair := s.Stocks.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Symbols lists the held symbols in insertion order.
func (s *Snapshot) Symbols() []string {
	out := make([]string, 0, s.Len())
	s.Each(func(symbol string, _ provider.Quote) { out = append(out, symbol) })
	return out
}

// Marshal encodes the snapshot as JSON indented by two spaces.
func (s *Snapshot) Marshal() ([]byte, error) {
	if s.Stocks == nil {
		s.Stocks = orderedmap.New[string, provider.Quote]()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return pretty.Pretty(data), nil
}

// Write replaces the file at path with the encoded snapshot.
func Write(path string, s *Snapshot) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Read loads a snapshot previously written by Write.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	s := &Snapshot{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if s.Stocks == nil {
		s.Stocks = orderedmap.New[string, provider.Quote]()
	}
	return s, nil
}
