// Package luamodule renders a snapshot as a Luau ModuleScript that returns an
// ordered list of {Name, Symbol, CurrentPrice} records.
//
// Only the closing price is exposed. The text layout (header comments, tab
// indentation, trailing commas) is read verbatim by some consumers; keep it
// stable.
package luamodule

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockrelay/internal/provider"
	"stockrelay/internal/snapshot"
)

// Record is one entry of the rendered list.
type Record struct {
	Name         string
	Symbol       string
	CurrentPrice float64
}

// Records projects the snapshot into module records in snapshot order. names
// maps normalized symbols to display names; unknown symbols use the symbol.
func Records(snap *snapshot.Snapshot, names map[string]string) []Record {
	out := make([]Record, 0, snap.Len())
	snap.Each(func(symbol string, q provider.Quote) {
		name, ok := names[symbol]
		if !ok || name == "" {
			name = symbol
		}
		out = append(out, Record{Name: name, Symbol: q.Symbol, CurrentPrice: q.Close})
	})
	return out
}

// Render returns the module source for snap.
func Render(snap *snapshot.Snapshot, names map[string]string) string {
	var b strings.Builder
	b.WriteString("-- Stock Data Module\n")
	b.WriteString("-- Auto-generated from Stooq API\n")
	fmt.Fprintf(&b, "-- Last updated: %s\n", snap.LastUpdated.Format(time.RFC3339Nano))
	b.WriteString("\n")
	b.WriteString("return {")
	for _, r := range Records(snap, names) {
		b.WriteString("\n\t{")
		fmt.Fprintf(&b, "\n\t\tName = %s,", Quote(r.Name))
		fmt.Fprintf(&b, "\n\t\tSymbol = %s,", Quote(r.Symbol))
		fmt.Fprintf(&b, "\n\t\tCurrentPrice = %s", Number(r.CurrentPrice))
		b.WriteString("\n\t},")
	}
	b.WriteString("\n}")
	return b.String()
}

// Write replaces the file at path with the module source.
func Write(path, source string) error {
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return fmt.Errorf("write module: %w", err)
	}
	return nil
}

// Quote returns s as a double-quoted Lua string literal. Control bytes are
// written as decimal escapes; everything else, UTF-8 included, passes through.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				// zero-pad so a following digit is not absorbed
				fmt.Fprintf(&b, `\%03d`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Number returns v as a Lua numeric expression using the shortest decimal
// that round-trips. Non-finite values become expressions so the module still
// loads.
func Number(v float64) string {
	switch {
	case math.IsNaN(v):
		return "0/0"
	case math.IsInf(v, 1):
		return "math.huge"
	case math.IsInf(v, -1):
		return "-math.huge"
	}
	return decimal.NewFromFloat(v).String()
}
