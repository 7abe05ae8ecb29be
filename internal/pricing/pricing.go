// Package pricing derives totals from cart lines.
//
// All functions are pure projections over the lines they are given; nothing
// here caches a running total.
package pricing

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Precision is the number of significant digits kept in price arithmetic.
const Precision = 34

var decimalCtx = apd.BaseContext.WithPrecision(Precision)

// Line is a priced quantity.
type Line interface {
	UnitPrice() *apd.Decimal
	Quantity() int
}

// LineTotal returns price × qty for one line.
func LineTotal(l Line) (apd.Decimal, error) {
	var out apd.Decimal
	var qty apd.Decimal
	qty.SetInt64(int64(l.Quantity()))
	if _, err := decimalCtx.Mul(&out, l.UnitPrice(), &qty); err != nil {
		return apd.Decimal{}, fmt.Errorf("line total: %w", err)
	}
	return out, nil
}

// Total returns Σ price × qty over lines. An empty slice totals zero.
func Total[L Line](lines []L) (apd.Decimal, error) {
	var sum apd.Decimal
	for i, l := range lines {
		lt, err := LineTotal(l)
		if err != nil {
			return apd.Decimal{}, fmt.Errorf("total: line %d: %w", i, err)
		}
		if _, err := decimalCtx.Add(&sum, &sum, &lt); err != nil {
			return apd.Decimal{}, fmt.Errorf("total: line %d: %w", i, err)
		}
	}
	return sum, nil
}

// Units returns the number of units across lines.
func Units[L Line](lines []L) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity()
	}
	return n
}

// ParsePrice parses a non-negative decimal price such as "650" or "2.49".
func ParsePrice(s string) (apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return apd.Decimal{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return apd.Decimal{}, fmt.Errorf("parse price %q: not a finite number", s)
	}
	if d.Negative && !d.IsZero() {
		return apd.Decimal{}, fmt.Errorf("parse price %q: negative", s)
	}
	return *d, nil
}

// Format renders d in plain notation, never scientific.
func Format(d *apd.Decimal) string {
	return d.Text('f')
}
