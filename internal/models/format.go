package models

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Formatter turns engine numbers into raw/display pairs with fixed rounding
type Formatter struct {
	Decimals int32
}

func (f Formatter) round(v float64) (float64, string) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "n/a"
	}
	d := decimal.NewFromFloat(v).Round(f.Decimals)
	raw, _ := d.Float64()
	return raw, d.StringFixed(f.Decimals)
}

// Price formats a monetary value
func (f Formatter) Price(v float64) FieldValue {
	raw, display := f.round(v)
	return FieldValue{Raw: raw, Display: display, Type: "price"}
}

// Error formats an absolute or statistical error
func (f Formatter) Error(v float64) FieldValue {
	raw, display := f.round(v)
	return FieldValue{Raw: raw, Display: display, Type: "error"}
}

// Greek formats a sensitivity
func (f Formatter) Greek(v float64) FieldValue {
	raw, display := f.round(v)
	return FieldValue{Raw: raw, Display: display, Type: "greek"}
}

// Count formats an integer quantity
func (f Formatter) Count(n int64) FieldValue {
	return FieldValue{Raw: n, Display: fmt.Sprintf("%d", n), Type: "count"}
}

// Duration formats elapsed time in milliseconds
func (f Formatter) Duration(d time.Duration) FieldValue {
	ms := decimal.NewFromInt(d.Microseconds()).Div(decimal.NewFromInt(1000)).Round(3)
	raw, _ := ms.Float64()
	return FieldValue{Raw: raw, Display: ms.StringFixed(3) + "ms", Type: "duration"}
}

// Flag formats a boolean
func (f Formatter) Flag(b bool) FieldValue {
	return FieldValue{Raw: b, Display: fmt.Sprintf("%t", b), Type: "flag"}
}

// Text formats a label
func (f Formatter) Text(s string) FieldValue {
	return FieldValue{Raw: s, Display: s, Type: "text"}
}
