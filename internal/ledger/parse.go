// Package ledger holds the client-side reconciliation arithmetic for field entries:
// stock checks before a sale, bill totals, customer balance updates and the
// three-way fuel calculator. Every function here is pure.
package ledger

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// numericPrefix is the leading decimal literal of a form value
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseField parses the leading number of a form value, so "10kg" reads as 10
// and "1,000" as 1. ok is false when there is no leading number or it is not finite.
func ParseField(s string) (float64, bool) {
	m := numericPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseAmount parses a form value, treating anything unparsable as zero.
func ParseAmount(s string) float64 {
	v, _ := ParseField(s)
	return v
}

// exactDigits covers the full decimal expansion of any float64.
const exactDigits = 1100

// FormatAmount renders v with exactly two decimals. Rounding applies to the exact
// binary value of v, halves away from zero, so 1.005 (stored as 1.00499...)
// gives "1.00". Display only: results must never be fed back into a calculation.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	exact := new(big.Float).SetFloat64(v).Text('f', exactDigits)
	return decimal.RequireFromString(exact).StringFixed(2)
}
