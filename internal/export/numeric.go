package export

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount coerces a free-form money string ("1,500.00", "$8.25") to a
// number. Empty, non-numeric and non-finite values report false.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseCount coerces a license/length count. Whole-valued decimals ("500.0")
// are accepted; fractional ones are not.
func ParseCount(s string) (int, bool) {
	f, ok := ParseAmount(s)
	if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
