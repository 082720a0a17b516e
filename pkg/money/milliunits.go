package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Milliunits is the integer currency representation used throughout the
// system: 1/1000 of a display unit. All stored and compared amounts are
// milliunits; conversion to display currency happens only at the edges.
type Milliunits = int64

// Abs returns the absolute value of an amount in milliunits.
func Abs(m int64) int64 {
	if m < 0 {
		return -m
	}
	return m
}

// ToUnits converts milliunits to whole display units and remaining cents,
// rounding half-up at the cent boundary. The sign is returned separately.
func ToUnits(m int64) (units int64, cents int64, negative bool) {
	negative = m < 0
	if negative {
		m = -m
	}
	units = m / 1000
	cents = (m%1000 + 5) / 10
	if cents == 100 {
		units++
		cents = 0
	}
	return units, cents, negative
}

// FromUnits converts whole display units and cents to milliunits.
func FromUnits(units int64, cents int64) int64 {
	return units*1000 + cents*10
}

// Format renders milliunits as a currency string, e.g. 1234560 → "$1,234.56"
// and -525000 → "-$525.00". Formatting is integer-only; no floats involved.
func Format(m int64) string {
	units, cents, negative := ToUnits(m)

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	b.WriteString(groupThousands(units))
	b.WriteByte('.')
	if cents < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(cents, 10))
	return b.String()
}

// FormatSigned renders milliunits with an explicit leading sign on
// non-negative amounts, e.g. 1000 → "+$1.00".
func FormatSigned(m int64) string {
	if m >= 0 {
		return "+" + Format(m)
	}
	return Format(m)
}

// FormatPercent renders a ratio as a percentage with the given number of
// decimal places, e.g. 1.05 → "105%".
func FormatPercent(ratio float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, ratio*100)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
