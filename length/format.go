package length

import (
	"math"
	"strconv"
	"strings"
)

// Precision is the number of decimal places in a formatted result.
const Precision = 2

// FormatResult formats q with exactly [Precision] decimals followed by the
// display name of u.
func FormatResult(q float64, u Unit) string {
	b := AppendFixed(make([]byte, 0, 24), q, Precision)
	b = append(b, ' ')
	b = append(b, u.String()...)
	return string(b)
}

// AppendFixed appends v with exactly prec decimals to b. Halves are rounded
// away from zero using the shortest decimal representation of v, so 1.005
// becomes "1.01" even though its binary value is slightly below it.
// Infinities are written as "Infinity" or "-Infinity" and NaN as "NaN".
func AppendFixed(b []byte, v float64, prec int) []byte {
	switch {
	case math.IsNaN(v):
		return append(b, "NaN"...)
	case math.IsInf(v, 1):
		return append(b, "Infinity"...)
	case math.IsInf(v, -1):
		return append(b, "-Infinity"...)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if s[0] == '-' {
		b = append(b, '-')
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) <= prec {
		b = append(b, whole...)
		if prec == 0 {
			return b
		}
		b = append(b, '.')
		b = append(b, frac...)
		return append(b, strings.Repeat("0", prec-len(frac))...)
	}

	digits := []byte(whole + frac[:prec])
	if frac[prec] >= '5' {
		i := len(digits) - 1
		for ; i >= 0 && digits[i] == '9'; i-- {
			digits[i] = '0'
		}
		if i < 0 {
			digits = append([]byte{'1'}, digits...)
		} else {
			digits[i]++
		}
	}

	n := len(digits) - prec
	b = append(b, digits[:n]...)
	if prec > 0 {
		b = append(b, '.')
		b = append(b, digits[n:]...)
	}
	return b
}
