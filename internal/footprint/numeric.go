package footprint

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Coerce converts raw input text to a number the way a browser number field
// feeds arithmetic: surrounding whitespace is ignored, empty text is zero and
// anything that is not a complete decimal number is NaN.
func Coerce(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	// ParseFloat accepts forms ("Inf", "0x1p-2", "1_000") that a number field
	// never produces; only plain decimal text is a number here.
	if !isDecimal(s) {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range values still carry ±Inf.
		if errors.Is(err, strconv.ErrRange) {
			return v
		}
		return math.NaN()
	}
	return v
}

// ParseCount reads a leading integer from raw text. Leading whitespace and a
// sign are allowed and trailing text is ignored. Text without leading digits
// and negative counts both yield 0.
func ParseCount(raw string) int {
	s := strings.TrimLeft(raw, " \t\n\r\f\v")

	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || negative {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Only overflow is possible past the digit scan.
		return math.MaxInt
	}
	return n
}

func isDecimal(s string) bool {
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}

	digits := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			exp++
		}
		if exp == 0 {
			return false
		}
	}

	return i == len(s)
}
