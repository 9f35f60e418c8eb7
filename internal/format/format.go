// Package format renders and parses rupiah amounts the way an Indonesian
// cashier writes them: "." groups thousands and "," starts the decimals.
package format

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidAmount = errors.New("invalid amount")

var printer = message.NewPrinter(language.Indonesian)

// Number groups thousands with dots: 1500000 -> "1.500.000".
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Rupiah renders a whole-rupiah amount: 1500000 -> "Rp 1.500.000",
// -1500 -> "-Rp 1.500".
func Rupiah(n int64) string {
	if n < 0 {
		return "-Rp " + Number(-n)
	}
	return "Rp " + Number(n)
}

// Percent renders part/whole with one truncated decimal: 1, 8 -> "12,5%".
// A zero whole renders "0%".
func Percent(part int64, whole int64) string {
	if whole == 0 {
		return "0%"
	}
	tenths := part * 1000 / whole
	sign := ""
	if tenths < 0 {
		sign = "-"
		tenths = -tenths
	}
	return fmt.Sprintf("%s%s,%d%%", sign, Number(tenths/10), tenths%10)
}

// ParseAmount accepts "Rp 1.500.000", "1.500.000", "1500000" and "1.500,00".
// Decimals are truncated to whole rupiah.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = s[2:]
	}
	s = strings.TrimLeft(s, ". ")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	whole := s
	if idx := strings.LastIndex(s, ","); idx >= 0 {
		whole = s[:idx]
		if !allDigits(s[idx+1:]) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	} else if idx := strings.LastIndex(s, "."); idx >= 0 && strings.Count(s, ".") == 1 && len(s)-idx-1 != 3 {
		// a single dot not followed by a full thousands group is a decimal point
		whole = s[:idx]
		if !allDigits(s[idx+1:]) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}

	groups := strings.Split(whole, ".")
	for i, g := range groups {
		if !allDigits(g) || g == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
		if i > 0 && len(g) != 3 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}
	digits := strings.Join(groups, "")

	var n int64
	for _, r := range digits {
		d := int64(r - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, raw)
		}
		n = n*10 + d
	}
	if negative {
		n = -n
	}
	return n, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
