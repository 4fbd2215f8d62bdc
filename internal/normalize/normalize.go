// Package normalize turns scraped or API-supplied numeric text into clean values.
// ⭐ SSOT: 텍스트 → 숫자 변환은 이 패키지에서만
package normalize

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wonny/quadrant/internal/contracts"
)

// placeholders are tokens sources use for "no value"
var placeholders = map[string]bool{
	"-":    true,
	"--":   true,
	"—":    true,
	"–":    true,
	"n/a":  true,
	"na":   true,
	"n.a.": true,
	"nil":  true,
	"null": true,
	"none": true,
	"nm":   true,
}

// currencyWords are stripped case-insensitively from either end of the token
var currencyWords = []string{"rs.", "rs", "inr", "usd", "eur", "krw"}

// noise is removed wherever it appears
var noise = strings.NewReplacer(
	"%", "",
	",", "",
	" ", "", // no-break space
	" ", "", // narrow no-break space
	"'", "", // swiss thousands separator
	"_", "",
	"₹", "",
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	"₩", "",
	"−", "-", // unicode minus
)

// Parse converts a raw token into a finite number.
// Returns nil when the token is empty, a placeholder, garbled, or non-finite.
func Parse(text string) *float64 {
	s := clean(text)
	if s == "" || placeholders[strings.ToLower(s)] {
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	if !looksNumeric(s) {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	if negative {
		if v < 0 {
			return nil
		}
		v = -v
	}

	return &v
}

// Metrics normalizes both fields of an observation independently
func Metrics(obs *contracts.RawObservation) contracts.FinancialMetrics {
	if obs == nil {
		return contracts.FinancialMetrics{}
	}

	return contracts.FinancialMetrics{
		PERatio:          Parse(obs.PERatioText),
		NetMarginPercent: Parse(obs.NetMarginText),
	}
}

// clean strips separators, currency markers and multiple suffixes
func clean(text string) string {
	s := strings.TrimSpace(noise.Replace(text))

	lower := strings.ToLower(s)
	for _, w := range currencyWords {
		if strings.HasPrefix(lower, w) && len(s) > len(w) && !isLetter(s[len(w):]) {
			s = strings.TrimSpace(s[len(w):])
			lower = strings.ToLower(s)
		}
		if strings.HasSuffix(lower, w) && len(s) > len(w) && !endsWithLetter(s[:len(s)-len(w)]) {
			s = strings.TrimSpace(s[:len(s)-len(w)])
			lower = strings.ToLower(s)
		}
	}

	// multiple suffix: "28x", "28 ×"
	s = strings.TrimSuffix(s, "×")
	if strings.HasSuffix(s, "x") || strings.HasSuffix(s, "X") {
		s = s[:len(s)-1]
	}

	return strings.TrimSpace(s)
}

// looksNumeric rejects tokens strconv would accept but sources never mean,
// such as hex floats, and anything with letters other than an exponent.
func looksNumeric(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.':
		case r == '+' || r == '-':
			if i != 0 && s[i-1] != 'e' && s[i-1] != 'E' {
				return false
			}
		case r == 'e' || r == 'E':
			if digits == 0 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

func isLetter(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsLetter(r)
}

func endsWithLetter(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && unicode.IsLetter(r)
}
