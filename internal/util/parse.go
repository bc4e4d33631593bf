package util

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

func SafeAtoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

var nonPriceRegex = regexp.MustCompile(`[^\d,.]`)

// ParsePrice reads free-text prices such as "R$ 1.299,90" or "$49.99".
// When a comma is present it is the decimal separator and dots group
// thousands.
func ParsePrice(s string) (float64, bool) {
	cleaned := nonPriceRegex.ReplaceAllString(s, "")
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
