package validation

import (
	"regexp"
	"strings"
)

// Currency codes are ISO 4217 alpha-3.
var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Category and subcategory: letters, digits, spaces, hyphens, ampersands, apostrophes.
var categoryRe = regexp.MustCompile(`^[\p{L}0-9\s\-&']+$`)

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsValidCurrency(code string) bool {
	return currencyRe.MatchString(code)
}

func IsValidCategory(category string) bool {
	category = strings.TrimSpace(category)
	return category != "" && len(category) <= 64 && categoryRe.MatchString(category)
}

// IsValidTitle requires a non-blank title of reasonable length.
func IsValidTitle(title string) bool {
	title = strings.TrimSpace(title)
	return title != "" && len(title) <= 200
}
