// Package mine holds the field miners: stateless text-to-value extraction
// functions shared by the topic extractors. Every miner is total — no input
// panics, and a miss yields a zero value, never an error.
package mine

import (
	"regexp"
	"strconv"
	"strings"
)

// Prices outside this band are discarded as noise: currency codes, phone
// numbers, years, item counts.
const (
	minPlausiblePrice = 100
	maxPlausiblePrice = 1_000_000
)

// Price is one mined price with its original display text. Range is set
// only when the price was advertised as a band, in which case Value is the
// arithmetic mean of the bounds.
type Price struct {
	Value   float64
	Display string
	Range   *Range
}

// Range is the min/max of an advertised price band.
type Range struct {
	Min float64
	Max float64
}

var flatPricePatterns = []*regexp.Regexp{
	// Bare currency: $1,234.56, possibly with a trailing USD marker.
	regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)(?:\s*(?:USD|usd))?`),
	// Amount-first: 1,234 USD / 1234 US Dollars.
	regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*(?:USD|US\s*Dollars?|dollars?)`),
	// Labeled amounts.
	regexp.MustCompile(`(?i)Price[:\s]+(\$?\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)Cost[:\s]+(\$?\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)From[:\s]+(\$?\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)Starting[:\s]+at[:\s]+(\$?\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
}

var priceRangePattern = regexp.MustCompile(
	`(\$?\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*[-–—]\s*(\$?\s*\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`)

// ExtractPrice mines the first plausible price from text. Flat patterns are
// tried in order and win over a range; the range pattern is consulted only
// when no flat amount is in band.
func ExtractPrice(text string) *Price {
	if text == "" {
		return nil
	}
	for _, pat := range flatPricePatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			v, ok := parseAmount(m[1])
			if !ok {
				continue
			}
			return &Price{Value: v, Display: strings.TrimSpace(m[0])}
		}
	}
	return ExtractPriceRange(text)
}

// ExtractPriceRange mines an advertised band like "$3,000 - $8,000". Both
// bounds must parse and lie in the plausible band with max above min; the
// representative value is their arithmetic mean.
func ExtractPriceRange(text string) *Price {
	if text == "" {
		return nil
	}
	for _, m := range priceRangePattern.FindAllStringSubmatch(text, -1) {
		min, okMin := parseAmount(m[1])
		max, okMax := parseAmount(m[2])
		if !okMin || !okMax || max <= min {
			continue
		}
		return &Price{
			Value:   (min + max) / 2,
			Display: strings.TrimSpace(m[0]),
			Range:   &Range{Min: min, Max: max},
		}
	}
	return nil
}

// parseAmount strips currency decoration and rejects values outside the
// plausible band.
func parseAmount(s string) (float64, bool) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if v <= minPlausiblePrice || v >= maxPlausiblePrice {
		return 0, false
	}
	return v, true
}
