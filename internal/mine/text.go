package mine

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)duration[:\s]+(\d+)\s*(?:days?|nights?)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:day|night)\s*(?:package|stay|program)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:days?|nights?)`),
}

// ExtractDuration mines a stay length in days from "7 days", "5 nights",
// "duration: 10 days" and the like.
func ExtractDuration(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for _, pat := range durationPatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*years?\s*(?:of\s*)?experience`),
	regexp.MustCompile(`(?i)experience\s*(?:of\s*)?(\d+)\s*years?`),
	regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s*(?:in|of)\b`),
}

// ExtractYearsExperience mines "15 years experience" in either word order.
func ExtractYearsExperience(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for _, pat := range experiencePatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

var ratingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*/\s*5`),
	regexp.MustCompile(`(?i)(\d+)\s*stars?`),
	regexp.MustCompile(`(?i)rating[:\s]+(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*out\s*of\s*5`),
}

// ExtractRating mines a 1-5 star rating from "4/5", "4 stars",
// "rating: 4", "4 out of 5", falling back to counting star glyphs.
// Out-of-band numbers ("7/5") are rejected, not clamped.
func ExtractRating(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for _, pat := range ratingPatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 5 {
				return n, true
			}
		}
	}
	stars := strings.Count(text, "★") + strings.Count(text, "⭐")
	if stars >= 1 && stars <= 5 {
		return stars, true
	}
	return 0, false
}

var (
	numericDatePattern = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})`)
	isoDatePattern     = regexp.MustCompile(`(\d{4})[/\-](\d{1,2})[/\-](\d{1,2})`)
	monthDatePattern   = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})`)
)

// ExtractDate mines a calendar date from numeric (US month-first),
// ISO-order, or month-name forms and normalizes it to YYYY-MM-DD.
// Unparsable matches are discarded; the miner never fails.
func ExtractDate(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		if d, ok := calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3])); ok {
			return d, true
		}
	}
	if m := numericDatePattern.FindStringSubmatch(text); m != nil {
		year := atoi(m[3])
		if year < 100 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		if d, ok := calendarDate(year, atoi(m[1]), atoi(m[2])); ok {
			return d, true
		}
	}
	if m := monthDatePattern.FindStringSubmatch(text); m != nil {
		t, err := time.Parse("January 2 2006", m[1]+" "+m[2]+" "+m[3])
		if err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// calendarDate validates month/day bounds by round-tripping through
// time.Date, which normalizes overflow (month 13 becomes January).
func calendarDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var procedureKeywordPattern = regexp.MustCompile(
	`(?i)(breast|knee|hip|dental|cosmetic|surgery|implant|transplant|ivf|lasik)`)

// ExtractProcedureKeyword mines the first procedure keyword mentioned in a
// review, used to tag testimonials with the procedure they discuss.
func ExtractProcedureKeyword(text string) (string, bool) {
	m := procedureKeywordPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return m, true
}
