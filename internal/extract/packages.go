package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/locate"
	"oasara-facility-enrichment/internal/mine"
	"oasara-facility-enrichment/internal/models"
	"oasara-facility-enrichment/internal/store"
)

var packageKeywords = []string{
	"package", "bundle", "all-inclusive", "special offer", "deal",
	"combo", "combination", "inclusive", "comprehensive",
}

// dollarAmountPattern gates the element sweep: a candidate without a
// dollar figure in its text is never a package offer.
var dollarAmountPattern = regexp.MustCompile(`\$[\d,]+`)

const (
	packageCardSelector  = `.package-card, .deal-card, .offer-card, [class*="package"], [class*="deal"]`
	packageNameSelector  = "h1, h2, h3, h4, h5, h6, .title, .package-name"
	packagePriceSelector = `.price, .cost, [class*="price"]`
	packageDescSelector  = ".description, .details, p"

	// Candidates outside this band are either navigation fragments or
	// whole page sections.
	packageTextMin = 50
	packageTextMax = 2000

	packageDescLimit = 500
)

// Packages extracts bundled offers, preferring a dedicated packages page
// and falling back to the home page.
func (e *Extractor) Packages(ctx context.Context, f models.Facility) (result models.StageResult) {
	defer guard(&result)

	log := e.Log.With().Str("facility", f.Name).Str("stage", models.StagePackages).Logger()

	sess, err := e.OpenSession(ctx)
	if err != nil {
		return failed(err)
	}
	defer sess.Close()

	doc, err := openDocument(ctx, sess, f.Website)
	if err != nil {
		return failed(err)
	}

	sourceURL := f.Website
	if pkgURL, ok := locate.FindPage(ctx, doc, f.Website, locate.TopicPackages, e.Probe); ok && pkgURL != f.Website {
		log.Info().Str("url", pkgURL).Msg("packages page located")
		if pkgDoc, err := openDocument(ctx, sess, pkgURL); err == nil {
			doc = pkgDoc
			sourceURL = pkgURL
		} else {
			log.Warn().Err(err).Msg("packages page load failed, mining home page")
		}
	} else {
		log.Info().Msg("no packages page, mining home page")
	}

	packages := parsePackages(doc, f.ID, sourceURL)
	if len(packages) == 0 {
		log.Info().Msg("no packages found")
		return missed()
	}

	saved := savePackages(ctx, e.Sink, log, packages)
	if err := e.Sink.SetPackagesCount(ctx, f.ID, saved); err != nil {
		log.Warn().Err(err).Msg("packages count update failed")
	}

	log.Info().Int("found", len(packages)).Int("saved", saved).Msg("packages extracted")
	return models.StageResult{Attempted: true, Success: true, Count: saved}
}

// rawPackage is a candidate before the field miners run over it.
type rawPackage struct {
	name        string
	description string
	priceText   string
}

// parsePackages sweeps every element for package keywords plus a dollar
// figure, then adds structured package cards, deduplicates by name, and
// keeps only candidates whose price resolves.
func parsePackages(doc *goquery.Document, facilityID, sourceURL string) []models.Package {
	var candidates []rawPackage

	doc.Find("*").Each(func(_ int, el *goquery.Selection) {
		text := strings.TrimSpace(el.Text())
		if len(text) <= packageTextMin || len(text) >= packageTextMax {
			return
		}
		lower := strings.ToLower(text)
		if !containsAny(lower, packageKeywords) {
			return
		}
		priceMatch := dollarAmountPattern.FindString(text)
		if priceMatch == "" {
			return
		}

		name := firstText(el, packageNameSelector)
		if name == "" {
			name = firstLine(text, 100)
		}
		candidates = append(candidates, rawPackage{
			name:        name,
			description: clip(text, packageDescLimit),
			priceText:   priceMatch,
		})
	})

	doc.Find(packageCardSelector).Each(func(_ int, card *goquery.Selection) {
		name := firstText(card, packageNameSelector)
		priceText := firstText(card, packagePriceSelector)
		if name == "" || priceText == "" {
			return
		}
		priceMatch := dollarAmountPattern.FindString(priceText)
		if priceMatch == "" {
			return
		}
		candidates = append(candidates, rawPackage{
			name:        name,
			description: firstText(card, packageDescSelector),
			priceText:   priceMatch,
		})
	})

	var packages []models.Package
	for _, raw := range dedupePackages(candidates) {
		priceSource := raw.priceText
		if priceSource == "" {
			priceSource = raw.description
		}
		price := mine.ExtractPrice(priceSource)
		if price == nil {
			continue
		}

		pkg := models.Package{
			FacilityID:   facilityID,
			Name:         raw.name,
			Description:  raw.description,
			PriceUSD:     price.Value,
			PriceDisplay: raw.priceText,
			Currency:     "USD",
			Includes:     mine.ExtractIncludes(raw.description),
			SourceURL:    sourceURL,
		}
		if pkg.Name == "" {
			pkg.Name = models.DefaultPackageName
		}
		if days, ok := mine.ExtractDuration(raw.description); ok {
			pkg.DurationDays = days
		}
		if pkg.Viable() {
			packages = append(packages, pkg)
		}
	}
	return packages
}

// dedupePackages drops candidates whose name matches an earlier one, where
// a match is equal names or one name containing the other. The element
// sweep naturally produces nested duplicates since a card's parents carry
// the same text.
func dedupePackages(candidates []rawPackage) []rawPackage {
	var unique []rawPackage
	for _, c := range candidates {
		name := strings.ToLower(strings.TrimSpace(c.name))
		duplicate := false
		for _, kept := range unique {
			keptName := strings.ToLower(strings.TrimSpace(kept.name))
			if name == keptName || strings.Contains(name, keptName) || strings.Contains(keptName, name) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, c)
		}
	}
	return unique
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// firstLine returns the first line of text, clipped to max characters.
func firstLine(text string, max int) string {
	line := clip(text, max)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// clip truncates to at most max bytes without splitting a rune.
func clip(text string, max int) string {
	if len(text) <= max {
		return text
	}
	clipped := text[:max]
	for len(clipped) > 0 && !utf8.ValidString(clipped) {
		clipped = clipped[:len(clipped)-1]
	}
	return clipped
}

func savePackages(ctx context.Context, sink Sink, log zerolog.Logger, packages []models.Package) int {
	saved := 0
	for _, p := range packages {
		err := sink.InsertPackage(ctx, p)
		switch {
		case err == nil:
			saved++
		case store.IsConflict(err):
			log.Debug().Str("package", p.Name).Msg("duplicate package skipped")
		default:
			log.Warn().Err(err).Str("package", p.Name).Msg("package insert failed")
		}
	}
	return saved
}
