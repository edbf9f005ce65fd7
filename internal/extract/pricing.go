package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/locate"
	"oasara-facility-enrichment/internal/mine"
	"oasara-facility-enrichment/internal/models"
	"oasara-facility-enrichment/internal/store"
)

// commonProcedures is the vocabulary of procedure names the text scan
// looks for. Multi-word names before their generic parents so "Knee
// Replacement" is not swallowed by "Knee Surgery".
var commonProcedures = []string{
	"Breast Augmentation", "Rhinoplasty", "Liposuction", "Facelift",
	"Dental Implant", "Hair Transplant", "Knee Replacement", "Hip Replacement",
	"IVF", "LASIK", "Gastric Bypass", "Angioplasty", "Cardiac Bypass",
	"Knee Surgery", "Hip Surgery", "Spine Surgery", "Heart Surgery",
	"Cosmetic Surgery", "Plastic Surgery", "Eye Surgery", "Dental Surgery",
	"Bariatric Surgery", "Weight Loss Surgery", "Hair Restoration",
	"Breast Reduction", "Tummy Tuck", "Mommy Makeover", "Botox",
	"Dermal Fillers", "Dental Crown", "Root Canal", "Teeth Whitening",
	"Orthopedic Surgery", "Cancer Treatment", "Chemotherapy", "Radiation",
}

// procedureContextWindow is how many characters around a matched procedure
// name are handed to the price miner.
const procedureContextWindow = 200

// Pricing extracts procedure prices, preferring a dedicated pricing page
// and falling back to the home page when none exists.
func (e *Extractor) Pricing(ctx context.Context, f models.Facility) (result models.StageResult) {
	defer guard(&result)

	log := e.Log.With().Str("facility", f.Name).Str("stage", models.StagePricing).Logger()

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
	if pricingURL, ok := locate.FindPage(ctx, doc, f.Website, locate.TopicPricing, e.Probe); ok && pricingURL != f.Website {
		log.Info().Str("url", pricingURL).Msg("pricing page located")
		if priceDoc, err := openDocument(ctx, sess, pricingURL); err == nil {
			doc = priceDoc
			sourceURL = pricingURL
		} else {
			log.Warn().Err(err).Msg("pricing page load failed, mining home page")
		}
	} else {
		log.Info().Msg("no pricing page, mining home page")
	}

	prices := parsePricing(doc, f.ID, sourceURL)
	if len(prices) == 0 {
		log.Info().Msg("no pricing found")
		return missed()
	}

	saved := savePricing(ctx, e.Sink, log, prices)
	if err := e.Sink.SetPricingSnapshot(ctx, f.ID, saved, prices); err != nil {
		log.Warn().Err(err).Msg("pricing snapshot update failed")
	}

	log.Info().Int("found", len(prices)).Int("saved", saved).Msg("pricing extracted")
	return models.StageResult{Attempted: true, Success: true, Count: saved}
}

// parsePricing runs two passes: a text scan pairing known procedure names
// with prices mined from the surrounding characters, then a table scan
// treating each row's first cell as the procedure and last cell as the
// price. A procedure keeps its first price only.
func parsePricing(doc *goquery.Document, facilityID, sourceURL string) []models.ProcedurePrice {
	var prices []models.ProcedurePrice
	seen := map[string]bool{}

	keep := func(procedure string, p *mine.Price) {
		key := strings.ToLower(procedure)
		if p == nil || seen[key] {
			return
		}
		seen[key] = true
		record := models.ProcedurePrice{
			FacilityID:    facilityID,
			ProcedureName: procedure,
			PriceUSD:      p.Value,
			PriceDisplay:  p.Display,
			Currency:      "USD",
			SourceURL:     sourceURL,
		}
		if p.Range != nil {
			record.Range = &models.PriceRange{Min: p.Range.Min, Max: p.Range.Max}
		}
		prices = append(prices, record)
	}

	// ASCII-only lowering keeps byte offsets aligned with text; full Unicode
	// case folding can change a character's byte length.
	text := visibleText(doc)
	lower := lowerASCII(text)
	for _, procedure := range commonProcedures {
		idx := strings.Index(lower, lowerASCII(procedure))
		if idx < 0 {
			continue
		}
		start := idx - procedureContextWindow
		if start < 0 {
			start = 0
		}
		end := idx + len(procedure) + procedureContextWindow
		if end > len(text) {
			end = len(text)
		}
		keep(procedure, mine.ExtractPrice(text[start:end]))
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		procCell := strings.TrimSpace(cells.First().Text())
		priceCell := strings.TrimSpace(cells.Last().Text())
		if procCell == "" {
			return
		}
		if procedure, ok := matchProcedure(procCell); ok {
			keep(procedure, mine.ExtractPrice(priceCell))
		}
	})

	return prices
}

// lowerASCII lowercases A-Z only, leaving every byte offset intact.
func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}

// matchProcedure maps free-form cell text onto the known vocabulary.
func matchProcedure(cell string) (string, bool) {
	lower := strings.ToLower(cell)
	for _, procedure := range commonProcedures {
		if strings.Contains(lower, strings.ToLower(procedure)) {
			return procedure, true
		}
	}
	return "", false
}

func savePricing(ctx context.Context, sink Sink, log zerolog.Logger, prices []models.ProcedurePrice) int {
	saved := 0
	for _, p := range prices {
		err := sink.InsertProcedurePrice(ctx, p)
		switch {
		case err == nil:
			saved++
		case store.IsConflict(err):
			log.Debug().Str("procedure", p.ProcedureName).Msg("duplicate price skipped")
		default:
			log.Warn().Err(err).Str("procedure", p.ProcedureName).Msg("price insert failed")
		}
	}
	return saved
}
