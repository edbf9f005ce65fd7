// Package extract implements the four topic extractors. Each one visits a
// facility site through a browser session scoped to that call, locates the
// topic sub-page, mines typed records out of the rendered DOM with the
// field miners, and persists what it found before reporting back. Failures
// stop at the extractor boundary: the orchestrator only ever sees a stage
// result.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/locate"
	"oasara-facility-enrichment/internal/models"
)

// Page is one rendered browser tab.
type Page interface {
	URL() string
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Session owns one browser process for the duration of one extractor call.
type Session interface {
	Visit(ctx context.Context, pageURL string) (Page, error)
	Close()
}

// SessionFactory opens a fresh browser session. Each extractor call gets
// its own so a wedged site never leaks a live browser into later stages.
type SessionFactory func(ctx context.Context) (Session, error)

// Sink is the slice of the persistence adapter the extractors write
// through.
type Sink interface {
	InsertDoctor(ctx context.Context, d models.Doctor) error
	InsertProcedurePrice(ctx context.Context, p models.ProcedurePrice) error
	InsertPackage(ctx context.Context, p models.Package) error
	InsertTestimonial(ctx context.Context, t models.Testimonial) error
	UpsertMetric(ctx context.Context, m models.SuccessMetric) error

	SetDoctorsCount(ctx context.Context, facilityID string, count int) error
	SetPricingSnapshot(ctx context.Context, facilityID string, count int, prices []models.ProcedurePrice) error
	SetPackagesCount(ctx context.Context, facilityID string, count int) error
	SetTestimonialStats(ctx context.Context, facilityID string, count int, metrics []models.SuccessMetric) error
}

// Extractor bundles the dependencies shared by the four topic passes.
type Extractor struct {
	OpenSession SessionFactory
	Sink        Sink
	Probe       locate.Prober
	Log         zerolog.Logger
}

// failed returns a stage result for an error caught at the extractor
// boundary.
func failed(err error) models.StageResult {
	return models.StageResult{Attempted: true, Err: err.Error()}
}

// missed returns an empty result for a pass that found nothing — not an
// error, just nothing to keep.
func missed() models.StageResult {
	return models.StageResult{Attempted: true}
}

// guard converts a panic escaping an extractor into a failed stage result
// so a single hostile page cannot take down the batch.
func guard(result *models.StageResult) {
	if r := recover(); r != nil {
		*result = failed(fmt.Errorf("extractor panic: %v", r))
	}
}

// openDocument visits a URL and parses the rendered DOM into a goquery
// document. The page is closed before returning; only the parsed document
// travels on.
func openDocument(ctx context.Context, sess Session, pageURL string) (*goquery.Document, error) {
	page, err := sess.Visit(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// visibleText approximates the page's rendered text: script, style and
// noscript bodies are stripped before flattening, since textContent would
// otherwise drown the heuristics in JavaScript.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	body.Find("script, style, noscript").Remove()
	return body.Text()
}

// firstText returns the trimmed text of the first match of any selector in
// the cascade, or "".
func firstText(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}
