package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/locate"
	"oasara-facility-enrichment/internal/mine"
	"oasara-facility-enrichment/internal/models"
	"oasara-facility-enrichment/internal/store"
)

var testimonialSelectors = []string{
	".testimonial",
	".review",
	".patient-story",
	`[class*="testimonial"]`,
	`[class*="review"]`,
	"blockquote",
	".quote",
	".feedback-item",
}

const (
	testimonialTextSelector   = "p, .text, .review-text, .testimonial-text, .quote-text"
	testimonialNameSelector   = `.name, .author, .patient-name, [class*="name"]`
	testimonialRatingSelector = `.rating, .stars, [class*="rating"]`
	testimonialDateSelector   = `.date, .review-date, [class*="date"]`
	reviewSchemaSelector      = `[itemtype*="Review"], [itemprop="review"]`

	// Two reviews sharing their first 50 characters are the same review
	// rendered twice.
	testimonialDedupePrefix = 50
)

// metricPattern pairs a metric type with the phrasing that advertises it.
type metricPattern struct {
	metricType string
	regex      *regexp.Regexp
}

// Ordered: the first generic doctor-count phrasing must run last so the
// more specific metrics claim their numbers first.
var metricPatterns = []metricPattern{
	{models.MetricSuccessfulSurgeries, regexp.MustCompile(`(?i)(\d+[,\d]*)\+?\s*(?:successful\s*)?surgeries?`)},
	{models.MetricPatientsTreated, regexp.MustCompile(`(?i)(\d+[,\d]*)\+?\s*patients?\s*(?:treated|served)`)},
	{models.MetricYearsExperience, regexp.MustCompile(`(?i)(\d+[,\d]*)\+?\s*years?\s*(?:of\s*)?experience`)},
	{models.MetricSuccessRate, regexp.MustCompile(`(?i)(\d+[,\d]*)%\s*success\s*rate`)},
	{models.MetricSatisfactionRate, regexp.MustCompile(`(?i)(\d+[,\d]*)%\s*(?:patient\s*)?satisfaction`)},
	{models.MetricProceduresPerformed, regexp.MustCompile(`(?i)(\d+[,\d]*)\+?\s*procedures?\s*(?:performed|completed)`)},
	{models.MetricDoctorsCount, regexp.MustCompile(`(?i)(\d+[,\d]*)\+?\s*(?:doctors?|physicians?|specialists?)`)},
}

// Testimonials extracts patient reviews and the facility's advertised
// success metrics. Metrics come off the home page; reviews come off a
// dedicated testimonials page when one exists, otherwise the home page.
// The stage succeeds when either pass produced anything.
func (e *Extractor) Testimonials(ctx context.Context, f models.Facility) (result models.StageResult) {
	defer guard(&result)

	log := e.Log.With().Str("facility", f.Name).Str("stage", models.StageTestimonials).Logger()

	sess, err := e.OpenSession(ctx)
	if err != nil {
		return failed(err)
	}
	defer sess.Close()

	home, err := openDocument(ctx, sess, f.Website)
	if err != nil {
		return failed(err)
	}

	metrics := parseMetrics(visibleText(home), f.ID, f.Website)

	doc := home
	sourceURL := f.Website
	if reviewURL, ok := locate.FindPage(ctx, home, f.Website, locate.TopicTestimonials, e.Probe); ok && reviewURL != f.Website {
		log.Info().Str("url", reviewURL).Msg("testimonials page located")
		if reviewDoc, err := openDocument(ctx, sess, reviewURL); err == nil {
			doc = reviewDoc
			sourceURL = reviewURL
		} else {
			log.Warn().Err(err).Msg("testimonials page load failed, mining home page")
		}
	}

	testimonials := parseTestimonials(doc, f.ID, sourceURL)
	if len(testimonials) == 0 && len(metrics) == 0 {
		log.Info().Msg("no testimonials or metrics found")
		return missed()
	}

	savedMetrics := 0
	for _, m := range metrics {
		if err := e.Sink.UpsertMetric(ctx, m); err != nil {
			log.Warn().Err(err).Str("metric", m.MetricType).Msg("metric upsert failed")
			continue
		}
		savedMetrics++
	}

	savedTestimonials := saveTestimonials(ctx, e.Sink, log, testimonials)
	if err := e.Sink.SetTestimonialStats(ctx, f.ID, savedTestimonials, metrics); err != nil {
		log.Warn().Err(err).Msg("testimonial stats update failed")
	}

	log.Info().
		Int("testimonials", savedTestimonials).
		Int("metrics", savedMetrics).
		Msg("testimonials extracted")
	return models.StageResult{
		Attempted: true,
		Success:   true,
		Count:     savedTestimonials,
		Metrics:   savedMetrics,
	}
}

// parseMetrics mines advertised aggregate statistics out of page text. One
// metric per type; the first phrasing hit wins.
func parseMetrics(text, facilityID, sourceURL string) []models.SuccessMetric {
	var metrics []models.SuccessMetric
	for _, p := range metricPatterns {
		match := p.regex.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		metrics = append(metrics, models.SuccessMetric{
			FacilityID:  facilityID,
			MetricType:  p.metricType,
			MetricValue: strings.ReplaceAll(match[1], ",", ""),
			Description: strings.TrimSpace(match[0]),
			SourceURL:   sourceURL,
		})
	}
	return metrics
}

// rawTestimonial is a candidate review before the field miners run.
type rawTestimonial struct {
	text       string
	name       string
	ratingText string
	dateText   string
	fullText   string
}

// parseTestimonials walks the selector cascade, stopping at the first
// family that yields reviews, then appends schema.org Review markup and
// deduplicates on the opening characters of each review.
func parseTestimonials(doc *goquery.Document, facilityID, sourceURL string) []models.Testimonial {
	var raws []rawTestimonial

	for _, selector := range testimonialSelectors {
		doc.Find(selector).Each(func(_ int, el *goquery.Selection) {
			full := strings.TrimSpace(el.Text())
			text := firstText(el, testimonialTextSelector)
			if text == "" {
				text = full
			}
			if len(text) <= models.MinReviewLength {
				return
			}
			ratingText := firstText(el, testimonialRatingSelector)
			if ratingText == "" {
				ratingText, _ = el.Find(testimonialRatingSelector).First().Attr("data-rating")
			}
			raws = append(raws, rawTestimonial{
				text:       text,
				name:       firstText(el, testimonialNameSelector),
				ratingText: ratingText,
				dateText:   firstText(el, testimonialDateSelector),
				fullText:   full,
			})
		})
		if len(raws) > 0 {
			break
		}
	}

	doc.Find(reviewSchemaSelector).Each(func(_ int, el *goquery.Selection) {
		text := firstText(el, `[itemprop="reviewBody"]`)
		if text == "" {
			return
		}
		ratingText := firstText(el, `[itemprop="ratingValue"]`)
		if ratingText == "" {
			ratingText, _ = el.Find(`[itemprop="ratingValue"]`).First().Attr("content")
		}
		dateText := firstText(el, `[itemprop="datePublished"]`)
		if dateText == "" {
			dateText, _ = el.Find(`[itemprop="datePublished"]`).First().Attr("content")
		}
		raws = append(raws, rawTestimonial{
			text:       text,
			name:       firstText(el, `[itemprop="author"]`),
			ratingText: ratingText,
			dateText:   dateText,
			fullText:   strings.TrimSpace(el.Text()),
		})
	})

	var testimonials []models.Testimonial
	seen := map[string]bool{}
	for _, raw := range raws {
		prefix := clip(raw.text, testimonialDedupePrefix)
		if seen[prefix] {
			continue
		}
		seen[prefix] = true

		t := models.Testimonial{
			FacilityID:  facilityID,
			PatientName: raw.name,
			Rating:      models.DefaultRating,
			ReviewText:  raw.text,
			SourceURL:   sourceURL,
		}
		ratingSource := raw.ratingText
		if ratingSource == "" {
			ratingSource = raw.fullText
		}
		if rating, ok := mine.ExtractRating(ratingSource); ok {
			t.Rating = rating
		}
		dateSource := raw.dateText
		if dateSource == "" {
			dateSource = raw.fullText
		}
		if date, ok := mine.ExtractDate(dateSource); ok {
			t.ReviewDate = date
		}
		if procedure, ok := mine.ExtractProcedureKeyword(raw.text); ok {
			t.ProcedureName = procedure
		}
		if t.Viable() {
			testimonials = append(testimonials, t)
		}
	}
	return testimonials
}

func saveTestimonials(ctx context.Context, sink Sink, log zerolog.Logger, testimonials []models.Testimonial) int {
	saved := 0
	for _, t := range testimonials {
		err := sink.InsertTestimonial(ctx, t)
		switch {
		case err == nil:
			saved++
		case store.IsConflict(err):
			log.Debug().Msg("duplicate testimonial skipped")
		default:
			log.Warn().Err(err).Msg("testimonial insert failed")
		}
	}
	return saved
}
