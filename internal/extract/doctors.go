package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/locate"
	"oasara-facility-enrichment/internal/mine"
	"oasara-facility-enrichment/internal/models"
	"oasara-facility-enrichment/internal/store"
)

// Card selector families tried in order. The first family that yields any
// elements wins; mixing families on one page produces duplicate phantom
// cards.
var doctorCardSelectors = []string{
	".doctor-card",
	".team-member",
	".staff-member",
	`[class*="doctor"]`,
	`[class*="physician"]`,
	`[class*="specialist"]`,
	".medical-professional",
	".doctor-list-item",
	".physician-card",
}

const (
	doctorNameSelector      = `h1, h2, h3, h4, h5, .name, .doctor-name, [class*="name"]`
	doctorSpecialtySelector = `.specialty, .designation, .title, [class*="specialty"], [class*="title"]`
	doctorBioSelector       = `.bio, .description, p, [class*="bio"], [class*="description"]`
	doctorSchemaSelector    = `[itemtype*="Person"], [itemtype*="Physician"]`
)

// Doctors finds the facility's staff page and extracts its doctor roster.
// There is no home-page fallback: a site with no discoverable staff page
// yields a failed stage.
func (e *Extractor) Doctors(ctx context.Context, f models.Facility) (result models.StageResult) {
	defer guard(&result)

	log := e.Log.With().Str("facility", f.Name).Str("stage", models.StageDoctors).Logger()

	sess, err := e.OpenSession(ctx)
	if err != nil {
		return failed(err)
	}
	defer sess.Close()

	home, err := openDocument(ctx, sess, f.Website)
	if err != nil {
		return failed(err)
	}

	staffURL, ok := locate.FindPage(ctx, home, f.Website, locate.TopicStaff, e.Probe)
	if !ok {
		return failed(errors.New("no staff page found"))
	}
	log.Info().Str("url", staffURL).Msg("staff page located")

	doc := home
	if staffURL != f.Website {
		doc, err = openDocument(ctx, sess, staffURL)
		if err != nil {
			return failed(err)
		}
	}

	doctors := parseDoctors(doc, f.ID)
	if len(doctors) == 0 {
		log.Info().Msg("no doctors found")
		return missed()
	}

	saved := saveDoctors(ctx, e.Sink, log, doctors)
	if err := e.Sink.SetDoctorsCount(ctx, f.ID, saved); err != nil {
		log.Warn().Err(err).Msg("doctors count update failed")
	}

	log.Info().Int("found", len(doctors)).Int("saved", saved).Msg("doctors extracted")
	return models.StageResult{Attempted: true, Success: true, Count: saved}
}

// parseDoctors walks the card selector cascade, then falls back to
// schema.org Person markup. Names are deduplicated exactly.
func parseDoctors(doc *goquery.Document, facilityID string) []models.Doctor {
	var cards *goquery.Selection
	for _, selector := range doctorCardSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		cards = doc.Find(doctorSchemaSelector)
	}

	var doctors []models.Doctor
	seen := map[string]bool{}
	cards.Each(func(_ int, card *goquery.Selection) {
		d := doctorFromCard(card, facilityID)
		if !d.Viable() || seen[d.Name] {
			return
		}
		seen[d.Name] = true
		doctors = append(doctors, d)
	})
	return doctors
}

func doctorFromCard(card *goquery.Selection, facilityID string) models.Doctor {
	bio := firstText(card, doctorBioSelector)
	specialty := firstText(card, doctorSpecialtySelector)

	d := models.Doctor{
		FacilityID: facilityID,
		Name:       firstText(card, doctorNameSelector),
		Specialty:  specialty,
		Bio:        bio,
	}

	if img := card.Find("img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok && src != "" {
			d.ImageURL = src
		} else if src, ok := img.Attr("data-src"); ok {
			d.ImageURL = src
		}
	}
	if mail, ok := card.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		d.Email = strings.TrimPrefix(mail, "mailto:")
	}

	credentialSource := bio
	if credentialSource == "" {
		credentialSource = specialty
	}
	d.Qualifications = mine.ExtractQualifications(credentialSource)
	d.Languages = mine.ExtractLanguages(bio)
	if years, ok := mine.ExtractYearsExperience(bio); ok {
		d.YearsExperience = years
	}
	return d
}

func saveDoctors(ctx context.Context, sink Sink, log zerolog.Logger, doctors []models.Doctor) int {
	saved := 0
	for _, d := range doctors {
		err := sink.InsertDoctor(ctx, d)
		switch {
		case err == nil:
			saved++
		case store.IsConflict(err):
			log.Debug().Str("doctor", d.Name).Msg("duplicate doctor skipped")
		default:
			log.Warn().Err(err).Str("doctor", d.Name).Msg("doctor insert failed")
		}
	}
	return saved
}
