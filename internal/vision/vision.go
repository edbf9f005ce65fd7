package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/models"
	"oasara-facility-enrichment/internal/store"
)

// Capture takes one screenshot of a rendered page. The pipeline binds it
// to a browser session; tests bind it to canned bytes.
type Capture func(ctx context.Context, pageURL string) ([]byte, error)

// PayloadExtractor turns a screenshot into a consolidated payload.
type PayloadExtractor interface {
	Extract(ctx context.Context, f models.Facility, screenshot []byte) (models.AIPayload, error)
}

// Sink is the slice of the persistence adapter the vision pass writes
// through.
type Sink interface {
	InsertAIExtraction(ctx context.Context, e models.AIExtraction) error
	InsertDoctor(ctx context.Context, d models.Doctor) error
	InsertProcedurePrice(ctx context.Context, p models.ProcedurePrice) error
	InsertPackage(ctx context.Context, p models.Package) error
	StampAIExtraction(ctx context.Context, facilityID string, payload models.AIPayload, method string) error
}

// Runner drives the vision extraction stage.
type Runner struct {
	Capture    Capture
	Extractor  PayloadExtractor
	Sink       Sink
	Log        zerolog.Logger
	Confidence float64
}

// Run screenshots the facility's home page, extracts a consolidated
// payload, persists it verbatim, and re-inserts the typed records with the
// extraction source marked so heuristic and model rows stay separable.
func (r *Runner) Run(ctx context.Context, f models.Facility) models.StageResult {
	log := r.Log.With().Str("facility", f.Name).Str("stage", models.StageVision).Logger()

	shot, err := r.Capture(ctx, f.Website)
	if err != nil {
		return models.StageResult{Attempted: true, Err: fmt.Sprintf("screenshot: %v", err)}
	}

	payload, err := r.Extractor.Extract(ctx, f, shot)
	if err != nil {
		log.Warn().Err(err).Msg("vision extraction failed")
		return models.StageResult{Attempted: true, Err: err.Error()}
	}

	if err := r.Sink.InsertAIExtraction(ctx, models.AIExtraction{
		FacilityID:       f.ID,
		ExtractionMethod: ExtractionMethod,
		Payload:          payload,
		ExtractionDate:   time.Now().UTC(),
		ConfidenceScore:  r.Confidence,
	}); err != nil && !store.IsConflict(err) {
		log.Warn().Err(err).Msg("ai extraction record insert failed")
	}

	saved := r.reinsert(ctx, log, f, payload)

	if err := r.Sink.StampAIExtraction(ctx, f.ID, payload, ExtractionMethod); err != nil {
		log.Warn().Err(err).Msg("facility ai stamp failed")
	}

	log.Info().
		Int("doctors", len(payload.Doctors)).
		Int("pricing", len(payload.Pricing)).
		Int("packages", len(payload.Packages)).
		Int("saved", saved).
		Msg("vision extraction complete")
	return models.StageResult{Attempted: true, Success: true, Count: saved}
}

// reinsert copies the payload's typed records into their tables with the
// source marked. Duplicates from earlier heuristic passes are expected and
// skipped.
func (r *Runner) reinsert(ctx context.Context, log zerolog.Logger, f models.Facility, payload models.AIPayload) int {
	saved := 0

	for _, d := range payload.Doctors {
		if d.Name == "" {
			continue
		}
		err := r.Sink.InsertDoctor(ctx, models.Doctor{
			FacilityID:     f.ID,
			Name:           d.Name,
			Specialty:      d.Specialty,
			Qualifications: d.Qualifications,
			Source:         models.SourceAIExtraction,
		})
		if err == nil {
			saved++
		} else if !store.IsConflict(err) {
			log.Warn().Err(err).Str("doctor", d.Name).Msg("ai doctor insert failed")
		}
	}

	for _, p := range payload.Pricing {
		if p.Procedure == "" || p.PriceUSD <= 0 {
			continue
		}
		err := r.Sink.InsertProcedurePrice(ctx, models.ProcedurePrice{
			FacilityID:    f.ID,
			ProcedureName: p.Procedure,
			PriceUSD:      p.PriceUSD,
			PriceDisplay:  p.PriceRange,
			Currency:      "USD",
			Source:        models.SourceAIExtraction,
		})
		if err == nil {
			saved++
		} else if !store.IsConflict(err) {
			log.Warn().Err(err).Str("procedure", p.Procedure).Msg("ai price insert failed")
		}
	}

	for _, pkg := range payload.Packages {
		if pkg.Name == "" || pkg.PriceUSD <= 0 {
			continue
		}
		err := r.Sink.InsertPackage(ctx, models.Package{
			FacilityID: f.ID,
			Name:       pkg.Name,
			PriceUSD:   pkg.PriceUSD,
			Currency:   "USD",
			Includes:   pkg.Includes,
			Source:     models.SourceAIExtraction,
		})
		if err == nil {
			saved++
		} else if !store.IsConflict(err) {
			log.Warn().Err(err).Str("package", pkg.Name).Msg("ai package insert failed")
		}
	}

	return saved
}
