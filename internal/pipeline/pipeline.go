// Package pipeline orchestrates the enrichment stages across a batch of
// facilities. Stages run in a fixed order per facility; a stage failure is
// recorded and the run moves on. Sites are deliberately paced with delays
// between stages and facilities.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/models"
)

// Pacing between requests to the same site and between facilities.
const (
	StageDelay    = 2 * time.Second // between stages of one facility
	FacilityDelay = 5 * time.Second // between facilities in a full run
	TopicDelay    = 3 * time.Second // between facilities in a single-topic run
	VisionDelay   = 2 * time.Second // between facilities in a vision run
)

// StageRunner is one extractor stage bound to a facility.
type StageRunner interface {
	Doctors(ctx context.Context, f models.Facility) models.StageResult
	Pricing(ctx context.Context, f models.Facility) models.StageResult
	Packages(ctx context.Context, f models.Facility) models.StageResult
	Testimonials(ctx context.Context, f models.Facility) models.StageResult
}

// VisionRunner is the model-based extraction stage.
type VisionRunner interface {
	Run(ctx context.Context, f models.Facility) models.StageResult
}

// Marker flips the enriched flag on a facility row.
type Marker interface {
	MarkEnriched(ctx context.Context, facilityID string) error
}

// Options selects which stages a run executes.
type Options struct {
	SkipDoctors      bool
	SkipPricing      bool
	SkipPackages     bool
	SkipTestimonials bool
	UseVision        bool
	VisionCostUSD    float64
}

// Orchestrator drives the per-facility stage sequence.
type Orchestrator struct {
	Stages StageRunner
	Vision VisionRunner
	Marker Marker
	Log    zerolog.Logger

	// Sleep is replaceable so tests run without real pacing.
	Sleep func(time.Duration)
}

func (o *Orchestrator) pause(d time.Duration) {
	if o.Sleep != nil {
		o.Sleep(d)
		return
	}
	time.Sleep(d)
}

// EnrichOne runs the selected stages for one facility and stamps the row
// when anything stuck.
func (o *Orchestrator) EnrichOne(ctx context.Context, f models.Facility, opts Options) models.RunResult {
	result := models.RunResult{FacilityID: f.ID, FacilityName: f.Name}
	log := o.Log.With().Str("facility", f.Name).Logger()

	if err := f.Validate(); err != nil {
		log.Warn().Err(err).Msg("facility skipped")
		return result
	}

	if !opts.SkipDoctors {
		result.Doctors = o.Stages.Doctors(ctx, f)
		o.logStage(log, models.StageDoctors, result.Doctors)
		o.pause(StageDelay)
	}
	if !opts.SkipPricing {
		result.Pricing = o.Stages.Pricing(ctx, f)
		o.logStage(log, models.StagePricing, result.Pricing)
		o.pause(StageDelay)
	}
	if !opts.SkipPackages {
		result.Packages = o.Stages.Packages(ctx, f)
		o.logStage(log, models.StagePackages, result.Packages)
		o.pause(StageDelay)
	}
	if !opts.SkipTestimonials {
		result.Testimonials = o.Stages.Testimonials(ctx, f)
		o.logStage(log, models.StageTestimonials, result.Testimonials)
	}

	if opts.UseVision && o.Vision != nil {
		result.Vision = o.Vision.Run(ctx, f)
		o.logStage(log, models.StageVision, result.Vision)
	}

	if result.Enriched() {
		if err := o.Marker.MarkEnriched(ctx, f.ID); err != nil {
			log.Warn().Err(err).Msg("enrichment stamp failed")
		}
	}
	return result
}

// EnrichBatch runs the full sequence over a batch, pacing between
// facilities, and returns the aggregate report.
func (o *Orchestrator) EnrichBatch(ctx context.Context, facilities []models.Facility, opts Options) models.Report {
	start := time.Now()
	report := models.Report{Title: "ENRICHMENT SUMMARY"}
	log := o.Log.With().Str("run_id", uuid.NewString()).Logger()

	for i, f := range facilities {
		log.Info().
			Int("n", i+1).
			Int("of", len(facilities)).
			Str("facility", f.Name).
			Msg("processing facility")

		report.Add(o.EnrichOne(ctx, f, opts))

		if i < len(facilities)-1 {
			o.pause(FacilityDelay)
		}
	}

	report.VisionCostUSD = float64(report.VisionCalls) * opts.VisionCostUSD
	report.Elapsed = time.Since(start)
	return report
}

// RunStage runs a single topic across a batch for the per-topic commands.
func (o *Orchestrator) RunStage(ctx context.Context, stage string, facilities []models.Facility, opts Options) models.Report {
	start := time.Now()
	report := models.Report{Title: stageTitle(stage)}
	runLog := o.Log.With().Str("run_id", uuid.NewString()).Logger()

	for i, f := range facilities {
		result := models.RunResult{FacilityID: f.ID, FacilityName: f.Name}
		log := runLog.With().Str("facility", f.Name).Logger()

		if err := f.Validate(); err != nil {
			log.Warn().Err(err).Msg("facility skipped")
			report.Add(result)
			continue
		}

		var sr models.StageResult
		switch stage {
		case models.StageDoctors:
			sr = o.Stages.Doctors(ctx, f)
			result.Doctors = sr
		case models.StagePricing:
			sr = o.Stages.Pricing(ctx, f)
			result.Pricing = sr
		case models.StagePackages:
			sr = o.Stages.Packages(ctx, f)
			result.Packages = sr
		case models.StageTestimonials:
			sr = o.Stages.Testimonials(ctx, f)
			result.Testimonials = sr
		case models.StageVision:
			if o.Vision != nil {
				sr = o.Vision.Run(ctx, f)
				result.Vision = sr
			}
		}
		o.logStage(log, stage, sr)

		if result.Enriched() {
			if err := o.Marker.MarkEnriched(ctx, f.ID); err != nil {
				log.Warn().Err(err).Msg("enrichment stamp failed")
			}
		}
		report.Add(result)

		if i < len(facilities)-1 {
			o.pause(stagePacing(stage))
		}
	}

	if stage == models.StageVision {
		report.VisionCostUSD = float64(report.VisionCalls) * opts.VisionCostUSD
	}
	report.Elapsed = time.Since(start)
	return report
}

func (o *Orchestrator) logStage(log zerolog.Logger, stage string, r models.StageResult) {
	if !r.Attempted {
		return
	}
	ev := log.Info()
	if r.Err != "" {
		ev = log.Warn().Str("error", r.Err)
	}
	ev.Str("stage", stage).Bool("success", r.Success).Int("count", r.Count).Msg("stage finished")
}

func stagePacing(stage string) time.Duration {
	if stage == models.StageVision {
		return VisionDelay
	}
	return TopicDelay
}

func stageTitle(stage string) string {
	switch stage {
	case models.StageDoctors:
		return "DOCTOR SCRAPING SUMMARY"
	case models.StagePricing:
		return "PRICING SCRAPING SUMMARY"
	case models.StagePackages:
		return "PACKAGE SCRAPING SUMMARY"
	case models.StageTestimonials:
		return "TESTIMONIAL SCRAPING SUMMARY"
	case models.StageVision:
		return "AI EXTRACTION SUMMARY"
	default:
		return "ENRICHMENT SUMMARY"
	}
}
