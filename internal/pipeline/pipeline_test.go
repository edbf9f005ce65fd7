package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/models"
)

// scriptedStages records call order and plays back canned results.
type scriptedStages struct {
	calls   []string
	results map[string]models.StageResult
}

func (s *scriptedStages) stage(name string) models.StageResult {
	s.calls = append(s.calls, name)
	if r, ok := s.results[name]; ok {
		return r
	}
	return models.StageResult{Attempted: true}
}

func (s *scriptedStages) Doctors(context.Context, models.Facility) models.StageResult {
	return s.stage(models.StageDoctors)
}
func (s *scriptedStages) Pricing(context.Context, models.Facility) models.StageResult {
	return s.stage(models.StagePricing)
}
func (s *scriptedStages) Packages(context.Context, models.Facility) models.StageResult {
	return s.stage(models.StagePackages)
}
func (s *scriptedStages) Testimonials(context.Context, models.Facility) models.StageResult {
	return s.stage(models.StageTestimonials)
}

type scriptedVision struct {
	called bool
	result models.StageResult
}

func (v *scriptedVision) Run(context.Context, models.Facility) models.StageResult {
	v.called = true
	return v.result
}

type recordingMarker struct {
	marked []string
}

func (m *recordingMarker) MarkEnriched(_ context.Context, facilityID string) error {
	m.marked = append(m.marked, facilityID)
	return nil
}

func newOrchestrator(stages *scriptedStages, v VisionRunner, m Marker) *Orchestrator {
	return &Orchestrator{
		Stages: stages,
		Vision: v,
		Marker: m,
		Log:    zerolog.Nop(),
		Sleep:  func(time.Duration) {},
	}
}

var facility = models.Facility{ID: "f-1", Name: "Acibadem", Website: "https://acibadem.example.com"}

func TestEnrichOneRunsStagesInOrder(t *testing.T) {
	stages := &scriptedStages{results: map[string]models.StageResult{
		models.StageDoctors: {Attempted: true, Success: true, Count: 3},
	}}
	marker := &recordingMarker{}

	result := newOrchestrator(stages, nil, marker).EnrichOne(context.Background(), facility, Options{})

	want := []string{models.StageDoctors, models.StagePricing, models.StagePackages, models.StageTestimonials}
	if len(stages.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", stages.calls, want)
	}
	for i, stage := range want {
		if stages.calls[i] != stage {
			t.Errorf("call %d = %q, want %q", i, stages.calls[i], stage)
		}
	}
	if !result.Enriched() {
		t.Error("one successful stage marks the facility enriched")
	}
	if len(marker.marked) != 1 || marker.marked[0] != facility.ID {
		t.Errorf("marked = %v, want the facility", marker.marked)
	}
}

func TestEnrichOneStageFailureDoesNotStopTheRun(t *testing.T) {
	stages := &scriptedStages{results: map[string]models.StageResult{
		models.StageDoctors: {Attempted: true, Err: "browser crashed"},
		models.StagePricing: {Attempted: true, Success: true, Count: 2},
	}}
	marker := &recordingMarker{}

	result := newOrchestrator(stages, nil, marker).EnrichOne(context.Background(), facility, Options{})

	if len(stages.calls) != 4 {
		t.Fatalf("calls = %v, want all four stages", stages.calls)
	}
	if !result.Enriched() {
		t.Error("later stage success still counts")
	}
}

func TestEnrichOneSkipFlags(t *testing.T) {
	stages := &scriptedStages{}
	marker := &recordingMarker{}

	newOrchestrator(stages, nil, marker).EnrichOne(context.Background(), facility, Options{
		SkipDoctors:  true,
		SkipPackages: true,
	})

	want := []string{models.StagePricing, models.StageTestimonials}
	if len(stages.calls) != len(want) || stages.calls[0] != want[0] || stages.calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", stages.calls, want)
	}
}

func TestEnrichOneVisionRunsWheneverEnabled(t *testing.T) {
	// Vision runs for every facility when enabled, even after a
	// heuristic stage already found data.
	stages := &scriptedStages{results: map[string]models.StageResult{
		models.StagePricing: {Attempted: true, Success: true, Count: 1},
	}}
	vision := &scriptedVision{result: models.StageResult{Attempted: true, Success: true, Count: 4}}
	marker := &recordingMarker{}

	result := newOrchestrator(stages, vision, marker).EnrichOne(context.Background(), facility, Options{UseVision: true})
	if !vision.called {
		t.Error("vision must run when enabled, regardless of earlier stages")
	}
	if !result.Vision.Success {
		t.Errorf("Vision result lost: %+v", result)
	}
}

func TestEnrichOneVisionStaysOffByDefault(t *testing.T) {
	stages := &scriptedStages{}
	vision := &scriptedVision{result: models.StageResult{Attempted: true, Success: true}}
	marker := &recordingMarker{}

	newOrchestrator(stages, vision, marker).EnrichOne(context.Background(), facility, Options{})
	if vision.called {
		t.Error("vision must not run without the option set")
	}
}

func TestEnrichOneInvalidFacility(t *testing.T) {
	stages := &scriptedStages{}
	marker := &recordingMarker{}

	result := newOrchestrator(stages, nil, marker).
		EnrichOne(context.Background(), models.Facility{ID: "f-2", Name: "No Website"}, Options{})

	if len(stages.calls) != 0 {
		t.Errorf("no stage must run without a website, got %v", stages.calls)
	}
	if result.Enriched() {
		t.Error("unprocessed facility cannot be enriched")
	}
	if len(marker.marked) != 0 {
		t.Error("unprocessed facility must not be stamped")
	}
}

func TestEnrichBatchAggregates(t *testing.T) {
	stages := &scriptedStages{results: map[string]models.StageResult{
		models.StageDoctors:      {Attempted: true, Success: true, Count: 2},
		models.StageTestimonials: {Attempted: true, Success: true, Count: 1, Metrics: 2},
	}}
	marker := &recordingMarker{}

	facilities := []models.Facility{
		facility,
		{ID: "f-2", Name: "Second", Website: "https://second.example.com"},
	}
	report := newOrchestrator(stages, nil, marker).EnrichBatch(context.Background(), facilities, Options{})

	if report.Facilities != 2 || report.Enriched != 2 {
		t.Errorf("report = %+v, want 2 processed and enriched", report)
	}
	if report.TotalDoctors != 4 || report.TotalTestimonials != 2 || report.TotalMetrics != 4 {
		t.Errorf("totals wrong: %+v", report)
	}
	if report.SuccessRate() != 100 {
		t.Errorf("SuccessRate = %v, want 100", report.SuccessRate())
	}
}

func TestRunStageSingleTopic(t *testing.T) {
	stages := &scriptedStages{results: map[string]models.StageResult{
		models.StagePricing: {Attempted: true, Success: true, Count: 5},
	}}
	marker := &recordingMarker{}

	report := newOrchestrator(stages, nil, marker).
		RunStage(context.Background(), models.StagePricing, []models.Facility{facility}, Options{})

	if len(stages.calls) != 1 || stages.calls[0] != models.StagePricing {
		t.Errorf("calls = %v, want pricing only", stages.calls)
	}
	if report.TotalPricing != 5 {
		t.Errorf("TotalPricing = %d, want 5", report.TotalPricing)
	}
	if len(marker.marked) != 1 {
		t.Errorf("marked = %v, want the facility stamped", marker.marked)
	}
}

func TestRunStageFacilityPacing(t *testing.T) {
	facilities := []models.Facility{
		facility,
		{ID: "f-2", Name: "Second", Website: "https://second.example.com"},
	}

	tests := []struct {
		stage string
		want  time.Duration
	}{
		{models.StageDoctors, TopicDelay},
		{models.StagePricing, TopicDelay},
		{models.StagePackages, TopicDelay},
		{models.StageTestimonials, TopicDelay},
		{models.StageVision, VisionDelay},
	}
	for _, tt := range tests {
		var slept []time.Duration
		o := newOrchestrator(&scriptedStages{}, &scriptedVision{}, &recordingMarker{})
		o.Sleep = func(d time.Duration) { slept = append(slept, d) }

		o.RunStage(context.Background(), tt.stage, facilities, Options{})

		if len(slept) != 1 || slept[0] != tt.want {
			t.Errorf("%s: slept %v, want one pause of %v", tt.stage, slept, tt.want)
		}
	}
}

func TestEnrichBatchFacilityPacing(t *testing.T) {
	facilities := []models.Facility{
		facility,
		{ID: "f-2", Name: "Second", Website: "https://second.example.com"},
	}

	var slept []time.Duration
	o := newOrchestrator(&scriptedStages{}, nil, &recordingMarker{})
	o.Sleep = func(d time.Duration) { slept = append(slept, d) }

	o.EnrichBatch(context.Background(), facilities, Options{})

	var between int
	for _, d := range slept {
		if d == FacilityDelay {
			between++
		}
	}
	if between != 1 {
		t.Errorf("slept %v, want exactly one %v pause between facilities", slept, FacilityDelay)
	}
}

func TestRunStageVisionCost(t *testing.T) {
	vision := &scriptedVision{result: models.StageResult{Attempted: true, Success: true, Count: 2}}
	marker := &recordingMarker{}

	report := newOrchestrator(&scriptedStages{}, vision, marker).
		RunStage(context.Background(), models.StageVision,
			[]models.Facility{facility}, Options{VisionCostUSD: 0.02})

	if report.VisionCalls != 1 {
		t.Errorf("VisionCalls = %d, want 1", report.VisionCalls)
	}
	if report.VisionCostUSD != 0.02 {
		t.Errorf("VisionCostUSD = %v, want 0.02", report.VisionCostUSD)
	}
}
