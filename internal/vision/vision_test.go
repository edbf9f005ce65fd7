package vision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/models"
	"oasara-facility-enrichment/internal/store"
)

const samplePayload = `{
	"doctors": [{"name": "Dr. Ayşe Kaya", "specialty": "Hair Transplant", "qualifications": ["MD"]}],
	"pricing": [{"procedure": "Hair Transplant", "price_usd": 2500, "price_range": "$2,000 - $3,000"}],
	"email": "intl@clinic.example.com",
	"languages": ["English", "Turkish"],
	"procedures": ["Hair Transplant", "Rhinoplasty"],
	"packages": [{"name": "FUE Package", "price_usd": 2900, "includes": ["hotel", "transfers"]}],
	"metrics": {"successful_surgeries": "12000"},
	"testimonials": [{"text": "Natural looking results, excellent aftercare.", "rating": 5}]
}`

func TestParsePayloadFenced(t *testing.T) {
	content := "Here is the extracted data:\n```json\n" + samplePayload + "\n```\nLet me know if you need more."
	payload, err := ParsePayload(content)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if len(payload.Doctors) != 1 || payload.Doctors[0].Name != "Dr. Ayşe Kaya" {
		t.Errorf("Doctors = %+v", payload.Doctors)
	}
	if len(payload.Pricing) != 1 || payload.Pricing[0].PriceUSD != 2500 {
		t.Errorf("Pricing = %+v", payload.Pricing)
	}
	if payload.Metrics["successful_surgeries"] != "12000" {
		t.Errorf("Metrics = %+v", payload.Metrics)
	}
}

func TestParsePayloadBareFence(t *testing.T) {
	content := "```\n" + samplePayload + "\n```"
	payload, err := ParsePayload(content)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if payload.Email != "intl@clinic.example.com" {
		t.Errorf("Email = %q", payload.Email)
	}
}

func TestParsePayloadRawJSON(t *testing.T) {
	payload, err := ParsePayload(samplePayload)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if len(payload.Packages) != 1 || payload.Packages[0].PriceUSD != 2900 {
		t.Errorf("Packages = %+v", payload.Packages)
	}
}

func TestParsePayloadGarbage(t *testing.T) {
	longReply := "I could not find any structured data on this page. " + strings.Repeat("Sorry. ", 50)
	_, err := ParsePayload(longReply)
	if err == nil {
		t.Fatal("expected parse failure")
	}
	// The error carries a clipped preview, not the whole reply.
	if len(err.Error()) > 400 {
		t.Errorf("error message too long: %d bytes", len(err.Error()))
	}
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	// Clipping must back off a multi-byte rune straddling the cut, not
	// split it.
	reply := strings.Repeat("a", 199) + "ğ" + strings.Repeat("b", 100)
	got := preview(reply, 200)
	if !utf8.ValidString(got) {
		t.Fatalf("preview is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", 199) {
		t.Errorf("preview = %q, want the split rune dropped", got)
	}

	if got := preview("short", 200); got != "short" {
		t.Errorf("preview of short input = %q, want unchanged", got)
	}
}

// fakeExtractor returns a canned payload or error.
type fakeExtractor struct {
	payload models.AIPayload
	err     error
}

func (f *fakeExtractor) Extract(context.Context, models.Facility, []byte) (models.AIPayload, error) {
	return f.payload, f.err
}

// visionSink records what the run persisted.
type visionSink struct {
	extractions []models.AIExtraction
	doctors     []models.Doctor
	prices      []models.ProcedurePrice
	packages    []models.Package
	stamped     bool
}

func (s *visionSink) InsertAIExtraction(_ context.Context, e models.AIExtraction) error {
	s.extractions = append(s.extractions, e)
	return nil
}

func (s *visionSink) InsertDoctor(_ context.Context, d models.Doctor) error {
	if d.Name == "Dr. Already Known" {
		return store.ErrConflict
	}
	s.doctors = append(s.doctors, d)
	return nil
}

func (s *visionSink) InsertProcedurePrice(_ context.Context, p models.ProcedurePrice) error {
	s.prices = append(s.prices, p)
	return nil
}

func (s *visionSink) InsertPackage(_ context.Context, p models.Package) error {
	s.packages = append(s.packages, p)
	return nil
}

func (s *visionSink) StampAIExtraction(context.Context, string, models.AIPayload, string) error {
	s.stamped = true
	return nil
}

var visionFacility = models.Facility{ID: "f-7", Name: "Estetik Istanbul", Website: "https://estetik.example.com"}

func newRunner(ex PayloadExtractor, sink Sink, capture Capture) *Runner {
	return &Runner{
		Capture:    capture,
		Extractor:  ex,
		Sink:       sink,
		Log:        zerolog.Nop(),
		Confidence: 0.85,
	}
}

func cannedCapture() Capture {
	return func(context.Context, string) ([]byte, error) { return []byte{0xff, 0xd8}, nil }
}

func TestRunnerPersistsPayload(t *testing.T) {
	payload := models.AIPayload{
		Doctors: []models.AIDoctor{
			{Name: "Dr. Ayşe Kaya", Specialty: "Hair Transplant"},
			{Name: ""}, // nameless entries are dropped
			{Name: "Dr. Already Known"},
		},
		Pricing: []models.AIPrice{
			{Procedure: "Hair Transplant", PriceUSD: 2500},
			{Procedure: "", PriceUSD: 900},  // no procedure
			{Procedure: "Rhinoplasty", PriceUSD: 0}, // no price
		},
		Packages: []models.AIPackage{
			{Name: "FUE Package", PriceUSD: 2900, Includes: []string{"hotel"}},
		},
	}
	sink := &visionSink{}

	result := newRunner(&fakeExtractor{payload: payload}, sink, cannedCapture()).
		Run(context.Background(), visionFacility)

	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	// 1 doctor + 1 price + 1 package survive the filters and the conflict.
	if result.Count != 3 {
		t.Errorf("Count = %d, want 3", result.Count)
	}
	if len(sink.extractions) != 1 {
		t.Fatalf("extraction records = %d, want 1", len(sink.extractions))
	}
	rec := sink.extractions[0]
	if rec.ExtractionMethod != ExtractionMethod {
		t.Errorf("ExtractionMethod = %q", rec.ExtractionMethod)
	}
	if rec.ConfidenceScore != 0.85 {
		t.Errorf("ConfidenceScore = %v", rec.ConfidenceScore)
	}
	if len(sink.doctors) != 1 || sink.doctors[0].Source != models.SourceAIExtraction {
		t.Errorf("doctors = %+v, want one tagged row", sink.doctors)
	}
	if len(sink.prices) != 1 || sink.prices[0].Source != models.SourceAIExtraction {
		t.Errorf("prices = %+v, want one tagged row", sink.prices)
	}
	if !sink.stamped {
		t.Error("facility must be stamped with the consolidated payload")
	}
}

func TestRunnerScreenshotFailure(t *testing.T) {
	capture := func(context.Context, string) ([]byte, error) {
		return nil, errors.New("browser crashed")
	}
	sink := &visionSink{}

	result := newRunner(&fakeExtractor{}, sink, capture).Run(context.Background(), visionFacility)

	if result.Success {
		t.Fatal("screenshot failure must fail the stage")
	}
	if len(sink.extractions) != 0 {
		t.Error("nothing must be persisted on failure")
	}
}

func TestRunnerExtractionFailure(t *testing.T) {
	sink := &visionSink{}
	runner := newRunner(&fakeExtractor{err: errors.New("model declined")}, sink, cannedCapture())

	result := runner.Run(context.Background(), visionFacility)

	if result.Success {
		t.Fatal("extraction failure must fail the stage")
	}
	if result.Err == "" {
		t.Error("failure must carry the reason")
	}
	if sink.stamped {
		t.Error("facility must not be stamped on failure")
	}
}
