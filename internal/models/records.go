package models

import (
	"strings"
	"time"
)

// Record sources. Heuristic extractors leave Source empty; the vision pass
// tags everything it re-inserts so the two paths stay distinguishable.
const (
	SourceAIExtraction = "ai_extraction"
)

// Doctor is one named medical professional mined from a facility site.
type Doctor struct {
	FacilityID      string   `json:"facility_id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	Qualifications  []string `json:"qualifications"`
	Languages       []string `json:"languages"`
	YearsExperience int      `json:"years_experience,omitempty"`
	Email           string   `json:"email,omitempty"`
	Source          string   `json:"source,omitempty"`
}

// Viable reports whether the record passes the minimum bar for persistence.
// Names of one or two characters are selector noise, not people.
func (d *Doctor) Viable() bool {
	return len(strings.TrimSpace(d.Name)) > 2
}

// PriceRange is the original min/max when a price was advertised as a band.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProcedurePrice is one procedure-to-price association.
type ProcedurePrice struct {
	FacilityID    string      `json:"facility_id"`
	ProcedureName string      `json:"procedure_name"`
	PriceUSD      float64     `json:"price_usd"`
	PriceDisplay  string      `json:"price_range"`
	Range         *PriceRange `json:"range,omitempty"`
	Currency      string      `json:"currency"`
	SourceURL     string      `json:"source_url"`
	Verified      bool        `json:"verified"`
	Source        string      `json:"source,omitempty"`
}

// Package is an all-inclusive bundled offer.
type Package struct {
	FacilityID   string   `json:"facility_id"`
	Name         string   `json:"package_name"`
	Description  string   `json:"description"`
	PriceUSD     float64  `json:"price_usd"`
	PriceDisplay string   `json:"price_local,omitempty"`
	Currency     string   `json:"currency"`
	Includes     []string `json:"includes"`
	DurationDays int      `json:"duration_days,omitempty"`
	SourceURL    string   `json:"source_url"`
	Source       string   `json:"source,omitempty"`
}

// DefaultPackageName labels packages whose heading could not be found.
const DefaultPackageName = "Medical Package"

// Viable requires a resolved price; everything else about a package is
// best-effort.
func (p *Package) Viable() bool {
	return p.PriceUSD > 0
}

// Testimonial is one patient review.
type Testimonial struct {
	FacilityID    string `json:"facility_id"`
	PatientName   string `json:"patient_name,omitempty"`
	ProcedureName string `json:"procedure_name,omitempty"`
	Rating        int    `json:"rating"`
	ReviewText    string `json:"review_text"`
	ReviewDate    string `json:"review_date,omitempty"` // ISO calendar date
	Verified      bool   `json:"verified"`
	SourceURL     string `json:"source_url"`
}

// MinReviewLength is the shortest review text worth keeping. Anything at or
// below this is a fragment of navigation chrome, not a review.
const MinReviewLength = 20

// DefaultRating is used when no rating can be mined from the review.
const DefaultRating = 5

func (t *Testimonial) Viable() bool {
	return len(t.ReviewText) > MinReviewLength
}

// Metric types recognized by the success-metric miner. The store upserts on
// (facility_id, metric_type), so a facility holds at most one row per type.
const (
	MetricSuccessfulSurgeries = "successful_surgeries"
	MetricPatientsTreated     = "patients_treated"
	MetricYearsExperience     = "years_experience"
	MetricSuccessRate         = "success_rate"
	MetricSatisfactionRate    = "satisfaction_rate"
	MetricProceduresPerformed = "procedures_performed"
	MetricDoctorsCount        = "doctors_count"
)

// SuccessMetric is one aggregate statistic a facility advertises about itself.
type SuccessMetric struct {
	FacilityID  string `json:"facility_id"`
	MetricType  string `json:"metric_type"`
	MetricValue string `json:"metric_value"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
	Verified    bool   `json:"verified"`
}

// AIPayload is the consolidated document the vision model returns for a
// facility: every topic in one pass.
type AIPayload struct {
	Doctors      []AIDoctor      `json:"doctors"`
	Pricing      []AIPrice       `json:"pricing"`
	Email        string          `json:"email"`
	Languages    []string        `json:"languages"`
	Procedures   []string        `json:"procedures"`
	Packages     []AIPackage     `json:"packages"`
	Metrics      map[string]any  `json:"metrics"`
	Testimonials []AITestimonial `json:"testimonials"`
}

type AIDoctor struct {
	Name           string   `json:"name"`
	Specialty      string   `json:"specialty"`
	Qualifications []string `json:"qualifications"`
}

type AIPrice struct {
	Procedure  string  `json:"procedure"`
	PriceUSD   float64 `json:"price_usd"`
	PriceRange string  `json:"price_range"`
}

type AIPackage struct {
	Name     string   `json:"name"`
	PriceUSD float64  `json:"price_usd"`
	Includes []string `json:"includes"`
}

type AITestimonial struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// AIExtraction is one consolidated vision-model extraction attempt,
// persisted verbatim alongside the per-table re-inserts.
type AIExtraction struct {
	FacilityID       string    `json:"facility_id"`
	ExtractionMethod string    `json:"extraction_method"`
	Payload          AIPayload `json:"extracted_data"`
	ExtractionDate   time.Time `json:"extraction_date"`
	ConfidenceScore  float64   `json:"confidence_score"`
	Verified         bool      `json:"verified"`
}
