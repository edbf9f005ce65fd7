package models

import (
	"fmt"
	"strings"
	"time"
)

// Pipeline stage names, in execution order.
const (
	StageDoctors      = "doctors"
	StagePricing      = "pricing"
	StagePackages     = "packages"
	StageTestimonials = "testimonials"
	StageVision       = "ai"
)

// StageResult is the outcome of one extractor stage for one facility.
type StageResult struct {
	Attempted bool   `json:"attempted"`
	Success   bool   `json:"success"`
	Count     int    `json:"count"`
	Metrics   int    `json:"metrics,omitempty"` // testimonials stage only
	Err       string `json:"error,omitempty"`
}

// RunResult is the outcome of enriching one facility in one pipeline pass.
type RunResult struct {
	FacilityID   string      `json:"facility_id"`
	FacilityName string      `json:"facility_name"`
	Doctors      StageResult `json:"doctors"`
	Pricing      StageResult `json:"pricing"`
	Packages     StageResult `json:"packages"`
	Testimonials StageResult `json:"testimonials"`
	Vision       StageResult `json:"ai"`
}

// Enriched reports whether any stage succeeded for this facility.
func (r *RunResult) Enriched() bool {
	return r.Doctors.Success || r.Pricing.Success || r.Packages.Success ||
		r.Testimonials.Success || r.Vision.Success
}

// Report aggregates a whole batch run.
type Report struct {
	Title             string
	Facilities        int
	Enriched          int
	TotalDoctors      int
	TotalPricing      int
	TotalPackages     int
	TotalTestimonials int
	TotalMetrics      int
	VisionCalls       int
	VisionCostUSD     float64
	Elapsed           time.Duration
}

// Add folds one facility's result into the report totals.
func (rp *Report) Add(r RunResult) {
	rp.Facilities++
	if r.Enriched() {
		rp.Enriched++
	}
	rp.TotalDoctors += r.Doctors.Count
	rp.TotalPricing += r.Pricing.Count
	rp.TotalPackages += r.Packages.Count
	rp.TotalTestimonials += r.Testimonials.Count
	rp.TotalMetrics += r.Testimonials.Metrics
	if r.Vision.Success {
		rp.VisionCalls++
	}
}

// SuccessRate is the percentage of facilities with at least one successful
// stage. Zero facilities yields zero, not NaN.
func (rp *Report) SuccessRate() float64 {
	if rp.Facilities == 0 {
		return 0
	}
	return float64(rp.Enriched) / float64(rp.Facilities) * 100
}

// Render formats the aggregate summary block printed at the end of a run.
func (rp *Report) Render() string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	title := rp.Title
	if title == "" {
		title = "ENRICHMENT SUMMARY"
	}
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", rule, title, rule)
	fmt.Fprintf(&b, "Total Facilities Processed: %d\n", rp.Facilities)
	fmt.Fprintf(&b, "Successfully Enriched: %d\n", rp.Enriched)
	if rp.Elapsed > 0 {
		fmt.Fprintf(&b, "Total Time: %.1f minutes\n", rp.Elapsed.Minutes())
	}
	fmt.Fprintf(&b, "\nData Extracted:\n")
	fmt.Fprintf(&b, "   Doctors: %d\n", rp.TotalDoctors)
	fmt.Fprintf(&b, "   Procedure Prices: %d\n", rp.TotalPricing)
	fmt.Fprintf(&b, "   Packages: %d\n", rp.TotalPackages)
	fmt.Fprintf(&b, "   Testimonials: %d\n", rp.TotalTestimonials)
	fmt.Fprintf(&b, "   Success Metrics: %d\n", rp.TotalMetrics)
	if rp.VisionCostUSD > 0 {
		fmt.Fprintf(&b, "\nEstimated AI Cost: $%.2f\n", rp.VisionCostUSD)
	}
	fmt.Fprintf(&b, "\nSuccess Rate: %.1f%%\n%s\n", rp.SuccessRate(), rule)
	return b.String()
}
