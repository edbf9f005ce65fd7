package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"oasara-facility-enrichment/internal/models"
)

// InsertDoctor inserts one staff record. Returns ErrConflict on a
// duplicate, which callers count as neither saved nor failed.
func (s *Store) InsertDoctor(ctx context.Context, d models.Doctor) error {
	return s.insert(ctx, "doctors", goqu.Record{
		"facility_id":      d.FacilityID,
		"name":             d.Name,
		"specialty":        nullString(d.Specialty),
		"bio":              nullString(d.Bio),
		"image_url":        nullString(d.ImageURL),
		"qualifications":   pq.Array(d.Qualifications),
		"languages":        pq.Array(d.Languages),
		"years_experience": nullInt(d.YearsExperience),
		"email":            nullString(d.Email),
		"source":           nullString(d.Source),
	})
}

// InsertProcedurePrice inserts one procedure-to-price association.
func (s *Store) InsertProcedurePrice(ctx context.Context, p models.ProcedurePrice) error {
	return s.insert(ctx, "procedure_pricing", goqu.Record{
		"facility_id":    p.FacilityID,
		"procedure_name": p.ProcedureName,
		"price_usd":      p.PriceUSD,
		"price_range":    nullString(p.PriceDisplay),
		"currency":       p.Currency,
		"source_url":     nullString(p.SourceURL),
		"verified":       p.Verified,
		"last_verified":  time.Now().UTC(),
		"source":         nullString(p.Source),
	})
}

// InsertPackage inserts one bundled offer.
func (s *Store) InsertPackage(ctx context.Context, p models.Package) error {
	return s.insert(ctx, "facility_packages", goqu.Record{
		"facility_id":   p.FacilityID,
		"package_name":  p.Name,
		"description":   nullString(p.Description),
		"price_usd":     p.PriceUSD,
		"price_local":   nullString(p.PriceDisplay),
		"currency":      p.Currency,
		"includes":      pq.Array(p.Includes),
		"duration_days": nullInt(p.DurationDays),
		"source_url":    nullString(p.SourceURL),
		"source":        nullString(p.Source),
	})
}

// InsertTestimonial inserts one patient review.
func (s *Store) InsertTestimonial(ctx context.Context, t models.Testimonial) error {
	return s.insert(ctx, "testimonials", goqu.Record{
		"facility_id":    t.FacilityID,
		"patient_name":   nullString(t.PatientName),
		"procedure_name": nullString(t.ProcedureName),
		"rating":         t.Rating,
		"review_text":    t.ReviewText,
		"review_date":    nullString(t.ReviewDate),
		"verified":       t.Verified,
		"source_url":     nullString(t.SourceURL),
	})
}

// UpsertMetric writes one success metric, keyed on (facility_id,
// metric_type): re-running the same metric replaces the row instead of
// accumulating duplicates.
func (s *Store) UpsertMetric(ctx context.Context, m models.SuccessMetric) error {
	query, args, err := s.q.Insert("success_metrics").
		Rows(goqu.Record{
			"facility_id":  m.FacilityID,
			"metric_type":  m.MetricType,
			"metric_value": m.MetricValue,
			"description":  nullString(m.Description),
			"source_url":   nullString(m.SourceURL),
			"verified":     m.Verified,
		}).
		OnConflict(goqu.DoUpdate("facility_id, metric_type", goqu.Record{
			"metric_value": m.MetricValue,
			"description":  nullString(m.Description),
			"source_url":   nullString(m.SourceURL),
		})).
		ToSQL()
	if err != nil {
		return fmt.Errorf("store: build metric upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: upsert metric %s: %w", m.MetricType, err)
	}
	return nil
}

// InsertAIExtraction records one consolidated vision-model pass verbatim.
func (s *Store) InsertAIExtraction(ctx context.Context, e models.AIExtraction) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("store: marshal ai payload: %w", err)
	}
	return s.insert(ctx, "ai_extracted_data", goqu.Record{
		"facility_id":       e.FacilityID,
		"extraction_method": e.ExtractionMethod,
		"extracted_data":    payload,
		"extraction_date":   e.ExtractionDate,
		"confidence_score":  e.ConfidenceScore,
		"verified":          e.Verified,
	})
}
