package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"oasara-facility-enrichment/internal/models"
)

// updateFacility applies one partial update to a facility row.
func (s *Store) updateFacility(ctx context.Context, facilityID string, record goqu.Record) error {
	query, args, err := s.q.Update("facilities").
		Set(record).
		Where(goqu.Ex{"id": facilityID}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("store: build facility update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: update facility %s: %w", facilityID, err)
	}
	return nil
}

// SetDoctorsCount refreshes the denormalized staff count after a doctors
// stage.
func (s *Store) SetDoctorsCount(ctx context.Context, facilityID string, count int) error {
	return s.updateFacility(ctx, facilityID, goqu.Record{"doctors_count": count})
}

// SetPricingSnapshot refreshes the pricing count and flag, and snapshots
// the raw extracted list onto the facility row for display.
func (s *Store) SetPricingSnapshot(ctx context.Context, facilityID string, count int, prices []models.ProcedurePrice) error {
	snapshot, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("store: marshal pricing snapshot: %w", err)
	}
	return s.updateFacility(ctx, facilityID, goqu.Record{
		"pricing_count":        count,
		"has_verified_pricing": count > 0,
		"actual_pricing":       snapshot,
	})
}

// SetPackagesCount refreshes the denormalized package count.
func (s *Store) SetPackagesCount(ctx context.Context, facilityID string, count int) error {
	return s.updateFacility(ctx, facilityID, goqu.Record{"packages_count": count})
}

// SetTestimonialStats refreshes the testimonial count and the
// metric-type→value snapshot.
func (s *Store) SetTestimonialStats(ctx context.Context, facilityID string, count int, metrics []models.SuccessMetric) error {
	byType := make(map[string]string, len(metrics))
	for _, m := range metrics {
		byType[m.MetricType] = m.MetricValue
	}
	snapshot, err := json.Marshal(byType)
	if err != nil {
		return fmt.Errorf("store: marshal metrics snapshot: %w", err)
	}
	return s.updateFacility(ctx, facilityID, goqu.Record{
		"testimonials_count": count,
		"success_metrics":    snapshot,
	})
}

// MarkEnriched stamps the facility once any stage of its run succeeded.
func (s *Store) MarkEnriched(ctx context.Context, facilityID string) error {
	return s.updateFacility(ctx, facilityID, goqu.Record{
		"data_enriched": true,
		"enriched_date": time.Now().UTC(),
	})
}

// StampAIExtraction writes the consolidated vision payload and its method
// marker onto the facility row.
func (s *Store) StampAIExtraction(ctx context.Context, facilityID string, payload models.AIPayload, method string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("store: marshal ai stamp: %w", err)
	}
	return s.updateFacility(ctx, facilityID, goqu.Record{
		"ai_extracted_data": raw,
		"extraction_method": method,
		"extraction_date":   time.Now().UTC(),
	})
}
