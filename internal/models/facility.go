package models

import (
	"fmt"
	"strings"
)

// Facility is the directory entity this pipeline enriches. The surrounding
// product owns these rows; the pipeline only reads the identity fields and
// writes back denormalized counts and flags.
type Facility struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Website string `json:"website" db:"website"`
	Country string `json:"country" db:"country"`
	City    string `json:"city" db:"city"`
}

// Validate reports whether the facility is usable by an extractor.
func (f *Facility) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("facility id is required")
	}
	if strings.TrimSpace(f.Website) == "" {
		return fmt.Errorf("facility %s has no website", f.ID)
	}
	return nil
}

// Selection describes which facilities a run should process. ID wins over
// Limit; All disables the limit entirely.
type Selection struct {
	FacilityID string
	Limit      int
	All        bool
}
