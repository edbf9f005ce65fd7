package mine

import (
	"reflect"
	"testing"
)

func TestExtractQualifications(t *testing.T) {
	bio := "Dr. Somchai is an MD, FRCS and Board Certified plastic surgeon."
	want := []string{"MD", "FRCS", "Board Certified"}
	if got := ExtractQualifications(bio); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractQualifications = %v, want %v", got, want)
	}

	if got := ExtractQualifications("a friendly general practitioner"); got != nil {
		t.Errorf("expected no hits, got %v", got)
	}
}

func TestExtractQualificationsWholeWordOnly(t *testing.T) {
	// "MD" must not fire inside longer tokens.
	if got := ExtractQualifications("visit our MDX imaging suite"); got != nil {
		t.Errorf("expected no hits, got %v", got)
	}
}

func TestExtractLanguages(t *testing.T) {
	bio := "Our coordinators speak English, Thai and Arabic fluently."
	want := []string{"English", "Arabic", "Thai"} // vocabulary order
	if got := ExtractLanguages(bio); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractLanguages = %v, want %v", got, want)
	}
}

func TestExtractIncludes(t *testing.T) {
	desc := "Package includes hotel accommodation, airport transfers and a pre-surgery consultation."
	// A hyphen is a word boundary, so "pre-surgery" still matches "surgery".
	want := []string{"hotel", "accommodation", "transfers", "consultation", "surgery"}
	if got := ExtractIncludes(desc); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractIncludes = %v, want %v", got, want)
	}

	if got := ExtractIncludes(""); got != nil {
		t.Errorf("expected no hits for empty text, got %v", got)
	}
}
