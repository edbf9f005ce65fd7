package locate

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

// stubProber reports OK only for the recorded paths, and tracks what was
// probed.
type stubProber struct {
	ok     map[string]bool
	probed []string
}

func (p *stubProber) OK(_ context.Context, pageURL string) bool {
	p.probed = append(p.probed, pageURL)
	return p.ok[pageURL]
}

const siteBase = "https://clinic.example.com"

func TestFindPagePathFragmentWins(t *testing.T) {
	doc := docFromHTML(t, `
		<html><body>
			<a href="/about">About Us</a>
			<a href="/our-doctors">Meet the team</a>
			<a href="/contact">Contact</a>
		</body></html>`)

	got, ok := FindPage(context.Background(), doc, siteBase, TopicStaff, nil)
	if !ok {
		t.Fatal("expected a staff page")
	}
	if want := siteBase + "/our-doctors"; got != want {
		t.Errorf("FindPage = %q, want %q", got, want)
	}
}

func TestFindPageFragmentOrderIsPreference(t *testing.T) {
	// Both /staff and /doctors are present; /doctors sits earlier in the
	// fragment list so it wins regardless of document order.
	doc := docFromHTML(t, `
		<html><body>
			<a href="/staff">Staff</a>
			<a href="/doctors">Doctors</a>
		</body></html>`)

	got, _ := FindPage(context.Background(), doc, siteBase, TopicStaff, nil)
	if want := siteBase + "/doctors"; got != want {
		t.Errorf("FindPage = %q, want %q", got, want)
	}
}

func TestFindPageFallsBackToLinkText(t *testing.T) {
	doc := docFromHTML(t, `
		<html><body>
			<a href="/p/4471">Our physicians</a>
			<a href="/contact">Contact</a>
		</body></html>`)

	got, ok := FindPage(context.Background(), doc, siteBase, TopicStaff, nil)
	if !ok {
		t.Fatal("expected link-text match")
	}
	if want := siteBase + "/p/4471"; got != want {
		t.Errorf("FindPage = %q, want %q", got, want)
	}
}

func TestFindPageProbesConventionalPaths(t *testing.T) {
	doc := docFromHTML(t, `<html><body><a href="/about">About</a></body></html>`)
	probe := &stubProber{ok: map[string]bool{siteBase + "/medical-team": true}}

	got, ok := FindPage(context.Background(), doc, siteBase, TopicStaff, probe)
	if !ok {
		t.Fatal("expected probe hit")
	}
	if want := siteBase + "/medical-team"; got != want {
		t.Errorf("FindPage = %q, want %q", got, want)
	}
	// Probing must happen in vocabulary order and stop at the first hit.
	if len(probe.probed) == 0 || probe.probed[len(probe.probed)-1] != siteBase+"/medical-team" {
		t.Errorf("probe order wrong: %v", probe.probed)
	}
}

func TestFindPageMiss(t *testing.T) {
	doc := docFromHTML(t, `<html><body><a href="/about">About</a></body></html>`)
	probe := &stubProber{ok: map[string]bool{}}

	if got, ok := FindPage(context.Background(), doc, siteBase, TopicStaff, probe); ok {
		t.Errorf("expected miss, got %q", got)
	}
}

func TestFindPageTestimonialsHasNoTextPass(t *testing.T) {
	// The testimonials vocabulary is fragment-only: a link whose text says
	// "reviews" but whose destination carries no known fragment must not
	// match.
	doc := docFromHTML(t, `<html><body><a href="/p/9">Read our reviews</a></body></html>`)

	if got, ok := FindPage(context.Background(), doc, siteBase, TopicTestimonials, nil); ok {
		t.Errorf("expected miss, got %q", got)
	}
}

func TestFindPageResolvesRelativeLinks(t *testing.T) {
	doc := docFromHTML(t, `<html><body><a href="pricing">Price list</a></body></html>`)

	got, ok := FindPage(context.Background(), doc, siteBase+"/en/", TopicPricing, nil)
	if !ok {
		t.Fatal("expected relative link to resolve")
	}
	if want := siteBase + "/en/pricing"; got != want {
		t.Errorf("FindPage = %q, want %q", got, want)
	}
}

func TestFindPageIgnoresNonHTTPLinks(t *testing.T) {
	doc := docFromHTML(t, `
		<html><body>
			<a href="javascript:void(0)">Our doctors</a>
			<a href="mailto:team@clinic.example.com">team</a>
		</body></html>`)

	if got, ok := FindPage(context.Background(), doc, siteBase, TopicStaff, nil); ok {
		t.Errorf("expected miss, got %q", got)
	}
}
