// Package locate finds the most likely topic sub-page on a facility site.
// The cascade is precision-over-recall: an explicit, topic-specific link in
// the home page wins; link-text keywords come second; probing conventional
// paths is the costly last resort because it issues extra requests.
package locate

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Topic is one category of structured data mined from a facility site.
type Topic string

const (
	TopicStaff        Topic = "staff"
	TopicPricing      Topic = "pricing"
	TopicPackages     Topic = "packages"
	TopicTestimonials Topic = "testimonials"
)

type vocabulary struct {
	// pathFragments are matched against hyperlink destinations, in order.
	pathFragments []string
	// textKeywords are matched against hyperlink visible text.
	textKeywords []string
	// probePaths are navigated directly when nothing else matched.
	probePaths []string
}

var topicVocab = map[Topic]vocabulary{
	TopicStaff: {
		pathFragments: []string{
			"/doctors", "/our-doctors", "/medical-team", "/specialists",
			"/physicians", "/medical-staff", "/our-team", "/staff",
			"/team", "/about/team", "/meet-our-doctors", "/doctors-team",
		},
		textKeywords: []string{"doctor", "physician", "team", "specialist"},
		probePaths: []string{
			"/doctors", "/our-doctors", "/medical-team", "/team",
			"/about/doctors", "/about/team", "/staff",
		},
	},
	TopicPricing: {
		pathFragments: []string{
			"/prices", "/pricing", "/costs", "/fees", "/rates",
			"/packages", "/estimates", "/quote", "/price-list",
			"/cost-estimate", "/procedure-costs", "/surgery-costs",
		},
		textKeywords: []string{"price", "cost", "fee", "estimate"},
		probePaths: []string{
			"/pricing", "/prices", "/costs", "/price-list",
			"/procedure-costs", "/surgery-costs",
		},
	},
	TopicPackages: {
		pathFragments: []string{
			"/packages", "/package-deals", "/all-inclusive", "/special-offers",
			"/promotions", "/medical-packages", "/surgery-packages", "/tour-packages",
		},
		textKeywords: []string{"package", "deal", "offer", "bundle"},
	},
	TopicTestimonials: {
		pathFragments: []string{
			"/testimonials", "/reviews", "/patient-stories", "/success-stories",
			"/patient-reviews", "/feedback", "/reviews-testimonials", "/about/reviews",
		},
	},
}

// Prober checks whether a conventional path responds with a non-error
// status. Implemented over plain HTTP so the probe does not burn a browser
// navigation per guess.
type Prober interface {
	OK(ctx context.Context, pageURL string) bool
}

// FindPage returns the most likely sub-page URL for the topic, or "" with
// false when every strategy missed — in which case callers that support it
// mine the home page instead.
func FindPage(ctx context.Context, home *goquery.Document, baseURL string, topic Topic, probe Prober) (string, bool) {
	vocab, known := topicVocab[topic]
	if !known || home == nil {
		return "", false
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}

	// First: an explicit link whose destination carries a topic fragment.
	if u, ok := linkByPathFragment(home, base, vocab.pathFragments); ok {
		return u, true
	}

	// Second: any link whose visible text mentions the topic.
	if u, ok := linkByText(home, base, vocab.textKeywords); ok {
		return u, true
	}

	// Last: probe conventional paths directly.
	if probe != nil {
		for _, p := range vocab.probePaths {
			u := resolveRef(base, p)
			if u == "" {
				continue
			}
			if probe.OK(ctx, u) {
				return u, true
			}
		}
	}

	return "", false
}

func linkByPathFragment(doc *goquery.Document, base *url.URL, fragments []string) (string, bool) {
	for _, frag := range fragments {
		found := ""
		doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			if href == "" || !strings.Contains(strings.ToLower(href), frag) {
				return true
			}
			if u := resolveRef(base, href); u != "" {
				found = u
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

func linkByText(doc *goquery.Document, base *url.URL, keywords []string) (string, bool) {
	if len(keywords) == 0 {
		return "", false
	}
	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(sel.Text())
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				href, _ := sel.Attr("href")
				if u := resolveRef(base, href); u != "" {
					found = u
					return false
				}
			}
		}
		return true
	})
	return found, found != ""
}

// resolveRef turns an href into an absolute http(s) URL against the site
// base, discarding javascript:, mailto: and fragment-only links.
func resolveRef(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
