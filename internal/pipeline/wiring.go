package pipeline

import (
	"context"
	"fmt"

	"oasara-facility-enrichment/internal/browser"
	"oasara-facility-enrichment/internal/extract"
	"oasara-facility-enrichment/internal/vision"
)

// browserSession adapts a live browser to the extractor's session
// interface.
type browserSession struct {
	s *browser.Session
}

func (b browserSession) Visit(ctx context.Context, pageURL string) (extract.Page, error) {
	return b.s.Visit(ctx, pageURL)
}

func (b browserSession) Close() {
	b.s.Close()
}

// NewBrowserSessionFactory launches one browser per extractor call.
func NewBrowserSessionFactory() extract.SessionFactory {
	return func(ctx context.Context) (extract.Session, error) {
		s, err := browser.Open(ctx)
		if err != nil {
			return nil, err
		}
		return browserSession{s: s}, nil
	}
}

// NewBrowserCapture screenshots a page through a short-lived browser
// session for the vision stage.
func NewBrowserCapture() vision.Capture {
	return func(ctx context.Context, pageURL string) ([]byte, error) {
		s, err := browser.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open browser: %w", err)
		}
		defer s.Close()

		page, err := s.Visit(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		defer page.Close()

		return page.Screenshot(ctx)
	}
}
