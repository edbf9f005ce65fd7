package locate

import (
	"context"
	"net/http"
	"time"
)

// HTTPProber probes conventional paths with a short-deadline GET. A
// non-error status accepts the path; redirects are followed so prettified
// URLs still count.
type HTTPProber struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPProber returns a prober with the default 5-second deadline the
// probe cascade budgets per guess.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{Timeout: 5 * time.Second}
}

func (p *HTTPProber) OK(ctx context.Context, pageURL string) bool {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

// Probes present the same user agent as the browser sessions so sites see
// one consistent client.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
