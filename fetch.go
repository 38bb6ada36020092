package auditwatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zombar/auditwatch/models"
)

// Fetcher retrieves a listing page body for a language.
type Fetcher interface {
	Fetch(ctx context.Context, url string, lang models.Language) ([]byte, error)
}

// FetchError describes a failed page retrieval. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// acceptLanguage maps each scrape language to the Accept-Language header
// sent with requests for that language.
var acceptLanguage = map[models.Language]string{
	models.LangFR: "fr-CH,fr;q=0.9,en;q=0.5",
	models.LangDE: "de-CH,de;q=0.9,en;q=0.5",
	models.LangIT: "it-CH,it;q=0.9,en;q=0.5",
}

// HTTPFetcher fetches listing pages with browser-like headers and a single
// retry using an alternate user agent. Some federal sites serve a stripped
// page to clients they classify as bots; the retry usually shakes that
// loose.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	retryUserAgent string
	retryBackoff   time.Duration
}

// NewHTTPFetcher creates a fetcher from Config.
func NewHTTPFetcher(config Config) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   config.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent:      config.UserAgent,
		retryUserAgent: config.RetryUserAgent,
		retryBackoff:   config.RetryBackoff,
	}
}

// Fetch retrieves the page at url. On a non-200 response or transport error
// it waits RetryBackoff and retries once with the alternate user agent.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, lang models.Language) ([]byte, error) {
	body, firstErr := f.fetchOnce(ctx, url, lang, f.userAgent)
	if firstErr == nil {
		return body, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(f.retryBackoff):
	}

	body, retryErr := f.fetchOnce(ctx, url, lang, f.retryUserAgent)
	if retryErr != nil {
		return nil, firstErr
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string, lang models.Language, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguage[lang])

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}
