package scrapers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"funcal/utils"

	"github.com/PuerkitoBio/goquery"
)

// Terminal adapter failures. The sync queue never retries these.
var (
	// ErrAuthExpired means the upstream rejected our credentials and the
	// account needs to be reconnected by the user.
	ErrAuthExpired = errors.New("authorization expired")

	// ErrBadConfig means the source descriptor is not usable as configured.
	ErrBadConfig = errors.New("source misconfigured")
)

// RawEvent is one record as reported by an external source, before
// normalization. Adapters that already have parsed times fill StartsAt /
// EndsAt; text-based adapters fill StartText / EndText instead.
type RawEvent struct {
	Title       string
	StartsAt    time.Time
	EndsAt      time.Time
	StartText   string
	EndText     string
	AllDay      bool
	Location    string
	Venue       string
	Description string
	EventType   string
	ImageURL    string
	SourceURL   string
	SourceID    string
}

// Scraper fetches raw event records for one scraper source.
// Implementations report every failure as a returned error, never a panic:
// the coordinator owns recording the outcome.
type Scraper interface {
	SourceName() string
	Fetch(ctx context.Context) ([]RawEvent, error)
}

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher is the shared HTTP page fetcher for HTML scrapers. Each source
// host gets its own circuit breaker so one flapping site cannot burn
// requests for the rest.
type Fetcher struct {
	Client   *http.Client
	breakers *utils.BreakerGroup
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		Client:   &http.Client{Timeout: timeout},
		breakers: utils.NewBreakerGroup(),
	}
}

// FetchDocument GETs the URL with browser-like headers and parses the body.
func (f *Fetcher) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	host := hostOf(pageURL)

	result, err := f.breakers.For(host).Execute(ctx, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")

		resp, err := f.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
		}

		return goquery.NewDocumentFromReader(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return result.(*goquery.Document), nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
