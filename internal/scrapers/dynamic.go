package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"funcal/models"

	"github.com/PuerkitoBio/goquery"
)

// maxEventLinks bounds how many detail pages a single run will fetch,
// regardless of how many links the listing page offers.
const maxEventLinks = 50

// DynamicScraper extracts events from an arbitrary listing site using the
// CSS selectors configured on its source descriptor. Detail pages are
// fetched sequentially with a randomized politeness delay.
type DynamicScraper struct {
	source  *models.ScraperSource
	fetcher *Fetcher

	// delay is swappable in tests.
	delay func()
}

func NewDynamicScraper(source *models.ScraperSource, fetcher *Fetcher) *DynamicScraper {
	return &DynamicScraper{
		source:  source,
		fetcher: fetcher,
		delay: func() {
			time.Sleep(time.Duration(500+rand.Intn(1000)) * time.Millisecond)
		},
	}
}

func (s *DynamicScraper) SourceName() string {
	return s.source.Name
}

func (s *DynamicScraper) Fetch(ctx context.Context) ([]RawEvent, error) {
	listURL := s.source.FullURL(s.source.ListPath)
	log.Printf("[%s] Starting scrape from %s", s.SourceName(), listURL)

	doc, err := s.fetcher.FetchDocument(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("listing page: %w", err)
	}

	links, err := s.extractEventLinks(doc)
	if err != nil {
		return nil, err
	}
	log.Printf("[%s] Found %d event links", s.SourceName(), len(links))

	var events []RawEvent
	for i, link := range links {
		if i > 0 {
			s.delay()
		}
		if err := ctx.Err(); err != nil {
			return events, err
		}

		raw, ok := s.scrapeEventPage(ctx, link)
		if !ok {
			continue
		}
		events = append(events, raw)
	}

	return events, nil
}

func (s *DynamicScraper) extractEventLinks(doc *goquery.Document) ([]string, error) {
	pattern, err := regexp.Compile(s.source.EventLinkPattern())
	if err != nil {
		return nil, fmt.Errorf("%w: event link pattern: %v", ErrBadConfig, err)
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find(s.source.EventLinkSelector()).Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || !pattern.MatchString(href) {
			return
		}
		full := s.source.FullURL(href)
		if !seen[full] {
			seen[full] = true
			links = append(links, full)
		}
	})

	if len(links) > maxEventLinks {
		links = links[:maxEventLinks]
	}
	return links, nil
}

// scrapeEventPage extracts one raw event from a detail page. A page that
// cannot be fetched or yields no title/datetime is skipped, not fatal.
func (s *DynamicScraper) scrapeEventPage(ctx context.Context, pageURL string) (RawEvent, bool) {
	doc, err := s.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		log.Printf("[%s] Error fetching %s: %v", s.SourceName(), pageURL, err)
		return RawEvent{}, false
	}

	// Structured data wins over CSS selectors when a page carries it.
	ld := extractJSONLD(doc)

	title := ld.title()
	if title == "" {
		title = extractText(doc, s.source.TitleSelector())
	}
	if title == "" {
		log.Printf("[%s] No title found at %s", s.SourceName(), pageURL)
		return RawEvent{}, false
	}

	raw := RawEvent{
		Title:       title,
		Venue:       extractText(doc, s.source.VenueSelector()),
		Location:    s.extractLocation(doc),
		Description: ld.Description,
		ImageURL:    ld.image(),
		SourceURL:   pageURL,
	}

	if raw.Description == "" {
		raw.Description = s.extractDescription(doc)
	}
	if raw.ImageURL == "" {
		raw.ImageURL = s.extractImage(doc)
	}

	if ld.StartDate != "" {
		raw.StartText = ld.StartDate
		raw.EndText = ld.EndDate
	} else if start := s.extractDatetime(doc); start != "" {
		raw.StartText = start
	} else {
		log.Printf("[%s] No datetime found at %s", s.SourceName(), pageURL)
		return RawEvent{}, false
	}

	return raw, true
}

// extractDatetime checks, in order: a datetime attribute under the
// configured selector, any element with a datetime attribute, the
// selector's text content, and finally event meta tags.
func (s *DynamicScraper) extractDatetime(doc *goquery.Document) string {
	selector := s.source.DatetimeSelector()

	for _, sel := range []string{selector + "[datetime]", "[datetime]"} {
		if v, ok := doc.Find(sel).First().Attr("datetime"); ok && v != "" {
			return v
		}
	}

	if text := extractText(doc, selector); text != "" {
		return text
	}

	meta := doc.Find(`meta[property="event:start_time"], meta[itemprop="startDate"]`).First()
	if v, ok := meta.Attr("content"); ok && v != "" {
		return v
	}

	return ""
}

func (s *DynamicScraper) extractLocation(doc *goquery.Document) string {
	if loc := extractText(doc, s.source.LocationSelector()); loc != "" {
		return loc
	}

	// Fall back to a maps link if the page has one.
	mapsLink := doc.Find(`a[href*="maps.google.com"], a[href*="goo.gl/maps"]`).First()
	if mapsLink.Length() == 0 {
		return ""
	}
	if text := strings.TrimSpace(mapsLink.Text()); text != "" {
		return text
	}
	label, _ := mapsLink.Attr("aria-label")
	return label
}

func (s *DynamicScraper) extractDescription(doc *goquery.Document) string {
	elements := doc.Find(s.source.DescriptionSelector())
	if elements.Length() == 0 {
		return ""
	}

	// First few paragraphs are enough; the normalizer caps length anyway.
	var parts []string
	elements.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
		return i < 2
	})
	return strings.Join(parts, "\n\n")
}

func (s *DynamicScraper) extractImage(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && v != "" {
		return v
	}

	img := doc.Find(s.source.ImageSelector()).First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "content", "data-src"} {
		if v, ok := img.Attr(attr); ok && v != "" {
			return s.source.FullURL(v)
		}
	}
	return ""
}

func extractText(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// jsonLD is the subset of a schema.org Event we read from ld+json blocks.
type jsonLD struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Headline    string          `json:"headline"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image"`
}

func (ld jsonLD) title() string {
	if ld.Name != "" {
		return ld.Name
	}
	return ld.Headline
}

// image handles both the plain string and {"url": ...} object forms.
func (ld jsonLD) image() string {
	if len(ld.Image) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(ld.Image, &s) == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(ld.Image, &obj) == nil {
		return obj.URL
	}
	return ""
}

func extractJSONLD(doc *goquery.Document) jsonLD {
	var result jsonLD
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var ld jsonLD
		if err := json.Unmarshal([]byte(sel.Text()), &ld); err != nil {
			return true // malformed block, keep looking
		}
		if ld.Type == "Event" || ld.StartDate != "" {
			result = ld
			return false
		}
		return true
	})
	return result
}
