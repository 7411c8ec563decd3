package scrapers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultFirecrawlURL = "https://api.firecrawl.dev/v1/scrape"

	// Window used when the prompt doesn't imply a date range.
	defaultDaysAhead = 8
)

// FirecrawlClient calls the external AI page-extraction API: given a URL
// and a natural-language prompt it returns whatever structured event
// records the extractor finds. Records still pass through the normalizer
// like any other source.
type FirecrawlClient struct {
	APIURL string
	APIKey string
	Client *http.Client

	// now is swappable in tests.
	now func() time.Time
}

func NewFirecrawlClient(apiURL, apiKey string, timeout time.Duration) *FirecrawlClient {
	if apiURL == "" {
		apiURL = DefaultFirecrawlURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &FirecrawlClient{
		APIURL: apiURL,
		APIKey: apiKey,
		Client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

type firecrawlRequest struct {
	URL             string           `json:"url"`
	Formats         []string         `json:"formats"`
	OnlyMainContent bool             `json:"onlyMainContent"`
	Extract         firecrawlExtract `json:"extract"`
	Timeout         int              `json:"timeout"`
}

type firecrawlExtract struct {
	Prompt string          `json:"prompt"`
	Schema json.RawMessage `json:"schema"`
}

type firecrawlEvent struct {
	Title       string `json:"title"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	Location    string `json:"location"`
	Venue       string `json:"venue"`
	Description string `json:"description"`
	EventType   string `json:"event_type"`
	ImageURL    string `json:"image_url"`
	SourceURL   string `json:"source_url"`
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Extract struct {
			Events []firecrawlEvent `json:"events"`
		} `json:"extract"`
	} `json:"data"`
}

func (c *FirecrawlClient) Extract(ctx context.Context, pageURL, prompt string) ([]RawEvent, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w: FIRECRAWL_API_KEY not set", ErrBadConfig)
	}
	if pageURL == "" {
		return nil, fmt.Errorf("%w: no extraction URL configured", ErrBadConfig)
	}

	body, err := json.Marshal(firecrawlRequest{
		URL:             pageURL,
		Formats:         []string{"extract"},
		OnlyMainContent: true,
		Extract: firecrawlExtract{
			Prompt: c.buildPrompt(prompt),
			Schema: json.RawMessage(eventSchema),
		},
		Timeout: 30000,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Error != "" {
			return nil, fmt.Errorf("extraction failed: %s", parsed.Error)
		}
		return nil, fmt.Errorf("extraction failed: HTTP %d", resp.StatusCode)
	}
	if !parsed.Success {
		if parsed.Error != "" {
			return nil, fmt.Errorf("extraction failed: %s", parsed.Error)
		}
		return nil, fmt.Errorf("extraction failed")
	}

	events := make([]RawEvent, 0, len(parsed.Data.Extract.Events))
	for _, e := range parsed.Data.Extract.Events {
		events = append(events, RawEvent{
			Title:       e.Title,
			StartText:   e.StartsAt,
			EndText:     e.EndsAt,
			Location:    e.Location,
			Venue:       e.Venue,
			Description: e.Description,
			EventType:   e.EventType,
			ImageURL:    e.ImageURL,
			SourceURL:   e.SourceURL,
		})
	}
	return events, nil
}

// buildPrompt anchors the user's free-text prompt to concrete dates so the
// extractor doesn't have to guess what "this weekend" means.
func (c *FirecrawlClient) buildPrompt(prompt string) string {
	today := c.now()
	from, to := DateRangeFromPrompt(prompt, today)

	return fmt.Sprintf(
		"Today is %s. "+
			"Extract all events from this webpage that match: %s. "+
			"Only include events occurring between %s and %s (inclusive). "+
			"For each event, extract the title, start date/time in ISO 8601 format, "+
			"end date/time if available, location, venue name, a brief description (1-2 sentences), "+
			"and categorize as: social, meeting, workshop, community, or celebration. "+
			"If the year is not specified, assume %d. "+
			"Skip any events outside the date range.",
		today.Format("Monday, January 2, 2006"),
		prompt,
		from.Format("January 2, 2006"),
		to.Format("January 2, 2006"),
		today.Year(),
	)
}

var (
	nextDaysRe  = regexp.MustCompile(`next\s+(\d+)\s+days?`)
	dateRangeRe = regexp.MustCompile(`([A-Za-z]+\s+\d{1,2})\s*(?:-|–|to)+\s*([A-Za-z]+\s+\d{1,2})`)
	monthRe     = regexp.MustCompile(`\bin\s+(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
)

// DateRangeFromPrompt resolves a natural-language prompt's implied date
// range with fixed phrase-matching rules. Deterministic on purpose: the
// same prompt on the same day always yields the same window.
func DateRangeFromPrompt(prompt string, today time.Time) (time.Time, time.Time) {
	today = truncateToDay(today)
	text := strings.ToLower(prompt)
	wday := int(today.Weekday())

	if strings.Contains(text, "this weekend") {
		saturday := today.AddDate(0, 0, (6-wday)%7)
		if wday == 6 || wday == 0 {
			saturday = today
		}
		return saturday, saturday.AddDate(0, 0, 1)
	}

	if strings.Contains(text, "next weekend") {
		daysUntilSat := (6 - wday) % 7
		if daysUntilSat == 0 {
			daysUntilSat = 7
		}
		saturday := today.AddDate(0, 0, daysUntilSat+7)
		return saturday, saturday.AddDate(0, 0, 1)
	}

	if strings.Contains(text, "next week") {
		// Monday of the following week.
		monday := today.AddDate(0, 0, -((wday+6)%7)+7)
		return monday, monday.AddDate(0, 0, 6)
	}

	if strings.Contains(text, "this week") {
		// Through Sunday.
		return today, today.AddDate(0, 0, (7-wday)%7)
	}

	if m := nextDaysRe.FindStringSubmatch(text); m != nil {
		days, _ := strconv.Atoi(m[1])
		return today, today.AddDate(0, 0, days)
	}

	if strings.Contains(text, "this month") {
		return today, endOfMonth(today)
	}

	if strings.Contains(text, "next month") {
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).AddDate(0, 1, 0)
		return start, endOfMonth(start)
	}

	if m := dateRangeRe.FindStringSubmatch(text); m != nil {
		from, okFrom := parseFuzzyDate(m[1], today)
		to, okTo := parseFuzzyDate(m[2], today)
		if okFrom && okTo {
			return from, to
		}
	}

	if m := monthRe.FindStringSubmatch(text); m != nil {
		if month, err := time.Parse("January", strings.Title(m[1])); err == nil {
			start := time.Date(today.Year(), month.Month(), 1, 0, 0, 0, 0, today.Location())
			if start.Before(today.AddDate(0, 0, -30)) {
				start = start.AddDate(1, 0, 0)
			}
			if start.Before(today) {
				return today, endOfMonth(start)
			}
			return start, endOfMonth(start)
		}
	}

	return today, today.AddDate(0, 0, defaultDaysAhead)
}

func parseFuzzyDate(s string, today time.Time) (time.Time, bool) {
	s = strings.Title(strings.TrimSpace(s))
	for _, layout := range []string{"January 2", "Jan 2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, today.Location()), true
		}
	}
	return time.Time{}, false
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, -1)
}

// eventSchema is the JSON schema sent with every extraction request.
const eventSchema = `{
	"type": "object",
	"properties": {
		"events": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"starts_at": {"type": "string", "description": "ISO 8601 datetime"},
					"ends_at": {"type": "string", "description": "ISO 8601 datetime, if available"},
					"location": {"type": "string"},
					"venue": {"type": "string"},
					"description": {"type": "string", "description": "Brief description, 1-2 sentences"},
					"event_type": {"type": "string", "enum": ["social", "meeting", "workshop", "community", "celebration"]},
					"image_url": {"type": "string"},
					"source_url": {"type": "string", "description": "Direct URL to the event page if available"}
				},
				"required": ["title", "starts_at"]
			}
		}
	},
	"required": ["events"]
}`
