package scrapers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// backfillWindow is how far into the past imported components are kept.
// Anything older is skipped to prevent unbounded historical backfill.
const backfillWindow = 30 * 24 * time.Hour

// IcalImporter fetches and parses a remote iCal feed into raw events.
type IcalImporter struct {
	Client *http.Client

	// now is swappable in tests.
	now func() time.Time
}

func NewIcalImporter(timeout time.Duration) *IcalImporter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &IcalImporter{
		Client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

func (i *IcalImporter) Fetch(ctx context.Context, feedURL string) ([]RawEvent, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("%w: no import URL configured", ErrBadConfig)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeFeedURL(feedURL), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	req.Header.Set("User-Agent", "FunCal/1.0")

	resp, err := i.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ical feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch ical feed: HTTP %d", resp.StatusCode)
	}

	cal, err := ical.NewDecoder(resp.Body).Decode()
	if err != nil {
		return nil, fmt.Errorf("parse ical feed: %w", err)
	}

	cutoff := i.now().Add(-backfillWindow)

	var events []RawEvent
	for _, component := range cal.Events() {
		raw, ok := i.parseComponent(component, cutoff)
		if !ok {
			continue
		}
		events = append(events, raw)
	}
	return events, nil
}

func (i *IcalImporter) parseComponent(event ical.Event, cutoff time.Time) (RawEvent, bool) {
	startProp := event.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return RawEvent{}, false
	}

	start, err := event.DateTimeStart(time.UTC)
	if err != nil {
		log.Printf("[IcalImporter] Skipping component with bad DTSTART: %v", err)
		return RawEvent{}, false
	}
	if start.Before(cutoff) {
		return RawEvent{}, false
	}

	raw := RawEvent{
		StartsAt: start,
		AllDay:   startProp.ValueType() == ical.ValueDate,
	}

	if end, err := event.DateTimeEnd(time.UTC); err == nil && !end.IsZero() {
		raw.EndsAt = end
	}

	if p := event.Props.Get(ical.PropSummary); p != nil {
		raw.Title = p.Value
	}
	if p := event.Props.Get(ical.PropDescription); p != nil {
		raw.Description = p.Value
	}
	if p := event.Props.Get(ical.PropLocation); p != nil {
		raw.Location = p.Value
	}
	if p := event.Props.Get(ical.PropURL); p != nil {
		raw.SourceURL = p.Value
	}
	if p := event.Props.Get(ical.PropUID); p != nil {
		raw.SourceID = p.Value
	}

	return raw, true
}

// NormalizeFeedURL rewrites webcal:// subscription links to https://.
func NormalizeFeedURL(feedURL string) string {
	if strings.HasPrefix(feedURL, "webcal://") {
		return "https://" + strings.TrimPrefix(feedURL, "webcal://")
	}
	return feedURL
}
