package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

const DefaultScrapeIntervalHours = 4

// Selectors holds the CSS-selector configuration for the dynamic scraper.
// Empty values fall back to the defaults below.
type Selectors struct {
	EventLinks       string `json:"event_links,omitempty"`
	EventLinkPattern string `json:"event_link_pattern,omitempty"`
	Title            string `json:"title,omitempty"`
	Datetime         string `json:"datetime,omitempty"`
	Venue            string `json:"venue,omitempty"`
	Location         string `json:"location,omitempty"`
	Description      string `json:"description,omitempty"`
	Image            string `json:"image,omitempty"`
}

type Schedule struct {
	IntervalHours int    `json:"interval_hours,omitempty"`
	Cron          string `json:"cron,omitempty"`
}

// ScraperSource is the persisted configuration + run state for one
// external event source.
type ScraperSource struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	BaseURL            string    `json:"base_url"`
	ListPath           string    `json:"list_path,omitempty"`
	ScraperClass       string    `json:"scraper_class,omitempty"`
	Selectors          Selectors `json:"selectors"`
	Schedule           Schedule  `json:"schedule"`
	Color              string    `json:"color,omitempty"`
	Enabled            bool      `json:"enabled"`
	CalendarID         string    `json:"calendar_id,omitempty"`
	LastRunAt          time.Time `json:"last_run_at,omitempty"`
	LastSuccessAt      time.Time `json:"last_success_at,omitempty"`
	LastRunCount       int       `json:"last_run_count"`
	TotalEventsScraped int       `json:"total_events_scraped"`
	LastError          string    `json:"last_error,omitempty"`
}

func (s *ScraperSource) ScrapeIntervalHours() int {
	if s.Schedule.IntervalHours > 0 {
		return s.Schedule.IntervalHours
	}
	return DefaultScrapeIntervalHours
}

// SourceName is the attribution written onto ingested events. Slugs are
// only unique within a calendar, so owned sources get a calendar-qualified
// name to keep the (source_name, source_id) dedup key unambiguous.
func (s *ScraperSource) SourceName() string {
	if s.CalendarID != "" {
		return s.CalendarID + ":" + s.Slug
	}
	return s.Slug
}

// DueForScrape is true when the source has never run or its last run is
// older than the configured interval.
func (s *ScraperSource) DueForScrape(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.LastRunAt.IsZero() {
		return true
	}
	return now.Sub(s.LastRunAt) > time.Duration(s.ScrapeIntervalHours())*time.Hour
}

// FullURL resolves a possibly-relative path against the source base URL.
func (s *ScraperSource) FullURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return base.ResolveReference(ref).String()
}

// Selector accessors with the same defaults the original sources relied on.

func (s *ScraperSource) EventLinkSelector() string {
	if s.Selectors.EventLinks != "" {
		return s.Selectors.EventLinks
	}
	return `a[href*="/event"]`
}

func (s *ScraperSource) EventLinkPattern() string {
	if s.Selectors.EventLinkPattern != "" {
		return s.Selectors.EventLinkPattern
	}
	return `/events?/`
}

func (s *ScraperSource) TitleSelector() string {
	if s.Selectors.Title != "" {
		return s.Selectors.Title
	}
	return "h1"
}

func (s *ScraperSource) DatetimeSelector() string {
	if s.Selectors.Datetime != "" {
		return s.Selectors.Datetime
	}
	return `[datetime], time[datetime], .date, .time`
}

func (s *ScraperSource) VenueSelector() string {
	if s.Selectors.Venue != "" {
		return s.Selectors.Venue
	}
	return `.venue, [itemprop="location"]`
}

func (s *ScraperSource) LocationSelector() string {
	if s.Selectors.Location != "" {
		return s.Selectors.Location
	}
	return `.address, [itemprop="address"]`
}

func (s *ScraperSource) DescriptionSelector() string {
	if s.Selectors.Description != "" {
		return s.Selectors.Description
	}
	return `.description, [itemprop="description"], p`
}

func (s *ScraperSource) ImageSelector() string {
	if s.Selectors.Image != "" {
		return s.Selectors.Image
	}
	return `meta[property="og:image"], img.event-image, .event-img img`
}

func ScraperSourceFromRecord(record *core.Record) *ScraperSource {
	source := &ScraperSource{
		ID:                 record.Id,
		Name:               record.GetString("name"),
		Slug:               record.GetString("slug"),
		BaseURL:            record.GetString("base_url"),
		ListPath:           record.GetString("list_path"),
		ScraperClass:       record.GetString("scraper_class"),
		Color:              record.GetString("color"),
		Enabled:            record.GetBool("enabled"),
		CalendarID:         record.GetString("calendar"),
		LastRunAt:          record.GetDateTime("last_run_at").Time(),
		LastSuccessAt:      record.GetDateTime("last_success_at").Time(),
		LastRunCount:       record.GetInt("last_run_count"),
		TotalEventsScraped: record.GetInt("total_events_scraped"),
		LastError:          record.GetString("last_error"),
	}

	// Selector/schedule JSON is best-effort: a malformed blob falls back
	// to defaults instead of failing the whole source.
	_ = record.UnmarshalJSONField("selectors", &source.Selectors)
	_ = record.UnmarshalJSONField("schedule", &source.Schedule)

	return source
}
