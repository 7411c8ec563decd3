package models

import (
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
)

func TestEvent_EffectiveEnd(t *testing.T) {
	start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)

	withEnd := &Event{StartsAt: start, EndsAt: start.Add(3 * time.Hour)}
	assert.Equal(t, start.Add(3*time.Hour), withEnd.EffectiveEnd())

	withoutEnd := &Event{StartsAt: start}
	assert.Equal(t, start.Add(DefaultDuration), withoutEnd.EffectiveEnd())
}

func TestEvent_Overlaps(t *testing.T) {
	start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	event := &Event{StartsAt: start, EndsAt: start.Add(2 * time.Hour)}

	assert.True(t, event.Overlaps(start.Add(-time.Hour), start.Add(time.Hour)))
	assert.True(t, event.Overlaps(start.Add(time.Hour), start.Add(5*time.Hour)))
	assert.False(t, event.Overlaps(start.Add(-3*time.Hour), start))
	assert.False(t, event.Overlaps(start.Add(2*time.Hour), start.Add(4*time.Hour)))
}

func TestValidEventType(t *testing.T) {
	assert.True(t, ValidEventType("workshop"))
	assert.False(t, ValidEventType("Workshop"))
	assert.False(t, ValidEventType("rave"))
	assert.False(t, ValidEventType(""))
}

func TestScraperSource_DueForScrape(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	disabled := &ScraperSource{Enabled: false}
	assert.False(t, disabled.DueForScrape(now))

	neverRun := &ScraperSource{Enabled: true}
	assert.True(t, neverRun.DueForScrape(now))

	fresh := &ScraperSource{Enabled: true, LastRunAt: now.Add(-time.Hour)}
	assert.False(t, fresh.DueForScrape(now))

	// Default interval is 4 hours.
	stale := &ScraperSource{Enabled: true, LastRunAt: now.Add(-5 * time.Hour)}
	assert.True(t, stale.DueForScrape(now))

	custom := &ScraperSource{
		Enabled:   true,
		LastRunAt: now.Add(-5 * time.Hour),
		Schedule:  Schedule{IntervalHours: 12},
	}
	assert.False(t, custom.DueForScrape(now))
}

func TestScraperSource_SourceName(t *testing.T) {
	unowned := &ScraperSource{Slug: "kutx"}
	assert.Equal(t, "kutx", unowned.SourceName())

	// Same slug under two calendars must attribute distinctly.
	a := &ScraperSource{Slug: "kutx", CalendarID: "cal_a"}
	b := &ScraperSource{Slug: "kutx", CalendarID: "cal_b"}
	assert.Equal(t, "cal_a:kutx", a.SourceName())
	assert.NotEqual(t, a.SourceName(), b.SourceName())
}

func TestScraperSource_FullURL(t *testing.T) {
	source := &ScraperSource{BaseURL: "https://do512.com"}

	assert.Equal(t, "https://do512.com/events", source.FullURL("/events"))
	assert.Equal(t, "https://other.com/x", source.FullURL("https://other.com/x"))
	assert.Equal(t, "https://do512.com/events/p/2", source.FullURL("/events/p/2"))
}

func TestScraperSource_SelectorDefaults(t *testing.T) {
	plain := &ScraperSource{}
	assert.Equal(t, `a[href*="/event"]`, plain.EventLinkSelector())
	assert.Equal(t, "h1", plain.TitleSelector())

	custom := &ScraperSource{Selectors: Selectors{Title: ".event-title"}}
	assert.Equal(t, ".event-title", custom.TitleSelector())
}

func TestCalendar_ImportConfigured(t *testing.T) {
	assert.True(t, (&Calendar{ImportSource: ImportSourceIcal, ImportURL: "https://x/cal.ics"}).ImportConfigured())
	assert.False(t, (&Calendar{ImportSource: ImportSourceIcal}).ImportConfigured())

	assert.True(t, (&Calendar{ImportSource: ImportSourceGoogle, ImportSourceID: "primary"}).ImportConfigured())
	assert.False(t, (&Calendar{ImportSource: ImportSourceGoogle, ImportURL: "https://x"}).ImportConfigured())
}

func TestCalendarFromRecord(t *testing.T) {
	collection := core.NewBaseCollection("calendars")
	collection.Fields.Add(
		&core.TextField{Name: "name"},
		&core.RelationField{Name: "owner"},
		&core.TextField{Name: "ical_token"},
		&core.SelectField{Name: "import_source", Values: []string{ImportSourceIcal, ImportSourceGoogle}},
		&core.URLField{Name: "import_url"},
		&core.BoolField{Name: "import_enabled"},
	)
	record := core.NewRecord(collection)
	record.Id = "cal900000000001"
	record.Set("name", "Neighborhood Shows")
	record.Set("owner", "user123")
	record.Set("ical_token", "tok")
	record.Set("import_source", ImportSourceIcal)
	record.Set("import_url", "https://example.com/cal.ics")
	record.Set("import_enabled", true)

	cal := CalendarFromRecord(record)
	assert.Equal(t, "cal900000000001", cal.ID)
	assert.Equal(t, "user123", cal.OwnerID)
	assert.Equal(t, "Neighborhood Shows", cal.Name)
	assert.True(t, cal.ImportEnabled)
	assert.True(t, cal.ImportConfigured())
}

func TestCalendar_NeedsImportSync(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	base := Calendar{
		ImportSource:  ImportSourceIcal,
		ImportURL:     "https://example.com/cal.ics",
		ImportEnabled: true,
	}

	never := base
	assert.True(t, never.NeedsImportSync(now))

	fresh := base
	fresh.LastImportedAt = now.Add(-time.Hour)
	assert.False(t, fresh.NeedsImportSync(now))

	// Default interval is 6 hours.
	stale := base
	stale.LastImportedAt = now.Add(-7 * time.Hour)
	assert.True(t, stale.NeedsImportSync(now))

	disabled := stale
	disabled.ImportEnabled = false
	assert.False(t, disabled.NeedsImportSync(now))
}
