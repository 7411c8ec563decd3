package services

import (
	"strings"
	"testing"
	"time"

	"funcal/internal/scrapers"
	"funcal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PassesThroughStructuredTimes(t *testing.T) {
	start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	event, err := Normalize(scrapers.RawEvent{
		Title:    "  Community Potluck  ",
		StartsAt: start,
		EndsAt:   end,
		Venue:    "Central Park Pavilion",
	})

	require.NoError(t, err)
	assert.Equal(t, "Community Potluck", event.Title)
	assert.Equal(t, start, event.StartsAt)
	assert.Equal(t, end, event.EndsAt)
	assert.False(t, event.AllDay)
}

func TestNormalize_ParsesTextualStartFormats(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2026-09-12T19:00:00Z", time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)},
		{"sql style", "2026-09-12 19:00:00", time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)},
		{"long form", "September 12, 2026 7:00 PM", time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)},
		{"us slash", "09/12/2026 7:00 PM", time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := Normalize(scrapers.RawEvent{Title: "Test", StartText: tc.input})
			require.NoError(t, err)
			assert.Equal(t, tc.want, event.StartsAt)
			assert.False(t, event.AllDay)
		})
	}
}

func TestNormalize_DateOnlyBecomesAllDay(t *testing.T) {
	event, err := Normalize(scrapers.RawEvent{Title: "Street Fair", StartText: "2026-09-12"})

	require.NoError(t, err)
	assert.True(t, event.AllDay)
	assert.Equal(t, time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), event.StartsAt)
}

func TestNormalize_RejectsMissingTitle(t *testing.T) {
	_, err := Normalize(scrapers.RawEvent{
		Title:    "   ",
		StartsAt: time.Now(),
	})

	require.Error(t, err)
	assert.True(t, IsRejection(err))
}

func TestNormalize_RejectsUnparseableStart(t *testing.T) {
	_, err := Normalize(scrapers.RawEvent{Title: "Mystery", StartText: "sometime soon"})

	require.Error(t, err)
	assert.True(t, IsRejection(err))
}

func TestNormalize_DropsEndBeforeStart(t *testing.T) {
	start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	event, err := Normalize(scrapers.RawEvent{
		Title:    "Backwards",
		StartsAt: start,
		EndsAt:   start.Add(-time.Hour),
	})

	require.NoError(t, err)
	assert.True(t, event.EndsAt.IsZero())
	assert.Equal(t, start.Add(models.DefaultDuration), event.EffectiveEnd())
}

func TestNormalize_TruncatesLongFields(t *testing.T) {
	event, err := Normalize(scrapers.RawEvent{
		Title:       strings.Repeat("x", 400),
		StartsAt:    time.Now(),
		Description: strings.Repeat("d", 5000),
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, len(event.Title), models.MaxTitleLen)
	assert.LessOrEqual(t, len(event.Description), models.MaxDescriptionLen)
}

func TestNormalize_MapsUnknownEventTypeToDefault(t *testing.T) {
	event, err := Normalize(scrapers.RawEvent{
		Title:     "Quarterly Gathering",
		StartsAt:  time.Now(),
		EventType: "rave",
	})

	require.NoError(t, err)
	assert.Equal(t, models.DefaultEventType, event.EventType)

	event, err = Normalize(scrapers.RawEvent{
		Title:     "Intro to Pottery",
		StartsAt:  time.Now(),
		EventType: "Workshop",
	})

	require.NoError(t, err)
	assert.Equal(t, "workshop", event.EventType)
}
