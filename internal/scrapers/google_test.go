package scrapers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

func TestToRawEvent_TimedEvent(t *testing.T) {
	raw, ok := toRawEvent(&calendar.Event{
		Id:       "gcal-1",
		Summary:  "Board Meeting",
		HtmlLink: "https://calendar.google.com/event?eid=abc",
		Start:    &calendar.EventDateTime{DateTime: "2026-09-12T19:00:00Z"},
		End:      &calendar.EventDateTime{DateTime: "2026-09-12T20:30:00Z"},
	})

	require.True(t, ok)
	assert.Equal(t, "Board Meeting", raw.Title)
	assert.Equal(t, "gcal-1", raw.SourceID)
	assert.Equal(t, time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC), raw.StartsAt)
	assert.Equal(t, time.Date(2026, 9, 12, 20, 30, 0, 0, time.UTC), raw.EndsAt)
	assert.False(t, raw.AllDay)
}

func TestToRawEvent_AllDayAndUntitled(t *testing.T) {
	raw, ok := toRawEvent(&calendar.Event{
		Id:    "gcal-2",
		Start: &calendar.EventDateTime{Date: "2026-09-12"},
	})

	require.True(t, ok)
	assert.Equal(t, "Untitled", raw.Title)
	assert.True(t, raw.AllDay)
	assert.Equal(t, time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), raw.StartsAt)
}

func TestToRawEvent_NoStartIsSkipped(t *testing.T) {
	_, ok := toRawEvent(&calendar.Event{Id: "gcal-3", Summary: "Cancelled"})
	assert.False(t, ok)
}

func TestClassifyGoogleError(t *testing.T) {
	auth := classifyGoogleError(&googleapi.Error{Code: 401, Message: "invalid credentials"})
	assert.ErrorIs(t, auth, ErrAuthExpired)

	forbidden := classifyGoogleError(&googleapi.Error{Code: 403, Message: "insufficient scope"})
	assert.ErrorIs(t, forbidden, ErrAuthExpired)

	transient := classifyGoogleError(&googleapi.Error{Code: 503, Message: "backend error"})
	assert.NotErrorIs(t, transient, ErrAuthExpired)

	plain := classifyGoogleError(errors.New("connection reset"))
	assert.NotErrorIs(t, plain, ErrAuthExpired)
}
