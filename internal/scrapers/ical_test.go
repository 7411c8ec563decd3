package scrapers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icsFeed(events ...string) string {
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n"
	for _, e := range events {
		body += e
	}
	return body + "END:VCALENDAR\r\n"
}

func icsEvent(uid, summary string, start time.Time) string {
	return fmt.Sprintf(
		"BEGIN:VEVENT\r\nUID:%s\r\nDTSTAMP:20260801T000000Z\r\nDTSTART:%s\r\nSUMMARY:%s\r\nEND:VEVENT\r\n",
		uid, start.UTC().Format("20060102T150405Z"), summary)
}

func TestIcalImporter_Fetch(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	upcoming := now.AddDate(0, 0, 14)
	recent := now.AddDate(0, 0, -10)
	stale := now.AddDate(0, 0, -45)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "FunCal")
		fmt.Fprint(w, icsFeed(
			icsEvent("uid-1", "Town Meeting", upcoming),
			icsEvent("uid-2", "Last Week's Potluck", recent),
			icsEvent("uid-3", "Ancient History", stale),
		))
	}))
	defer server.Close()

	importer := NewIcalImporter(time.Second)
	importer.now = func() time.Time { return now }

	events, err := importer.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Town Meeting", events[0].Title)
	assert.Equal(t, "uid-1", events[0].SourceID)
	assert.Equal(t, upcoming, events[0].StartsAt)
	assert.Equal(t, "Last Week's Potluck", events[1].Title)
}

func TestIcalImporter_AllDayEvents(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	feed := icsFeed(
		"BEGIN:VEVENT\r\nUID:uid-4\r\nDTSTAMP:20260801T000000Z\r\n" +
			"DTSTART;VALUE=DATE:20260912\r\nSUMMARY:Street Fair\r\nEND:VEVENT\r\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer server.Close()

	importer := NewIcalImporter(time.Second)
	importer.now = func() time.Time { return now }

	events, err := importer.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].AllDay)
	assert.Equal(t, time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), events[0].StartsAt)
}

func TestIcalImporter_EmptyURLIsBadConfig(t *testing.T) {
	importer := NewIcalImporter(time.Second)

	_, err := importer.Fetch(context.Background(), "")

	assert.ErrorIs(t, err, ErrBadConfig)
}

func TestIcalImporter_HTTPErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	importer := NewIcalImporter(time.Second)

	_, err := importer.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadConfig)
}

func TestNormalizeFeedURL(t *testing.T) {
	assert.Equal(t, "https://example.com/cal.ics", NormalizeFeedURL("webcal://example.com/cal.ics"))
	assert.Equal(t, "https://example.com/cal.ics", NormalizeFeedURL("https://example.com/cal.ics"))
}
