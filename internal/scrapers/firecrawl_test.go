package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRangeFromPrompt(t *testing.T) {
	// A Wednesday.
	today := time.Date(2026, 9, 9, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		prompt   string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			"this weekend",
			"concerts this weekend",
			time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			"next week starts monday",
			"events next week",
			time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			"this week runs to sunday",
			"anything this week",
			time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			"next N days",
			"shows in the next 3 days",
			time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			"this month",
			"markets this month",
			time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			"explicit range",
			"events September 18 - September 20",
			time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			"default window",
			"family friendly events",
			time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 17, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, to := DateRangeFromPrompt(tc.prompt, today)
			assert.Equal(t, tc.wantFrom, from, "from")
			assert.Equal(t, tc.wantTo, to, "to")
		})
	}
}

func TestDateRangeFromPrompt_WeekendOnSaturday(t *testing.T) {
	saturday := time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)

	from, to := DateRangeFromPrompt("this weekend", saturday)

	assert.Equal(t, time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC), to)
}

func TestFirecrawlClient_Extract(t *testing.T) {
	var gotRequest firecrawlRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		fmt.Fprint(w, `{
			"success": true,
			"data": {"extract": {"events": [
				{"title": "Morning Yoga", "starts_at": "2026-09-12T08:00:00Z",
				 "venue": "Zilker Park", "event_type": "community"}
			]}}
		}`)
	}))
	defer server.Close()

	client := NewFirecrawlClient(server.URL, "test-key", 0)
	client.now = func() time.Time { return time.Date(2026, 9, 9, 10, 0, 0, 0, time.UTC) }

	events, err := client.Extract(context.Background(), "https://example.com/events", "outdoor events this weekend")

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Morning Yoga", events[0].Title)
	assert.Equal(t, "2026-09-12T08:00:00Z", events[0].StartText)
	assert.Equal(t, "Zilker Park", events[0].Venue)

	assert.Equal(t, "https://example.com/events", gotRequest.URL)
	assert.Equal(t, []string{"extract"}, gotRequest.Formats)
	assert.Contains(t, gotRequest.Extract.Prompt, "outdoor events this weekend")
	assert.Contains(t, gotRequest.Extract.Prompt, "September 12, 2026")
}

func TestNewFirecrawlClient_Timeout(t *testing.T) {
	custom := NewFirecrawlClient("", "key", 90*time.Second)
	assert.Equal(t, 90*time.Second, custom.Client.Timeout)
	assert.Equal(t, DefaultFirecrawlURL, custom.APIURL)

	fallback := NewFirecrawlClient("", "key", 0)
	assert.Equal(t, 60*time.Second, fallback.Client.Timeout)
}

func TestFirecrawlClient_ExtractErrors(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		client := NewFirecrawlClient(DefaultFirecrawlURL, "", 0)
		_, err := client.Extract(context.Background(), "https://example.com", "")
		assert.ErrorIs(t, err, ErrBadConfig)
	})

	t.Run("upstream failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			fmt.Fprint(w, `{"success": false, "error": "insufficient credits"}`)
		}))
		defer server.Close()

		client := NewFirecrawlClient(server.URL, "test-key", 0)
		_, err := client.Extract(context.Background(), "https://example.com", "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient credits")
	})
}
