package services

import (
	"strings"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"LIVE JAZZ AT STUBB'S!!", "live jazz stubbs"},
		{"The Farmers Market", "farmers market"},
		{"Yoga in the Park", "yoga park"},
		{"  multiple   spaces  ", "multiple spaces"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeTitle(tc.input), "input %q", tc.input)
	}
}

func TestTitleSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical after normalization", "Live Jazz at Stubbs", "LIVE JAZZ AT STUBBS!!", 1.0, 1.0},
		{"partial overlap stays below threshold", "Farmers Market", "Downtown Farmers Market", 0.5, 0.85},
		{"unrelated", "Book Club", "Salsa Night", 0, 0},
		{"both empty", "", "", 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TitleSimilarity(tc.a, tc.b)
			assert.GreaterOrEqual(t, got, tc.min)
			assert.LessOrEqual(t, got, tc.max)

			// Jaccard is symmetric.
			assert.Equal(t, got, TitleSimilarity(tc.b, tc.a))
		})
	}
}

func testEventRecord(t *testing.T, fields map[string]any) *core.Record {
	t.Helper()
	collection := core.NewBaseCollection("events")
	collection.Fields.Add(
		&core.TextField{Name: "title"},
		&core.DateField{Name: "starts_at"},
		&core.TextField{Name: "venue"},
		&core.TextField{Name: "location"},
		&core.TextField{Name: "description"},
		&core.URLField{Name: "image_url"},
		&core.TextField{Name: "source_name"},
		&core.TextField{Name: "source_id"},
		&core.URLField{Name: "source_url"},
	)
	record := core.NewRecord(collection)
	record.Id = strings.ToLower(fields["title"].(string))
	for name, value := range fields {
		record.Set(name, value)
	}
	return record
}

func TestSimilarEvents_ContainmentNeedsVenueAndDate(t *testing.T) {
	day := time.Date(2026, 9, 12, 20, 0, 0, 0, time.UTC)
	e1 := testEventRecord(t, map[string]any{
		"title":       "KUTX presents Summer Concert",
		"starts_at":   day,
		"venue":       "Auditorium Shores",
		"source_name": "do512",
		"source_id":   "a",
	})
	e2 := testEventRecord(t, map[string]any{
		"title":       "Summer Concert",
		"starts_at":   day,
		"venue":       "Auditorium Shores",
		"source_name": "visitaustin",
		"source_id":   "b",
	})

	assert.True(t, similarEvents(e1, e2))

	// Without a corroborating venue, containment alone is not enough.
	noVenue1 := testEventRecord(t, map[string]any{
		"title": "Farmers Market", "starts_at": day,
		"source_name": "do512", "source_id": "c",
	})
	noVenue2 := testEventRecord(t, map[string]any{
		"title": "Downtown Farmers Market", "starts_at": day,
		"venue":       "City Hall",
		"source_name": "visitaustin", "source_id": "d",
	})
	assert.False(t, similarEvents(noVenue1, noVenue2))
}

func TestSimilarEvents_VenueAssistedMatch(t *testing.T) {
	day := time.Date(2026, 9, 12, 20, 0, 0, 0, time.UTC)
	e1 := testEventRecord(t, map[string]any{
		"title":       "Jazz Night Trio Session",
		"starts_at":   day,
		"venue":       "The Elephant Room",
		"source_name": "do512",
		"source_id":   "a",
	})
	e2 := testEventRecord(t, map[string]any{
		"title":       "Jazz Night Session",
		"starts_at":   day.Add(time.Hour),
		"venue":       "The Elephant Room",
		"source_name": "visitaustin",
		"source_id":   "b",
	})

	assert.True(t, similarEvents(e1, e2))
}

func TestSimilarEvents_SamePairNeverMatches(t *testing.T) {
	day := time.Date(2026, 9, 12, 20, 0, 0, 0, time.UTC)
	e1 := testEventRecord(t, map[string]any{
		"title":       "Trivia Night",
		"starts_at":   day,
		"source_name": "do512",
		"source_id":   "same",
	})
	e2 := testEventRecord(t, map[string]any{
		"title":       "Trivia Night!",
		"starts_at":   day,
		"source_name": "do512",
		"source_id":   "same",
	})

	assert.False(t, similarEvents(e1, e2))
}

func TestCompletenessScore(t *testing.T) {
	sparse := testEventRecord(t, map[string]any{
		"title":     "Sparse",
		"starts_at": time.Now(),
	})
	rich := testEventRecord(t, map[string]any{
		"title":       "Rich",
		"starts_at":   time.Now(),
		"description": strings.Repeat("k", 150),
		"venue":       "Town Hall",
		"location":    "123 Main St",
		"image_url":   "https://example.com/a.jpg",
		"source_url":  "https://example.com/event",
	})

	assert.Greater(t, completenessScore(rich), completenessScore(sparse))
	// Long description is worth the extra weight.
	assert.Equal(t, 8, completenessScore(rich))
}
