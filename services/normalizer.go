package services

import (
	"fmt"
	"strings"
	"time"

	"funcal/internal/scrapers"
	"funcal/models"
)

// RejectionError marks a raw record the pipeline should skip. It is the
// expected outcome for malformed upstream data and never aborts a batch.
type RejectionError struct {
	Field  string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("record rejected: %s %s", e.Field, e.Reason)
}

// IsRejection reports whether err is a per-record rejection as opposed to
// a pipeline failure.
func IsRejection(err error) bool {
	_, ok := err.(*RejectionError)
	return ok
}

// startLayouts are tried in order for text datetimes. Layouts below the
// dateOnly marker imply an all-day event.
var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"January 2, 2006 3:04 PM",
	"January 2, 2006 at 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"Mon, Jan 2, 2006 3:04 PM",
	"01/02/2006 3:04 PM",
}

var dateOnlyLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// Normalize converts one raw source record into a canonical event draft.
// Records without a usable title or start time come back as a
// RejectionError; everything else is trimmed, capped and mapped onto the
// closed event-type set. The returned draft carries no end time when the
// source had none: the one-hour default is applied at persistence time.
func Normalize(raw scrapers.RawEvent) (*models.Event, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil, &RejectionError{Field: "title", Reason: "missing"}
	}

	start := raw.StartsAt
	allDay := raw.AllDay
	if start.IsZero() {
		parsed, dateOnly, ok := parseEventTime(raw.StartText)
		if !ok {
			return nil, &RejectionError{Field: "starts_at", Reason: "unparseable"}
		}
		start = parsed
		allDay = allDay || dateOnly
	}

	draft := &models.Event{
		Title:       truncate(title, models.MaxTitleLen),
		StartsAt:    start,
		AllDay:      allDay,
		Location:    truncate(strings.TrimSpace(raw.Location), models.MaxLocationLen),
		Venue:       truncate(strings.TrimSpace(raw.Venue), models.MaxVenueLen),
		Description: truncate(strings.TrimSpace(raw.Description), models.MaxDescriptionLen),
		EventType:   mapEventType(raw.EventType),
		ImageURL:    strings.TrimSpace(raw.ImageURL),
		SourceURL:   strings.TrimSpace(raw.SourceURL),
		SourceID:    strings.TrimSpace(raw.SourceID),
	}

	end := raw.EndsAt
	if end.IsZero() && raw.EndText != "" {
		if parsed, _, ok := parseEventTime(raw.EndText); ok {
			end = parsed
		}
	}
	// An end before the start is upstream garbage; drop it and let the
	// default duration apply.
	if !end.IsZero() && !end.Before(start) {
		draft.EndsAt = end
	}

	return draft, nil
}

func parseEventTime(text string) (parsed time.Time, dateOnly bool, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false, false
	}

	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, false, true
		}
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true, true
		}
	}
	return time.Time{}, false, false
}

func mapEventType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if models.ValidEventType(t) {
		return t
	}
	return models.DefaultEventType
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
