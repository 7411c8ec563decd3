package models

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// EventTypes is the closed set of categories an event can carry.
// Anything else coming from an external source is mapped to "social".
var EventTypes = []string{"social", "meeting", "workshop", "community", "celebration"}

const (
	DefaultEventType = "social"

	// Field caps applied at normalization time to bound storage.
	MaxTitleLen       = 255
	MaxVenueLen       = 255
	MaxLocationLen    = 500
	MaxDescriptionLen = 2000

	// Events without an explicit end run for one hour.
	DefaultDuration = time.Hour
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at,omitempty"`
	AllDay      bool      `json:"all_day"`
	Location    string    `json:"location,omitempty"`
	Venue       string    `json:"venue,omitempty"`
	Description string    `json:"description,omitempty"`
	EventType   string    `json:"event_type"`
	ImageURL    string    `json:"image_url,omitempty"`
	SourceName  string    `json:"source_name,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	CalendarID  string    `json:"calendar_id,omitempty"`
	PostID      string    `json:"post_id,omitempty"`
}

// EffectiveEnd is the end of the event's occupied time range,
// defaulting to one hour after the start when no end is set.
func (e *Event) EffectiveEnd() time.Time {
	if !e.EndsAt.IsZero() {
		return e.EndsAt
	}
	return e.StartsAt.Add(DefaultDuration)
}

// Overlaps reports whether the event's (start, effective end) range
// intersects the given half-open range.
func (e *Event) Overlaps(from, to time.Time) bool {
	return e.StartsAt.Before(to) && e.EffectiveEnd().After(from)
}

func ValidEventType(t string) bool {
	for _, v := range EventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// EventFromRecord maps a persisted events record onto the domain struct.
func EventFromRecord(record *core.Record) *Event {
	return &Event{
		ID:          record.Id,
		Title:       record.GetString("title"),
		StartsAt:    record.GetDateTime("starts_at").Time(),
		EndsAt:      record.GetDateTime("ends_at").Time(),
		AllDay:      record.GetBool("all_day"),
		Location:    record.GetString("location"),
		Venue:       record.GetString("venue"),
		Description: record.GetString("description"),
		EventType:   record.GetString("event_type"),
		ImageURL:    record.GetString("image_url"),
		SourceName:  record.GetString("source_name"),
		SourceID:    record.GetString("source_id"),
		SourceURL:   record.GetString("source_url"),
		CalendarID:  record.GetString("calendar"),
		PostID:      record.GetString("post"),
	}
}
