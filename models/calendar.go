package models

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// Import source kinds a calendar can sync from.
const (
	ImportSourceIcal      = "ical"
	ImportSourceGoogle    = "google"
	ImportSourceApple     = "apple"
	ImportSourceFirecrawl = "firecrawl"
)

// Extraction status values for the firecrawl flow. Clients poll these.
const (
	ExtractionPending    = "pending"
	ExtractionProcessing = "processing"
	ExtractionCompleted  = "completed"
	ExtractionFailed     = "failed"
)

const DefaultImportIntervalHours = 6

type Calendar struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	OwnerID             string    `json:"owner_id"`
	Color               string    `json:"color,omitempty"`
	IcalToken           string    `json:"-"`
	ImportURL           string    `json:"import_url,omitempty"`
	ImportSource        string    `json:"import_source,omitempty"`
	ImportSourceID      string    `json:"import_source_id,omitempty"`
	ImportEnabled       bool      `json:"import_enabled"`
	ImportIntervalHours int       `json:"import_interval_hours"`
	LastImportedAt      time.Time `json:"last_imported_at,omitempty"`
	ImportError         string    `json:"import_error,omitempty"`
	ExtractionPrompt    string    `json:"extraction_prompt,omitempty"`
	ExtractionStatus    string    `json:"extraction_status,omitempty"`
}

func (c *Calendar) Google() bool {
	return c.ImportSource == ImportSourceGoogle
}

func (c *Calendar) Firecrawl() bool {
	return c.ImportSource == ImportSourceFirecrawl
}

// ImportConfigured reports whether the calendar has a usable source
// location for its import kind.
func (c *Calendar) ImportConfigured() bool {
	if c.Google() {
		return c.ImportSourceID != ""
	}
	return c.ImportURL != ""
}

// NeedsImportSync is true when the calendar has never been imported or
// its last import is older than the configured interval.
func (c *Calendar) NeedsImportSync(now time.Time) bool {
	if !c.ImportEnabled || !c.ImportConfigured() {
		return false
	}
	if c.LastImportedAt.IsZero() {
		return true
	}
	interval := c.ImportIntervalHours
	if interval <= 0 {
		interval = DefaultImportIntervalHours
	}
	return now.Sub(c.LastImportedAt) > time.Duration(interval)*time.Hour
}

func CalendarFromRecord(record *core.Record) *Calendar {
	return &Calendar{
		ID:                  record.Id,
		Name:                record.GetString("name"),
		Description:         record.GetString("description"),
		OwnerID:             record.GetString("owner"),
		Color:               record.GetString("color"),
		IcalToken:           record.GetString("ical_token"),
		ImportURL:           record.GetString("import_url"),
		ImportSource:        record.GetString("import_source"),
		ImportSourceID:      record.GetString("import_source_id"),
		ImportEnabled:       record.GetBool("import_enabled"),
		ImportIntervalHours: record.GetInt("import_interval_hours"),
		LastImportedAt:      record.GetDateTime("last_imported_at").Time(),
		ImportError:         record.GetString("import_error"),
		ExtractionPrompt:    record.GetString("extraction_prompt"),
		ExtractionStatus:    record.GetString("extraction_status"),
	}
}
