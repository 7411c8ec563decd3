package services

import (
	"fmt"
	"log"
	"strings"

	"funcal/config"
	"funcal/models"
	"funcal/utils"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// Source kinds describe where an event entered the system. Dedup is
// automatic for scraped events; user-entered ones opt in by carrying a
// source name.
const (
	SourceKindManual  = "manual"
	SourceKindAPI     = "api"
	SourceKindScraper = "scraper"
	SourceKindChat    = "chat"
)

// CreateRequest is the single entry point payload for storing an event,
// whatever path it arrived by.
type CreateRequest struct {
	Draft      *models.Event
	SourceKind string
	SkipDedup  bool

	// Exactly one owner is resolved per event: an explicit calendar, an
	// explicit post, or (for user kinds) a fresh post for UserID. Scraper
	// events without a calendar get the per-source system calendar.
	CalendarID string
	PostID     string
	UserID     string
}

// CreateResult reports what happened to a create request. Duplicate
// creates are not errors: Success is false, Duplicate carries the record
// that already covers this event.
type CreateResult struct {
	Success   bool
	Event     *core.Record
	Duplicate *core.Record
	Errors    []string
}

// EventService validates, deduplicates and persists events.
type EventService struct {
	app   core.App
	dedup *DedupService
	cfg   *config.Config
}

func NewEventService(app core.App, dedup *DedupService, cfg *config.Config) *EventService {
	return &EventService{app: app, dedup: dedup, cfg: cfg}
}

// Create runs the full pipeline for one draft: validation, duplicate
// detection, owner resolution, save. A unique-index collision on
// (source_name, source_id) from a concurrent insert is reported as a
// duplicate, not a failure.
func (s *EventService) Create(req CreateRequest) CreateResult {
	draft := req.Draft
	if draft == nil {
		return CreateResult{Errors: []string{"no event data"}}
	}

	if errs := validateDraft(draft); len(errs) > 0 {
		return CreateResult{Errors: errs}
	}

	if draft.SourceName != "" && draft.SourceID == "" {
		draft.SourceID = utils.ContentID(draft.Title, draft.StartsAt)
	}

	if s.shouldDedup(req) {
		existing, err := s.dedup.FindDuplicate(draft)
		if err != nil {
			return CreateResult{Errors: []string{fmt.Sprintf("duplicate check failed: %v", err)}}
		}
		if existing != nil {
			log.Printf("[Events] Skipping duplicate %q (existing %s)", draft.Title, existing.Id)
			return CreateResult{Duplicate: existing}
		}
	}

	record, err := s.buildRecord(draft, req)
	if err != nil {
		return CreateResult{Errors: []string{err.Error()}}
	}

	if err := s.app.Save(record); err != nil {
		if isUniqueViolation(err) {
			// Lost the race to a concurrent insert of the same source
			// event. The winner's record is the one we were about to
			// duplicate.
			log.Printf("[Events] Concurrent duplicate for %s/%s, skipping",
				draft.SourceName, draft.SourceID)
			winner, findErr := s.app.FindFirstRecordByFilter(
				"events",
				"source_name = {:name} && source_id = {:id}",
				dbx.Params{"name": draft.SourceName, "id": draft.SourceID},
			)
			if findErr != nil {
				return CreateResult{Duplicate: nil}
			}
			return CreateResult{Duplicate: winner}
		}
		return CreateResult{Errors: []string{fmt.Sprintf("save failed: %v", err)}}
	}

	return CreateResult{Success: true, Event: record}
}

func (s *EventService) shouldDedup(req CreateRequest) bool {
	if req.SkipDedup {
		return false
	}
	return req.SourceKind == SourceKindScraper || req.Draft.SourceName != ""
}

func validateDraft(draft *models.Event) []string {
	var errs []string
	if strings.TrimSpace(draft.Title) == "" {
		errs = append(errs, "title is required")
	}
	if draft.StartsAt.IsZero() {
		errs = append(errs, "start time is required")
	}
	if !draft.EndsAt.IsZero() && draft.EndsAt.Before(draft.StartsAt) {
		errs = append(errs, "end time must not be before start time")
	}
	return errs
}

func (s *EventService) buildRecord(draft *models.Event, req CreateRequest) (*core.Record, error) {
	collection, err := s.app.FindCollectionByNameOrId("events")
	if err != nil {
		return nil, fmt.Errorf("events collection: %w", err)
	}

	calendarID, postID, err := s.resolveOwner(draft, req)
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("title", draft.Title)
	record.Set("starts_at", draft.StartsAt)
	if !draft.EndsAt.IsZero() {
		record.Set("ends_at", draft.EndsAt)
	}
	record.Set("all_day", draft.AllDay)
	record.Set("location", draft.Location)
	record.Set("venue", draft.Venue)
	record.Set("description", draft.Description)
	record.Set("event_type", draft.EventType)
	record.Set("image_url", draft.ImageURL)
	record.Set("source_name", draft.SourceName)
	record.Set("source_id", draft.SourceID)
	record.Set("source_url", draft.SourceURL)
	record.Set("calendar", calendarID)
	record.Set("post", postID)
	return record, nil
}

// resolveOwner enforces the exactly-one-owner invariant.
func (s *EventService) resolveOwner(draft *models.Event, req CreateRequest) (calendarID, postID string, err error) {
	if req.CalendarID != "" && req.PostID != "" {
		return "", "", fmt.Errorf("event cannot belong to both a calendar and a post")
	}
	if req.CalendarID != "" {
		return req.CalendarID, "", nil
	}
	if req.PostID != "" {
		return "", req.PostID, nil
	}

	if req.SourceKind == SourceKindScraper {
		cal, err := s.findOrCreateSourceCalendar(draft.SourceName)
		if err != nil {
			return "", "", err
		}
		return cal.Id, "", nil
	}

	if req.UserID == "" {
		return "", "", fmt.Errorf("event needs a calendar, a post, or a user")
	}
	post, err := s.createPost(draft, req.UserID)
	if err != nil {
		return "", "", err
	}
	return "", post.Id, nil
}

// findOrCreateSourceCalendar returns the shared calendar that collects a
// scraper source's events, creating it on first use.
func (s *EventService) findOrCreateSourceCalendar(sourceName string) (*core.Record, error) {
	if sourceName == "" {
		return nil, fmt.Errorf("scraped event has no source name")
	}

	existing, err := s.app.FindFirstRecordByFilter(
		"calendars",
		"name = {:name} && owner = {:owner}",
		dbx.Params{"name": sourceName, "owner": s.cfg.SystemOwnerID},
	)
	if err == nil && existing != nil {
		return existing, nil
	}

	collection, err := s.app.FindCollectionByNameOrId("calendars")
	if err != nil {
		return nil, fmt.Errorf("calendars collection: %w", err)
	}

	token, err := utils.GenerateToken(16)
	if err != nil {
		return nil, fmt.Errorf("generate ical token: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("name", sourceName)
	record.Set("owner", s.cfg.SystemOwnerID)
	record.Set("ical_token", token)
	if err := s.app.Save(record); err != nil {
		// Another worker may have created it in the meantime.
		if isUniqueViolation(err) {
			return s.app.FindFirstRecordByFilter(
				"calendars",
				"name = {:name} && owner = {:owner}",
				dbx.Params{"name": sourceName, "owner": s.cfg.SystemOwnerID},
			)
		}
		return nil, fmt.Errorf("create source calendar: %w", err)
	}

	log.Printf("[Events] Created calendar for source %q", sourceName)
	return record, nil
}

func (s *EventService) createPost(draft *models.Event, userID string) (*core.Record, error) {
	collection, err := s.app.FindCollectionByNameOrId("posts")
	if err != nil {
		return nil, fmt.Errorf("posts collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("author", userID)
	record.Set("title", draft.Title)
	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return record, nil
}

// UpdateFromDraft overwrites an existing record's event fields with the
// draft's. Used by calendar imports, where the upstream feed is the
// source of truth for subsequent syncs.
func (s *EventService) UpdateFromDraft(record *core.Record, draft *models.Event) error {
	record.Set("title", draft.Title)
	record.Set("starts_at", draft.StartsAt)
	if !draft.EndsAt.IsZero() {
		record.Set("ends_at", draft.EndsAt)
	}
	record.Set("all_day", draft.AllDay)
	if draft.Location != "" {
		record.Set("location", draft.Location)
	}
	if draft.Venue != "" {
		record.Set("venue", draft.Venue)
	}
	if draft.Description != "" {
		record.Set("description", draft.Description)
	}
	if draft.ImageURL != "" {
		record.Set("image_url", draft.ImageURL)
	}
	if draft.SourceURL != "" {
		record.Set("source_url", draft.SourceURL)
	}
	return s.app.Save(record)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
