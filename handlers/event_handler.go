package handlers

import (
	"net/http"
	"time"

	"funcal/internal/scrapers"
	"funcal/models"
	"funcal/services"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type EventHandler struct {
	app          *pocketbase.PocketBase
	eventService *services.EventService
}

func NewEventHandler(app *pocketbase.PocketBase, eventService *services.EventService) *EventHandler {
	return &EventHandler{
		app:          app,
		eventService: eventService,
	}
}

// eventPayload is what clients post to create an event. Start and end
// accept either structured timestamps or free-form text, the same shapes
// scrapers produce.
type eventPayload struct {
	Title       string `json:"title"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at,omitempty"`
	AllDay      bool   `json:"all_day,omitempty"`
	Location    string `json:"location,omitempty"`
	Venue       string `json:"venue,omitempty"`
	Description string `json:"description,omitempty"`
	EventType   string `json:"event_type,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SourceName  string `json:"source_name,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	CalendarID  string `json:"calendar_id,omitempty"`
	PostID      string `json:"post_id,omitempty"`
	SkipDedup   bool   `json:"skip_dedup,omitempty"`
}

func (p eventPayload) toRaw() scrapers.RawEvent {
	return scrapers.RawEvent{
		Title:       p.Title,
		StartText:   p.StartsAt,
		EndText:     p.EndsAt,
		AllDay:      p.AllDay,
		Location:    p.Location,
		Venue:       p.Venue,
		Description: p.Description,
		EventType:   p.EventType,
		ImageURL:    p.ImageURL,
		SourceID:    p.SourceID,
		SourceURL:   p.SourceURL,
	}
}

// CreateEvent is the unified entry point for API event creation.
func (h *EventHandler) CreateEvent(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	return h.createFromPayload(e, services.SourceKindAPI)
}

// CreateEventFromChat backs the chat assistant's create_event tool. Same
// pipeline as the API, tagged so reporting can tell the paths apart.
func (h *EventHandler) CreateEventFromChat(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	return h.createFromPayload(e, services.SourceKindChat)
}

func (h *EventHandler) createFromPayload(e *core.RequestEvent, kind string) error {
	var payload eventPayload
	if err := e.BindBody(&payload); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	draft, err := services.Normalize(payload.toRaw())
	if err != nil {
		return e.JSON(http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"errors":  []string{err.Error()},
		})
	}
	draft.SourceName = payload.SourceName

	result := h.eventService.Create(services.CreateRequest{
		Draft:      draft,
		SourceKind: kind,
		SkipDedup:  payload.SkipDedup,
		CalendarID: payload.CalendarID,
		PostID:     payload.PostID,
		UserID:     e.Auth.Id,
	})

	switch {
	case result.Success:
		return e.JSON(http.StatusCreated, map[string]any{
			"success": true,
			"event":   models.EventFromRecord(result.Event),
		})
	case result.Duplicate != nil:
		return e.JSON(http.StatusOK, map[string]any{
			"success":   false,
			"duplicate": true,
			"event":     models.EventFromRecord(result.Duplicate),
		})
	default:
		return e.JSON(http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"errors":  result.Errors,
		})
	}
}

// ListEvents backs the chat assistant's list_events tool. Defaults to the
// next seven days.
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		From  string `json:"from,omitempty"`
		To    string `json:"to,omitempty"`
		Limit int    `json:"limit,omitempty"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	now := time.Now().UTC()
	from := now.Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 7)
	if req.From != "" {
		parsed, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return apis.NewBadRequestError("Invalid from date, want YYYY-MM-DD", err)
		}
		from = parsed
	}
	if req.To != "" {
		parsed, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return apis.NewBadRequestError("Invalid to date, want YYYY-MM-DD", err)
		}
		// Inclusive end date.
		to = parsed.AddDate(0, 0, 1)
	}

	limit := req.Limit
	if limit <= 0 || limit > 20 {
		limit = 20
	}

	records, err := h.app.FindRecordsByFilter(
		"events",
		"starts_at >= {:from} && starts_at < {:to}",
		"starts_at",
		limit, 0,
		dbx.Params{
			"from": from.Format("2006-01-02 15:04:05.000Z"),
			"to":   to.Format("2006-01-02 15:04:05.000Z"),
		},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to list events", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"events": recordsToEvents(records),
		"from":   from.Format("2006-01-02"),
		"to":     to.AddDate(0, 0, -1).Format("2006-01-02"),
	})
}

// SearchEvents backs the chat assistant's search_events tool.
func (h *EventHandler) SearchEvents(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if req.Query == "" {
		return apis.NewBadRequestError("query is required", nil)
	}

	records, err := h.app.FindRecordsByFilter(
		"events",
		"title ~ {:q} || description ~ {:q} || venue ~ {:q}",
		"starts_at",
		10, 0,
		dbx.Params{"q": req.Query},
	)
	if err != nil {
		return apis.NewBadRequestError("Search failed", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"events": recordsToEvents(records),
		"query":  req.Query,
	})
}

func recordsToEvents(records []*core.Record) []*models.Event {
	events := make([]*models.Event, 0, len(records))
	for _, record := range records {
		events = append(events, models.EventFromRecord(record))
	}
	return events
}
