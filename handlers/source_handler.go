package handlers

import (
	"log"
	"net/http"

	"funcal/models"
	"funcal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type SourceHandler struct {
	app       *pocketbase.PocketBase
	syncQueue *services.SyncQueueService
}

func NewSourceHandler(app *pocketbase.PocketBase, syncQueue *services.SyncQueueService) *SourceHandler {
	return &SourceHandler{
		app:       app,
		syncQueue: syncQueue,
	}
}

// ListSources returns every scraper source with its run state.
func (h *SourceHandler) ListSources(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	records, err := h.app.FindRecordsByFilter("scraper_sources", "id != ''", "name", 0, 0)
	if err != nil {
		return apis.NewBadRequestError("Failed to list sources", err)
	}

	sources := make([]*models.ScraperSource, 0, len(records))
	for _, record := range records {
		sources = append(sources, models.ScraperSourceFromRecord(record))
	}

	return e.JSON(http.StatusOK, map[string]any{"sources": sources})
}

// RunSource queues an immediate run of one source. The run happens on a
// sync worker; this returns as soon as the job is queued.
func (h *SourceHandler) RunSource(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	sourceID := e.Request.PathValue("sourceId")
	if _, err := h.app.FindRecordById("scraper_sources", sourceID); err != nil {
		return apis.NewNotFoundError("Source not found", nil)
	}

	job := services.SyncJob{Kind: services.JobSourceScrape, ID: sourceID}
	if err := h.syncQueue.Enqueue(e.Request.Context(), job, 0); err != nil {
		return apis.NewBadRequestError("Failed to queue run", err)
	}

	return e.JSON(http.StatusAccepted, map[string]any{
		"queued":    true,
		"source_id": sourceID,
	})
}

// RunCalendarImport queues an immediate import of one calendar.
func (h *SourceHandler) RunCalendarImport(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	calendarID := e.Request.PathValue("calendarId")
	record, err := h.app.FindRecordById("calendars", calendarID)
	if err != nil {
		return apis.NewNotFoundError("Calendar not found", nil)
	}
	if record.GetString("owner") != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}
	if !models.CalendarFromRecord(record).ImportConfigured() {
		return apis.NewBadRequestError("Calendar has no import configuration", nil)
	}

	job := services.SyncJob{Kind: services.JobCalendarImport, ID: calendarID}
	if err := h.syncQueue.Enqueue(e.Request.Context(), job, 0); err != nil {
		return apis.NewBadRequestError("Failed to queue import", err)
	}

	if markExtractionQueued(record) {
		if err := h.app.Save(record); err != nil {
			log.Printf("[Sources] Failed to mark extraction pending for %s: %v", calendarID, err)
		}
	}

	return e.JSON(http.StatusAccepted, map[string]any{
		"queued":      true,
		"calendar_id": calendarID,
	})
}

// markExtractionQueued flags an extraction-backed calendar as pending so
// polling clients can tell a queued import apart from an idle one. Returns
// true when the record was changed and needs saving.
func markExtractionQueued(record *core.Record) bool {
	if record.GetString("import_source") != models.ImportSourceFirecrawl {
		return false
	}
	record.Set("extraction_status", models.ExtractionPending)
	return true
}

// ImportStatus is the polling endpoint the UI hits while an AI extraction
// or feed import is in flight.
func (h *SourceHandler) ImportStatus(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	calendarID := e.Request.PathValue("calendarId")
	record, err := h.app.FindRecordById("calendars", calendarID)
	if err != nil {
		return apis.NewNotFoundError("Calendar not found", nil)
	}
	if record.GetString("owner") != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	cal := models.CalendarFromRecord(record)
	return e.JSON(http.StatusOK, map[string]any{
		"calendar_id":       cal.ID,
		"import_source":     cal.ImportSource,
		"import_enabled":    cal.ImportEnabled,
		"extraction_status": cal.ExtractionStatus,
		"last_imported_at":  cal.LastImportedAt,
		"import_error":      cal.ImportError,
	})
}
