package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"funcal/internal/scrapers"
	"funcal/models"
	"funcal/monitoring"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"
	"golang.org/x/oauth2"
)

// IngestService coordinates a full run of one source: fetch, normalize,
// create-or-update, bookkeeping. It is the unit of work the sync queue
// executes.
type IngestService struct {
	app       core.App
	events    *EventService
	registry  *scrapers.Registry
	ical      *scrapers.IcalImporter
	google    *scrapers.GoogleImporter
	firecrawl *scrapers.FirecrawlClient
	pubnub    *pubnub.PubNub

	now func() time.Time
}

func NewIngestService(
	app core.App,
	events *EventService,
	registry *scrapers.Registry,
	ical *scrapers.IcalImporter,
	google *scrapers.GoogleImporter,
	firecrawl *scrapers.FirecrawlClient,
	pn *pubnub.PubNub,
) *IngestService {
	return &IngestService{
		app:       app,
		events:    events,
		registry:  registry,
		ical:      ical,
		google:    google,
		firecrawl: firecrawl,
		pubnub:    pn,
		now:       time.Now,
	}
}

// RunResult summarizes one ingestion run. Count is what the run produced
// or confirmed (created + duplicates); Rejected events never made it past
// normalization or validation.
type RunResult struct {
	Source     string `json:"source"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Duplicates int    `json:"duplicates"`
	Rejected   int    `json:"rejected"`
	Err        error  `json:"-"`
}

func (r RunResult) Count() int { return r.Created + r.Updated + r.Duplicates }

// IsTerminalError reports whether a run error cannot be fixed by
// retrying: the record is gone, the configuration is broken, or upstream
// credentials need user action.
func IsTerminalError(err error) bool {
	return errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, scrapers.ErrBadConfig) ||
		errors.Is(err, scrapers.ErrAuthExpired)
}

// RunSource executes one scraper source end to end and updates its run
// bookkeeping. last_run_at is written even on failure so the scheduler
// does not hammer a broken source.
func (s *IngestService) RunSource(ctx context.Context, sourceID string) RunResult {
	record, err := s.app.FindRecordById("scraper_sources", sourceID)
	if err != nil {
		return RunResult{Err: fmt.Errorf("source %s: %w", sourceID, err)}
	}
	source := models.ScraperSourceFromRecord(record)
	result := RunResult{Source: source.Slug}

	scraper, err := s.registry.Resolve(source)
	if err != nil {
		s.finishSourceRun(record, result, err)
		result.Err = err
		return result
	}

	started := s.now()
	log.Printf("[Ingest] Running source %s", source.Slug)
	raws, err := scraper.Fetch(ctx)
	monitoring.ObserveSourceRun(source.Slug, started, err)
	if err != nil {
		s.finishSourceRun(record, result, err)
		result.Err = fmt.Errorf("fetch %s: %w", source.Slug, err)
		return result
	}

	for _, raw := range raws {
		draft, err := Normalize(raw)
		if err != nil {
			result.Rejected++
			log.Printf("[Ingest] Rejected event from %s: %v", source.Slug, err)
			continue
		}
		draft.SourceName = source.SourceName()

		res := s.events.Create(CreateRequest{
			Draft:      draft,
			SourceKind: SourceKindScraper,
			CalendarID: source.CalendarID,
		})
		switch {
		case res.Success:
			result.Created++
			monitoring.EventsIngested.WithLabelValues(source.Slug).Inc()
		case res.Duplicate != nil:
			result.Duplicates++
			monitoring.DuplicatesSkipped.Inc()
		default:
			result.Rejected++
			monitoring.EventsRejected.Inc()
			log.Printf("[Ingest] Rejected event from %s: %v", source.Slug, res.Errors)
		}
	}

	s.finishSourceRun(record, result, nil)
	log.Printf("[Ingest] Source %s: %d created, %d duplicates, %d rejected",
		source.Slug, result.Created, result.Duplicates, result.Rejected)
	return result
}

func (s *IngestService) finishSourceRun(record *core.Record, result RunResult, runErr error) {
	applySourceRun(record, result, runErr, s.now().UTC())
	if err := s.app.Save(record); err != nil {
		log.Printf("[Ingest] Failed to update source bookkeeping: %v", err)
	}
}

// applySourceRun writes the run bookkeeping fields. last_run_at and
// last_run_count reflect every run; the success fields are only touched
// when the run went through.
func applySourceRun(record *core.Record, result RunResult, runErr error, now time.Time) {
	record.Set("last_run_at", now)
	record.Set("last_run_count", result.Count())
	if runErr != nil {
		record.Set("last_error", runErr.Error())
		return
	}
	record.Set("last_error", "")
	record.Set("last_success_at", now)
	record.Set("total_events_scraped", record.GetInt("total_events_scraped")+result.Created)
}

// RunCalendarImport syncs one calendar from its configured upstream.
// Feed imports (ical, apple, google) treat the upstream as the source of
// truth and update existing records in place; AI extraction goes through
// the regular duplicate detection instead, since extracted events have no
// stable upstream ids across runs.
func (s *IngestService) RunCalendarImport(ctx context.Context, calendarID string) RunResult {
	record, err := s.app.FindRecordById("calendars", calendarID)
	if err != nil {
		return RunResult{Err: fmt.Errorf("calendar %s: %w", calendarID, err)}
	}
	cal := models.CalendarFromRecord(record)
	result := RunResult{Source: cal.ImportSource}

	if !cal.ImportEnabled || !cal.ImportConfigured() {
		err := fmt.Errorf("%w: calendar %s has no usable import configuration",
			scrapers.ErrBadConfig, calendarID)
		s.finishCalendarImport(record, err)
		result.Err = err
		return result
	}

	sourceName := fmt.Sprintf("%s:%s", cal.ImportSource, cal.ID)
	started := s.now()

	var raws []scrapers.RawEvent
	var fetchErr error
	upsert := true

	switch cal.ImportSource {
	case models.ImportSourceIcal, models.ImportSourceApple:
		raws, fetchErr = s.ical.Fetch(ctx, cal.ImportURL)

	case models.ImportSourceGoogle:
		var token oauth2.Token
		if err := record.UnmarshalJSONField("google_token", &token); err != nil || token.RefreshToken == "" && token.AccessToken == "" {
			fetchErr = fmt.Errorf("%w: calendar %s has no google token", scrapers.ErrAuthExpired, calendarID)
			break
		}
		raws, fetchErr = s.google.Fetch(ctx, cal.ImportSourceID, &token)

	case models.ImportSourceFirecrawl:
		upsert = false
		s.setExtractionStatus(record, models.ExtractionProcessing)
		raws, fetchErr = s.firecrawl.Extract(ctx, cal.ImportURL, cal.ExtractionPrompt)

	default:
		fetchErr = fmt.Errorf("%w: unknown import source %q", scrapers.ErrBadConfig, cal.ImportSource)
	}

	monitoring.ObserveSourceRun(cal.ImportSource, started, fetchErr)
	if fetchErr != nil {
		if cal.Firecrawl() {
			s.setExtractionStatus(record, models.ExtractionFailed)
		}
		s.finishCalendarImport(record, fetchErr)
		result.Err = fmt.Errorf("import calendar %s: %w", calendarID, fetchErr)
		return result
	}

	for _, raw := range raws {
		draft, err := Normalize(raw)
		if err != nil {
			result.Rejected++
			continue
		}
		draft.SourceName = sourceName

		if upsert && draft.SourceID != "" {
			existing, err := s.app.FindFirstRecordByFilter(
				"events",
				"source_name = {:name} && source_id = {:id}",
				dbx.Params{"name": sourceName, "id": draft.SourceID},
			)
			if err == nil && existing != nil {
				if err := s.events.UpdateFromDraft(existing, draft); err != nil {
					log.Printf("[Ingest] Failed to update event %s: %v", existing.Id, err)
					result.Rejected++
				} else {
					result.Updated++
				}
				continue
			}
		}

		res := s.events.Create(CreateRequest{
			Draft:      draft,
			SourceKind: SourceKindAPI,
			SkipDedup:  upsert,
			CalendarID: cal.ID,
		})
		switch {
		case res.Success:
			result.Created++
			monitoring.EventsIngested.WithLabelValues(cal.ImportSource).Inc()
		case res.Duplicate != nil:
			result.Duplicates++
			monitoring.DuplicatesSkipped.Inc()
		default:
			result.Rejected++
			monitoring.EventsRejected.Inc()
		}
	}

	if cal.Firecrawl() {
		s.setExtractionStatus(record, models.ExtractionCompleted)
	}
	s.finishCalendarImport(record, nil)
	log.Printf("[Ingest] Calendar %s (%s): %d created, %d updated, %d duplicates, %d rejected",
		calendarID, cal.ImportSource, result.Created, result.Updated, result.Duplicates, result.Rejected)
	return result
}

func (s *IngestService) finishCalendarImport(record *core.Record, runErr error) {
	record.Set("last_imported_at", s.now().UTC())
	if runErr != nil {
		record.Set("import_error", runErr.Error())
	} else {
		record.Set("import_error", "")
	}
	if err := s.app.Save(record); err != nil {
		log.Printf("[Ingest] Failed to update calendar bookkeeping: %v", err)
	}
}

// dueCalendars lists ids of import-enabled calendars whose sync interval
// has elapsed.
func (s *IngestService) dueCalendars(now time.Time) ([]string, error) {
	records, err := s.app.FindRecordsByFilter(
		"calendars", "import_enabled = true", "", 0, 0)
	if err != nil {
		return nil, err
	}
	var due []string
	for _, record := range records {
		if models.CalendarFromRecord(record).NeedsImportSync(now) {
			due = append(due, record.Id)
		}
	}
	return due, nil
}

// dueSources lists ids of enabled scraper sources that are due for a run.
func (s *IngestService) dueSources(now time.Time) ([]string, error) {
	records, err := s.app.FindRecordsByFilter(
		"scraper_sources", "enabled = true", "", 0, 0)
	if err != nil {
		return nil, err
	}
	var due []string
	for _, record := range records {
		if models.ScraperSourceFromRecord(record).DueForScrape(now) {
			due = append(due, record.Id)
		}
	}
	return due, nil
}

// setExtractionStatus persists the extraction state and pushes it to the
// calendar's realtime channel so the UI can show progress.
func (s *IngestService) setExtractionStatus(record *core.Record, status string) {
	record.Set("extraction_status", status)
	if err := s.app.Save(record); err != nil {
		log.Printf("[Ingest] Failed to set extraction status: %v", err)
		return
	}

	if s.pubnub == nil {
		return
	}
	channel := fmt.Sprintf("calendar-%s", record.Id)
	s.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":        "extraction_status",
			"calendar_id": record.Id,
			"status":      status,
		}).
		Execute()
}
