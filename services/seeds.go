package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"funcal/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// LoadSourcesFromFile upserts scraper source definitions from a JSON
// file, keyed by slug. Existing sources get their configuration refreshed
// but keep their run bookkeeping, so re-running seeds is safe.
func LoadSourcesFromFile(app core.App, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var sources []models.ScraperSource
	if err := json.Unmarshal(data, &sources); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	collection, err := app.FindCollectionByNameOrId("scraper_sources")
	if err != nil {
		return fmt.Errorf("scraper_sources collection: %w", err)
	}

	created, updated := 0, 0
	for _, source := range sources {
		if source.Slug == "" || source.BaseURL == "" {
			log.Printf("[Seeds] Skipping source %q: slug and base_url are required", source.Name)
			continue
		}

		record, err := app.FindFirstRecordByFilter(
			"scraper_sources", "slug = {:slug} && calendar = {:calendar}",
			dbx.Params{"slug": source.Slug, "calendar": source.CalendarID})
		if err != nil || record == nil {
			record = core.NewRecord(collection)
			record.Set("slug", source.Slug)
			created++
		} else {
			updated++
		}

		record.Set("name", source.Name)
		record.Set("base_url", source.BaseURL)
		record.Set("list_path", source.ListPath)
		record.Set("scraper_class", source.ScraperClass)
		record.Set("color", source.Color)
		record.Set("enabled", source.Enabled)
		record.Set("selectors", source.Selectors)
		record.Set("schedule", source.Schedule)
		if source.CalendarID != "" {
			record.Set("calendar", source.CalendarID)
		}

		if err := app.Save(record); err != nil {
			return fmt.Errorf("save source %s: %w", source.Slug, err)
		}
	}

	log.Printf("[Seeds] Loaded %d sources (%d created, %d updated)", created+updated, created, updated)
	return nil
}
