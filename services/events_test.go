package services

import (
	"errors"
	"testing"
	"time"

	"funcal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateDraft(t *testing.T) {
	start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)

	valid := &models.Event{Title: "Potluck", StartsAt: start}
	assert.Empty(t, validateDraft(valid))

	missing := &models.Event{StartsAt: start}
	assert.NotEmpty(t, validateDraft(missing))

	noStart := &models.Event{Title: "Potluck"}
	assert.NotEmpty(t, validateDraft(noStart))

	backwards := &models.Event{Title: "Potluck", StartsAt: start, EndsAt: start.Add(-time.Hour)}
	assert.NotEmpty(t, validateDraft(backwards))

	zeroLength := &models.Event{Title: "Potluck", StartsAt: start, EndsAt: start}
	assert.Empty(t, validateDraft(zeroLength))
}

func TestShouldDedup(t *testing.T) {
	svc := &EventService{}

	scraped := CreateRequest{SourceKind: SourceKindScraper, Draft: &models.Event{}}
	assert.True(t, svc.shouldDedup(scraped))

	manual := CreateRequest{SourceKind: SourceKindManual, Draft: &models.Event{}}
	assert.False(t, svc.shouldDedup(manual))

	// Any event carrying a source attribution opts into dedup.
	attributed := CreateRequest{SourceKind: SourceKindAPI, Draft: &models.Event{SourceName: "do512"}}
	assert.True(t, svc.shouldDedup(attributed))

	skipped := CreateRequest{SourceKind: SourceKindScraper, SkipDedup: true, Draft: &models.Event{}}
	assert.False(t, svc.shouldDedup(skipped))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: events.source_name, events.source_id")))
	assert.False(t, isUniqueViolation(errors.New("no such table")))
	assert.False(t, isUniqueViolation(nil))
}
