package handlers

import (
	"testing"

	"funcal/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
)

func testCalendarRecord(t *testing.T, importSource string) *core.Record {
	t.Helper()
	collection := core.NewBaseCollection("calendars")
	collection.Fields.Add(
		&core.SelectField{Name: "import_source", Values: []string{
			models.ImportSourceIcal, models.ImportSourceGoogle,
			models.ImportSourceApple, models.ImportSourceFirecrawl,
		}},
		&core.SelectField{Name: "extraction_status", Values: []string{
			models.ExtractionPending, models.ExtractionProcessing,
			models.ExtractionCompleted, models.ExtractionFailed,
		}},
	)
	record := core.NewRecord(collection)
	record.Set("import_source", importSource)
	return record
}

func TestMarkExtractionQueued_Firecrawl(t *testing.T) {
	record := testCalendarRecord(t, models.ImportSourceFirecrawl)

	changed := markExtractionQueued(record)

	assert.True(t, changed)
	assert.Equal(t, models.ExtractionPending, record.GetString("extraction_status"))
}

func TestMarkExtractionQueued_FeedImportsUntouched(t *testing.T) {
	for _, source := range []string{models.ImportSourceIcal, models.ImportSourceGoogle, ""} {
		record := testCalendarRecord(t, source)

		changed := markExtractionQueued(record)

		assert.False(t, changed, "source %q should not be marked", source)
		assert.Empty(t, record.GetString("extraction_status"))
	}
}
