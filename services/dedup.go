package services

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"funcal/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

const (
	// Title similarity above this is a duplicate on its own.
	similarityThreshold = 0.85

	// The batch sweep accepts a weaker title match when venue and date
	// also agree.
	venueAssistedThreshold = 0.60

	// Completeness bonus for a substantive description.
	longDescriptionLen = 100
)

// baseStopWords are removed from titles before comparison. The batch
// sweep strips a few more promoter fillers so "X presents Y" and "Y"
// still collide.
var (
	baseStopWords = map[string]bool{
		"the": true, "a": true, "an": true, "at": true, "in": true,
		"on": true, "for": true, "and": true, "or": true, "with": true,
	}
	sweepStopWords = map[string]bool{
		"w": true, "feat": true, "featuring": true,
		"present": true, "presents": true,
	}
)

var punctuationRe = regexp.MustCompile(`[^\w\s]`)

// DedupService decides whether a candidate event already exists in the
// store, and periodically sweeps the store for cross-source duplicates
// that slipped past per-import checks.
type DedupService struct {
	app core.App
}

func NewDedupService(app core.App) *DedupService {
	return &DedupService{app: app}
}

// FindDuplicate returns the existing event the draft duplicates, or nil.
//
// The (source_name, source_id) pair is authoritative: a hit there is the
// same upstream event, full stop. Only without one do we fall back to
// fuzzy title comparison against events starting the same calendar day.
func (s *DedupService) FindDuplicate(draft *models.Event) (*core.Record, error) {
	if draft.StartsAt.IsZero() {
		return nil, nil
	}

	if draft.SourceName != "" && draft.SourceID != "" {
		existing, err := s.app.FindFirstRecordByFilter(
			"events",
			"source_name = {:name} && source_id = {:id}",
			dbx.Params{"name": draft.SourceName, "id": draft.SourceID},
		)
		if err == nil && existing != nil {
			return existing, nil
		}
	}

	sameDay, err := s.eventsOnDay(draft.StartsAt)
	if err != nil {
		return nil, err
	}

	for _, record := range sameDay {
		if TitleSimilarity(record.GetString("title"), draft.Title) > similarityThreshold {
			return record, nil
		}
	}
	return nil, nil
}

func (s *DedupService) eventsOnDay(t time.Time) ([]*core.Record, error) {
	day := t.UTC().Truncate(24 * time.Hour)
	return s.app.FindRecordsByFilter(
		"events",
		"starts_at >= {:from} && starts_at < {:to}",
		"starts_at",
		0, 0,
		dbx.Params{
			"from": day.Format(storeTimeLayout),
			"to":   day.Add(24 * time.Hour).Format(storeTimeLayout),
		},
	)
}

// storeTimeLayout matches how PocketBase serializes date fields.
const storeTimeLayout = "2006-01-02 15:04:05.000Z"

// NormalizeTitle lowercases, strips punctuation, collapses whitespace and
// drops stop words.
func NormalizeTitle(title string) string {
	return normalizeTitle(title, false)
}

func normalizeTitle(title string, sweep bool) string {
	lowered := strings.ToLower(title)
	stripped := punctuationRe.ReplaceAllString(lowered, "")

	var kept []string
	for _, word := range strings.Fields(stripped) {
		if baseStopWords[word] {
			continue
		}
		if sweep && sweepStopWords[word] {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// TitleSimilarity is the Jaccard similarity of the two normalized titles'
// word sets. Two empty titles are never similar.
func TitleSimilarity(a, b string) float64 {
	return jaccard(wordSet(NormalizeTitle(a)), wordSet(NormalizeTitle(b)))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Sweep scans all source-attributed events, buckets them by calendar day
// and removes cross-source duplicates pairwise, keeping whichever record
// scores higher on completeness. Returns how many records were removed.
func (s *DedupService) Sweep(ctx context.Context) (int, error) {
	records, err := s.app.FindRecordsByFilter(
		"events",
		"source_name != ''",
		"starts_at",
		0, 0,
	)
	if err != nil {
		return 0, err
	}

	byDay := make(map[string][]*core.Record)
	for _, record := range records {
		day := record.GetDateTime("starts_at").Time().UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], record)
	}

	removed := 0
	for _, bucket := range byDay {
		if len(bucket) < 2 {
			continue
		}
		deleted := make(map[string]bool)

		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				if err := ctx.Err(); err != nil {
					return removed, err
				}
				e1, e2 := bucket[i], bucket[j]
				if deleted[e1.Id] || deleted[e2.Id] {
					continue
				}
				if !similarEvents(e1, e2) {
					continue
				}

				keeper, loser := e1, e2
				if completenessScore(e2) > completenessScore(e1) {
					keeper, loser = e2, e1
				}

				log.Printf("[Dedup] Removing duplicate: %q (keeping %q)",
					loser.GetString("title"), keeper.GetString("title"))
				if err := s.app.Delete(loser); err != nil {
					log.Printf("[Dedup] Failed to delete %s: %v", loser.Id, err)
					continue
				}
				deleted[loser.Id] = true
				removed++
			}
		}
	}

	log.Printf("[Dedup] Sweep complete, removed %d duplicates", removed)
	return removed, nil
}

// similarEvents applies the sweep's wider matching rules. A strong title
// match stands on its own; weaker signals (title containment, similarity
// above the lower bar) count only when an exact venue match on the same
// day corroborates them.
func similarEvents(e1, e2 *core.Record) bool {
	if e1.Id == e2.Id {
		return false
	}
	if e1.GetString("source_name") == e2.GetString("source_name") &&
		e1.GetString("source_id") == e2.GetString("source_id") {
		return false
	}

	t1 := normalizeTitle(e1.GetString("title"), true)
	t2 := normalizeTitle(e2.GetString("title"), true)

	similarity := jaccard(wordSet(t1), wordSet(t2))
	if similarity > similarityThreshold {
		return true
	}

	v1, v2 := e1.GetString("venue"), e2.GetString("venue")
	if v1 == "" || v2 == "" {
		return false
	}
	if normalizeTitle(v1, true) != normalizeTitle(v2, true) {
		return false
	}
	d1 := e1.GetDateTime("starts_at").Time().UTC().Format("2006-01-02")
	d2 := e2.GetDateTime("starts_at").Time().UTC().Format("2006-01-02")
	if d1 != d2 {
		return false
	}

	contained := t1 != "" && t2 != "" && (strings.Contains(t1, t2) || strings.Contains(t2, t1))
	return contained || similarity > venueAssistedThreshold
}

// completenessScore ranks which of two duplicates carries more data.
func completenessScore(record *core.Record) int {
	score := 0
	for _, field := range []string{"title", "description", "venue", "location", "image_url", "source_url"} {
		if record.GetString(field) != "" {
			score++
		}
	}
	if len(record.GetString("description")) > longDescriptionLen {
		score += 2
	}
	return score
}
