package scrapers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// Import window around now: a month of history, a year ahead.
	googleWindowPast   = 30 * 24 * time.Hour
	googleWindowFuture = 365 * 24 * time.Hour

	googlePageSize = 250
)

// GoogleImporter lists events from the Google Calendar API for one
// connected account. The oauth2 token source transparently refreshes the
// access token when it has expired.
type GoogleImporter struct {
	oauthConfig *oauth2.Config

	// now is swappable in tests.
	now func() time.Time
}

func NewGoogleImporter(clientID, clientSecret string) *GoogleImporter {
	return &GoogleImporter{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     googleoauth.Endpoint,
		},
		now: time.Now,
	}
}

// Fetch pages through the remote calendar's events within the import
// window. A 401/403 from the API means the account needs to be
// reconnected and surfaces as ErrAuthExpired.
func (g *GoogleImporter) Fetch(ctx context.Context, calendarID string, token *oauth2.Token) ([]RawEvent, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("%w: no calendar id configured", ErrBadConfig)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: no Google account connected", ErrAuthExpired)
	}

	service, err := calendar.NewService(ctx,
		option.WithTokenSource(g.oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	now := g.now().UTC()
	timeMin := now.Add(-googleWindowPast).Format(time.RFC3339)
	timeMax := now.Add(googleWindowFuture).Format(time.RFC3339)

	var events []RawEvent
	pageToken := ""
	for {
		call := service.Events.List(calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(timeMin).
			TimeMax(timeMax).
			OrderBy("startTime").
			MaxResults(googlePageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, classifyGoogleError(err)
		}

		for _, item := range resp.Items {
			raw, ok := toRawEvent(item)
			if !ok {
				continue
			}
			events = append(events, raw)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return events, nil
}

func toRawEvent(item *calendar.Event) (RawEvent, bool) {
	if item.Start == nil {
		return RawEvent{}, false
	}

	raw := RawEvent{
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		SourceURL:   item.HtmlLink,
		SourceID:    item.Id,
	}
	if raw.Title == "" {
		raw.Title = "Untitled"
	}

	if item.Start.Date != "" {
		start, err := time.Parse("2006-01-02", item.Start.Date)
		if err != nil {
			return RawEvent{}, false
		}
		raw.StartsAt = start
		raw.AllDay = true
	} else {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return RawEvent{}, false
		}
		raw.StartsAt = start
	}

	if item.End != nil {
		if item.End.Date != "" {
			if end, err := time.Parse("2006-01-02", item.End.Date); err == nil {
				raw.EndsAt = end
			}
		} else if item.End.DateTime != "" {
			if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				raw.EndsAt = end
			}
		}
	}

	return raw, true
}

// classifyGoogleError separates "reconnect your account" failures from
// transient ones so the scheduler knows what not to retry.
func classifyGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 401 || apiErr.Code == 403 {
			return fmt.Errorf("%w: %v", ErrAuthExpired, err)
		}
	}
	if tokenErr, ok := err.(*oauth2.RetrieveError); ok && tokenErr.Response != nil {
		if tokenErr.Response.StatusCode == 400 || tokenErr.Response.StatusCode == 401 {
			return fmt.Errorf("%w: %v", ErrAuthExpired, err)
		}
	}
	return fmt.Errorf("list google events: %w", err)
}
