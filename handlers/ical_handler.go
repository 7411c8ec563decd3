package handlers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"funcal/models"
	"funcal/utils"

	"github.com/emersion/go-ical"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type IcalHandler struct {
	app *pocketbase.PocketBase
}

func NewIcalHandler(app *pocketbase.PocketBase) *IcalHandler {
	return &IcalHandler{app: app}
}

// Feed serves a calendar's events as an iCalendar feed. The token in the
// path is the only credential: it is opaque, per-calendar and rotatable,
// so a leaked URL can be cut off without touching user accounts.
func (h *IcalHandler) Feed(e *core.RequestEvent) error {
	token := e.Request.PathValue("token")
	if token == "" {
		return apis.NewNotFoundError("Calendar not found", nil)
	}

	calRecord, err := h.app.FindFirstRecordByFilter(
		"calendars", "ical_token = {:token}", dbx.Params{"token": token})
	if err != nil || calRecord == nil {
		return apis.NewNotFoundError("Calendar not found", nil)
	}

	records, err := h.app.FindRecordsByFilter(
		"events",
		"calendar = {:calendar}",
		"starts_at",
		0, 0,
		dbx.Params{"calendar": calRecord.Id},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to load events", err)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//funcal//EN")
	cal.Props.SetText("X-WR-CALNAME", calRecord.GetString("name"))

	now := time.Now().UTC()
	for _, record := range records {
		cal.Children = append(cal.Children, eventComponent(models.EventFromRecord(record), now))
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return apis.NewBadRequestError("Failed to encode feed", err)
	}

	e.Response.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	e.Response.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	e.Response.WriteHeader(http.StatusOK)
	_, err = e.Response.Write(buf.Bytes())
	return err
}

func eventComponent(event *models.Event, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, utils.EventUID(event.ID))
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now)

	if event.AllDay {
		setDateProp(ve, ical.PropDateTimeStart, event.StartsAt)
		// DTEND on a DATE event is exclusive.
		end := event.StartsAt.AddDate(0, 0, 1)
		if !event.EndsAt.IsZero() {
			end = event.EndsAt.AddDate(0, 0, 1)
		}
		setDateProp(ve, ical.PropDateTimeEnd, end)
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartsAt.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EffectiveEnd().UTC())
	}

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if location := feedLocation(event); location != "" {
		ve.Props.SetText(ical.PropLocation, location)
	}
	if event.SourceURL != "" {
		ve.Props.SetText(ical.PropURL, event.SourceURL)
	}
	if event.EventType != "" {
		ve.Props.SetText(ical.PropCategories, strings.ToUpper(event.EventType))
	}
	return ve
}

func setDateProp(ve *ical.Component, name string, t time.Time) {
	p := ical.NewProp(name)
	p.SetValueType(ical.ValueDate)
	p.Value = t.UTC().Format("20060102")
	ve.Props.Set(p)
}

func feedLocation(event *models.Event) string {
	switch {
	case event.Venue != "" && event.Location != "":
		return event.Venue + ", " + event.Location
	case event.Venue != "":
		return event.Venue
	default:
		return event.Location
	}
}

// RotateToken replaces a calendar's feed token. Only the owner may
// rotate; every previously shared feed URL stops working immediately.
func (h *IcalHandler) RotateToken(e *core.RequestEvent) error {
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

	token, err := utils.GenerateToken(16)
	if err != nil {
		return apis.NewBadRequestError("Failed to generate token", err)
	}
	record.Set("ical_token", token)
	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to rotate token", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ical_token": token,
		"feed_url":   "/calendars/" + token + "/feed.ics",
	})
}
