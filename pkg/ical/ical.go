// Package ical converts calendar events between the storage model and
// iCalendar (RFC 5545) documents, using VCALENDAR/VEVENT objects with a
// single event per document.
package ical

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const prodID = "-//portaldav//CalDAV//EN"

// ErrNoEvent is returned by Decode when the document holds no VEVENT.
var ErrNoEvent = errors.New("ical: no VEVENT component")

// Event is the calendar-neutral event shape shared by the codec and the
// DAV handlers.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Encode serializes the event as a standalone VCALENDAR document.
func Encode(ev *Event) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")

	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, ev.UID)
	event.Props.SetText(ical.PropSummary, ev.Summary)
	if ev.Description != "" {
		event.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		event.Props.SetText(ical.PropLocation, ev.Location)
	}

	setTime(event, ical.PropDateTimeStart, ev.Start, ev.AllDay)
	if !ev.End.IsZero() {
		setTime(event, ical.PropDateTimeEnd, ev.End, ev.AllDay)
	}

	if ev.Status != "" {
		event.Props.SetText(ical.PropStatus, strings.ToUpper(ev.Status))
	}
	if !ev.CreatedAt.IsZero() {
		p := ical.NewProp(ical.PropCreated)
		p.SetDateTime(ev.CreatedAt.UTC())
		event.Props.Set(p)
	}
	if !ev.UpdatedAt.IsZero() {
		p := ical.NewProp(ical.PropLastModified)
		p.SetDateTime(ev.UpdatedAt.UTC())
		event.Props.Set(p)
	}
	stamp := ev.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	dtstamp := ical.NewProp(ical.PropDateTimeStamp)
	dtstamp.SetDateTime(stamp.UTC())
	event.Props.Set(dtstamp)

	cal.Children = append(cal.Children, event)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses an iCalendar document and returns its first VEVENT.
// A missing DTSTART is an error; clients always send one.
func Decode(data []byte) (*Event, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, err
	}

	var comp *ical.Component
	for _, child := range cal.Children {
		if child.Name == ical.CompEvent {
			comp = child
			break
		}
	}
	if comp == nil {
		return nil, ErrNoEvent
	}

	ev := &Event{
		UID:         propText(comp, ical.PropUID),
		Summary:     propText(comp, ical.PropSummary),
		Description: propText(comp, ical.PropDescription),
		Location:    propText(comp, ical.PropLocation),
		Status:      strings.ToLower(propText(comp, ical.PropStatus)),
	}
	if ev.Status == "" {
		ev.Status = "confirmed"
	}

	start := comp.Props.Get(ical.PropDateTimeStart)
	if start == nil {
		return nil, errors.New("ical: VEVENT missing DTSTART")
	}
	ev.Start, ev.AllDay, err = propTime(start)
	if err != nil {
		return nil, err
	}
	if end := comp.Props.Get(ical.PropDateTimeEnd); end != nil {
		ev.End, _, err = propTime(end)
		if err != nil {
			return nil, err
		}
	}
	return ev, nil
}

func setTime(event *ical.Component, name string, t time.Time, allDay bool) {
	p := ical.NewProp(name)
	if allDay {
		p.SetDate(t)
	} else {
		p.SetDateTime(t.UTC())
	}
	event.Props.Set(p)
}

func propText(comp *ical.Component, name string) string {
	p := comp.Props.Get(name)
	if p == nil {
		return ""
	}
	// Text() unescapes RFC 5545 sequences (\, \; \n); the raw value
	// would keep the backslashes and double-escape on re-encode.
	text, err := p.Text()
	if err != nil {
		return p.Value
	}
	return text
}

// propTime reads a date or date-time property, reporting whether it was a
// bare DATE value (an all-day boundary).
func propTime(p *ical.Prop) (time.Time, bool, error) {
	isDate := p.Params.Get("VALUE") == "DATE" || len(p.Value) == 8
	if isDate {
		t, err := time.Parse("20060102", p.Value)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}
	t, err := p.DateTime(time.UTC)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, false, nil
}
