package dav

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkondrat/portaldav/internal/storage"
)

const (
	nsDAV     = "DAV:"
	nsCalDAV  = "urn:ietf:params:xml:ns:caldav"
	nsCardDAV = "urn:ietf:params:xml:ns:carddav"
)

type multistatus struct {
	XMLName xml.Name   `xml:"DAV: multistatus"`
	Resp    []response `xml:"response"`
}

type response struct {
	Href string   `xml:"href"`
	Prop propstat `xml:"propstat"`
}

type propstat struct {
	Prop   prop   `xml:"prop"`
	Status string `xml:"status"`
}

type prop struct {
	Resourcetype                  *resourcetype     `xml:"resourcetype,omitempty"`
	DisplayName                   *string           `xml:"displayname,omitempty"`
	CurrentUserPrincipal          *href             `xml:"current-user-principal>href,omitempty"`
	PrincipalURL                  *href             `xml:"principal-URL>href,omitempty"`
	CalendarHomeSet               *href             `xml:"urn:ietf:params:xml:ns:caldav calendar-home-set>href,omitempty"`
	AddressbookHomeSet            *href             `xml:"urn:ietf:params:xml:ns:carddav addressbook-home-set>href,omitempty"`
	SupportedCalendarComponentSet *supportedCompSet `xml:"urn:ietf:params:xml:ns:caldav supported-calendar-component-set,omitempty"`
	SupportedReportSet            *supportedReports `xml:"supported-report-set,omitempty"`
	Owner                         *href             `xml:"owner>href,omitempty"`
	GetCTag                       *string           `xml:"http://calendarserver.org/ns/ getctag,omitempty"`
	CalendarColor                 *string           `xml:"http://apple.com/ns/ical/ calendar-color,omitempty"`
	ContentType                   *string           `xml:"getcontenttype,omitempty"`
	CalendarData                  string            `xml:"urn:ietf:params:xml:ns:caldav calendar-data,omitempty"`
	AddressData                   string            `xml:"urn:ietf:params:xml:ns:carddav address-data,omitempty"`
	GetETag                       string            `xml:"getetag,omitempty"`
	GetLastModified               string            `xml:"getlastmodified,omitempty"`
}

type resourcetype struct {
	Collection  *struct{} `xml:"collection,omitempty"`
	Principal   *struct{} `xml:"principal,omitempty"`
	Calendar    *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar,omitempty"`
	Addressbook *struct{} `xml:"urn:ietf:params:xml:ns:carddav addressbook,omitempty"`
}

type href struct {
	Value string `xml:",chardata"`
}

type supportedCompSet struct {
	Comp []comp `xml:"urn:ietf:params:xml:ns:caldav comp"`
}
type comp struct {
	Name string `xml:"name,attr"`
}

type supportedReports struct {
	Reports []supportedReport `xml:"supported-report"`
}
type supportedReport struct {
	Report reportName `xml:"report"`
}
type reportName struct {
	CalendarMultiget    *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar-multiget,omitempty"`
	CalendarQuery       *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar-query,omitempty"`
	AddressbookMultiget *struct{} `xml:"urn:ietf:params:xml:ns:carddav addressbook-multiget,omitempty"`
	AddressbookQuery    *struct{} `xml:"urn:ietf:params:xml:ns:carddav addressbook-query,omitempty"`
}

func writeMultiStatus(w http.ResponseWriter, ms multistatus) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(ms); err != nil {
		http.Error(w, fmt.Sprintf("xml encode error: %v", err), http.StatusInternalServerError)
		return
	}
	_ = enc.Flush()
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = w.Write(buf.Bytes())
}

func ok() string { return "HTTP/1.1 200 OK" }

func joinURL(parts ...string) string {
	s := strings.Join(parts, "/")
	s = strings.ReplaceAll(s, "//", "/")
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return s
}

func strPtr(s string) *string { return &s }

func calendarResourcetype() *resourcetype {
	return &resourcetype{Collection: &struct{}{}, Calendar: &struct{}{}}
}

func addressbookResourcetype() *resourcetype {
	return &resourcetype{Collection: &struct{}{}, Addressbook: &struct{}{}}
}

func collectionResourcetype() *resourcetype {
	return &resourcetype{Collection: &struct{}{}}
}

func principalResourcetype() *resourcetype {
	return &resourcetype{Principal: &struct{}{}}
}

func supportedVEVENT() *supportedCompSet {
	return &supportedCompSet{Comp: []comp{{Name: "VEVENT"}}}
}

func calendarReportSet() *supportedReports {
	return &supportedReports{Reports: []supportedReport{
		{Report: reportName{CalendarMultiget: &struct{}{}}},
		{Report: reportName{CalendarQuery: &struct{}{}}},
	}}
}

func addressbookReportSet() *supportedReports {
	return &supportedReports{Reports: []supportedReport{
		{Report: reportName{AddressbookMultiget: &struct{}{}}},
		{Report: reportName{AddressbookQuery: &struct{}{}}},
	}}
}

func calContentType() *string  { return strPtr("text/calendar; charset=utf-8; component=VEVENT") }
func cardContentType() *string { return strPtr("text/vcard; charset=utf-8") }

func (h *Handlers) principalURL(username string) string {
	return joinURL(h.basePath, "principals", username) + "/"
}

func (h *Handlers) calendarHomeURL(username string) string {
	return joinURL(h.basePath, "calendars", username) + "/"
}

func (h *Handlers) addressBookHomeURL(username string) string {
	return joinURL(h.basePath, "addressbooks", username) + "/"
}

func (h *Handlers) calendarURL(username, calendarID string) string {
	return joinURL(h.basePath, "calendars", username, calendarID) + "/"
}

func (h *Handlers) eventURL(username, calendarID, eventID string) string {
	return joinURL(h.basePath, "calendars", username, calendarID, eventID+".ics")
}

func (h *Handlers) addressBookURL(username, bookID string) string {
	return joinURL(h.basePath, "addressbooks", username, bookID) + "/"
}

func (h *Handlers) contactURL(username, bookID, contactID string) string {
	return joinURL(h.basePath, "addressbooks", username, bookID, contactID+".vcf")
}

// calendarCTag returns the calendar's change tag, consulting the TTL
// cache before hitting the store.
func (h *Handlers) calendarCTag(ctx context.Context, calendarID string) (string, error) {
	key := "cal:" + calendarID
	if tag, hit := h.ctags.Get(key); hit {
		return tag, nil
	}
	latest, err := h.store.LatestEventUpdate(ctx, calendarID)
	if err != nil {
		return "", err
	}
	tag := collectionTag(latest)
	h.ctags.Set(key, tag)
	return tag, nil
}

func (h *Handlers) addressBookCTag(ctx context.Context, bookID string) (string, error) {
	key := "ab:" + bookID
	if tag, hit := h.ctags.Get(key); hit {
		return tag, nil
	}
	latest, err := h.store.LatestContactUpdate(ctx, bookID)
	if err != nil {
		return "", err
	}
	tag := collectionTag(latest)
	h.ctags.Set(key, tag)
	return tag, nil
}

func (h *Handlers) invalidateCalendarCTag(calendarID string) {
	h.ctags.Invalidate("cal:" + calendarID)
}

func (h *Handlers) invalidateAddressBookCTag(bookID string) {
	h.ctags.Invalidate("ab:" + bookID)
}

func (h *Handlers) propPrincipal(username string) prop {
	return prop{
		Resourcetype:         principalResourcetype(),
		DisplayName:          strPtr(username),
		CurrentUserPrincipal: &href{Value: h.principalURL(username)},
		PrincipalURL:         &href{Value: h.principalURL(username)},
		CalendarHomeSet:      &href{Value: h.calendarHomeURL(username)},
		AddressbookHomeSet:   &href{Value: h.addressBookHomeURL(username)},
	}
}

func (h *Handlers) propRoot(username string) prop {
	return prop{
		Resourcetype:         collectionResourcetype(),
		DisplayName:          strPtr("WebDAV Root"),
		CurrentUserPrincipal: &href{Value: h.principalURL(username)},
	}
}

func (h *Handlers) propCalendarHome(username string) prop {
	return prop{
		Resourcetype: collectionResourcetype(),
		DisplayName:  strPtr("Calendars"),
		Owner:        &href{Value: h.principalURL(username)},
	}
}

func (h *Handlers) propCalendar(ctx context.Context, username string, cal *storage.Calendar) (prop, error) {
	tag, err := h.calendarCTag(ctx, cal.ID)
	if err != nil {
		return prop{}, err
	}
	p := prop{
		Resourcetype:                  calendarResourcetype(),
		DisplayName:                   strPtr(cal.Name),
		Owner:                         &href{Value: h.principalURL(username)},
		GetCTag:                       strPtr(tag),
		SupportedCalendarComponentSet: supportedVEVENT(),
		SupportedReportSet:            calendarReportSet(),
	}
	if cal.Color != "" {
		p.CalendarColor = strPtr(cal.Color)
	}
	return p, nil
}

func (h *Handlers) propEvent(ev *storage.Event) prop {
	return prop{
		ContentType:     calContentType(),
		GetETag:         quoted(etag(ev.ID, ev.UpdatedAt)),
		GetLastModified: ev.UpdatedAt.UTC().Format(http.TimeFormat),
	}
}

func (h *Handlers) propEventWithData(ev *storage.Event, data []byte) prop {
	p := h.propEvent(ev)
	p.CalendarData = string(data)
	return p
}

func (h *Handlers) propAddressBookHome(username string) prop {
	return prop{
		Resourcetype: collectionResourcetype(),
		DisplayName:  strPtr("Address Books"),
		Owner:        &href{Value: h.principalURL(username)},
	}
}

func (h *Handlers) propAddressBook(ctx context.Context, username string, ab *storage.AddressBook) (prop, error) {
	tag, err := h.addressBookCTag(ctx, ab.ID)
	if err != nil {
		return prop{}, err
	}
	return prop{
		Resourcetype:       addressbookResourcetype(),
		DisplayName:        strPtr(ab.Name),
		Owner:              &href{Value: h.principalURL(username)},
		GetCTag:            strPtr(tag),
		SupportedReportSet: addressbookReportSet(),
	}, nil
}

func (h *Handlers) propContact(c *storage.Contact) prop {
	return prop{
		ContentType:     cardContentType(),
		GetETag:         quoted(etag(c.ID, c.UpdatedAt)),
		GetLastModified: c.UpdatedAt.UTC().Format(http.TimeFormat),
	}
}

func (h *Handlers) propContactWithData(c *storage.Contact, data []byte) prop {
	p := h.propContact(c)
	p.AddressData = string(data)
	return p
}
