package dav

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/pkondrat/portaldav/internal/auth"
	"github.com/pkondrat/portaldav/internal/config"
	"github.com/pkondrat/portaldav/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	users        map[string]*storage.User
	calendars    map[string]*storage.Calendar
	events       map[string]*storage.Event
	addressBooks map[string]*storage.AddressBook
	contacts     map[string]*storage.Contact
	clock        time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]*storage.User{},
		calendars:    map[string]*storage.Calendar{},
		events:       map[string]*storage.Event{},
		addressBooks: map[string]*storage.AddressBook{},
		contacts:     map[string]*storage.Contact{},
		clock:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) Close() {}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*storage.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) CreateUser(_ context.Context, u *storage.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *memStore) GetCalendar(_ context.Context, id string) (*storage.Calendar, error) {
	c, ok := s.calendars[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (s *memStore) ListCalendarsByOwner(_ context.Context, userID string) ([]*storage.Calendar, error) {
	var out []*storage.Calendar
	for _, c := range s.calendars {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CreateCalendar(_ context.Context, c *storage.Calendar) error {
	s.calendars[c.ID] = c
	return nil
}

func (s *memStore) GetEvent(_ context.Context, id string) (*storage.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return ev, nil
}

func (s *memStore) GetEventsByIDs(_ context.Context, ids []string) ([]*storage.Event, error) {
	var out []*storage.Event
	for _, id := range ids {
		if ev, ok := s.events[id]; ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memStore) ListEvents(_ context.Context, calendarID string) ([]*storage.Event, error) {
	var out []*storage.Event
	for _, ev := range s.events {
		if ev.CalendarID == calendarID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpsertEvent(_ context.Context, ev *storage.Event) (*storage.Event, error) {
	now := s.tick()
	stored := *ev
	if prev, ok := s.events[ev.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.events[ev.ID] = &stored
	return &stored, nil
}

func (s *memStore) DeleteEvent(_ context.Context, id string) error {
	if _, ok := s.events[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *memStore) LatestEventUpdate(_ context.Context, calendarID string) (*time.Time, error) {
	var latest *time.Time
	for _, ev := range s.events {
		if ev.CalendarID != calendarID {
			continue
		}
		if latest == nil || ev.UpdatedAt.After(*latest) {
			t := ev.UpdatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (s *memStore) GetAddressBook(_ context.Context, id string) (*storage.AddressBook, error) {
	ab, ok := s.addressBooks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return ab, nil
}

func (s *memStore) ListAddressBooksByOwner(_ context.Context, userID string) ([]*storage.AddressBook, error) {
	var out []*storage.AddressBook
	for _, ab := range s.addressBooks {
		if ab.UserID == userID {
			out = append(out, ab)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CreateAddressBook(_ context.Context, ab *storage.AddressBook) error {
	s.addressBooks[ab.ID] = ab
	return nil
}

func (s *memStore) GetContact(_ context.Context, id string) (*storage.Contact, error) {
	c, ok := s.contacts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (s *memStore) GetContactsByIDs(_ context.Context, ids []string) ([]*storage.Contact, error) {
	var out []*storage.Contact
	for _, id := range ids {
		if c, ok := s.contacts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) ListContacts(_ context.Context, addressBookID string) ([]*storage.Contact, error) {
	var out []*storage.Contact
	for _, c := range s.contacts {
		if c.AddressBookID == addressBookID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpsertContact(_ context.Context, c *storage.Contact) (*storage.Contact, error) {
	now := s.tick()
	stored := *c
	if prev, ok := s.contacts[c.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.contacts[c.ID] = &stored
	return &stored, nil
}

func (s *memStore) DeleteContact(_ context.Context, id string) error {
	if _, ok := s.contacts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

func (s *memStore) LatestContactUpdate(_ context.Context, addressBookID string) (*time.Time, error) {
	var latest *time.Time
	for _, c := range s.contacts {
		if c.AddressBookID != addressBookID {
			continue
		}
		if latest == nil || c.UpdatedAt.After(*latest) {
			t := c.UpdatedAt
			latest = &t
		}
	}
	return latest, nil
}

var _ storage.Store = (*memStore)(nil)

type davFixture struct {
	h     *Handlers
	store *memStore
	alice *auth.Principal
	bob   *auth.Principal
}

func newFixture(t *testing.T) *davFixture {
	t.Helper()
	store := newMemStore()
	store.users["u1"] = &storage.User{ID: "u1", Username: "alice", Active: true}
	store.users["u2"] = &storage.User{ID: "u2", Username: "bob", Active: true}
	store.calendars["cal1"] = &storage.Calendar{ID: "cal1", UserID: "u1", Name: "Work", Color: "#3788d8", Visible: true}
	store.addressBooks["ab1"] = &storage.AddressBook{ID: "ab1", UserID: "u1", Name: "Contacts"}

	cfg := &config.Config{
		HTTP:         config.HTTPConfig{Addr: ":0", BasePath: "/dav", MaxBodyBytes: 1 << 20},
		CTagCacheTTL: time.Minute,
	}
	return &davFixture{
		h:     NewHandlers(cfg, store, zerolog.Nop()),
		store: store,
		alice: &auth.Principal{UserID: "u1", Username: "alice"},
		bob:   &auth.Principal{UserID: "u2", Username: "bob"},
	}
}

func (f *davFixture) do(t *testing.T, p *auth.Principal, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rt := ParsePath("/dav", path)

	w := httptest.NewRecorder()
	switch method {
	case "PROPFIND":
		f.h.HandlePropfind(w, req, rt)
	case "REPORT":
		f.h.HandleReport(w, req, rt)
	case http.MethodGet:
		f.h.HandleGet(w, req, rt)
	case http.MethodPut:
		f.h.HandlePut(w, req, rt)
	case http.MethodDelete:
		f.h.HandleDelete(w, req, rt)
	case http.MethodOptions:
		f.h.HandleOptions(w, req, rt)
	}
	return w
}

func parseMultistatus(t *testing.T, body []byte) multistatus {
	t.Helper()
	var ms multistatus
	require.NoError(t, xml.Unmarshal(body, &ms))
	return ms
}

const sampleICS = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:ev1\r\nSUMMARY:Standup\r\n" +
	"DTSTART:20240304T090000Z\r\nDTEND:20240304T091500Z\r\n" +
	"DTSTAMP:20240301T000000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

const sampleVCF = "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Roe\r\nN:Roe;Jane;;;\r\n" +
	"EMAIL:jane@example.org\r\nEND:VCARD\r\n"

func TestPutEventCreates(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.Equal(t, "/dav/calendars/alice/cal1/ev1.ics", w.Header().Get("Location"))

	ev, err := f.store.GetEvent(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, "confirmed", ev.Status)
}

func TestPutReplaceAlsoAnswersCreated(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)
	second := f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.NotEqual(t, first.Header().Get("ETag"), second.Header().Get("ETag"),
		"rewrite must move the etag")
}

func TestPutRejectsForeignCalendar(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.bob, http.MethodPut, "/dav/calendars/bob/cal1/ev1.ics", sampleICS, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	_, err := f.store.GetEvent(context.Background(), "ev1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPutCollectionForbidden(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1", sampleICS, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPutRejectsBadBody(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", "not an ics", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEventRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)

	w := f.do(t, f.alice, http.MethodGet, "/dav/calendars/alice/cal1/ev1.ics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.Contains(t, w.Body.String(), "SUMMARY:Standup")
}

func TestGetMissingEvent(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, http.MethodGet, "/dav/calendars/alice/cal1/nope.ics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)

	w := f.do(t, f.alice, http.MethodDelete, "/dav/calendars/alice/cal1/ev1.ics", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := f.store.GetEvent(context.Background(), "ev1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteForeignEventForbidden(t *testing.T) {
	f := newFixture(t)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)

	w := f.do(t, f.bob, http.MethodDelete, "/dav/calendars/bob/cal1/ev1.ics", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := f.store.GetEvent(context.Background(), "ev1")
	assert.NoError(t, err, "event must survive a forbidden delete")
}

func TestDeleteMissingEvent(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, http.MethodDelete, "/dav/calendars/alice/cal1/nope.ics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCollectionForbidden(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, http.MethodDelete, "/dav/calendars/alice/cal1", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPropfindRootDepths(t *testing.T) {
	f := newFixture(t)

	shallow := f.do(t, f.alice, "PROPFIND", "/dav/", "", map[string]string{"Depth": "0"})
	require.Equal(t, http.StatusMultiStatus, shallow.Code)
	assert.Len(t, parseMultistatus(t, shallow.Body.Bytes()).Resp, 1)

	deep := f.do(t, f.alice, "PROPFIND", "/dav/", "", map[string]string{"Depth": "1"})
	require.Equal(t, http.StatusMultiStatus, deep.Code)

	ms := parseMultistatus(t, deep.Body.Bytes())
	require.Len(t, ms.Resp, 2)
	assert.Equal(t, "/dav/", ms.Resp[0].Href)
	assert.Equal(t, "/dav/principals/alice/", ms.Resp[1].Href)
	assert.Contains(t, deep.Body.String(), "WebDAV Root")
}

func TestPropfindCalendarDepths(t *testing.T) {
	f := newFixture(t)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev2.ics", sampleICS, nil)

	shallow := f.do(t, f.alice, "PROPFIND", "/dav/calendars/alice/cal1", "", map[string]string{"Depth": "0"})
	require.Equal(t, http.StatusMultiStatus, shallow.Code)
	assert.Len(t, parseMultistatus(t, shallow.Body.Bytes()).Resp, 1)

	deep := f.do(t, f.alice, "PROPFIND", "/dav/calendars/alice/cal1", "", map[string]string{"Depth": "1"})
	require.Equal(t, http.StatusMultiStatus, deep.Code)
	assert.Len(t, parseMultistatus(t, deep.Body.Bytes()).Resp, 3)

	// Missing Depth behaves like 1.
	implied := f.do(t, f.alice, "PROPFIND", "/dav/calendars/alice/cal1", "", nil)
	assert.Len(t, parseMultistatus(t, implied.Body.Bytes()).Resp, 3)
}

func TestPropfindCalendarCarriesCTagAndColor(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, "PROPFIND", "/dav/calendars/alice/cal1", "", map[string]string{"Depth": "0"})
	require.Equal(t, http.StatusMultiStatus, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "getctag")
	assert.Contains(t, body, "#3788d8")
	assert.Contains(t, body, "urn:ietf:params:xml:ns:caldav")
}

func TestPropfindForeignCalendarHidden(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.bob, "PROPFIND", "/dav/calendars/bob/cal1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPropfindHomeListsCollections(t *testing.T) {
	f := newFixture(t)
	f.store.calendars["cal2"] = &storage.Calendar{ID: "cal2", UserID: "u1", Name: "Personal", Visible: true}

	w := f.do(t, f.alice, "PROPFIND", "/dav/calendars/alice", "", map[string]string{"Depth": "1"})
	require.Equal(t, http.StatusMultiStatus, w.Code)

	ms := parseMultistatus(t, w.Body.Bytes())
	require.Len(t, ms.Resp, 3)
	assert.Equal(t, "/dav/calendars/alice/", ms.Resp[0].Href)
	assert.Equal(t, "/dav/calendars/alice/cal1/", ms.Resp[1].Href)
	assert.Equal(t, "/dav/calendars/alice/cal2/", ms.Resp[2].Href)
}

func TestPropfindPrincipalAdvertisesHomes(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, "PROPFIND", "/dav/principals/alice", "", nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "/dav/calendars/alice/")
	assert.Contains(t, body, "/dav/addressbooks/alice/")
}

func TestPropfindIgnoresMalformedBody(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, "PROPFIND", "/dav/calendars/alice/cal1", "<not-xml", map[string]string{"Depth": "0"})
	assert.Equal(t, http.StatusMultiStatus, w.Code)
}

func TestReportCalendarMultigetScopes(t *testing.T) {
	f := newFixture(t)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev2.ics", sampleICS, nil)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev3.ics", sampleICS, nil)

	body := `<?xml version="1.0"?>
<C:calendar-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop><D:getetag/><C:calendar-data/></D:prop>
  <D:href>/dav/calendars/alice/cal1/ev1.ics</D:href>
  <D:href>/dav/calendars/alice/cal1/ev3.ics</D:href>
  <D:href>/dav/calendars/alice/other/ev9.ics</D:href>
</C:calendar-multiget>`

	w := f.do(t, f.alice, "REPORT", "/dav/calendars/alice/cal1", body, nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)

	ms := parseMultistatus(t, w.Body.Bytes())
	assert.Len(t, ms.Resp, 2, "hrefs outside the collection are dropped")
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
}

func TestReportMultigetHidesForeignEvent(t *testing.T) {
	f := newFixture(t)
	f.store.calendars["cal2"] = &storage.Calendar{ID: "cal2", UserID: "u2", Name: "Private", Visible: true}
	f.store.events["ev-bob"] = &storage.Event{
		ID: "ev-bob", CalendarID: "cal2", Title: "Salary review",
		StartAt:   time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		EndAt:     time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		CreatedAt: f.store.tick(), UpdatedAt: f.store.tick(),
	}

	// The href names alice's own collection but a row stored in bob's
	// calendar; the id lookup alone must not surface it.
	body := `<?xml version="1.0"?>
<C:calendar-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop><D:getetag/><C:calendar-data/></D:prop>
  <D:href>/dav/calendars/alice/cal1/ev-bob.ics</D:href>
</C:calendar-multiget>`

	w := f.do(t, f.alice, "REPORT", "/dav/calendars/alice/cal1", body, nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Empty(t, parseMultistatus(t, w.Body.Bytes()).Resp)
	assert.NotContains(t, w.Body.String(), "Salary review")
}

func TestReportMultigetHidesForeignContact(t *testing.T) {
	f := newFixture(t)
	f.store.addressBooks["ab2"] = &storage.AddressBook{ID: "ab2", UserID: "u2", Name: "Private"}
	f.store.contacts["ct-bob"] = &storage.Contact{
		ID: "ct-bob", AddressBookID: "ab2", FullName: "Secret Source",
		CreatedAt: f.store.tick(), UpdatedAt: f.store.tick(),
	}

	body := `<?xml version="1.0"?>
<A:addressbook-multiget xmlns:D="DAV:" xmlns:A="urn:ietf:params:xml:ns:carddav">
  <D:prop><D:getetag/><A:address-data/></D:prop>
  <D:href>/dav/addressbooks/alice/ab1/ct-bob.vcf</D:href>
</A:addressbook-multiget>`

	w := f.do(t, f.alice, "REPORT", "/dav/addressbooks/alice/ab1", body, nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Empty(t, parseMultistatus(t, w.Body.Bytes()).Resp)
	assert.NotContains(t, w.Body.String(), "Secret Source")
}

func TestReportCalendarQueryReturnsAll(t *testing.T) {
	f := newFixture(t)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)
	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev2.ics", sampleICS, nil)

	body := `<?xml version="1.0"?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop><D:getetag/><C:calendar-data/></D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="20240101T000000Z" end="20240401T000000Z"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`

	w := f.do(t, f.alice, "REPORT", "/dav/calendars/alice/cal1", body, nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Len(t, parseMultistatus(t, w.Body.Bytes()).Resp, 2)
}

func TestReportBadXML(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, "REPORT", "/dav/calendars/alice/cal1", "<broken", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportUnsupportedType(t *testing.T) {
	f := newFixture(t)

	body := `<?xml version="1.0"?><D:sync-collection xmlns:D="DAV:"/>`
	w := f.do(t, f.alice, "REPORT", "/dav/calendars/alice/cal1", body, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestContactLifecycle(t *testing.T) {
	f := newFixture(t)

	put := f.do(t, f.alice, http.MethodPut, "/dav/addressbooks/alice/ab1/ct1.vcf", sampleVCF, nil)
	require.Equal(t, http.StatusCreated, put.Code)
	assert.Equal(t, "/dav/addressbooks/alice/ab1/ct1.vcf", put.Header().Get("Location"))

	get := f.do(t, f.alice, http.MethodGet, "/dav/addressbooks/alice/ab1/ct1.vcf", "", nil)
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "text/vcard; charset=utf-8", get.Header().Get("Content-Type"))
	assert.Contains(t, get.Body.String(), "FN:Jane Roe")
	assert.Contains(t, get.Body.String(), "EMAIL;TYPE=HOME:jane@example.org",
		"untyped emails come back typed home")

	del := f.do(t, f.alice, http.MethodDelete, "/dav/addressbooks/alice/ab1/ct1.vcf", "", nil)
	assert.Equal(t, http.StatusNoContent, del.Code)
}

func TestReportAddressbookMultiget(t *testing.T) {
	f := newFixture(t)
	f.do(t, f.alice, http.MethodPut, "/dav/addressbooks/alice/ab1/ct1.vcf", sampleVCF, nil)
	f.do(t, f.alice, http.MethodPut, "/dav/addressbooks/alice/ab1/ct2.vcf", sampleVCF, nil)

	body := `<?xml version="1.0"?>
<C:addressbook-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">
  <D:prop><D:getetag/><C:address-data/></D:prop>
  <D:href>/dav/addressbooks/alice/ab1/ct2.vcf</D:href>
</C:addressbook-multiget>`

	w := f.do(t, f.alice, "REPORT", "/dav/addressbooks/alice/ab1", body, nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)

	ms := parseMultistatus(t, w.Body.Bytes())
	require.Len(t, ms.Resp, 1)
	assert.Equal(t, "/dav/addressbooks/alice/ab1/ct2.vcf", ms.Resp[0].Href)
	assert.Contains(t, w.Body.String(), "BEGIN:VCARD")
}

func TestCTagMovesOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.h.calendarCTag(ctx, "cal1")
	require.NoError(t, err)

	f.do(t, f.alice, http.MethodPut, "/dav/calendars/alice/cal1/ev1.ics", sampleICS, nil)

	after, err := f.h.calendarCTag(ctx, "cal1")
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "PUT must invalidate the cached ctag")
}

func TestOptions(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, f.alice, http.MethodOptions, "/dav/calendars/alice/cal1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
