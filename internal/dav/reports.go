package dav

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"

	"github.com/pkondrat/portaldav/internal/auth"
	"github.com/pkondrat/portaldav/internal/storage"
	"github.com/pkondrat/portaldav/pkg/ical"
	"github.com/pkondrat/portaldav/pkg/vcard"
)

// reportRequest is the common shell of the four supported REPORT bodies.
// Multiget reports carry hrefs; query reports carry filters, which are
// accepted but not evaluated: the full collection is returned and the
// client narrows it down, matching how the portal's own sync works.
type reportRequest struct {
	XMLName xml.Name
	Hrefs   []string `xml:"href"`
}

func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request, rt Route) {
	ctx := r.Context()
	principal, authed := auth.PrincipalFrom(ctx)
	if !authed {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.HTTP.MaxBodyBytes))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var req reportRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		http.Error(w, "malformed report body", http.StatusBadRequest)
		return
	}

	var ms multistatus
	switch {
	case rt.Kind == RouteCalendar && req.XMLName.Space == nsCalDAV &&
		(req.XMLName.Local == "calendar-multiget" || req.XMLName.Local == "calendar-query"):
		ms, err = h.reportCalendar(r, principal, rt, &req)
	case rt.Kind == RouteAddressBook && req.XMLName.Space == nsCardDAV &&
		(req.XMLName.Local == "addressbook-multiget" || req.XMLName.Local == "addressbook-query"):
		ms, err = h.reportAddressBook(r, principal, rt, &req)
	default:
		http.Error(w, "unsupported report", http.StatusForbidden)
		return
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error().Err(err).Str("report", req.XMLName.Local).Msg("report failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeMultiStatus(w, ms)
}

func (h *Handlers) reportCalendar(r *http.Request, principal *auth.Principal, rt Route, req *reportRequest) (multistatus, error) {
	ctx := r.Context()
	cal, err := h.ownedCalendar(ctx, principal, rt.Collection)
	if err != nil {
		return multistatus{}, err
	}

	var events []*storage.Event
	if req.XMLName.Local == "calendar-multiget" {
		ids := h.resourceIDs(req.Hrefs, RouteEvent, cal.ID)
		events, err = h.store.GetEventsByIDs(ctx, ids)
	} else {
		events, err = h.store.ListEvents(ctx, cal.ID)
	}
	if err != nil {
		return multistatus{}, err
	}

	var ms multistatus
	for _, ev := range events {
		// Multiget ids are client-supplied; a row fetched by id may live
		// in someone else's calendar.
		if ev.CalendarID != cal.ID {
			continue
		}
		data, err := ical.Encode(eventToICal(ev))
		if err != nil {
			return multistatus{}, err
		}
		ms.Resp = append(ms.Resp, response{
			Href: h.eventURL(principal.Username, cal.ID, ev.ID),
			Prop: propstat{Prop: h.propEventWithData(ev, data), Status: ok()},
		})
	}
	return ms, nil
}

func (h *Handlers) reportAddressBook(r *http.Request, principal *auth.Principal, rt Route, req *reportRequest) (multistatus, error) {
	ctx := r.Context()
	ab, err := h.ownedAddressBook(ctx, principal, rt.Collection)
	if err != nil {
		return multistatus{}, err
	}

	var contacts []*storage.Contact
	if req.XMLName.Local == "addressbook-multiget" {
		ids := h.resourceIDs(req.Hrefs, RouteContact, ab.ID)
		contacts, err = h.store.GetContactsByIDs(ctx, ids)
	} else {
		contacts, err = h.store.ListContacts(ctx, ab.ID)
	}
	if err != nil {
		return multistatus{}, err
	}

	var ms multistatus
	for _, c := range contacts {
		if c.AddressBookID != ab.ID {
			continue
		}
		data, err := vcard.Encode(contactToVCard(c))
		if err != nil {
			return multistatus{}, err
		}
		ms.Resp = append(ms.Resp, response{
			Href: h.contactURL(principal.Username, ab.ID, c.ID),
			Prop: propstat{Prop: h.propContactWithData(c, data), Status: ok()},
		})
	}
	return ms, nil
}

// resourceIDs extracts resource ids from multiget hrefs, keeping only
// those that address the collection being reported on. Foreign or
// malformed hrefs are dropped rather than erroring the whole report.
func (h *Handlers) resourceIDs(hrefs []string, want RouteKind, collectionID string) []string {
	var ids []string
	for _, raw := range hrefs {
		hrt := ParsePath(h.basePath, raw)
		if hrt.Kind == want && hrt.Collection == collectionID {
			ids = append(ids, hrt.Resource)
		}
	}
	return ids
}
