package dav

import (
	"context"
	"errors"
	"net/http"

	"github.com/pkondrat/portaldav/internal/auth"
	"github.com/pkondrat/portaldav/internal/storage"
)

// HandlePropfind answers PROPFIND for every route kind. The request body
// is ignored: all known properties are returned, which covers allprop as
// well as clients that send malformed propfind documents.
func (h *Handlers) HandlePropfind(w http.ResponseWriter, r *http.Request, rt Route) {
	ctx := r.Context()
	principal, authed := auth.PrincipalFrom(ctx)
	if !authed {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	depth := r.Header.Get("Depth")
	if depth == "" {
		depth = "1"
	}

	var (
		ms  multistatus
		err error
	)
	switch rt.Kind {
	case RouteRoot:
		ms.Resp = []response{{
			Href: joinURL(h.basePath) + "/",
			Prop: propstat{Prop: h.propRoot(principal.Username), Status: ok()},
		}}
		if depth != "0" {
			ms.Resp = append(ms.Resp, response{
				Href: h.principalURL(principal.Username),
				Prop: propstat{Prop: h.propPrincipal(principal.Username), Status: ok()},
			})
		}
	case RoutePrincipal:
		ms.Resp = []response{{
			Href: h.principalURL(rt.Username),
			Prop: propstat{Prop: h.propPrincipal(rt.Username), Status: ok()},
		}}
	case RouteCalendarHome:
		ms, err = h.propfindCalendarHome(ctx, principal, depth)
	case RouteCalendar:
		ms, err = h.propfindCalendar(ctx, principal, rt, depth)
	case RouteEvent:
		ms, err = h.propfindEvent(ctx, principal, rt)
	case RouteAddressBookHome:
		ms, err = h.propfindAddressBookHome(ctx, principal, depth)
	case RouteAddressBook:
		ms, err = h.propfindAddressBook(ctx, principal, rt, depth)
	case RouteContact:
		ms, err = h.propfindContact(ctx, principal, rt)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error().Err(err).Str("route", rt.Kind.String()).Msg("propfind failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeMultiStatus(w, ms)
}

func (h *Handlers) propfindCalendarHome(ctx context.Context, principal *auth.Principal, depth string) (multistatus, error) {
	ms := multistatus{Resp: []response{{
		Href: h.calendarHomeURL(principal.Username),
		Prop: propstat{Prop: h.propCalendarHome(principal.Username), Status: ok()},
	}}}
	if depth == "0" {
		return ms, nil
	}
	cals, err := h.store.ListCalendarsByOwner(ctx, principal.UserID)
	if err != nil {
		return multistatus{}, err
	}
	for _, cal := range cals {
		p, err := h.propCalendar(ctx, principal.Username, cal)
		if err != nil {
			return multistatus{}, err
		}
		ms.Resp = append(ms.Resp, response{
			Href: h.calendarURL(principal.Username, cal.ID),
			Prop: propstat{Prop: p, Status: ok()},
		})
	}
	return ms, nil
}

func (h *Handlers) propfindCalendar(ctx context.Context, principal *auth.Principal, rt Route, depth string) (multistatus, error) {
	cal, err := h.ownedCalendar(ctx, principal, rt.Collection)
	if err != nil {
		return multistatus{}, err
	}
	p, err := h.propCalendar(ctx, principal.Username, cal)
	if err != nil {
		return multistatus{}, err
	}
	ms := multistatus{Resp: []response{{
		Href: h.calendarURL(principal.Username, cal.ID),
		Prop: propstat{Prop: p, Status: ok()},
	}}}
	if depth == "0" {
		return ms, nil
	}
	events, err := h.store.ListEvents(ctx, cal.ID)
	if err != nil {
		return multistatus{}, err
	}
	for _, ev := range events {
		ms.Resp = append(ms.Resp, response{
			Href: h.eventURL(principal.Username, cal.ID, ev.ID),
			Prop: propstat{Prop: h.propEvent(ev), Status: ok()},
		})
	}
	return ms, nil
}

func (h *Handlers) propfindEvent(ctx context.Context, principal *auth.Principal, rt Route) (multistatus, error) {
	if _, err := h.ownedCalendar(ctx, principal, rt.Collection); err != nil {
		return multistatus{}, err
	}
	ev, err := h.store.GetEvent(ctx, rt.Resource)
	if err != nil {
		return multistatus{}, err
	}
	if ev.CalendarID != rt.Collection {
		return multistatus{}, storage.ErrNotFound
	}
	return multistatus{Resp: []response{{
		Href: h.eventURL(principal.Username, rt.Collection, ev.ID),
		Prop: propstat{Prop: h.propEvent(ev), Status: ok()},
	}}}, nil
}

func (h *Handlers) propfindAddressBookHome(ctx context.Context, principal *auth.Principal, depth string) (multistatus, error) {
	ms := multistatus{Resp: []response{{
		Href: h.addressBookHomeURL(principal.Username),
		Prop: propstat{Prop: h.propAddressBookHome(principal.Username), Status: ok()},
	}}}
	if depth == "0" {
		return ms, nil
	}
	books, err := h.store.ListAddressBooksByOwner(ctx, principal.UserID)
	if err != nil {
		return multistatus{}, err
	}
	for _, ab := range books {
		p, err := h.propAddressBook(ctx, principal.Username, ab)
		if err != nil {
			return multistatus{}, err
		}
		ms.Resp = append(ms.Resp, response{
			Href: h.addressBookURL(principal.Username, ab.ID),
			Prop: propstat{Prop: p, Status: ok()},
		})
	}
	return ms, nil
}

func (h *Handlers) propfindAddressBook(ctx context.Context, principal *auth.Principal, rt Route, depth string) (multistatus, error) {
	ab, err := h.ownedAddressBook(ctx, principal, rt.Collection)
	if err != nil {
		return multistatus{}, err
	}
	p, err := h.propAddressBook(ctx, principal.Username, ab)
	if err != nil {
		return multistatus{}, err
	}
	ms := multistatus{Resp: []response{{
		Href: h.addressBookURL(principal.Username, ab.ID),
		Prop: propstat{Prop: p, Status: ok()},
	}}}
	if depth == "0" {
		return ms, nil
	}
	contacts, err := h.store.ListContacts(ctx, ab.ID)
	if err != nil {
		return multistatus{}, err
	}
	for _, c := range contacts {
		ms.Resp = append(ms.Resp, response{
			Href: h.contactURL(principal.Username, ab.ID, c.ID),
			Prop: propstat{Prop: h.propContact(c), Status: ok()},
		})
	}
	return ms, nil
}

func (h *Handlers) propfindContact(ctx context.Context, principal *auth.Principal, rt Route) (multistatus, error) {
	if _, err := h.ownedAddressBook(ctx, principal, rt.Collection); err != nil {
		return multistatus{}, err
	}
	c, err := h.store.GetContact(ctx, rt.Resource)
	if err != nil {
		return multistatus{}, err
	}
	if c.AddressBookID != rt.Collection {
		return multistatus{}, storage.ErrNotFound
	}
	return multistatus{Resp: []response{{
		Href: h.contactURL(principal.Username, rt.Collection, c.ID),
		Prop: propstat{Prop: h.propContact(c), Status: ok()},
	}}}, nil
}

// ownedCalendar loads a calendar and verifies the principal owns it.
// Foreign collections are indistinguishable from missing ones.
func (h *Handlers) ownedCalendar(ctx context.Context, principal *auth.Principal, calendarID string) (*storage.Calendar, error) {
	cal, err := h.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if cal.UserID != principal.UserID {
		return nil, storage.ErrNotFound
	}
	return cal, nil
}

func (h *Handlers) ownedAddressBook(ctx context.Context, principal *auth.Principal, bookID string) (*storage.AddressBook, error) {
	ab, err := h.store.GetAddressBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if ab.UserID != principal.UserID {
		return nil, storage.ErrNotFound
	}
	return ab, nil
}
