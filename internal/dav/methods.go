package dav

import (
	"errors"
	"io"
	"net/http"

	"github.com/pkondrat/portaldav/internal/auth"
	"github.com/pkondrat/portaldav/internal/storage"
	"github.com/pkondrat/portaldav/pkg/ical"
	"github.com/pkondrat/portaldav/pkg/vcard"
)

func (h *Handlers) HandleOptions(w http.ResponseWriter, r *http.Request, rt Route) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request, rt Route) {
	ctx := r.Context()
	principal, authed := auth.PrincipalFrom(ctx)
	if !authed {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch rt.Kind {
	case RouteEvent:
		if _, err := h.ownedCalendar(ctx, principal, rt.Collection); err != nil {
			h.respondGetError(w, r, rt, err)
			return
		}
		ev, err := h.store.GetEvent(ctx, rt.Resource)
		if err == nil && ev.CalendarID != rt.Collection {
			err = storage.ErrNotFound
		}
		if err != nil {
			h.respondGetError(w, r, rt, err)
			return
		}
		data, err := ical.Encode(eventToICal(ev))
		if err != nil {
			h.respondGetError(w, r, rt, err)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("ETag", quoted(etag(ev.ID, ev.UpdatedAt)))
		_, _ = w.Write(data)
	case RouteContact:
		if _, err := h.ownedAddressBook(ctx, principal, rt.Collection); err != nil {
			h.respondGetError(w, r, rt, err)
			return
		}
		c, err := h.store.GetContact(ctx, rt.Resource)
		if err == nil && c.AddressBookID != rt.Collection {
			err = storage.ErrNotFound
		}
		if err != nil {
			h.respondGetError(w, r, rt, err)
			return
		}
		data, err := vcard.Encode(contactToVCard(c))
		if err != nil {
			h.respondGetError(w, r, rt, err)
			return
		}
		w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
		w.Header().Set("ETag", quoted(etag(c.ID, c.UpdatedAt)))
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handlers) respondGetError(w http.ResponseWriter, r *http.Request, rt Route, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	h.logger.Error().Err(err).Str("route", rt.Kind.String()).Msg("get failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// HandlePut creates or replaces a resource. There is no If-Match
// handling: the last writer wins, and a successful PUT always answers
// 201 with the fresh ETag and Location.
func (h *Handlers) HandlePut(w http.ResponseWriter, r *http.Request, rt Route) {
	ctx := r.Context()
	principal, authed := auth.PrincipalFrom(ctx)
	if !authed {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Collections and principals are not writable through PUT.
	if rt.Kind != RouteEvent && rt.Kind != RouteContact {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.HTTP.MaxBodyBytes))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch rt.Kind {
	case RouteEvent:
		// Ownership first: a foreign collection is a 403 before the body
		// is even looked at.
		if _, err := h.ownedCalendar(ctx, principal, rt.Collection); err != nil {
			h.respondWriteError(w, rt, errForbiddenIfOwned(err))
			return
		}
		parsed, err := ical.Decode(body)
		if err != nil {
			http.Error(w, "invalid calendar data", http.StatusBadRequest)
			return
		}
		stored, err := h.store.UpsertEvent(ctx, eventFromICal(rt.Resource, rt.Collection, parsed))
		if err != nil {
			h.respondWriteError(w, rt, err)
			return
		}
		h.invalidateCalendarCTag(rt.Collection)
		w.Header().Set("ETag", quoted(etag(stored.ID, stored.UpdatedAt)))
		w.Header().Set("Location", h.eventURL(principal.Username, rt.Collection, stored.ID))
	case RouteContact:
		if _, err := h.ownedAddressBook(ctx, principal, rt.Collection); err != nil {
			h.respondWriteError(w, rt, errForbiddenIfOwned(err))
			return
		}
		parsed, err := vcard.Decode(body)
		if err != nil {
			http.Error(w, "invalid vcard data", http.StatusBadRequest)
			return
		}
		stored, err := h.store.UpsertContact(ctx, contactFromVCard(rt.Resource, rt.Collection, parsed))
		if err != nil {
			h.respondWriteError(w, rt, err)
			return
		}
		h.invalidateAddressBookCTag(rt.Collection)
		w.Header().Set("ETag", quoted(etag(stored.ID, stored.UpdatedAt)))
		w.Header().Set("Location", h.contactURL(principal.Username, rt.Collection, stored.ID))
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request, rt Route) {
	ctx := r.Context()
	principal, authed := auth.PrincipalFrom(ctx)
	if !authed {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch rt.Kind {
	case RouteEvent:
		ev, err := h.store.GetEvent(ctx, rt.Resource)
		if err != nil {
			h.respondWriteError(w, rt, err)
			return
		}
		if _, err := h.ownedCalendar(ctx, principal, ev.CalendarID); err != nil {
			h.respondWriteError(w, rt, errForbiddenIfOwned(err))
			return
		}
		if err := h.store.DeleteEvent(ctx, ev.ID); err != nil {
			h.respondWriteError(w, rt, err)
			return
		}
		h.invalidateCalendarCTag(ev.CalendarID)
	case RouteContact:
		c, err := h.store.GetContact(ctx, rt.Resource)
		if err != nil {
			h.respondWriteError(w, rt, err)
			return
		}
		if _, err := h.ownedAddressBook(ctx, principal, c.AddressBookID); err != nil {
			h.respondWriteError(w, rt, errForbiddenIfOwned(err))
			return
		}
		if err := h.store.DeleteContact(ctx, c.ID); err != nil {
			h.respondWriteError(w, rt, err)
			return
		}
		h.invalidateAddressBookCTag(c.AddressBookID)
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errForbidden = errors.New("forbidden")

// errForbiddenIfOwned maps an ownership miss on an existing resource to
// 403: the resource is there, it just belongs to someone else.
func errForbiddenIfOwned(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errForbidden
	}
	return err
}

func (h *Handlers) respondWriteError(w http.ResponseWriter, rt Route, err error) {
	switch {
	case errors.Is(err, errForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		h.logger.Error().Err(err).Str("route", rt.Kind.String()).Msg("write failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
