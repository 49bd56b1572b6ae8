package dav

import (
	"github.com/pkondrat/portaldav/internal/storage"
	"github.com/pkondrat/portaldav/pkg/ical"
	"github.com/pkondrat/portaldav/pkg/vcard"
)

func eventToICal(ev *storage.Event) *ical.Event {
	return &ical.Event{
		UID:         ev.ID,
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       ev.StartAt,
		End:         ev.EndAt,
		AllDay:      ev.AllDay,
		Status:      ev.Status,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}

// eventFromICal builds the storage row for a PUT body. The resource id
// from the URL wins over any UID inside the document.
func eventFromICal(id, calendarID string, ev *ical.Event) *storage.Event {
	return &storage.Event{
		ID:          id,
		CalendarID:  calendarID,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		StartAt:     ev.Start,
		EndAt:       ev.End,
		AllDay:      ev.AllDay,
		Status:      ev.Status,
	}
}

func contactToVCard(c *storage.Contact) *vcard.Contact {
	return &vcard.Contact{
		UID:          c.ID,
		FullName:     c.FullName,
		GivenName:    c.GivenName,
		Surname:      c.Surname,
		Organization: c.Organization,
		Emails:       typedToVCard(c.Emails),
		Phones:       typedToVCard(c.Phones),
		Addresses:    typedToVCard(c.Addresses),
		Notes:        c.Notes,
		UpdatedAt:    c.UpdatedAt,
	}
}

func contactFromVCard(id, addressBookID string, c *vcard.Contact) *storage.Contact {
	return &storage.Contact{
		ID:            id,
		AddressBookID: addressBookID,
		FullName:      c.FullName,
		GivenName:     c.GivenName,
		Surname:       c.Surname,
		Organization:  c.Organization,
		Emails:        typedFromVCard(c.Emails),
		Phones:        typedFromVCard(c.Phones),
		Addresses:     typedFromVCard(c.Addresses),
		Notes:         c.Notes,
	}
}

func typedToVCard(vals []storage.TypedValue) []vcard.TypedValue {
	out := make([]vcard.TypedValue, 0, len(vals))
	for _, v := range vals {
		out = append(out, vcard.TypedValue{Type: v.Type, Value: v.Value})
	}
	return out
}

func typedFromVCard(vals []vcard.TypedValue) []storage.TypedValue {
	out := make([]storage.TypedValue, 0, len(vals))
	for _, v := range vals {
		out = append(out, storage.TypedValue{Type: v.Type, Value: v.Value})
	}
	return out
}
