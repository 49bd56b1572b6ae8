package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

type Calendar struct {
	ID        string
	UserID    string
	Name      string
	Color     string // empty when unset
	SortOrder int
	Visible   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event ids are chosen by DAV clients, not generated server-side.
type Event struct {
	ID          string
	CalendarID  string
	Title       string
	Description string
	Location    string
	StartAt     time.Time
	EndAt       time.Time
	AllDay      bool
	Status      string // confirmed, tentative, cancelled
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type AddressBook struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TypedValue is a labelled contact attribute, e.g. {"home", "jane@example.org"}.
type TypedValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Contact struct {
	ID            string
	AddressBookID string
	FullName      string
	GivenName     string
	Surname       string
	Organization  string
	Emails        []TypedValue
	Phones        []TypedValue
	Addresses     []TypedValue
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Store interface {
	Close()

	// Users
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, u *User) error

	// Calendars
	GetCalendar(ctx context.Context, id string) (*Calendar, error)
	ListCalendarsByOwner(ctx context.Context, userID string) ([]*Calendar, error)
	CreateCalendar(ctx context.Context, c *Calendar) error

	// Events
	GetEvent(ctx context.Context, id string) (*Event, error)
	GetEventsByIDs(ctx context.Context, ids []string) ([]*Event, error)
	ListEvents(ctx context.Context, calendarID string) ([]*Event, error)
	UpsertEvent(ctx context.Context, ev *Event) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
	LatestEventUpdate(ctx context.Context, calendarID string) (*time.Time, error)

	// Address books
	GetAddressBook(ctx context.Context, id string) (*AddressBook, error)
	ListAddressBooksByOwner(ctx context.Context, userID string) ([]*AddressBook, error)
	CreateAddressBook(ctx context.Context, ab *AddressBook) error

	// Contacts
	GetContact(ctx context.Context, id string) (*Contact, error)
	GetContactsByIDs(ctx context.Context, ids []string) ([]*Contact, error)
	ListContacts(ctx context.Context, addressBookID string) ([]*Contact, error)
	UpsertContact(ctx context.Context, c *Contact) (*Contact, error)
	DeleteContact(ctx context.Context, id string) error
	LatestContactUpdate(ctx context.Context, addressBookID string) (*time.Time, error)
}
