package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/pkondrat/portaldav/internal/storage"
)

func scanAddressBook(row rowScanner) (*storage.AddressBook, error) {
	var ab storage.AddressBook
	err := row.Scan(&ab.ID, &ab.UserID, &ab.Name, &ab.CreatedAt, &ab.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &ab, nil
}

func (s *Store) GetAddressBook(ctx context.Context, id string) (*storage.AddressBook, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, user_id, name, created_at, updated_at
		from addressbooks where id = ?`, id)
	return scanAddressBook(row)
}

func (s *Store) ListAddressBooksByOwner(ctx context.Context, userID string) ([]*storage.AddressBook, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, name, created_at, updated_at
		from addressbooks where user_id = ?
		order by name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*storage.AddressBook
	for rows.Next() {
		ab, err := scanAddressBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ab)
	}
	return out, rows.Err()
}

func (s *Store) CreateAddressBook(ctx context.Context, ab *storage.AddressBook) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		insert into addressbooks (id, user_id, name, created_at, updated_at)
		values (?, ?, ?, ?, ?)
	`, ab.ID, ab.UserID, ab.Name, now, now)
	return err
}

const contactColumns = `id, addressbook_id, full_name, given_name, surname, organization,
	emails, phones, addresses, notes, created_at, updated_at`

func scanContact(row rowScanner) (*storage.Contact, error) {
	var (
		c                          storage.Contact
		given, surname, org, notes sql.NullString
		emails, phones, addrs      sql.NullString
	)
	err := row.Scan(&c.ID, &c.AddressBookID, &c.FullName, &given, &surname, &org,
		&emails, &phones, &addrs, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	c.GivenName = given.String
	c.Surname = surname.String
	c.Organization = org.String
	c.Notes = notes.String
	if err := decodeTyped(emails, &c.Emails); err != nil {
		return nil, err
	}
	if err := decodeTyped(phones, &c.Phones); err != nil {
		return nil, err
	}
	if err := decodeTyped(addrs, &c.Addresses); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeTyped(raw sql.NullString, dst *[]storage.TypedValue) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dst)
}

func encodeTyped(vals []storage.TypedValue) (any, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(vals)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (s *Store) GetContact(ctx context.Context, id string) (*storage.Contact, error) {
	row := s.db.QueryRowContext(ctx, `select `+contactColumns+` from contacts where id = ?`, id)
	return scanContact(row)
}

func (s *Store) GetContactsByIDs(ctx context.Context, ids []string) ([]*storage.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `select ` + contactColumns + ` from contacts where id in (?` +
		repeatPlaceholder(len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*storage.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListContacts(ctx context.Context, addressBookID string) ([]*storage.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+contactColumns+` from contacts
		where addressbook_id = ?
		order by full_name`, addressBookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*storage.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertContact(ctx context.Context, c *storage.Contact) (*storage.Contact, error) {
	emails, err := encodeTyped(c.Emails)
	if err != nil {
		return nil, err
	}
	phones, err := encodeTyped(c.Phones)
	if err != nil {
		return nil, err
	}
	addrs, err := encodeTyped(c.Addresses)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		insert into contacts (id, addressbook_id, full_name, given_name, surname, organization, emails, phones, addresses, notes, created_at, updated_at)
		values (?, ?, ?, nullif(?, ''), nullif(?, ''), nullif(?, ''), ?, ?, ?, nullif(?, ''), ?, ?)
		on conflict (id) do update set
			full_name = excluded.full_name,
			given_name = excluded.given_name,
			surname = excluded.surname,
			organization = excluded.organization,
			emails = excluded.emails,
			phones = excluded.phones,
			addresses = excluded.addresses,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, c.ID, c.AddressBookID, c.FullName, c.GivenName, c.Surname, c.Organization,
		emails, phones, addrs, c.Notes, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetContact(ctx, c.ID)
}

func (s *Store) DeleteContact(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `delete from contacts where id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) LatestContactUpdate(ctx context.Context, addressBookID string) (*time.Time, error) {
	row := s.db.QueryRowContext(ctx, `
		select updated_at from contacts
		where addressbook_id = ?
		order by updated_at desc limit 1`, addressBookID)
	var latest time.Time
	if err := row.Scan(&latest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &latest, nil
}
