package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pkondrat/portaldav/internal/storage"
)

func scanAddressBook(row pgx.Row) (*storage.AddressBook, error) {
	var ab storage.AddressBook
	err := row.Scan(&ab.ID, &ab.UserID, &ab.Name, &ab.CreatedAt, &ab.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &ab, nil
}

func (s *Store) GetAddressBook(ctx context.Context, id string) (*storage.AddressBook, error) {
	row := s.pool.QueryRow(ctx, `
		select id, user_id, name, created_at, updated_at
		from addressbooks where id = $1`, id)
	return scanAddressBook(row)
}

func (s *Store) ListAddressBooksByOwner(ctx context.Context, userID string) ([]*storage.AddressBook, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, name, created_at, updated_at
		from addressbooks where user_id = $1
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
	_, err := s.pool.Exec(ctx, `
		insert into addressbooks (id, user_id, name)
		values ($1, $2, $3)
	`, ab.ID, ab.UserID, ab.Name)
	return err
}

const contactColumns = `id, addressbook_id, full_name, coalesce(given_name, ''), coalesce(surname, ''),
	coalesce(organization, ''), emails, phones, addresses, coalesce(notes, ''), created_at, updated_at`

func scanContact(row pgx.Row) (*storage.Contact, error) {
	var (
		c                     storage.Contact
		emails, phones, addrs []byte
	)
	err := row.Scan(&c.ID, &c.AddressBookID, &c.FullName, &c.GivenName, &c.Surname,
		&c.Organization, &emails, &phones, &addrs, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
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

func decodeTyped(raw []byte, dst *[]storage.TypedValue) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func encodeTyped(vals []storage.TypedValue) ([]byte, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	return json.Marshal(vals)
}

func (s *Store) GetContact(ctx context.Context, id string) (*storage.Contact, error) {
	row := s.pool.QueryRow(ctx, `select `+contactColumns+` from contacts where id = $1`, id)
	return scanContact(row)
}

func (s *Store) GetContactsByIDs(ctx context.Context, ids []string) ([]*storage.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `select `+contactColumns+` from contacts where id = any($1)`, ids)
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
	rows, err := s.pool.Query(ctx, `
		select `+contactColumns+` from contacts
		where addressbook_id = $1
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
	row := s.pool.QueryRow(ctx, `
		insert into contacts (id, addressbook_id, full_name, given_name, surname, organization, emails, phones, addresses, notes)
		values ($1, $2, $3, nullif($4, ''), nullif($5, ''), nullif($6, ''), $7, $8, $9, nullif($10, ''))
		on conflict (id) do update set
			full_name = excluded.full_name,
			given_name = excluded.given_name,
			surname = excluded.surname,
			organization = excluded.organization,
			emails = excluded.emails,
			phones = excluded.phones,
			addresses = excluded.addresses,
			notes = excluded.notes,
			updated_at = now()
		returning `+contactColumns,
		c.ID, c.AddressBookID, c.FullName, c.GivenName, c.Surname, c.Organization,
		emails, phones, addrs, c.Notes)
	return scanContact(row)
}

func (s *Store) DeleteContact(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from contacts where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) LatestContactUpdate(ctx context.Context, addressBookID string) (*time.Time, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx, `
		select max(updated_at) from contacts where addressbook_id = $1`, addressBookID).Scan(&latest)
	if err != nil {
		return nil, err
	}
	return latest, nil
}
