package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pkondrat/portaldav/internal/storage"
)

const calendarColumns = `id, user_id, name, coalesce(color, ''), sort_order, is_visible, created_at, updated_at`

func scanCalendar(row pgx.Row) (*storage.Calendar, error) {
	var c storage.Calendar
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.SortOrder, &c.Visible, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetCalendar(ctx context.Context, id string) (*storage.Calendar, error) {
	row := s.pool.QueryRow(ctx, `select `+calendarColumns+` from calendars where id = $1`, id)
	return scanCalendar(row)
}

func (s *Store) ListCalendarsByOwner(ctx context.Context, userID string) ([]*storage.Calendar, error) {
	rows, err := s.pool.Query(ctx, `
		select `+calendarColumns+` from calendars
		where user_id = $1
		order by sort_order, name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*storage.Calendar
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCalendar(ctx context.Context, c *storage.Calendar) error {
	_, err := s.pool.Exec(ctx, `
		insert into calendars (id, user_id, name, color, sort_order, is_visible)
		values ($1, $2, $3, nullif($4, ''), $5, $6)
	`, c.ID, c.UserID, c.Name, c.Color, c.SortOrder, c.Visible)
	return err
}

const eventColumns = `id, calendar_id, title, coalesce(description, ''), coalesce(location, ''),
	start_at, end_at, all_day, status, created_at, updated_at`

func scanEvent(row pgx.Row) (*storage.Event, error) {
	var ev storage.Event
	err := row.Scan(&ev.ID, &ev.CalendarID, &ev.Title, &ev.Description, &ev.Location,
		&ev.StartAt, &ev.EndAt, &ev.AllDay, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*storage.Event, error) {
	row := s.pool.QueryRow(ctx, `select `+eventColumns+` from calendar_events where id = $1`, id)
	return scanEvent(row)
}

func (s *Store) GetEventsByIDs(ctx context.Context, ids []string) ([]*storage.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `select `+eventColumns+` from calendar_events where id = any($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*storage.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) ListEvents(ctx context.Context, calendarID string) ([]*storage.Event, error) {
	rows, err := s.pool.Query(ctx, `
		select `+eventColumns+` from calendar_events
		where calendar_id = $1
		order by start_at`, calendarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*storage.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// UpsertEvent inserts the row under its client-chosen id or, when the id
// already exists, updates the payload fields while keeping the original
// calendar binding. One statement, one commit.
func (s *Store) UpsertEvent(ctx context.Context, ev *storage.Event) (*storage.Event, error) {
	row := s.pool.QueryRow(ctx, `
		insert into calendar_events (id, calendar_id, title, description, location, start_at, end_at, all_day, status)
		values ($1, $2, $3, nullif($4, ''), nullif($5, ''), $6, $7, $8, $9)
		on conflict (id) do update set
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			all_day = excluded.all_day,
			status = excluded.status,
			updated_at = now()
		returning `+eventColumns,
		ev.ID, ev.CalendarID, ev.Title, ev.Description, ev.Location,
		ev.StartAt, ev.EndAt, ev.AllDay, ev.Status)
	return scanEvent(row)
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from calendar_events where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) LatestEventUpdate(ctx context.Context, calendarID string) (*time.Time, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx, `
		select max(updated_at) from calendar_events where calendar_id = $1`, calendarID).Scan(&latest)
	if err != nil {
		return nil, err
	}
	return latest, nil
}
