package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pkondrat/portaldav/internal/storage"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalendar(row rowScanner) (*storage.Calendar, error) {
	var (
		c     storage.Calendar
		color sql.NullString
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &color, &c.SortOrder, &c.Visible, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	c.Color = color.String
	return &c, nil
}

func (s *Store) GetCalendar(ctx context.Context, id string) (*storage.Calendar, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, user_id, name, color, sort_order, is_visible, created_at, updated_at
		from calendars where id = ?`, id)
	return scanCalendar(row)
}

func (s *Store) ListCalendarsByOwner(ctx context.Context, userID string) ([]*storage.Calendar, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, name, color, sort_order, is_visible, created_at, updated_at
		from calendars where user_id = ?
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
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		insert into calendars (id, user_id, name, color, sort_order, is_visible, created_at, updated_at)
		values (?, ?, ?, nullif(?, ''), ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Name, c.Color, c.SortOrder, c.Visible, now, now)
	return err
}

func scanEvent(row rowScanner) (*storage.Event, error) {
	var (
		ev        storage.Event
		desc, loc sql.NullString
	)
	err := row.Scan(&ev.ID, &ev.CalendarID, &ev.Title, &desc, &loc,
		&ev.StartAt, &ev.EndAt, &ev.AllDay, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	ev.Description = desc.String
	ev.Location = loc.String
	return &ev, nil
}

const eventColumns = `id, calendar_id, title, description, location, start_at, end_at, all_day, status, created_at, updated_at`

func (s *Store) GetEvent(ctx context.Context, id string) (*storage.Event, error) {
	row := s.db.QueryRowContext(ctx, `select `+eventColumns+` from calendar_events where id = ?`, id)
	return scanEvent(row)
}

func (s *Store) GetEventsByIDs(ctx context.Context, ids []string) ([]*storage.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `select ` + eventColumns + ` from calendar_events where id in (?` +
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

func repeatPlaceholder(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, ',', '?')
	}
	return string(out)
}

func (s *Store) ListEvents(ctx context.Context, calendarID string) ([]*storage.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+eventColumns+` from calendar_events
		where calendar_id = ?
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

func (s *Store) UpsertEvent(ctx context.Context, ev *storage.Event) (*storage.Event, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		insert into calendar_events (id, calendar_id, title, description, location, start_at, end_at, all_day, status, created_at, updated_at)
		values (?, ?, ?, nullif(?, ''), nullif(?, ''), ?, ?, ?, ?, ?, ?)
		on conflict (id) do update set
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			all_day = excluded.all_day,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, ev.ID, ev.CalendarID, ev.Title, ev.Description, ev.Location,
		ev.StartAt.UTC(), ev.EndAt.UTC(), ev.AllDay, ev.Status, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetEvent(ctx, ev.ID)
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `delete from calendar_events where id = ?`, id)
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

func (s *Store) LatestEventUpdate(ctx context.Context, calendarID string) (*time.Time, error) {
	row := s.db.QueryRowContext(ctx, `
		select updated_at from calendar_events
		where calendar_id = ?
		order by updated_at desc limit 1`, calendarID)
	var latest time.Time
	if err := row.Scan(&latest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &latest, nil
}
