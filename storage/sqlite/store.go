// sqlite backed implementation of the calendar storage interface
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/mo"

	"github.com/opencrm/calengine/overlay"
	"github.com/opencrm/calengine/recurrence"
	"github.com/opencrm/calengine/storage"
)

const timeLayout = time.RFC3339Nano

// Store implements storage.Storage on top of a SQLite database.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle. Foreign keys are enabled so deleting
// a series drops its exceptions and attendee copies with it.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlite: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

// Open opens (creating if needed) the database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	// The pragma in New only covers one pooled connection; the DSN option
	// applies it to every connection the pool opens.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Series operations

func (s *Store) GetSeries(ctx context.Context, id uuid.UUID) (*storage.Series, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, attendees, duration_seconds, cancelled,
		       rule_kind, rule_interval, rule_start, rule_timezone, rule_end, rule_count,
		       rule_weekdays, rule_day_of_month, rule_month_of_year, rule_ordinal,
		       calculated_end, created_at, modified_at
		FROM series WHERE id = ?`, id.String())
	sr, err := scanSeries(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.Error{Type: storage.ErrNotFound, Message: "series not found"}
		}
		return nil, err
	}
	return sr, nil
}

func (s *Store) CreateSeries(ctx context.Context, sr *storage.Series) error {
	attendees, err := json.Marshal(sr.Attendees)
	if err != nil {
		return fmt.Errorf("marshal attendees: %w", err)
	}
	weekdays, err := marshalWeekdays(sr.Rule.Weekdays)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO series (id, name, description, attendees, duration_seconds, cancelled,
			rule_kind, rule_interval, rule_start, rule_timezone, rule_end, rule_count,
			rule_weekdays, rule_day_of_month, rule_month_of_year, rule_ordinal,
			calculated_end, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID.String(), sr.Name, sr.Description, string(attendees),
		int64(sr.Duration/time.Second), boolInt(sr.Cancelled),
		string(sr.Rule.Kind), sr.Rule.Interval,
		sr.Rule.Start.Format(timeLayout), sr.Rule.Location().String(),
		nullTimeOption(sr.Rule.End), nullIntOption(sr.Rule.Count),
		string(weekdays), sr.Rule.DayOfMonth, int(sr.Rule.MonthOfYear), int(sr.Rule.Ordinal),
		sr.CalculatedEnd.Format(timeLayout), now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &storage.Error{Type: storage.ErrAlreadyExists, Message: "series already exists", Err: err}
		}
		return err
	}
	return nil
}

func (s *Store) UpdateSeries(ctx context.Context, sr *storage.Series) error {
	attendees, err := json.Marshal(sr.Attendees)
	if err != nil {
		return fmt.Errorf("marshal attendees: %w", err)
	}
	weekdays, err := marshalWeekdays(sr.Rule.Weekdays)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE series
		SET name = ?, description = ?, attendees = ?, duration_seconds = ?, cancelled = ?,
			rule_kind = ?, rule_interval = ?, rule_start = ?, rule_timezone = ?,
			rule_end = ?, rule_count = ?, rule_weekdays = ?, rule_day_of_month = ?,
			rule_month_of_year = ?, rule_ordinal = ?, calculated_end = ?, modified_at = ?
		WHERE id = ?`,
		sr.Name, sr.Description, string(attendees),
		int64(sr.Duration/time.Second), boolInt(sr.Cancelled),
		string(sr.Rule.Kind), sr.Rule.Interval,
		sr.Rule.Start.Format(timeLayout), sr.Rule.Location().String(),
		nullTimeOption(sr.Rule.End), nullIntOption(sr.Rule.Count),
		string(weekdays), sr.Rule.DayOfMonth, int(sr.Rule.MonthOfYear), int(sr.Rule.Ordinal),
		sr.CalculatedEnd.Format(timeLayout), time.Now().UTC().Format(timeLayout),
		sr.ID.String(),
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "series not found")
}

func (s *Store) DeleteSeries(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "series not found")
}

// Exception operations

func (s *Store) ListExceptions(ctx context.Context, seriesID uuid.UUID) ([]overlay.Exception, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, series_id, original_start, cancelled, start_at, end_at,
		       name, description, attendees
		FROM exceptions WHERE series_id = ? ORDER BY original_start`, seriesID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []overlay.Exception
	for rows.Next() {
		ex, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *Store) PutException(ctx context.Context, ex overlay.Exception) error {
	if ex.SeriesID == uuid.Nil {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "exception has no series link"}
	}
	attendees, err := json.Marshal(ex.Attendees)
	if err != nil {
		return fmt.Errorf("marshal attendees: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exceptions (id, series_id, original_start, cancelled, start_at, end_at,
			name, description, attendees)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			original_start = excluded.original_start,
			cancelled = excluded.cancelled,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			name = excluded.name,
			description = excluded.description,
			attendees = excluded.attendees`,
		ex.ID.String(), ex.SeriesID.String(),
		ex.OriginalStart.Format(timeLayout), boolInt(ex.Cancelled),
		formatOrEmpty(ex.Start), formatOrEmpty(ex.End),
		ex.Name, ex.Description, string(attendees),
	)
	if err != nil && isUniqueViolation(err) {
		return &storage.Error{Type: storage.ErrAlreadyExists,
			Message: "exception already exists for original start", Err: err}
	}
	return err
}

func (s *Store) DeleteException(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exceptions WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "exception not found")
}

func (s *Store) DeleteSeriesExceptions(ctx context.Context, seriesID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exceptions WHERE series_id = ?`, seriesID.String())
	return err
}

// Attendee copy operations

func (s *Store) ListAttendeeCopies(ctx context.Context, seriesID uuid.UUID) ([]storage.AttendeeCopy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, series_id, parent_id, attendee, response_status, cancelled
		FROM attendee_copies WHERE series_id = ? ORDER BY rowid`, seriesID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.AttendeeCopy
	for rows.Next() {
		var (
			c            storage.AttendeeCopy
			id, sid, pid string
			cancelled    int
		)
		if err := rows.Scan(&id, &sid, &pid, &c.Attendee, &c.ResponseStatus, &cancelled); err != nil {
			return nil, err
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse copy id: %w", err)
		}
		if c.SeriesID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("parse copy series id: %w", err)
		}
		if c.ParentID, err = uuid.Parse(pid); err != nil {
			return nil, fmt.Errorf("parse copy parent id: %w", err)
		}
		c.Cancelled = cancelled != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) PutAttendeeCopy(ctx context.Context, c storage.AttendeeCopy) error {
	if c.SeriesID == uuid.Nil {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "attendee copy has no series link"}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendee_copies (id, series_id, parent_id, attendee, response_status, cancelled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			parent_id = excluded.parent_id,
			attendee = excluded.attendee,
			response_status = excluded.response_status,
			cancelled = excluded.cancelled`,
		c.ID.String(), c.SeriesID.String(), c.ParentID.String(),
		c.Attendee, c.ResponseStatus, boolInt(c.Cancelled),
	)
	return err
}

// Cascade application

func (s *Store) SetCancelled(ctx context.Context, id uuid.UUID, cancelled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE series SET cancelled = ?, modified_at = ? WHERE id = ?`,
		boolInt(cancelled), time.Now().UTC().Format(timeLayout), id.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	for _, table := range []string{"exceptions", "attendee_copies"} {
		res, err := s.db.ExecContext(ctx,
			`UPDATE `+table+` SET cancelled = ? WHERE id = ?`, boolInt(cancelled), id.String())
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
	}
	return &storage.Error{Type: storage.ErrNotFound, Message: "event node not found"}
}

func (s *Store) DetachAttendee(ctx context.Context, parentID uuid.UUID, attendee string) error {
	for _, table := range []string{"series", "exceptions"} {
		var raw string
		err := s.db.QueryRowContext(ctx,
			`SELECT attendees FROM `+table+` WHERE id = ?`, parentID.String()).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		var attendees []string
		if err := json.Unmarshal([]byte(raw), &attendees); err != nil {
			return fmt.Errorf("unmarshal attendees: %w", err)
		}
		kept := attendees[:0]
		for _, a := range attendees {
			if a != attendee {
				kept = append(kept, a)
			}
		}
		updated, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("marshal attendees: %w", err)
		}
		_, err = s.db.ExecContext(ctx,
			`UPDATE `+table+` SET attendees = ? WHERE id = ?`, string(updated), parentID.String())
		return err
	}
	return &storage.Error{Type: storage.ErrNotFound, Message: "parent event not found"}
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*storage.Series, error) {
	var (
		sr                storage.Series
		id, attendees     string
		durationSeconds   int64
		cancelled         int
		kind, start, tz   string
		interval          int
		end, count        sql.NullString
		weekdays          string
		dom, moy, ord     int
		calcEnd, crt, mod string
	)
	if err := row.Scan(&id, &sr.Name, &sr.Description, &attendees, &durationSeconds, &cancelled,
		&kind, &interval, &start, &tz, &end, &count,
		&weekdays, &dom, &moy, &ord, &calcEnd, &crt, &mod); err != nil {
		return nil, err
	}

	var err error
	if sr.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse series id: %w", err)
	}
	if err = json.Unmarshal([]byte(attendees), &sr.Attendees); err != nil {
		return nil, fmt.Errorf("unmarshal attendees: %w", err)
	}
	sr.Duration = time.Duration(durationSeconds) * time.Second
	sr.Cancelled = cancelled != 0

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load series timezone %q: %w", tz, err)
	}
	startAt, err := time.Parse(timeLayout, start)
	if err != nil {
		return nil, fmt.Errorf("parse series start: %w", err)
	}

	rule := recurrence.Rule{
		Kind:        recurrence.Kind(kind),
		Interval:    interval,
		Start:       startAt.In(loc),
		DayOfMonth:  dom,
		MonthOfYear: time.Month(moy),
		Ordinal:     recurrence.Ordinal(ord),
	}
	if end.Valid {
		endAt, err := time.Parse(timeLayout, end.String)
		if err != nil {
			return nil, fmt.Errorf("parse series end: %w", err)
		}
		rule.End = mo.Some(endAt.In(loc))
	}
	if count.Valid {
		var n int
		if _, err := fmt.Sscanf(count.String, "%d", &n); err != nil {
			return nil, fmt.Errorf("parse series count: %w", err)
		}
		rule.Count = mo.Some(n)
	}
	if rule.Weekdays, err = unmarshalWeekdays(weekdays); err != nil {
		return nil, err
	}
	sr.Rule = rule

	if sr.CalculatedEnd, err = time.Parse(timeLayout, calcEnd); err != nil {
		return nil, fmt.Errorf("parse calculated end: %w", err)
	}
	if sr.Created, err = time.Parse(timeLayout, crt); err != nil {
		return nil, fmt.Errorf("parse created at: %w", err)
	}
	if sr.Modified, err = time.Parse(timeLayout, mod); err != nil {
		return nil, fmt.Errorf("parse modified at: %w", err)
	}
	return &sr, nil
}

func scanException(row rowScanner) (overlay.Exception, error) {
	var (
		ex             overlay.Exception
		id, sid        string
		origStart      string
		cancelled      int
		startAt, endAt string
		attendees      string
	)
	if err := row.Scan(&id, &sid, &origStart, &cancelled, &startAt, &endAt,
		&ex.Name, &ex.Description, &attendees); err != nil {
		return overlay.Exception{}, err
	}

	var err error
	if ex.ID, err = uuid.Parse(id); err != nil {
		return overlay.Exception{}, fmt.Errorf("parse exception id: %w", err)
	}
	if ex.SeriesID, err = uuid.Parse(sid); err != nil {
		return overlay.Exception{}, fmt.Errorf("parse exception series id: %w", err)
	}
	if ex.OriginalStart, err = time.Parse(timeLayout, origStart); err != nil {
		return overlay.Exception{}, fmt.Errorf("parse original start: %w", err)
	}
	ex.Cancelled = cancelled != 0
	if startAt != "" {
		if ex.Start, err = time.Parse(timeLayout, startAt); err != nil {
			return overlay.Exception{}, fmt.Errorf("parse exception start: %w", err)
		}
	}
	if endAt != "" {
		if ex.End, err = time.Parse(timeLayout, endAt); err != nil {
			return overlay.Exception{}, fmt.Errorf("parse exception end: %w", err)
		}
	}
	if err = json.Unmarshal([]byte(attendees), &ex.Attendees); err != nil {
		return overlay.Exception{}, fmt.Errorf("unmarshal attendees: %w", err)
	}
	return ex, nil
}

// Conversion helpers

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func nullTimeOption(opt mo.Option[time.Time]) any {
	if t, ok := opt.Get(); ok {
		return t.Format(timeLayout)
	}
	return nil
}

func nullIntOption(opt mo.Option[int]) any {
	if n, ok := opt.Get(); ok {
		return n
	}
	return nil
}

func marshalWeekdays(days []time.Weekday) ([]byte, error) {
	ints := make([]int, len(days))
	for i, d := range days {
		ints[i] = int(d)
	}
	b, err := json.Marshal(ints)
	if err != nil {
		return nil, fmt.Errorf("marshal weekdays: %w", err)
	}
	return b, nil
}

func unmarshalWeekdays(raw string) ([]time.Weekday, error) {
	var ints []int
	if err := json.Unmarshal([]byte(raw), &ints); err != nil {
		return nil, fmt.Errorf("unmarshal weekdays: %w", err)
	}
	if len(ints) == 0 {
		return nil, nil
	}
	days := make([]time.Weekday, len(ints))
	for i, n := range ints {
		days[i] = time.Weekday(n)
	}
	return days, nil
}

func checkRowsAffected(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: msg}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
