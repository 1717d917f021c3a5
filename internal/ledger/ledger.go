// Package ledger implements the append-only sync ledger: a durable
// event log of sync lifecycle events backed by Postgres.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/nholding/edgar-mirror/internal/calendar"
)

// Event names recognized by the ledger.
const (
	EventStart      = "start"
	EventEnd        = "end"
	EventError      = "error"
	EventRecord     = "record"
	EventNextPeriod = "next_period"
)

// createTableSQL ensures the backing table exists. id is an
// implementation-level surrogate key used only to break ties between
// events recorded in the same second; the row schema's logical columns
// are exactly event_time/event_name/event_date/event_data.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS repo_ledger (
	id         BIGSERIAL PRIMARY KEY,
	event_time BIGINT NOT NULL,
	event_name VARCHAR(16) NOT NULL,
	event_date VARCHAR(10) NOT NULL DEFAULT '',
	event_data VARCHAR(256) NOT NULL DEFAULT ''
)`

// Event is one row of the ledger, in append order.
type Event struct {
	Time time.Time
	Name string
	Date string
	Data string
}

// Ledger is an append-only event log of sync lifecycle events. Time
// values recorded are whole seconds since the Unix epoch and are
// non-decreasing within one process, enforced by clockMu/lastUnix.
type Ledger struct {
	db    *sql.DB
	floor calendar.Date

	clockMu  sync.Mutex
	lastUnix int64
}

// NewLedger opens a Ledger against db, creating the backing table if
// it does not already exist. floor is the date next_period() resumes
// from when the log contains no prior "end" event.
func NewLedger(ctx context.Context, db *sql.DB, floor calendar.Date) (*Ledger, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("ledger: creating repo_ledger table: %w", err)
	}
	return &Ledger{db: db, floor: floor}, nil
}

// nextTimestamp returns the current Unix time, clamped to be no
// earlier than the previously returned value.
func (l *Ledger) nextTimestamp() int64 {
	l.clockMu.Lock()
	defer l.clockMu.Unlock()
	now := time.Now().Unix()
	if now < l.lastUnix {
		now = l.lastUnix
	}
	l.lastUnix = now
	return now
}

func (l *Ledger) append(ctx context.Context, name, date, data string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO repo_ledger (event_time, event_name, event_date, event_data) VALUES ($1, $2, $3, $4)`,
		l.nextTimestamp(), name, date, data,
	)
	if err != nil {
		return fmt.Errorf("ledger: appending %s event: %w", name, err)
	}
	return nil
}

// Start records the beginning of a sync pass over [date, ...).
func (l *Ledger) Start(ctx context.Context, date calendar.Date) error {
	return l.append(ctx, EventStart, date.String(), "")
}

// End records the successful completion of a sync pass through date.
func (l *Ledger) End(ctx context.Context, date calendar.Date) error {
	return l.append(ctx, EventEnd, date.String(), "")
}

// Error records a sync pass failure. date is nil when the failure
// happened before any artifact path was drawn.
func (l *Ledger) Error(ctx context.Context, date *calendar.Date, message string) error {
	eventDate := ""
	if date != nil {
		eventDate = date.String()
	}
	return l.append(ctx, EventError, eventDate, message)
}

// Record marks one artifact as successfully copied.
func (l *Ledger) Record(ctx context.Context, date calendar.Date, pt calendar.PeriodType) error {
	return l.append(ctx, EventRecord, date.String(), pt.String())
}

// NextPeriod derives the next unprocessed window from the log: it
// resumes the day after the most recent "end" event, or from the
// configured floor if the log has no prior "end" event, through
// yesterday. This decision (the ledger's next_period recovery rule is
// otherwise unspecified) is recorded in DESIGN.md.
func (l *Ledger) NextPeriod(ctx context.Context) (from, to calendar.Date, err error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT event_date FROM repo_ledger WHERE event_name = $1 ORDER BY id DESC LIMIT 1`, EventEnd)

	var lastEnd string
	switch err := row.Scan(&lastEnd); err {
	case nil:
		from, err = resumeFrom(lastEnd, l.floor)
		if err != nil {
			return calendar.Date{}, calendar.Date{}, fmt.Errorf("ledger: %w", err)
		}
	case sql.ErrNoRows:
		from = l.floor
	default:
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("ledger: querying last end event: %w", err)
	}

	to = calendar.Today().AddDays(-1)

	if err := l.append(ctx, EventNextPeriod, "", fmt.Sprintf("%s,%s", from, to)); err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}

	return from, to, nil
}

// resumeFrom computes the day after lastEnd, the pure arithmetic at
// the heart of NextPeriod's recovery rule, kept separate from the
// database round-trip so it can be tested without a live connection.
func resumeFrom(lastEnd string, floor calendar.Date) (calendar.Date, error) {
	parsed, err := calendar.ParseDate(lastEnd)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("parsing last end date %q: %w", lastEnd, err)
	}
	next := parsed.AddDays(1)
	if next.Before(floor) {
		return floor, nil
	}
	return next, nil
}

// Dump returns the last limit rows in append order.
func (l *Ledger) Dump(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_time, event_name, event_date, event_data FROM (
			SELECT id, event_time, event_name, event_date, event_data
			FROM repo_ledger
			ORDER BY id DESC
			LIMIT $1
		) recent
		ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: dumping events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			unix int64
			ev   Event
		)
		if err := rows.Scan(&unix, &ev.Name, &ev.Date, &ev.Data); err != nil {
			return nil, fmt.Errorf("ledger: scanning event row: %w", err)
		}
		ev.Time = time.Unix(unix, 0).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating event rows: %w", err)
	}
	return events, nil
}
