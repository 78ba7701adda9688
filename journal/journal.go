// Package journal
// Author: momentics <momentics@gmail.com>
//
// SQLite journal of translated realtime events, kept so a restarted client
// can show recent traffic per channel.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-rtm/realtime"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	at      INTEGER NOT NULL,
	kind    TEXT    NOT NULL,
	channel TEXT    NOT NULL DEFAULT '',
	user    TEXT    NOT NULL DEFAULT '',
	ts      TEXT    NOT NULL DEFAULT '',
	text    TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS events_channel ON events(channel, id);
`

// ErrClosed is returned after Close.
var ErrClosed = errors.New("journal: closed")

// Entry is one journaled event.
type Entry struct {
	ID      int64
	At      time.Time
	Kind    string
	Channel string
	User    string
	TS      string
	Text    string
}

// Journal appends events to a SQLite database.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// entryOf flattens ev; diagnostics and markers keep only their kind.
func entryOf(ev realtime.Event) Entry {
	e := Entry{Kind: ev.Kind().String()}
	switch v := ev.(type) {
	case realtime.MessageEvent:
		e.Channel, e.User, e.TS, e.Text = v.Channel, v.User, v.TS, v.Text
	case realtime.MessageChanged:
		e.Channel, e.User, e.TS, e.Text = v.Channel, v.User, v.TS, v.Text
	case realtime.MessageDeleted:
		e.Channel, e.TS = v.Channel, v.TS
	case realtime.PresenceChange:
		e.User, e.Text = v.User, v.Presence.String()
	case realtime.TeamRename:
		e.Text = v.Name
	case realtime.Reply:
		e.TS, e.Text = v.TS, fmt.Sprintf("reply_to=%d", v.ID)
	case realtime.DesktopNotification:
		e.Text = v.Title + ": " + v.Content
	case realtime.UserTyping:
		e.Channel, e.User = v.Channel, v.User
	case realtime.Unknown:
		e.Text = v.Type
	case realtime.Diagnostic:
		if v.Err != nil {
			e.Text = v.Err.Error()
		}
	}
	return e
}

// Record appends ev and returns its row id.
func (j *Journal) Record(ctx context.Context, ev realtime.Event) (int64, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	e := entryOf(ev)
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO events (at, kind, channel, user, ts, text) VALUES (?, ?, ?, ?, ?, ?)`,
		j.now().UnixNano(), e.Kind, e.Channel, e.User, e.TS, e.Text)
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", e.Kind, err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries of channel, oldest first. An empty
// channel selects every channel.
func (j *Journal) Recent(ctx context.Context, channel string, limit int) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, kind, channel, user, ts, text FROM (
			SELECT * FROM events WHERE ? = '' OR channel = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`, channel, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.ID, &at, &e.Kind, &e.Channel, &e.User, &e.TS, &e.Text); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of journaled events.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}
