package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/backtester/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS prices (
	symbol TEXT NOT NULL,
	time INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	UNIQUE(symbol, time)
);

CREATE TABLE IF NOT EXISTS sessions (
	date TEXT PRIMARY KEY,
	open INTEGER NOT NULL,
	close INTEGER NOT NULL,
	extra TEXT NOT NULL DEFAULT '{}'
);
`

// SQLite stores bars and sessions. Times are unix seconds and are returned
// in Location.
type SQLite struct {
	db       *sql.DB
	Location *time.Location
}

func NewSQLite(path string, loc *time.Location) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open price store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create price schema: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SQLite{db: db, Location: loc}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertBars upserts bars for symbol in one transaction.
func (s *SQLite) InsertBars(ctx context.Context, symbol string, bars []market.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO prices (symbol, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, b.Time.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s %s: %w", symbol, b.Time.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

// InsertSessions upserts calendar sessions.
func (s *SQLite) InsertSessions(ctx context.Context, sessions []market.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, ss := range sessions {
		extra, err := json.Marshal(ss.Extra)
		if err != nil {
			tx.Rollback()
			return err
		}
		if ss.Extra == nil {
			extra = []byte("{}")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO sessions (date, open, close, extra)
			VALUES (?, ?, ?, ?)`,
			ss.Key(), ss.Open.Unix(), ss.Close.Unix(), string(extra))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert session %s: %w", ss.Key(), err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Bars(ctx context.Context, symbol string, ss market.Session) ([]market.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, open, high, low, close, volume
		FROM prices
		WHERE symbol = ? AND time >= ? AND time <= ?
		ORDER BY time ASC`, symbol, ss.Open.Unix(), ss.Close.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Bar
	for rows.Next() {
		var (
			ts int64
			b  market.Bar
		)
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Time = time.Unix(ts, 0).In(s.Location)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLite) Sessions(ctx context.Context, from, to time.Time) ([]market.Session, error) {
	q := `SELECT date, open, close, extra FROM sessions`
	var args []any
	switch {
	case !from.IsZero() && !to.IsZero():
		q += ` WHERE date >= ? AND date <= ?`
		args = append(args, from.Format("2006-01-02"), to.Format("2006-01-02"))
	case !from.IsZero():
		q += ` WHERE date >= ?`
		args = append(args, from.Format("2006-01-02"))
	case !to.IsZero():
		q += ` WHERE date <= ?`
		args = append(args, to.Format("2006-01-02"))
	}
	q += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Session
	for rows.Next() {
		var (
			date    string
			openTs  int64
			closeTs int64
			extra   string
		)
		if err := rows.Scan(&date, &openTs, &closeTs, &extra); err != nil {
			return nil, err
		}
		day, err := time.ParseInLocation("2006-01-02", date, s.Location)
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", date, err)
		}
		ss := market.Session{
			Date:  day,
			Open:  time.Unix(openTs, 0).In(s.Location),
			Close: time.Unix(closeTs, 0).In(s.Location),
		}
		var m map[string]string
		if err := json.Unmarshal([]byte(extra), &m); err != nil {
			return nil, fmt.Errorf("session %q extra: %w", date, err)
		}
		if len(m) > 0 {
			ss.Extra = m
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}
