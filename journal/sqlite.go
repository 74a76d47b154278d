package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, table := range []string{"trades", "equity"} {
		if err := addRunID(db, table); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(Indexes); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(position_id, portfolio, symbol, side, size, open_price, close_price, open_time, close_time, gain, commission, reason, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PositionID, t.Portfolio, t.Symbol, t.Side, t.Size,
		t.OpenPrice.Cents(), t.ClosePrice.Cents(),
		t.OpenTime.UTC(), t.CloseTime.UTC(),
		t.Gain.Cents(), t.Commission.Cents(), t.Reason, t.RunID,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, portfolio, start_value, cash, equity, margin, nett_gain, open_positions, closed_positions, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Portfolio, e.StartValue.Cents(), e.Cash.Cents(),
		e.Equity.Cents(), e.Margin.Cents(), e.NettGain.Cents(), e.Open, e.Closed, e.RunID,
	)
	return err
}

// addRunID upgrades a table created before runs were recorded.
func addRunID(db *sql.DB, table string) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = 'run_id'`, table).Scan(&n); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE ` + table + ` ADD COLUMN run_id TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("add run_id to %s: %w", table, err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
