package journal

// Schema stores money as integer cents.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	position_id TEXT PRIMARY KEY,
	portfolio TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	size REAL NOT NULL,
	open_price INTEGER NOT NULL,
	close_price INTEGER NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	gain INTEGER NOT NULL,
	commission INTEGER NOT NULL,
	reason TEXT NOT NULL,
	run_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	portfolio TEXT NOT NULL,
	start_value INTEGER NOT NULL,
	cash INTEGER NOT NULL,
	equity INTEGER NOT NULL,
	margin INTEGER NOT NULL,
	nett_gain INTEGER NOT NULL,
	open_positions INTEGER NOT NULL,
	closed_positions INTEGER NOT NULL,
	run_id TEXT NOT NULL DEFAULT ''
);
`

// Indexes is applied after journals written before run ids existed have
// been given the run_id column.
const Indexes = `
CREATE INDEX IF NOT EXISTS idx_trades_portfolio ON trades(portfolio, close_time);
CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, portfolio, close_time);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(portfolio, time);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, portfolio, time);
`
