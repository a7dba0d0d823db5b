package database

// schemas maps database names to their embedded DDL. Each schema is the single
// source of truth for its database and is applied by Migrate on startup.
var schemas = map[string]string{
	"portfolio": portfolioSchema,
	"ledger":    ledgerSchema,
	"cache":     cacheSchema,
}

// portfolio.db - current portfolio state: one row per instrument plus the
// synthetic CASH row, and periodic value snapshots for charting.
const portfolioSchema = `
CREATE TABLE IF NOT EXISTS holdings (
    symbol TEXT PRIMARY KEY,
    shares REAL NOT NULL DEFAULT 0,
    average_cost REAL NOT NULL DEFAULT 0,
    cost_basis REAL NOT NULL DEFAULT 0,
    current_price REAL NOT NULL DEFAULT 0,
    current_price_at INTEGER,
    market_value REAL NOT NULL DEFAULT 0,
    unrealized_gain_loss REAL NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    memo TEXT NOT NULL DEFAULT '',
    purchased_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_holdings_active ON holdings(is_active);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    taken_at INTEGER NOT NULL,
    total_value REAL NOT NULL,
    cash_balance REAL NOT NULL,
    total_invested REAL NOT NULL,
    unrealized_gain_loss REAL NOT NULL,
    percentage_gain REAL NOT NULL,
    holdings_blob BLOB
);

CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON portfolio_snapshots(taken_at);
`

// ledger.db - append-only audit trail: decision batches, skipped decisions,
// closed-trade outcomes and feedback analyses. Rows are never updated.
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS trade_decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,
    action TEXT NOT NULL,
    symbol TEXT NOT NULL,
    amount_usd REAL NOT NULL,
    reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_trade_decisions_run ON trade_decisions(run_id);

CREATE TABLE IF NOT EXISTS skipped_decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,
    action TEXT NOT NULL,
    symbol TEXT NOT NULL,
    amount_usd REAL NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    skip_reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_skipped_decisions_run ON skipped_decisions(run_id);

CREATE TABLE IF NOT EXISTS trade_outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    close_time INTEGER NOT NULL,
    entry_price REAL NOT NULL,
    exit_price REAL NOT NULL,
    shares REAL NOT NULL,
    gain_amount REAL NOT NULL,
    gain_percentage REAL NOT NULL,
    hold_duration_days INTEGER NOT NULL,
    entry_reason TEXT NOT NULL DEFAULT '',
    exit_reason TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL CHECK (category IN
        ('significant_profit', 'moderate_profit', 'break_even', 'moderate_loss', 'significant_loss')),
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_outcomes_close_time ON trade_outcomes(close_time);

CREATE TABLE IF NOT EXISTS feedback_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    analyzed_at INTEGER NOT NULL,
    lookback_days INTEGER NOT NULL,
    total_trades INTEGER NOT NULL,
    success_rate REAL NOT NULL,
    avg_gain_percentage REAL NOT NULL,
    category_histogram TEXT NOT NULL,
    successful_patterns TEXT NOT NULL,
    unsuccessful_patterns TEXT NOT NULL,
    avg_hold_days_profitable REAL NOT NULL DEFAULT 0,
    avg_hold_days_unprofitable REAL NOT NULL DEFAULT 0,
    critique TEXT NOT NULL DEFAULT ''
);
`

// cache.db - operational data: news digests, consumption markers and job run
// records. Cheap to rebuild, so it runs with synchronous OFF.
const cacheSchema = `
CREATE TABLE IF NOT EXISTS digests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    run_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    headlines TEXT NOT NULL,
    insights TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_digests_created_at ON digests(created_at);

CREATE TABLE IF NOT EXISTS consumption_markers (
    digest_id INTEGER NOT NULL,
    consumer TEXT NOT NULL,
    run_id TEXT NOT NULL,
    consumed_at INTEGER NOT NULL,
    PRIMARY KEY (digest_id, consumer)
);

CREATE TABLE IF NOT EXISTS run_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_type TEXT NOT NULL CHECK (job_type IN ('intake', 'execution', 'review')),
    correlation_id TEXT NOT NULL,
    start_time INTEGER NOT NULL,
    end_time INTEGER,
    status TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'completed', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_run_records_job_type ON run_records(job_type, start_time);
`
