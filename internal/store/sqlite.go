package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"edgelab/internal/stattest"
)

// SQLiteStore archives completed cross-sectional test runs in a SQLite
// database so results can be compared across strategies and periods later.
type SQLiteStore struct {
	db *sql.DB
}

// RunMeta identifies one cross-sectional test run.
type RunMeta struct {
	Strategy  string
	StartDate time.Time
	EndDate   time.Time
}

// RunRecord is a stored run with its identifier and summary.
type RunRecord struct {
	ID        int64
	CreatedAt time.Time
	Meta      RunMeta
	Summary   stattest.StatTestSummary
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at       TEXT NOT NULL,
	strategy         TEXT NOT NULL,
	start_date       TEXT NOT NULL,
	end_date         TEXT NOT NULL,
	n_stocks         INTEGER NOT NULL,
	mean_return      REAL NOT NULL,
	std_return       REAL NOT NULL,
	win_rate         REAL NOT NULL,
	mean_sharpe      REAL NOT NULL,
	benchmark_return REAL NOT NULL,
	t_statistic      REAL NOT NULL,
	p_value          REAL NOT NULL,
	is_significant   INTEGER NOT NULL,
	ci_low           REAL NOT NULL,
	ci_high          REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id            INTEGER NOT NULL REFERENCES runs(id),
	ticker            TEXT NOT NULL,
	return_pct        REAL NOT NULL,
	sharpe_ratio      REAL NOT NULL,
	start_price       REAL NOT NULL,
	end_price         REAL NOT NULL,
	volume            INTEGER NOT NULL,
	market_cap_proxy  REAL NOT NULL,
	beat_benchmark    INTEGER NOT NULL,
	transaction_costs REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_results_run ON run_results(run_id);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a run's summary and per-instrument results in one
// transaction and returns the new run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, meta RunMeta, summary stattest.StatTestSummary, results []stattest.StatResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			created_at, strategy, start_date, end_date,
			n_stocks, mean_return, std_return, win_rate, mean_sharpe,
			benchmark_return, t_statistic, p_value, is_significant, ci_low, ci_high
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		meta.Strategy,
		meta.StartDate.Format("2006-01-02"),
		meta.EndDate.Format("2006-01-02"),
		summary.NStocks,
		summary.MeanReturn,
		summary.StdReturn,
		summary.WinRate,
		summary.MeanSharpe,
		summary.BenchmarkReturn,
		summary.TStatistic,
		summary.PValue,
		boolToInt(summary.IsSignificant),
		summary.CILow,
		summary.CIHigh,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, r := range results {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_results (
				run_id, ticker, return_pct, sharpe_ratio, start_price, end_price,
				volume, market_cap_proxy, beat_benchmark, transaction_costs
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Ticker, r.ReturnPct, r.SharpeRatio, r.StartPrice, r.EndPrice,
			r.Volume, r.MarketCapProxy, boolToInt(r.BeatBenchmark), r.TransactionCosts,
		); err != nil {
			return 0, fmt.Errorf("inserting result for %s: %w", r.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns returns all stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, strategy, start_date, end_date,
		       n_stocks, mean_return, std_return, win_rate, mean_sharpe,
		       benchmark_return, t_statistic, p_value, is_significant, ci_low, ci_high
		FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			rec                           RunRecord
			createdAt, startDate, endDate string
			significant                   int
		)
		if err := rows.Scan(
			&rec.ID, &createdAt, &rec.Meta.Strategy, &startDate, &endDate,
			&rec.Summary.NStocks, &rec.Summary.MeanReturn, &rec.Summary.StdReturn,
			&rec.Summary.WinRate, &rec.Summary.MeanSharpe, &rec.Summary.BenchmarkReturn,
			&rec.Summary.TStatistic, &rec.Summary.PValue, &significant,
			&rec.Summary.CILow, &rec.Summary.CIHigh,
		); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rec.Meta.StartDate, _ = time.Parse("2006-01-02", startDate)
		rec.Meta.EndDate, _ = time.Parse("2006-01-02", endDate)
		rec.Summary.IsSignificant = significant != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunResults returns the per-instrument results of one stored run.
func (s *SQLiteStore) RunResults(ctx context.Context, runID int64) ([]stattest.StatResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, return_pct, sharpe_ratio, start_price, end_price,
		       volume, market_cap_proxy, beat_benchmark, transaction_costs
		FROM run_results WHERE run_id = ? ORDER BY return_pct DESC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []stattest.StatResult
	for rows.Next() {
		var (
			r    stattest.StatResult
			beat int
		)
		if err := rows.Scan(
			&r.Ticker, &r.ReturnPct, &r.SharpeRatio, &r.StartPrice, &r.EndPrice,
			&r.Volume, &r.MarketCapProxy, &beat, &r.TransactionCosts,
		); err != nil {
			return nil, err
		}
		r.BeatBenchmark = beat != 0
		results = append(results, r)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
