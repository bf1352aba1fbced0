package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// BacktestSummaryStore implements storage.BacktestSummaryStore using PostgreSQL.
type BacktestSummaryStore struct {
	pool *Pool
}

// NewBacktestSummaryStore creates a new BacktestSummaryStore.
func NewBacktestSummaryStore(pool *Pool) *BacktestSummaryStore {
	return &BacktestSummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestSummaryStore = (*BacktestSummaryStore)(nil)

const summaryColumns = `
	run_id, book, frequency, weight_scheme,
	total_return, annualized_return, volatility, sharpe_ratio,
	max_drawdown, mean_daily_return, trading_days, avg_turnover
`

const insertSummaryQuery = `
	INSERT INTO backtest_summaries (` + summaryColumns + `
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8,
		$9, $10, $11, $12
	)
`

// Insert adds a summary. Returns ErrDuplicateKey if (run_id, book) exists.
func (s *BacktestSummaryStore) Insert(ctx context.Context, sum *domain.BacktestSummary) error {
	_, err := s.pool.Exec(ctx, insertSummaryQuery, summaryArgs(sum)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest summary: %w", err)
	}
	return nil
}

// InsertBulk adds multiple summaries atomically. Fails the entire batch on
// any duplicate.
func (s *BacktestSummaryStore) InsertBulk(ctx context.Context, summaries []*domain.BacktestSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sum := range summaries {
		if _, err := tx.Exec(ctx, insertSummaryQuery, summaryArgs(sum)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert backtest summary in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all summaries for a run, ordered by book.
func (s *BacktestSummaryStore) GetByRunID(ctx context.Context, runID string) ([]*domain.BacktestSummary, error) {
	query := `
		SELECT` + summaryColumns + `
		FROM backtest_summaries
		WHERE run_id = $1
		ORDER BY book ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get summaries by run id: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// GetAll retrieves every summary, ordered by run id then book.
func (s *BacktestSummaryStore) GetAll(ctx context.Context) ([]*domain.BacktestSummary, error) {
	query := `
		SELECT` + summaryColumns + `
		FROM backtest_summaries
		ORDER BY run_id ASC, book ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all summaries: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

func summaryArgs(sum *domain.BacktestSummary) []interface{} {
	return []interface{}{
		sum.RunID, sum.Book, sum.Frequency, sum.Scheme.String(),
		sum.TotalReturn, sum.AnnualizedReturn, sum.Volatility, sum.SharpeRatio,
		sum.MaxDrawdown, sum.MeanDailyReturn, sum.TradingDays, sum.AvgTurnover,
	}
}

// scanSummaries scans multiple rows into a slice of BacktestSummary.
func scanSummaries(rows pgx.Rows) ([]*domain.BacktestSummary, error) {
	var summaries []*domain.BacktestSummary

	for rows.Next() {
		var sum domain.BacktestSummary
		var scheme string

		err := rows.Scan(
			&sum.RunID, &sum.Book, &sum.Frequency, &scheme,
			&sum.TotalReturn, &sum.AnnualizedReturn, &sum.Volatility, &sum.SharpeRatio,
			&sum.MaxDrawdown, &sum.MeanDailyReturn, &sum.TradingDays, &sum.AvgTurnover,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}

		sum.Scheme, err = schemeFromName(scheme)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}

		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	return summaries, nil
}

// schemeFromName maps a stored scheme name back to its variant.
func schemeFromName(name string) (domain.WeightScheme, error) {
	switch name {
	case "equal":
		return domain.WeightEqual, nil
	case "value":
		return domain.WeightValue, nil
	default:
		return 0, fmt.Errorf("%w: weight scheme %q", storage.ErrInvalidInput, name)
	}
}
