package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
// Run-level fields live in backtest_runs; positions in backtest_positions.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

// Insert adds a run with its positions in one transaction.
// Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, run *domain.BacktestRun) error {
	if run == nil || run.RunID == "" || run.Result == nil {
		return storage.ErrInvalidInput
	}

	strategyJSON, err := json.Marshal(run.Strategy)
	if err != nil {
		return fmt.Errorf("marshal strategy: %w", err)
	}
	metricsJSON, err := json.Marshal(run.Result.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	curve := run.Result.EquityCurve
	if curve == nil {
		curve = []domain.EquityCurvePoint{}
	}
	curveJSON, err := json.Marshal(curve)
	if err != nil {
		return fmt.Errorf("marshal equity curve: %w", err)
	}
	var countsJSON *string
	if run.Result.SignalCounts != nil {
		b, err := json.Marshal(run.Result.SignalCounts)
		if err != nil {
			return fmt.Errorf("marshal signal counts: %w", err)
		}
		str := string(b)
		countsJSON = &str
	}

	res := run.Result
	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertRunQuery,
			run.RunID,
			run.Strategy.ID,
			run.Symbol,
			run.StartDate.UTC(),
			run.EndDate.UTC(),
			string(strategyJSON),
			run.CommissionRate,
			run.SlippageRate,
			res.InitialCapital,
			res.FinalCapital,
			res.TotalReturn,
			res.SharpeRatio,
			res.MaxDrawdown,
			res.WinRate,
			res.BarCount,
			string(metricsJSON),
			string(curveJSON),
			countsJSON,
			run.CreatedAt.UTC(),
		)
		if err != nil {
			return translate("insert backtest run", err)
		}

		// Positions go in one round trip, ordered by seq.
		batch := &pgx.Batch{}
		for i, p := range res.Positions {
			batch.Queue(insertPositionQuery,
				run.RunID,
				i,
				p.ID,
				p.Timestamp.UTC(),
				string(p.Type),
				p.EntryPrice,
				p.Quantity,
				p.EntryCommission,
				p.ExitTime,
				p.ExitPrice,
				p.ExitCommission,
				p.ExitReason,
				p.PnL,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		return translate("insert backtest positions", tx.SendBatch(ctx, batch).Close())
	})
}

const insertRunQuery = `
	INSERT INTO backtest_runs (
		run_id, strategy_id, symbol, start_date, end_date, strategy,
		commission_rate, slippage_rate, initial_capital, final_capital,
		total_return, sharpe_ratio, max_drawdown, win_rate, bar_count,
		metrics, equity_curve, signal_counts, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
`

const insertPositionQuery = `
	INSERT INTO backtest_positions (
		run_id, seq, position_id, entry_time, side, entry_price, quantity,
		entry_commission, exit_time, exit_price, exit_commission, exit_reason, pnl
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

const runSelect = `
	SELECT run_id, symbol, start_date, end_date, strategy,
		commission_rate, slippage_rate, initial_capital, final_capital,
		total_return, sharpe_ratio, max_drawdown, win_rate, bar_count,
		metrics, equity_curve, signal_counts, created_at
	FROM backtest_runs
`

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	row := s.pool.QueryRow(ctx, runSelect+` WHERE run_id = $1`, runID)

	run, err := scanRun(row)
	if err != nil {
		return nil, translate("get backtest run "+runID, err)
	}

	positions, err := s.positions(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Result.Positions = positions

	return run, nil
}

// GetByStrategy retrieves all runs of a strategy, ordered by created_at ASC, run_id ASC.
func (s *BacktestRunStore) GetByStrategy(ctx context.Context, strategyID string) ([]*domain.BacktestRun, error) {
	rows, err := s.pool.Query(ctx, runSelect+` WHERE strategy_id = $1 ORDER BY created_at ASC, run_id ASC`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by strategy: %w", err)
	}
	defer rows.Close()

	var runs []*domain.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	for _, run := range runs {
		positions, err := s.positions(ctx, run.RunID)
		if err != nil {
			return nil, err
		}
		run.Result.Positions = positions
	}

	return runs, nil
}

func (s *BacktestRunStore) positions(ctx context.Context, runID string) ([]*domain.Position, error) {
	query := `
		SELECT position_id, entry_time, side, entry_price, quantity, entry_commission,
			exit_time, exit_price, exit_commission, exit_reason, pnl
		FROM backtest_positions
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get backtest positions: %w", err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		var (
			p        domain.Position
			side     string
			exitTime *time.Time
		)
		err := rows.Scan(
			&p.ID,
			&p.Timestamp,
			&side,
			&p.EntryPrice,
			&p.Quantity,
			&p.EntryCommission,
			&exitTime,
			&p.ExitPrice,
			&p.ExitCommission,
			&p.ExitReason,
			&p.PnL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest position row: %w", err)
		}
		p.Type = domain.Side(side)
		p.Timestamp = p.Timestamp.UTC()
		if exitTime != nil {
			t := exitTime.UTC()
			p.ExitTime = &t
		}
		positions = append(positions, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest position rows: %w", err)
	}

	return positions, nil
}

// scanRun scans one backtest_runs row. Positions are loaded separately.
func scanRun(row pgx.Row) (*domain.BacktestRun, error) {
	var (
		run          domain.BacktestRun
		res          domain.BacktestResult
		strategyJSON []byte
		metricsJSON  []byte
		curveJSON    []byte
		countsJSON   []byte
	)

	err := row.Scan(
		&run.RunID,
		&run.Symbol,
		&run.StartDate,
		&run.EndDate,
		&strategyJSON,
		&run.CommissionRate,
		&run.SlippageRate,
		&res.InitialCapital,
		&res.FinalCapital,
		&res.TotalReturn,
		&res.SharpeRatio,
		&res.MaxDrawdown,
		&res.WinRate,
		&res.BarCount,
		&metricsJSON,
		&curveJSON,
		&countsJSON,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(strategyJSON, &run.Strategy); err != nil {
		return nil, fmt.Errorf("unmarshal strategy: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &res.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(curveJSON, &res.EquityCurve); err != nil {
		return nil, fmt.Errorf("unmarshal equity curve: %w", err)
	}
	if len(countsJSON) > 0 {
		if err := json.Unmarshal(countsJSON, &res.SignalCounts); err != nil {
			return nil, fmt.Errorf("unmarshal signal counts: %w", err)
		}
	}

	run.StartDate = run.StartDate.UTC()
	run.EndDate = run.EndDate.UTC()
	run.CreatedAt = run.CreatedAt.UTC()
	res.StrategyID = run.Strategy.ID
	run.Result = &res

	return &run, nil
}
