package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tradedeck/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// ExecutionRepository is the durable strategy ledger. Key fields are
// flattened into columns for filtering; the full signal and assessment
// ride along as JSONB.
type ExecutionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewExecutionRepository(pool PgxPool, tracer trace.Tracer) *ExecutionRepository {
	return &ExecutionRepository{pool: pool, tracer: tracer}
}

func (r *ExecutionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "execution-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS executions (
			execution_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			strategy TEXT NOT NULL,
			direction TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			signal JSONB NOT NULL,
			risk JSONB NOT NULL,
			position_size JSONB NOT NULL DEFAULT '{}'::jsonb,
			risk_controls JSONB NOT NULL DEFAULT '{}'::jsonb,
			realized_return DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS executions_symbol_idx ON executions (symbol, created_at DESC);
		CREATE INDEX IF NOT EXISTS executions_status_idx ON executions (status, created_at)`)
	return err
}

func (r *ExecutionRepository) SaveExecution(ctx context.Context, record domain.ExecutionRecord) error {
	_, span := r.tracer.Start(ctx, "execution-repo.save-execution")
	defer span.End()

	signalJSON, err := json.Marshal(record.Signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	riskJSON, err := json.Marshal(record.Risk)
	if err != nil {
		return fmt.Errorf("marshal risk: %w", err)
	}
	positionJSON, err := json.Marshal(record.Position)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	controlsJSON, err := json.Marshal(record.Controls)
	if err != nil {
		return fmt.Errorf("marshal controls: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO executions
		     (execution_id, symbol, timeframe, strategy, direction, confidence, status, signal, risk, position_size, risk_controls, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.ExecutionID,
		record.Signal.Symbol,
		record.Signal.Timeframe,
		record.Strategy,
		string(record.Signal.Direction),
		record.Signal.Confidence,
		string(record.Status),
		signalJSON,
		riskJSON,
		positionJSON,
		controlsJSON,
		record.CreatedAt.UTC(),
	)
	return err
}

func (r *ExecutionRepository) ListExecutions(ctx context.Context, filter domain.ExecutionFilter) ([]domain.ExecutionRecord, error) {
	_, span := r.tracer.Start(ctx, "execution-repo.list-executions")
	defer span.End()

	args := make([]any, 0, 4)
	var sb strings.Builder
	sb.WriteString(`SELECT execution_id, strategy, status, signal, risk, position_size, risk_controls, realized_return, created_at, closed_at
		FROM executions
		WHERE 1=1`)

	if filter.Symbol != "" {
		args = append(args, strings.ToUpper(filter.Symbol))
		sb.WriteString(fmt.Sprintf(" AND symbol = $%d", len(args)))
	}
	if filter.Strategy != "" {
		args = append(args, strings.ToLower(filter.Strategy))
		sb.WriteString(fmt.Sprintf(" AND strategy = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sb.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ExecutionRecord, 0, limit)
	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListOpenExecutions feeds the performance sweep: everything not yet
// closed, oldest first.
func (r *ExecutionRepository) ListOpenExecutions(ctx context.Context, limit int) ([]domain.ExecutionRecord, error) {
	_, span := r.tracer.Start(ctx, "execution-repo.list-open-executions")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT execution_id, strategy, status, signal, risk, position_size, risk_controls, realized_return, created_at, closed_at
		 FROM executions
		 WHERE status IN ($1, $2)
		 ORDER BY created_at ASC
		 LIMIT $3`,
		string(domain.ExecutionPending), string(domain.ExecutionActive), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ExecutionRecord, 0, limit)
	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *ExecutionRepository) CloseExecution(ctx context.Context, executionID string, realizedReturn float64, closedAt time.Time) error {
	_, span := r.tracer.Start(ctx, "execution-repo.close-execution")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`UPDATE executions
		 SET status = $2, realized_return = $3, closed_at = $4
		 WHERE execution_id = $1`,
		executionID, string(domain.ExecutionClosed), realizedReturn, closedAt.UTC(),
	)
	return err
}

type executionScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row executionScanner) (domain.ExecutionRecord, error) {
	var record domain.ExecutionRecord
	var status string
	var signalJSON, riskJSON, positionJSON, controlsJSON []byte
	var realized *float64
	var createdAt time.Time
	var closedAt *time.Time

	if err := row.Scan(
		&record.ExecutionID,
		&record.Strategy,
		&status,
		&signalJSON,
		&riskJSON,
		&positionJSON,
		&controlsJSON,
		&realized,
		&createdAt,
		&closedAt,
	); err != nil {
		return domain.ExecutionRecord{}, err
	}

	if err := json.Unmarshal(signalJSON, &record.Signal); err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("unmarshal signal: %w", err)
	}
	if err := json.Unmarshal(riskJSON, &record.Risk); err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("unmarshal risk: %w", err)
	}
	if len(positionJSON) > 0 {
		if err := json.Unmarshal(positionJSON, &record.Position); err != nil {
			return domain.ExecutionRecord{}, fmt.Errorf("unmarshal position: %w", err)
		}
	}
	if len(controlsJSON) > 0 {
		if err := json.Unmarshal(controlsJSON, &record.Controls); err != nil {
			return domain.ExecutionRecord{}, fmt.Errorf("unmarshal controls: %w", err)
		}
	}

	record.Status = domain.ExecutionStatus(status)
	record.RealizedReturn = realized
	record.CreatedAt = createdAt.UTC()
	if closedAt != nil {
		utc := closedAt.UTC()
		record.ClosedAt = &utc
	}
	return record, nil
}
