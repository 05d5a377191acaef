/*
Package postgres provides a pgx-backed implementation of the payout store.

PURPOSE:
  The production persistence boundary. The hosted relational store behind
  the surrounding dashboard is PostgreSQL; this adapter carries the same
  contract as store/sqlite with Postgres-native types: NUMERIC for amounts,
  DATE for period bounds, TEXT[] for excluded weekdays.

REQUIRED INVARIANT:
  payouts carries UNIQUE(worker_id, job_id, period_start) and the insert
  step uses ON CONFLICT DO NOTHING, so concurrent recalculations on the
  same period cannot create duplicate rows.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/payout-engine/engine"
)

// Store implements the payout persistence boundary using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database, applies the schema, and returns the store.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pay_structure TEXT NOT NULL,
		flat_rate NUMERIC NOT NULL DEFAULT 0,
		hourly_rate NUMERIC NOT NULL DEFAULT 0,
		commission_per_item NUMERIC NOT NULL DEFAULT 0,
		target_deliverable NUMERIC NOT NULL DEFAULT 0,
		excluded_days TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS job_workers (
		job_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		PRIMARY KEY (job_id, worker_id)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id BIGSERIAL PRIMARY KEY,
		worker_id TEXT NOT NULL,
		job_id TEXT NOT NULL,
		record_date DATE NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(record_date);

	CREATE TABLE IF NOT EXISTS deliverables (
		id BIGSERIAL PRIMARY KEY,
		worker_id TEXT,
		job_id TEXT NOT NULL,
		record_date DATE NOT NULL,
		quantity NUMERIC NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_deliverables_date ON deliverables(record_date);

	CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		job_id TEXT NOT NULL,
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		days_worked INTEGER NOT NULL,
		total_days INTEGER NOT NULL,
		deliverables NUMERIC NOT NULL DEFAULT 0,
		target_deliverables NUMERIC NOT NULL DEFAULT 0,
		base_pay NUMERIC NOT NULL DEFAULT 0,
		commission NUMERIC NOT NULL DEFAULT 0,
		total_payout NUMERIC NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (worker_id, job_id, period_start)
	);

	CREATE INDEX IF NOT EXISTS idx_payouts_period_start ON payouts(period_start);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// JOB CONFIGURATION
// =============================================================================

func (s *Store) SaveJob(ctx context.Context, config engine.JobPayConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (id, name, pay_structure, flat_rate, hourly_rate,
			commission_per_item, target_deliverable, excluded_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			pay_structure = EXCLUDED.pay_structure,
			flat_rate = EXCLUDED.flat_rate,
			hourly_rate = EXCLUDED.hourly_rate,
			commission_per_item = EXCLUDED.commission_per_item,
			target_deliverable = EXCLUDED.target_deliverable,
			excluded_days = EXCLUDED.excluded_days`,
		string(config.JobID), config.Name, string(config.PayStructure),
		config.FlatRate, config.HourlyRate, config.CommissionPerItem,
		config.TargetDeliverable, config.ExcludedWeekdays.Names())
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (s *Store) ListJobConfigs(ctx context.Context) ([]engine.JobPayConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, pay_structure, flat_rate, hourly_rate,
			commission_per_item, target_deliverable, excluded_days
		FROM jobs
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var configs []engine.JobPayConfig
	for rows.Next() {
		config, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

func (s *Store) GetJobConfig(ctx context.Context, job engine.JobID) (engine.JobPayConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, pay_structure, flat_rate, hourly_rate,
			commission_per_item, target_deliverable, excluded_days
		FROM jobs
		WHERE id = $1`, string(job))

	config, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.JobPayConfig{}, engine.ErrJobNotFound
	}
	return config, err
}

func scanJob(row pgx.Row) (engine.JobPayConfig, error) {
	var (
		config    engine.JobPayConfig
		id, name  string
		structure string
		excluded  []string
	)
	err := row.Scan(&id, &name, &structure, &config.FlatRate, &config.HourlyRate,
		&config.CommissionPerItem, &config.TargetDeliverable, &excluded)
	if err != nil {
		return config, err
	}
	config.JobID = engine.JobID(id)
	config.Name = name
	config.PayStructure = engine.PayStructure(structure)
	config.ExcludedWeekdays = engine.ParseWeekdays(excluded)
	return config, nil
}

// =============================================================================
// ROSTER
// =============================================================================

func (s *Store) AssignWorker(ctx context.Context, job engine.JobID, worker engine.WorkerID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO job_workers (job_id, worker_id) VALUES ($1, $2)
		ON CONFLICT (job_id, worker_id) DO NOTHING`,
		string(job), string(worker))
	if err != nil {
		return fmt.Errorf("assign worker: %w", err)
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context) ([]engine.Assignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT job_id, worker_id FROM job_workers ORDER BY job_id, worker_id`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []engine.Assignment
	for rows.Next() {
		var job, worker string
		if err := rows.Scan(&job, &worker); err != nil {
			return nil, err
		}
		assignments = append(assignments, engine.Assignment{
			JobID:    engine.JobID(job),
			WorkerID: engine.WorkerID(worker),
		})
	}
	return assignments, rows.Err()
}

// =============================================================================
// FACTS
// =============================================================================

func (s *Store) RecordAttendance(ctx context.Context, record engine.AttendanceRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attendance (worker_id, job_id, record_date, status)
		VALUES ($1, $2, $3, $4)`,
		string(record.WorkerID), string(record.JobID),
		record.Date.Time(), string(record.Status))
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

func (s *Store) ListAttendance(ctx context.Context, period engine.Period) ([]engine.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT worker_id, job_id, record_date, status
		FROM attendance
		WHERE record_date >= $1 AND record_date <= $2
		ORDER BY record_date, id`,
		period.Start.Time(), period.End.Time())
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []engine.AttendanceRecord
	for rows.Next() {
		var (
			worker, job, status string
			date                time.Time
		)
		if err := rows.Scan(&worker, &job, &date, &status); err != nil {
			return nil, err
		}
		records = append(records, engine.AttendanceRecord{
			WorkerID: engine.WorkerID(worker),
			JobID:    engine.JobID(job),
			Date:     engine.DateOf(date),
			Status:   engine.AttendanceStatus(status),
		})
	}
	return records, rows.Err()
}

func (s *Store) RecordDeliverable(ctx context.Context, record engine.DeliverableRecord) error {
	var worker *string
	if record.WorkerID != "" {
		w := string(record.WorkerID)
		worker = &w
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO deliverables (worker_id, job_id, record_date, quantity)
		VALUES ($1, $2, $3, $4)`,
		worker, string(record.JobID), record.Date.Time(), record.Quantity)
	if err != nil {
		return fmt.Errorf("record deliverable: %w", err)
	}
	return nil
}

func (s *Store) ListDeliverables(ctx context.Context, period engine.Period) ([]engine.DeliverableRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT worker_id, job_id, record_date, quantity
		FROM deliverables
		WHERE record_date >= $1 AND record_date <= $2
		ORDER BY record_date, id`,
		period.Start.Time(), period.End.Time())
	if err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	defer rows.Close()

	var records []engine.DeliverableRecord
	for rows.Next() {
		var (
			worker   *string
			job      string
			date     time.Time
			quantity decimal.Decimal
		)
		if err := rows.Scan(&worker, &job, &date, &quantity); err != nil {
			return nil, err
		}
		rec := engine.DeliverableRecord{
			JobID:    engine.JobID(job),
			Date:     engine.DateOf(date),
			Quantity: quantity,
		}
		if worker != nil {
			rec.WorkerID = engine.WorkerID(*worker)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// PAYOUTS
// =============================================================================

func (s *Store) InsertPayouts(ctx context.Context, records []engine.PayoutRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert payouts: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO payouts (id, worker_id, job_id, period_start, period_end,
				days_worked, total_days, deliverables, target_deliverables,
				base_pay, commission, total_payout, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (worker_id, job_id, period_start) DO NOTHING`,
			rec.ID, string(rec.WorkerID), string(rec.JobID),
			rec.PeriodStart.Time(), rec.PeriodEnd.Time(),
			rec.DaysWorked, rec.TotalDays,
			rec.Deliverables, rec.TargetDeliverables,
			rec.BasePay, rec.Commission, rec.TotalPayout,
			string(rec.Status), rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert payout %s: %w", rec.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListPayoutsByPeriod(ctx context.Context, periodStart engine.Date) ([]engine.PayoutRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, worker_id, job_id, period_start, period_end, days_worked,
			total_days, deliverables, target_deliverables, base_pay,
			commission, total_payout, status, created_at
		FROM payouts
		WHERE period_start = $1
		ORDER BY job_id, worker_id`, periodStart.Time())
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	var records []engine.PayoutRecord
	for rows.Next() {
		rec, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) GetPayout(ctx context.Context, id string) (engine.PayoutRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, worker_id, job_id, period_start, period_end, days_worked,
			total_days, deliverables, target_deliverables, base_pay,
			commission, total_payout, status, created_at
		FROM payouts
		WHERE id = $1`, id)

	rec, err := scanPayout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.PayoutRecord{}, engine.ErrPayoutNotFound
	}
	return rec, err
}

// UpdatePayoutStatus is the approval workflow's status write, validated
// against the current row inside one transaction.
func (s *Store) UpdatePayoutStatus(ctx context.Context, id string, status engine.PayoutStatus) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM payouts WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.ErrPayoutNotFound
	}
	if err != nil {
		return fmt.Errorf("load payout status: %w", err)
	}

	from := engine.PayoutStatus(current)
	if !from.CanTransitionTo(status) {
		return &engine.TransitionError{PayoutID: id, From: from, To: status}
	}

	if _, err := tx.Exec(ctx, `UPDATE payouts SET status = $1 WHERE id = $2`, string(status), id); err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	return tx.Commit(ctx)
}

func scanPayout(row pgx.Row) (engine.PayoutRecord, error) {
	var (
		rec             engine.PayoutRecord
		id, worker, job string
		start, end      time.Time
		status          string
	)
	err := row.Scan(&id, &worker, &job, &start, &end, &rec.DaysWorked, &rec.TotalDays,
		&rec.Deliverables, &rec.TargetDeliverables, &rec.BasePay,
		&rec.Commission, &rec.TotalPayout, &status, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	rec.ID = id
	rec.WorkerID = engine.WorkerID(worker)
	rec.JobID = engine.JobID(job)
	rec.PeriodStart = engine.DateOf(start)
	rec.PeriodEnd = engine.DateOf(end)
	rec.Status = engine.PayoutStatus(status)
	return rec, nil
}
