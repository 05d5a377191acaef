/*
Package sqlite provides a SQLite-backed implementation of the payout store.

PURPOSE:
  Implements the engine's persistence boundary plus the collaborator
  adapters (job CRUD, fact recording, approval status writes) on SQLite.
  Suitable for local/dev deployments; store/postgres carries the same
  contract for production.

KEY TABLES:
  jobs:         Pay configuration per job (external ownership)
  job_workers:  Active roster assignments
  attendance:   Immutable attendance facts
  deliverables: Immutable quantity facts (worker_id NULL = team-level)
  payouts:      Engine-created payout rows

REQUIRED INVARIANT:
  payouts carries UNIQUE(worker_id, job_id, period_start) and the insert
  step uses ON CONFLICT DO NOTHING. Concurrent recalculations on the same
  period therefore cannot create duplicate rows; the first write wins and
  later writes are no-ops, exactly as the reconciler assumes.

REPRESENTATION:
  Monetary/quantity values are stored as TEXT and parsed with
  shopspring/decimal, dates as TEXT in YYYY-MM-DD, excluded weekdays as a
  JSON array of weekday names (matching how job CRUD records them).

WAL MODE:
  The database is opened with WAL for better read concurrency. Payout rows
  are never updated or deleted here apart from the approval workflow's
  status write.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payout-engine/engine"
)

// Store implements the payout persistence boundary using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pay_structure TEXT NOT NULL,
		flat_rate TEXT NOT NULL DEFAULT '0',
		hourly_rate TEXT NOT NULL DEFAULT '0',
		commission_per_item TEXT NOT NULL DEFAULT '0',
		target_deliverable TEXT NOT NULL DEFAULT '0',
		excluded_days TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS job_workers (
		job_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		PRIMARY KEY (job_id, worker_id)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		worker_id TEXT NOT NULL,
		job_id TEXT NOT NULL,
		record_date TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance(record_date);

	CREATE TABLE IF NOT EXISTS deliverables (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		worker_id TEXT,
		job_id TEXT NOT NULL,
		record_date TEXT NOT NULL,
		quantity TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deliverables_date
		ON deliverables(record_date);

	-- Payout rows created by the engine. The UNIQUE constraint on the key
	-- triple is what makes concurrent recalculation safe.
	CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		job_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		days_worked INTEGER NOT NULL,
		total_days INTEGER NOT NULL,
		deliverables TEXT NOT NULL DEFAULT '0',
		target_deliverables TEXT NOT NULL DEFAULT '0',
		base_pay TEXT NOT NULL DEFAULT '0',
		commission TEXT NOT NULL DEFAULT '0',
		total_payout TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		UNIQUE (worker_id, job_id, period_start)
	);

	CREATE INDEX IF NOT EXISTS idx_payouts_period_start
		ON payouts(period_start);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// JOB CONFIGURATION
// =============================================================================

// SaveJob creates or replaces a job pay configuration. This is the job CRUD
// adapter; the engine only ever reads configs.
func (s *Store) SaveJob(ctx context.Context, config engine.JobPayConfig) error {
	excluded, err := json.Marshal(config.ExcludedWeekdays.Names())
	if err != nil {
		return fmt.Errorf("encode excluded days: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, name, pay_structure, flat_rate, hourly_rate,
			commission_per_item, target_deliverable, excluded_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			pay_structure = excluded.pay_structure,
			flat_rate = excluded.flat_rate,
			hourly_rate = excluded.hourly_rate,
			commission_per_item = excluded.commission_per_item,
			target_deliverable = excluded.target_deliverable,
			excluded_days = excluded.excluded_days`,
		string(config.JobID), config.Name, string(config.PayStructure),
		config.FlatRate.String(), config.HourlyRate.String(),
		config.CommissionPerItem.String(), config.TargetDeliverable.String(),
		string(excluded), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (s *Store) ListJobConfigs(ctx context.Context) ([]engine.JobPayConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
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
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, pay_structure, flat_rate, hourly_rate,
			commission_per_item, target_deliverable, excluded_days
		FROM jobs
		WHERE id = ?`, string(job))

	config, err := scanJob(row)
	if err == sql.ErrNoRows {
		return engine.JobPayConfig{}, engine.ErrJobNotFound
	}
	if err != nil {
		return engine.JobPayConfig{}, err
	}
	return config, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (engine.JobPayConfig, error) {
	var (
		config       engine.JobPayConfig
		id, name     string
		structure    string
		flatRate     string
		hourlyRate   string
		perItem      string
		target       string
		excludedJSON string
	)
	if err := row.Scan(&id, &name, &structure, &flatRate, &hourlyRate, &perItem, &target, &excludedJSON); err != nil {
		return config, err
	}

	var err error
	config.JobID = engine.JobID(id)
	config.Name = name
	config.PayStructure = engine.PayStructure(structure)
	if config.FlatRate, err = parseDecimal(flatRate); err != nil {
		return config, fmt.Errorf("job %s flat_rate: %w", id, err)
	}
	if config.HourlyRate, err = parseDecimal(hourlyRate); err != nil {
		return config, fmt.Errorf("job %s hourly_rate: %w", id, err)
	}
	if config.CommissionPerItem, err = parseDecimal(perItem); err != nil {
		return config, fmt.Errorf("job %s commission_per_item: %w", id, err)
	}
	if config.TargetDeliverable, err = parseDecimal(target); err != nil {
		return config, fmt.Errorf("job %s target_deliverable: %w", id, err)
	}

	var names []string
	if err := json.Unmarshal([]byte(excludedJSON), &names); err != nil {
		return config, fmt.Errorf("job %s excluded_days: %w", id, err)
	}
	config.ExcludedWeekdays = engine.ParseWeekdays(names)
	return config, nil
}

// =============================================================================
// ROSTER
// =============================================================================

// AssignWorker adds a worker to a job's roster. Idempotent.
func (s *Store) AssignWorker(ctx context.Context, job engine.JobID, worker engine.WorkerID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_workers (job_id, worker_id) VALUES (?, ?)
		ON CONFLICT (job_id, worker_id) DO NOTHING`,
		string(job), string(worker))
	if err != nil {
		return fmt.Errorf("assign worker: %w", err)
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context) ([]engine.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
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

// RecordAttendance appends one attendance fact. Date uniqueness is not
// enforced; the aggregator sums duplicates.
func (s *Store) RecordAttendance(ctx context.Context, record engine.AttendanceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (worker_id, job_id, record_date, status)
		VALUES (?, ?, ?, ?)`,
		string(record.WorkerID), string(record.JobID),
		record.Date.String(), string(record.Status))
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

func (s *Store) ListAttendance(ctx context.Context, period engine.Period) ([]engine.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, job_id, record_date, status
		FROM attendance
		WHERE record_date >= ? AND record_date <= ?
		ORDER BY record_date, id`,
		period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []engine.AttendanceRecord
	for rows.Next() {
		var worker, job, date, status string
		if err := rows.Scan(&worker, &job, &date, &status); err != nil {
			return nil, err
		}
		d, err := engine.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("attendance date: %w", err)
		}
		records = append(records, engine.AttendanceRecord{
			WorkerID: engine.WorkerID(worker),
			JobID:    engine.JobID(job),
			Date:     d,
			Status:   engine.AttendanceStatus(status),
		})
	}
	return records, rows.Err()
}

// RecordDeliverable appends one deliverable fact. An empty WorkerID stores
// NULL, marking a team-level record for pooled jobs.
func (s *Store) RecordDeliverable(ctx context.Context, record engine.DeliverableRecord) error {
	var worker any
	if record.WorkerID != "" {
		worker = string(record.WorkerID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliverables (worker_id, job_id, record_date, quantity)
		VALUES (?, ?, ?, ?)`,
		worker, string(record.JobID), record.Date.String(), record.Quantity.String())
	if err != nil {
		return fmt.Errorf("record deliverable: %w", err)
	}
	return nil
}

func (s *Store) ListDeliverables(ctx context.Context, period engine.Period) ([]engine.DeliverableRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, job_id, record_date, quantity
		FROM deliverables
		WHERE record_date >= ? AND record_date <= ?
		ORDER BY record_date, id`,
		period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	defer rows.Close()

	var records []engine.DeliverableRecord
	for rows.Next() {
		var (
			worker   sql.NullString
			job      string
			date     string
			quantity string
		)
		if err := rows.Scan(&worker, &job, &date, &quantity); err != nil {
			return nil, err
		}
		d, err := engine.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("deliverable date: %w", err)
		}
		q, err := parseDecimal(quantity)
		if err != nil {
			return nil, fmt.Errorf("deliverable quantity: %w", err)
		}
		records = append(records, engine.DeliverableRecord{
			WorkerID: engine.WorkerID(worker.String),
			JobID:    engine.JobID(job),
			Date:     d,
			Quantity: q,
		})
	}
	return records, rows.Err()
}

// =============================================================================
// PAYOUTS
// =============================================================================

// InsertPayouts writes new payout rows atomically. Rows conflicting on
// (worker_id, job_id, period_start) are skipped via ON CONFLICT DO NOTHING.
func (s *Store) InsertPayouts(ctx context.Context, records []engine.PayoutRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert payouts: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO payouts (id, worker_id, job_id, period_start, period_end,
			days_worked, total_days, deliverables, target_deliverables,
			base_pay, commission, total_payout, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (worker_id, job_id, period_start) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare insert payouts: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ID, string(rec.WorkerID), string(rec.JobID),
			rec.PeriodStart.String(), rec.PeriodEnd.String(),
			rec.DaysWorked, rec.TotalDays,
			rec.Deliverables.String(), rec.TargetDeliverables.String(),
			rec.BasePay.String(), rec.Commission.String(), rec.TotalPayout.String(),
			string(rec.Status), rec.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert payout %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListPayoutsByPeriod(ctx context.Context, periodStart engine.Date) ([]engine.PayoutRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, worker_id, job_id, period_start, period_end, days_worked,
			total_days, deliverables, target_deliverables, base_pay,
			commission, total_payout, status, created_at
		FROM payouts
		WHERE period_start = ?
		ORDER BY job_id, worker_id`, periodStart.String())
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
	row := s.db.QueryRowContext(ctx, `
		SELECT id, worker_id, job_id, period_start, period_end, days_worked,
			total_days, deliverables, target_deliverables, base_pay,
			commission, total_payout, status, created_at
		FROM payouts
		WHERE id = ?`, id)

	rec, err := scanPayout(row)
	if err == sql.ErrNoRows {
		return engine.PayoutRecord{}, engine.ErrPayoutNotFound
	}
	return rec, err
}

// UpdatePayoutStatus is the approval workflow's status write. The transition
// is validated against the current row inside one transaction; the engine
// itself never calls this.
func (s *Store) UpdatePayoutStatus(ctx context.Context, id string, status engine.PayoutStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM payouts WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return engine.ErrPayoutNotFound
	}
	if err != nil {
		return fmt.Errorf("load payout status: %w", err)
	}

	from := engine.PayoutStatus(current)
	if !from.CanTransitionTo(status) {
		return &engine.TransitionError{PayoutID: id, From: from, To: status}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE payouts SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	return tx.Commit()
}

func scanPayout(row rowScanner) (engine.PayoutRecord, error) {
	var (
		rec                  engine.PayoutRecord
		id, worker, job      string
		start, end           string
		daysWorked, total    int
		deliverables, target string
		base, commission     string
		totalPayout          string
		status, createdAt    string
	)
	err := row.Scan(&id, &worker, &job, &start, &end, &daysWorked, &total,
		&deliverables, &target, &base, &commission, &totalPayout, &status, &createdAt)
	if err != nil {
		return rec, err
	}

	rec.ID = id
	rec.WorkerID = engine.WorkerID(worker)
	rec.JobID = engine.JobID(job)
	rec.DaysWorked = daysWorked
	rec.TotalDays = total
	rec.Status = engine.PayoutStatus(status)

	if rec.PeriodStart, err = engine.ParseDate(start); err != nil {
		return rec, fmt.Errorf("payout %s period_start: %w", id, err)
	}
	if rec.PeriodEnd, err = engine.ParseDate(end); err != nil {
		return rec, fmt.Errorf("payout %s period_end: %w", id, err)
	}
	if rec.Deliverables, err = parseDecimal(deliverables); err != nil {
		return rec, fmt.Errorf("payout %s deliverables: %w", id, err)
	}
	if rec.TargetDeliverables, err = parseDecimal(target); err != nil {
		return rec, fmt.Errorf("payout %s target_deliverables: %w", id, err)
	}
	if rec.BasePay, err = parseDecimal(base); err != nil {
		return rec, fmt.Errorf("payout %s base_pay: %w", id, err)
	}
	if rec.Commission, err = parseDecimal(commission); err != nil {
		return rec, fmt.Errorf("payout %s commission: %w", id, err)
	}
	if rec.TotalPayout, err = parseDecimal(totalPayout); err != nil {
		return rec, fmt.Errorf("payout %s total_payout: %w", id, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return rec, fmt.Errorf("payout %s created_at: %w", id, err)
	}
	return rec, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
