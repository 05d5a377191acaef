/*
store.go - Persistence contract for the payout engine

PURPOSE:
  Defines the read/write boundary between the engine and the relational
  store. The engine reads facts and configuration owned by external
  workflows and writes exactly one thing: new payout rows in "pending"
  state. It never updates or deletes a payout row; status transitions
  belong to the external approval workflow.

REQUIRED STORAGE INVARIANT:
  Implementations MUST enforce uniqueness on
  (worker_id, job_id, period_start) for payout rows and MUST treat a
  conflicting insert as a no-op rather than an error. That makes the
  reconciler's insert step safe when two recalculations race on the same
  period: whichever row lands first wins, exactly as if it had existed
  before the second run started.

IMPLEMENTATIONS:
  - store/sqlite:      SQLite, local/dev
  - store/postgres:    pgx, production
  - engine/store:      in-memory, tests
*/
package engine

import "context"

// Store is the engine's view of the relational store. All reads are scoped
// to a period where the data is period-bounded; configs and roster are
// point-in-time snapshots.
type Store interface {
	// ListJobConfigs returns the pay configuration of every job.
	ListJobConfigs(ctx context.Context) ([]JobPayConfig, error)

	// ListAttendance returns attendance facts dated within the period.
	ListAttendance(ctx context.Context, period Period) ([]AttendanceRecord, error)

	// ListDeliverables returns deliverable facts dated within the period,
	// both worker-attributed and team-level.
	ListDeliverables(ctx context.Context, period Period) ([]DeliverableRecord, error)

	// ListAssignments returns the active job-worker roster.
	ListAssignments(ctx context.Context) ([]Assignment, error)

	// ListPayoutsByPeriod returns previously persisted payout rows whose
	// period_start matches.
	ListPayoutsByPeriod(ctx context.Context, periodStart Date) ([]PayoutRecord, error)

	// InsertPayouts persists new rows. Rows conflicting on
	// (worker_id, job_id, period_start) are skipped, not errors.
	InsertPayouts(ctx context.Context, records []PayoutRecord) error
}
