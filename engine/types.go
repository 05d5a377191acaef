/*
Package engine computes worker payouts for a pay period.

PURPOSE:
  This package contains the payout computation core: it reduces raw
  attendance and deliverable facts into per-worker aggregates, applies the
  job's pay-structure rules, and reconciles the result against previously
  persisted payout rows so that human-approved figures are never clobbered.

KEY CONCEPTS IN THIS FILE (types.go):
  - AttendanceRecord / DeliverableRecord: Immutable facts (never mutated)
  - JobPayConfig: The pay-structure rules for one job (external ownership)
  - PayoutRecord: A persisted payout row with an approval status
  - PayoutBreakdown: The freshly computed figures for one worker on one job
  - Worker/Job IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Facts and payout rows are created, never updated
  2. Precision: Uses decimal.Decimal to avoid floating-point errors on money
  3. Type Safety: Strong typing for IDs prevents mixing worker/job IDs
  4. Statelessness: The engine holds no state between recalculations;
     everything is passed in explicitly

SEE ALSO:
  - calendar.go: Business-day counting for periods
  - aggregate.go: Fact reduction into per-(worker, job) summaries
  - calculator.go: Pay-structure branch table
  - reconcile.go: Idempotent merge against persisted rows
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkerID string
type JobID string

// =============================================================================
// ATTENDANCE - Immutable facts from the recording workflow
// =============================================================================

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePartial AttendanceStatus = "partial"
)

// AttendanceRecord is one worker/job/date attendance fact. Upstream does not
// strictly enforce date uniqueness; duplicate rows are summed by the
// aggregator, not deduplicated.
type AttendanceRecord struct {
	WorkerID WorkerID
	JobID    JobID
	Date     Date
	Status   AttendanceStatus
}

// =============================================================================
// DELIVERABLES - Individual or pooled (team-level) quantity facts
// =============================================================================

// DeliverableKind discriminates individual from pooled records. The
// discrimination is resolved once here, at the record itself, so downstream
// code never re-branches on the presence of a worker ID.
type DeliverableKind string

const (
	DeliverableIndividual DeliverableKind = "individual"
	DeliverablePooled     DeliverableKind = "pooled"
)

// DeliverableRecord is one quantity fact. For pool-commission jobs the
// deliverable is recorded at the team level and WorkerID is empty.
type DeliverableRecord struct {
	WorkerID WorkerID // empty for team-level records
	JobID    JobID
	Date     Date
	Quantity decimal.Decimal
}

func (r DeliverableRecord) Kind() DeliverableKind {
	if r.WorkerID == "" {
		return DeliverablePooled
	}
	return DeliverableIndividual
}

// =============================================================================
// JOB PAY CONFIGURATION - Owned by job CRUD, read-only to the engine
// =============================================================================

type PayStructure string

const (
	PayFlat               PayStructure = "flat"
	PayHourly             PayStructure = "hourly"
	PayCommission         PayStructure = "commission"
	PayCommissionAdjusted PayStructure = "commission_adjusted"
	PayTeamCommission     PayStructure = "team_commission"
)

// Known reports whether this is one of the calculation branches. The engine
// does not validate configs beyond this; an unknown structure yields a zero
// breakdown plus ErrUnconfiguredPayStructure.
func (ps PayStructure) Known() bool {
	switch ps {
	case PayFlat, PayHourly, PayCommission, PayCommissionAdjusted, PayTeamCommission:
		return true
	}
	return false
}

// JobPayConfig defines which calculation branch applies to a job and with
// which rates. Rates are accepted as given; validation belongs to job CRUD.
type JobPayConfig struct {
	JobID             JobID
	Name              string
	PayStructure      PayStructure
	FlatRate          decimal.Decimal
	HourlyRate        decimal.Decimal
	CommissionPerItem decimal.Decimal
	TargetDeliverable decimal.Decimal

	// ExcludedWeekdays are the job's non-working weekdays. Zero value means
	// the default Saturday/Sunday exclusion.
	ExcludedWeekdays WeekdaySet
}

// Excluded returns the effective weekday exclusion for business-day counting.
func (c JobPayConfig) Excluded() WeekdaySet {
	if c.ExcludedWeekdays.IsEmpty() {
		return DefaultExcluded()
	}
	return c.ExcludedWeekdays
}

// =============================================================================
// ROSTER - Active job-worker assignments (external ownership)
// =============================================================================

// Assignment links a worker to a job. Membership, not attendance, determines
// which workers are calculated for pool-commission jobs.
type Assignment struct {
	JobID    JobID
	WorkerID WorkerID
}

// =============================================================================
// PAYOUT - Computed breakdowns and persisted records
// =============================================================================

type PayoutStatus string

const (
	StatusPending   PayoutStatus = "pending"
	StatusApproved  PayoutStatus = "approved"
	StatusProcessed PayoutStatus = "processed"
)

// CanTransitionTo reports whether the approval workflow may move a payout
// from this status to next. The engine itself never transitions statuses;
// this is enforced at the status-write boundary on behalf of that workflow.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved
	case StatusApproved:
		return next == StatusProcessed
	}
	return false
}

// PayoutBreakdown is the freshly computed result for one worker on one job.
// It carries no identity or status; those are assigned at reconciliation if
// the breakdown turns out to be genuinely new.
type PayoutBreakdown struct {
	WorkerID WorkerID
	JobID    JobID

	DaysWorked         int
	TotalDays          int
	Deliverables       decimal.Decimal
	TargetDeliverables decimal.Decimal

	BasePay     decimal.Decimal
	Commission  decimal.Decimal
	TotalPayout decimal.Decimal
}

// PayoutRecord is a persisted payout row. At most one exists per
// (worker_id, job_id, period_start); once written it is never updated or
// deleted by the engine, regardless of status.
type PayoutRecord struct {
	ID          string
	WorkerID    WorkerID
	JobID       JobID
	PeriodStart Date
	PeriodEnd   Date

	DaysWorked         int
	TotalDays          int
	Deliverables       decimal.Decimal
	TargetDeliverables decimal.Decimal

	BasePay     decimal.Decimal
	Commission  decimal.Decimal
	TotalPayout decimal.Decimal

	Status    PayoutStatus
	CreatedAt time.Time
}
