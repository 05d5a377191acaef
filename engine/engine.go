/*
engine.go - Recalculation orchestration

PURPOSE:
  Wires the pipeline together for one recalculation request:

    Period Calendar -> {Attendance, Deliverable} Aggregators
                    -> Payout Calculator (one per worker x job)
                    -> Payout Reconciler -> Store insert

  The run is synchronous and stateless: period bounds and the as-of clock
  are explicit inputs, nothing is read from ambient context, and nothing is
  retained between invocations.

WORKER INCLUSION:
  team_commission jobs calculate every rostered worker, attendance or not -
  a rostered worker with zero present days still appears with days_worked 0
  (and commission 0). Every other structure calculates only workers with at
  least one attendance or deliverable fact on the job in the period.

FAILURE SEMANTICS:
  - Any store read failure aborts the run; nothing is written.
  - An insert failure is reported via WriteError, but the full display set
    is still returned: the computation is not lost, only its persistence.
  - Unknown pay structures do not fail the run; they produce zero-amount
    rows and a warning per job.
  No retries happen here. Recalculation is idempotent, so retrying is the
  caller's prerogative.
*/
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Warning flags a job whose configuration could not be mapped to a
// calculation branch. The affected workers still appear with zero amounts.
type Warning struct {
	JobID        JobID
	PayStructure PayStructure
	Message      string
}

// Result is the outcome of one recalculation run.
type Result struct {
	Period Period

	// Payouts is the full display set: every previously persisted row
	// unchanged, plus every row newly created by this run.
	Payouts []PayoutRecord

	// Inserted is the subset of Payouts created by this run.
	Inserted []PayoutRecord

	Warnings []Warning
}

// Recalculator computes and persists payouts for a period.
type Recalculator struct {
	Store Store

	// Now and NewID are injectable for tests; zero values mean the real
	// clock and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

func NewRecalculator(store Store) *Recalculator {
	return &Recalculator{
		Store: store,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Recalculate runs the full pipeline for the period. On read failure it
// returns (nil, err) with nothing written. On insert failure it returns the
// complete result alongside a WriteError so the caller can still display
// the computed figures.
func (r *Recalculator) Recalculate(ctx context.Context, period Period) (*Result, error) {
	now := r.now()
	asOf := DateOf(now)

	configs, err := r.Store.ListJobConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load job configs: %w", err)
	}
	attendance, err := r.Store.ListAttendance(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	deliverables, err := r.Store.ListDeliverables(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load deliverables: %w", err)
	}
	assignments, err := r.Store.ListAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	existing, err := r.Store.ListPayoutsByPeriod(ctx, period.Start)
	if err != nil {
		return nil, fmt.Errorf("load payouts: %w", err)
	}

	att := SummarizeAttendance(attendance)
	del := SummarizeDeliverables(deliverables)
	roster := rosterByJob(assignments)

	var computed []PayoutBreakdown
	var warnings []Warning

	for _, job := range configs {
		excluded := job.Excluded()
		periodDays := BusinessDays(period.Start, period.End, excluded)
		daysElapsed := DaysElapsed(period, asOf, excluded)

		warned := false
		for _, worker := range workersToCalculate(job, att, del, roster) {
			b, err := ComputePayout(worker, job, att, del, periodDays, daysElapsed)
			if err != nil && !warned {
				warnings = append(warnings, Warning{
					JobID:        job.JobID,
					PayStructure: job.PayStructure,
					Message:      err.Error(),
				})
				warned = true
			}
			computed = append(computed, b)
		}
	}

	merged := Reconcile(computed, existing, period, r.newID(), now)

	result := &Result{
		Period:   period,
		Payouts:  merged.ToDisplay,
		Inserted: merged.ToInsert,
		Warnings: warnings,
	}

	if len(merged.ToInsert) > 0 {
		if err := r.Store.InsertPayouts(ctx, merged.ToInsert); err != nil {
			return result, &WriteError{Err: err}
		}
	}
	return result, nil
}

// workersToCalculate determines the worker set for one job. Pooled jobs use
// roster membership; everything else uses fact presence.
func workersToCalculate(job JobPayConfig, att AttendanceSummary, del DeliverableSummary, roster map[JobID][]WorkerID) []WorkerID {
	if job.PayStructure == PayTeamCommission {
		return roster[job.JobID]
	}

	seen := make(map[WorkerID]bool)
	var workers []WorkerID
	for _, w := range att.WorkersFor(job.JobID) {
		if !seen[w] {
			seen[w] = true
			workers = append(workers, w)
		}
	}
	for _, w := range del.WorkersFor(job.JobID) {
		if !seen[w] {
			seen[w] = true
			workers = append(workers, w)
		}
	}
	return workers
}

func rosterByJob(assignments []Assignment) map[JobID][]WorkerID {
	roster := make(map[JobID][]WorkerID)
	for _, a := range assignments {
		roster[a.JobID] = append(roster[a.JobID], a.WorkerID)
	}
	for job := range roster {
		sort.Slice(roster[job], func(i, j int) bool { return roster[job][i] < roster[job][j] })
	}
	return roster
}

func (r *Recalculator) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Recalculator) newID() func() string {
	if r.NewID != nil {
		return r.NewID
	}
	return uuid.NewString
}
