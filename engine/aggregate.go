/*
aggregate.go - Fact reduction into per-(worker, job) period summaries

PURPOSE:
  Reduces the raw attendance and deliverable facts for a period into the
  aggregates the calculator consumes: days present per worker per job,
  quantity totals per worker per job, and the job-wide deliverable pool for
  team-commission jobs.

DUPLICATE HANDLING:
  Upstream recording does not strictly enforce one attendance row per
  worker/job/date. Duplicates are summed, not deduplicated - this is the
  documented behavior of the system, not a defect to silently fix here.

POOLED DELIVERABLES:
  The per-job pool sums ALL deliverable rows for the job, worker-attributed
  and team-level alike. It is only consumed by the team_commission branch.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// WorkerJob keys the per-worker-per-job aggregates.
type WorkerJob struct {
	Worker WorkerID
	Job    JobID
}

// =============================================================================
// ATTENDANCE AGGREGATOR
// =============================================================================

// AttendanceSummary maps (worker, job) to days present within the period.
// Every pair that has at least one record of any status is tracked, so a
// worker with only absent/partial rows still counts as "seen" (days 0).
type AttendanceSummary struct {
	days map[WorkerJob]int
}

// SummarizeAttendance reduces records (already filtered to the target
// period) into per-pair present-day counts. Only "present" increments the
// count; partial and absent do not.
func SummarizeAttendance(records []AttendanceRecord) AttendanceSummary {
	days := make(map[WorkerJob]int)
	for _, r := range records {
		k := WorkerJob{Worker: r.WorkerID, Job: r.JobID}
		if r.Status == AttendancePresent {
			days[k]++
		} else if _, ok := days[k]; !ok {
			days[k] = 0
		}
	}
	return AttendanceSummary{days: days}
}

// DaysWorked returns the present-day count for a pair, 0 if unseen.
func (s AttendanceSummary) DaysWorked(worker WorkerID, job JobID) int {
	return s.days[WorkerJob{Worker: worker, Job: job}]
}

// Seen reports whether the pair has at least one attendance fact.
func (s AttendanceSummary) Seen(worker WorkerID, job JobID) bool {
	_, ok := s.days[WorkerJob{Worker: worker, Job: job}]
	return ok
}

// WorkersFor returns the workers with any attendance fact on the job,
// sorted for deterministic iteration.
func (s AttendanceSummary) WorkersFor(job JobID) []WorkerID {
	var workers []WorkerID
	for k := range s.days {
		if k.Job == job {
			workers = append(workers, k.Worker)
		}
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i] < workers[j] })
	return workers
}

// =============================================================================
// DELIVERABLE AGGREGATOR
// =============================================================================

// DeliverableSummary carries both outputs of the deliverable reduction:
// per-worker totals and per-job pools.
type DeliverableSummary struct {
	perWorker map[WorkerJob]decimal.Decimal
	perJob    map[JobID]decimal.Decimal
}

// SummarizeDeliverables reduces records (already filtered to the target
// period). Worker-attributed rows feed both the worker total and the job
// pool; team-level rows feed the pool only.
func SummarizeDeliverables(records []DeliverableRecord) DeliverableSummary {
	perWorker := make(map[WorkerJob]decimal.Decimal)
	perJob := make(map[JobID]decimal.Decimal)
	for _, r := range records {
		perJob[r.JobID] = perJob[r.JobID].Add(r.Quantity)
		if r.Kind() == DeliverableIndividual {
			k := WorkerJob{Worker: r.WorkerID, Job: r.JobID}
			perWorker[k] = perWorker[k].Add(r.Quantity)
		}
	}
	return DeliverableSummary{perWorker: perWorker, perJob: perJob}
}

// WorkerTotal returns the quantity delivered by a worker on a job.
func (s DeliverableSummary) WorkerTotal(worker WorkerID, job JobID) decimal.Decimal {
	return s.perWorker[WorkerJob{Worker: worker, Job: job}]
}

// JobPool returns the job-wide quantity total (attributed + team-level).
func (s DeliverableSummary) JobPool(job JobID) decimal.Decimal {
	return s.perJob[job]
}

// WorkersFor returns the workers with attributed deliverables on the job,
// sorted for deterministic iteration.
func (s DeliverableSummary) WorkersFor(job JobID) []WorkerID {
	var workers []WorkerID
	for k := range s.perWorker {
		if k.Job == job {
			workers = append(workers, k.Worker)
		}
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i] < workers[j] })
	return workers
}
