/*
reconcile.go - Idempotent merge of computed payouts against persisted rows

PURPOSE:
  Decides which freshly computed breakdowns become new payout rows and which
  are superseded by rows that already exist for the same
  (worker, job, period_start). An existing row wins regardless of its
  status - including "pending" - so a payout under human review is never
  silently replaced by a recalculation. The flip side: figures freeze at the
  values computed when the row was first created for that period.

IDEMPOTENCE:
  Running Reconcile twice over the same inputs yields an empty ToInsert the
  second time and an unchanged ToDisplay. Combined with the storage
  uniqueness constraint on the key triple, recalculation is safe to repeat
  and safe to race.
*/
package engine

import (
	"sort"
	"time"
)

type payoutKey struct {
	Worker      WorkerID
	Job         JobID
	PeriodStart Date
}

// ReconcileResult splits the outcome of a reconciliation run.
//   - ToInsert: genuinely new rows, status pending, to be persisted.
//   - ToDisplay: the full result set for the caller - every existing row
//     unchanged plus every newly created one.
type ReconcileResult struct {
	ToInsert  []PayoutRecord
	ToDisplay []PayoutRecord
}

// Reconcile merges computed breakdowns with the rows already persisted for
// the period. newID supplies identities for fresh rows (injectable so tests
// stay deterministic); now stamps their creation time.
func Reconcile(computed []PayoutBreakdown, existing []PayoutRecord, period Period, newID func() string, now time.Time) ReconcileResult {
	seen := make(map[payoutKey]bool, len(existing))
	for _, rec := range existing {
		seen[payoutKey{Worker: rec.WorkerID, Job: rec.JobID, PeriodStart: rec.PeriodStart}] = true
	}

	result := ReconcileResult{
		ToDisplay: append([]PayoutRecord(nil), existing...),
	}

	for _, b := range computed {
		k := payoutKey{Worker: b.WorkerID, Job: b.JobID, PeriodStart: period.Start}
		if seen[k] {
			// Stored amounts and status are authoritative; the fresh
			// computation is discarded.
			continue
		}
		seen[k] = true

		rec := PayoutRecord{
			ID:                 newID(),
			WorkerID:           b.WorkerID,
			JobID:              b.JobID,
			PeriodStart:        period.Start,
			PeriodEnd:          period.End,
			DaysWorked:         b.DaysWorked,
			TotalDays:          b.TotalDays,
			Deliverables:       b.Deliverables,
			TargetDeliverables: b.TargetDeliverables,
			BasePay:            b.BasePay,
			Commission:         b.Commission,
			TotalPayout:        b.TotalPayout,
			Status:             StatusPending,
			CreatedAt:          now,
		}
		result.ToInsert = append(result.ToInsert, rec)
		result.ToDisplay = append(result.ToDisplay, rec)
	}

	sortPayouts(result.ToInsert)
	sortPayouts(result.ToDisplay)
	return result
}

func sortPayouts(records []PayoutRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].JobID != records[j].JobID {
			return records[i].JobID < records[j].JobID
		}
		return records[i].WorkerID < records[j].WorkerID
	})
}
