/*
calculator.go - Pay-structure branch table

PURPOSE:
  Pure arithmetic transform from a worker's aggregates and a job's pay
  configuration to a payout breakdown. Branches strictly on pay_structure:

    flat                 base = flat_rate x days_worked
    hourly               base = hourly_rate x days_worked x 8
    commission           comm = rate x worker_deliverables
    commission_adjusted  comm = rate x worker_deliverables x (days/periodDays)
    team_commission      comm = (pool x rate) x (days/daysElapsed)

  total_payout = base + commission, always. No rounding is applied here;
  currency rounding is a presentation concern.

EDGE HANDLING:
  Zero or missing periodDays/daysElapsed never raises - the affected branch
  yields 0 commission (guarded division). Negative quantities and rates pass
  through as given: validation of upstream data belongs to job/record CRUD,
  not to this transform.

POOLED JOBS:
  For team_commission the recorded deliverables figure is forced to 0 on the
  breakdown. Individual counts are not meaningful for a pooled job; the
  column is display-only there, never a business amount.
*/
package engine

import "github.com/shopspring/decimal"

// HoursPerDay converts days worked to paid hours for hourly jobs.
const HoursPerDay = 8

// ComputePayout produces the breakdown for one worker on one job. An unknown
// pay structure returns the zero-amount breakdown together with an
// UnconfiguredPayError so the caller can surface the misconfiguration
// instead of silently paying $0.
func ComputePayout(worker WorkerID, job JobPayConfig, att AttendanceSummary, del DeliverableSummary, periodDays, daysElapsed int) (PayoutBreakdown, error) {
	daysWorked := att.DaysWorked(worker, job.JobID)
	delivered := del.WorkerTotal(worker, job.JobID)

	b := PayoutBreakdown{
		WorkerID:           worker,
		JobID:              job.JobID,
		DaysWorked:         daysWorked,
		TotalDays:          periodDays,
		Deliverables:       delivered,
		TargetDeliverables: job.TargetDeliverable,
	}

	days := decimal.NewFromInt(int64(daysWorked))

	switch job.PayStructure {
	case PayFlat:
		b.BasePay = job.FlatRate.Mul(days)

	case PayHourly:
		b.BasePay = job.HourlyRate.Mul(days).Mul(decimal.NewFromInt(HoursPerDay))

	case PayCommission:
		b.Commission = job.CommissionPerItem.Mul(delivered)

	case PayCommissionAdjusted:
		if periodDays > 0 {
			share := days.Div(decimal.NewFromInt(int64(periodDays)))
			b.Commission = job.CommissionPerItem.Mul(delivered).Mul(share)
		}

	case PayTeamCommission:
		pool := del.JobPool(job.JobID)
		b.Deliverables = decimal.Zero
		if daysElapsed > 0 && pool.IsPositive() {
			poolAmount := pool.Mul(job.CommissionPerItem)
			share := days.Div(decimal.NewFromInt(int64(daysElapsed)))
			b.Commission = poolAmount.Mul(share)
		}

	default:
		b.TotalPayout = b.BasePay.Add(b.Commission)
		return b, &UnconfiguredPayError{JobID: job.JobID, PayStructure: job.PayStructure}
	}

	b.TotalPayout = b.BasePay.Add(b.Commission)
	return b, nil
}
