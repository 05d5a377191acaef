package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/payout-engine/engine"
)

func att(worker, job string, day int, status engine.AttendanceStatus) engine.AttendanceRecord {
	return engine.AttendanceRecord{
		WorkerID: engine.WorkerID(worker),
		JobID:    engine.JobID(job),
		Date:     date(2025, time.June, day),
		Status:   status,
	}
}

func del(worker, job string, day int, qty float64) engine.DeliverableRecord {
	return engine.DeliverableRecord{
		WorkerID: engine.WorkerID(worker),
		JobID:    engine.JobID(job),
		Date:     date(2025, time.June, day),
		Quantity: decimal.NewFromFloat(qty),
	}
}

// =============================================================================
// ATTENDANCE AGGREGATION
// =============================================================================

func TestSummarizeAttendance_CountsPresentOnly(t *testing.T) {
	// GIVEN: Present, absent and partial records for one worker on one job
	// WHEN: Summarizing
	// THEN: Only present rows add to days worked, but all rows mark the pair
	//       as seen

	s := engine.SummarizeAttendance([]engine.AttendanceRecord{
		att("w1", "j1", 2, engine.AttendancePresent),
		att("w1", "j1", 3, engine.AttendanceAbsent),
		att("w1", "j1", 4, engine.AttendancePartial),
		att("w1", "j1", 5, engine.AttendancePresent),
	})

	assert.Equal(t, 2, s.DaysWorked("w1", "j1"))
	assert.True(t, s.Seen("w1", "j1"))
}

func TestSummarizeAttendance_AbsentOnlyStillSeen(t *testing.T) {
	// A worker with only absences is still part of the period's display set:
	// their row computes to zero rather than vanishing.
	s := engine.SummarizeAttendance([]engine.AttendanceRecord{
		att("w1", "j1", 2, engine.AttendanceAbsent),
	})

	assert.Equal(t, 0, s.DaysWorked("w1", "j1"))
	assert.True(t, s.Seen("w1", "j1"))
	assert.False(t, s.Seen("w2", "j1"))
}

func TestSummarizeAttendance_DuplicateRowsSum(t *testing.T) {
	// Two present rows for the same day both count; de-duplication belongs to
	// the recording workflow, not the aggregator.
	s := engine.SummarizeAttendance([]engine.AttendanceRecord{
		att("w1", "j1", 2, engine.AttendancePresent),
		att("w1", "j1", 2, engine.AttendancePresent),
	})

	assert.Equal(t, 2, s.DaysWorked("w1", "j1"))
}

func TestSummarizeAttendance_KeyedPerJob(t *testing.T) {
	s := engine.SummarizeAttendance([]engine.AttendanceRecord{
		att("w1", "j1", 2, engine.AttendancePresent),
		att("w1", "j2", 2, engine.AttendancePresent),
		att("w1", "j2", 3, engine.AttendancePresent),
	})

	assert.Equal(t, 1, s.DaysWorked("w1", "j1"))
	assert.Equal(t, 2, s.DaysWorked("w1", "j2"))
	assert.ElementsMatch(t, []engine.WorkerID{"w1"}, s.WorkersFor("j1"))
}

// =============================================================================
// DELIVERABLE AGGREGATION
// =============================================================================

func TestSummarizeDeliverables_IndividualAndPool(t *testing.T) {
	// GIVEN: Individual rows for two workers plus one team-level row
	// WHEN: Summarizing
	// THEN: Worker totals only include their own rows; the job pool
	//       includes everything

	s := engine.SummarizeDeliverables([]engine.DeliverableRecord{
		del("w1", "j1", 2, 10),
		del("w1", "j1", 3, 5),
		del("w2", "j1", 2, 20),
		del("", "j1", 4, 100), // pooled, no worker attribution
	})

	assert.True(t, s.WorkerTotal("w1", "j1").Equal(decimal.NewFromInt(15)))
	assert.True(t, s.WorkerTotal("w2", "j1").Equal(decimal.NewFromInt(20)))
	assert.True(t, s.JobPool("j1").Equal(decimal.NewFromInt(135)))
}

func TestSummarizeDeliverables_PooledRowHasNoWorkerTotal(t *testing.T) {
	s := engine.SummarizeDeliverables([]engine.DeliverableRecord{
		del("", "j1", 2, 40),
	})

	assert.True(t, s.WorkerTotal("w1", "j1").IsZero())
	assert.True(t, s.JobPool("j1").Equal(decimal.NewFromInt(40)))
	assert.Empty(t, s.WorkersFor("j1"))
}

func TestDeliverableKind(t *testing.T) {
	assert.Equal(t, engine.DeliverableIndividual, del("w1", "j1", 2, 1).Kind())
	assert.Equal(t, engine.DeliverablePooled, del("", "j1", 2, 1).Kind())
}
