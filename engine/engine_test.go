package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payout-engine/engine"
	"github.com/warp/payout-engine/engine/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func newRecalculator(mem *store.Memory, asOf engine.Date) *engine.Recalculator {
	r := engine.NewRecalculator(mem)
	r.Now = func() time.Time { return asOf.Time() }
	r.NewID = sequentialIDs()
	return r
}

func seedFlatJob(t *testing.T, mem *store.Memory, id string, rate int64) {
	t.Helper()
	job := jobConfig(id, engine.PayFlat)
	job.FlatRate = money(rate)
	require.NoError(t, mem.SaveJob(context.Background(), job))
}

// failingStore wraps Memory and fails selected operations.
type failingStore struct {
	*store.Memory
	failAttendance bool
	failInsert     bool
}

var errStorage = errors.New("storage unavailable")

func (f *failingStore) ListAttendance(ctx context.Context, period engine.Period) ([]engine.AttendanceRecord, error) {
	if f.failAttendance {
		return nil, errStorage
	}
	return f.Memory.ListAttendance(ctx, period)
}

func (f *failingStore) InsertPayouts(ctx context.Context, records []engine.PayoutRecord) error {
	if f.failInsert {
		return errStorage
	}
	return f.Memory.InsertPayouts(ctx, records)
}

// =============================================================================
// END-TO-END RECALCULATION
// =============================================================================

func TestRecalculate_FlatJob_EndToEnd(t *testing.T) {
	// GIVEN: A flat job at 500/day and a worker present 4 days in June
	// WHEN: Recalculating June
	// THEN: One pending row for 2000 is computed, persisted, and displayed

	ctx := context.Background()
	mem := store.NewMemory()
	seedFlatJob(t, mem, "j1", 500)
	for day := 2; day <= 5; day++ {
		require.NoError(t, mem.RecordAttendance(ctx, att("w1", "j1", day, engine.AttendancePresent)))
	}

	r := newRecalculator(mem, date(2025, time.June, 30))
	result, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)

	require.Len(t, result.Payouts, 1)
	require.Len(t, result.Inserted, 1)
	assert.Empty(t, result.Warnings)

	row := result.Payouts[0]
	assert.Equal(t, engine.WorkerID("w1"), row.WorkerID)
	assert.Equal(t, 4, row.DaysWorked)
	assert.Equal(t, 21, row.TotalDays)
	assert.True(t, row.TotalPayout.Equal(money(2000)), "total: %s", row.TotalPayout)
	assert.Equal(t, engine.StatusPending, row.Status)

	// Persisted, not just returned.
	stored, err := mem.ListPayoutsByPeriod(ctx, june2025().Start)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRecalculate_SecondRunInsertsNothing(t *testing.T) {
	// GIVEN: A period already recalculated
	// WHEN: Recalculating again, even with changed facts
	// THEN: No new rows; stored figures stand

	ctx := context.Background()
	mem := store.NewMemory()
	seedFlatJob(t, mem, "j1", 500)
	require.NoError(t, mem.RecordAttendance(ctx, att("w1", "j1", 2, engine.AttendancePresent)))

	r := newRecalculator(mem, date(2025, time.June, 30))
	first, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)
	require.Len(t, first.Inserted, 1)

	// New attendance arrives after the first run.
	require.NoError(t, mem.RecordAttendance(ctx, att("w1", "j1", 3, engine.AttendancePresent)))

	second, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)

	assert.Empty(t, second.Inserted)
	require.Len(t, second.Payouts, 1)
	assert.True(t, second.Payouts[0].TotalPayout.Equal(first.Payouts[0].TotalPayout),
		"stored amounts must not move on recalculation")
}

func TestRecalculate_NewWorkerJoinsExistingPeriod(t *testing.T) {
	// Frozen rows only freeze their own key; a worker first seen on the
	// second run still gets a fresh row.
	ctx := context.Background()
	mem := store.NewMemory()
	seedFlatJob(t, mem, "j1", 500)
	require.NoError(t, mem.RecordAttendance(ctx, att("w1", "j1", 2, engine.AttendancePresent)))

	r := newRecalculator(mem, date(2025, time.June, 30))
	_, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)

	require.NoError(t, mem.RecordAttendance(ctx, att("w2", "j1", 3, engine.AttendancePresent)))

	result, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)

	require.Len(t, result.Inserted, 1)
	assert.Equal(t, engine.WorkerID("w2"), result.Inserted[0].WorkerID)
	assert.Len(t, result.Payouts, 2)
}

func TestRecalculate_TeamCommission_UsesRoster(t *testing.T) {
	// GIVEN: A pooled job with two rostered workers, one of whom never
	//        attended, plus an unrostered worker with attendance
	// WHEN: Recalculating
	// THEN: Exactly the rostered workers get rows; the absentee gets zero

	ctx := context.Background()
	mem := store.NewMemory()
	job := jobConfig("j1", engine.PayTeamCommission)
	job.CommissionPerItem = money(5)
	require.NoError(t, mem.SaveJob(ctx, job))
	require.NoError(t, mem.AssignWorker(ctx, "j1", "wA"))
	require.NoError(t, mem.AssignWorker(ctx, "j1", "wB"))

	for day := 2; day <= 4; day++ {
		require.NoError(t, mem.RecordAttendance(ctx, att("wA", "j1", day, engine.AttendancePresent)))
	}
	require.NoError(t, mem.RecordAttendance(ctx, att("intruder", "j1", 2, engine.AttendancePresent)))
	require.NoError(t, mem.RecordDeliverable(ctx, del("", "j1", 3, 1000)))

	// As of June 4: elapsed business days Jun 2-4 = 3, all worked by wA.
	r := newRecalculator(mem, date(2025, time.June, 4))
	result, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)

	require.Len(t, result.Payouts, 2)
	byWorker := map[engine.WorkerID]engine.PayoutRecord{}
	for _, p := range result.Payouts {
		byWorker[p.WorkerID] = p
	}

	assert.True(t, byWorker["wA"].TotalPayout.Equal(money(5000)), "wA gets the whole pool: %s", byWorker["wA"].TotalPayout)
	assert.True(t, byWorker["wB"].TotalPayout.IsZero())
	assert.Equal(t, 0, byWorker["wB"].DaysWorked)
	_, hasIntruder := byWorker["intruder"]
	assert.False(t, hasIntruder, "unrostered workers are excluded from pooled jobs")
}

func TestRecalculate_UnknownStructure_WarnsOnce(t *testing.T) {
	// GIVEN: A job with an unmapped pay structure and two active workers
	// WHEN: Recalculating
	// THEN: Both workers get zero rows and the job warns exactly once

	ctx := context.Background()
	mem := store.NewMemory()
	job := jobConfig("j1", "equity_grant")
	require.NoError(t, mem.SaveJob(ctx, job))
	require.NoError(t, mem.RecordAttendance(ctx, att("w1", "j1", 2, engine.AttendancePresent)))
	require.NoError(t, mem.RecordAttendance(ctx, att("w2", "j1", 2, engine.AttendancePresent)))

	r := newRecalculator(mem, date(2025, time.June, 30))
	result, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)

	require.Len(t, result.Payouts, 2)
	for _, p := range result.Payouts {
		assert.True(t, p.TotalPayout.IsZero())
	}
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, engine.JobID("j1"), result.Warnings[0].JobID)
	assert.Equal(t, engine.PayStructure("equity_grant"), result.Warnings[0].PayStructure)
}

func TestRecalculate_DeliverableOnlyWorkerIncluded(t *testing.T) {
	// A commission worker with deliverables but no attendance rows still
	// gets a payout row.
	ctx := context.Background()
	mem := store.NewMemory()
	job := jobConfig("j1", engine.PayCommission)
	job.CommissionPerItem = money(10)
	require.NoError(t, mem.SaveJob(ctx, job))
	require.NoError(t, mem.RecordDeliverable(ctx, del("w1", "j1", 5, 45)))

	r := newRecalculator(mem, date(2025, time.June, 30))
	result, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)

	require.Len(t, result.Payouts, 1)
	assert.True(t, result.Payouts[0].TotalPayout.Equal(money(450)))
	assert.Equal(t, 0, result.Payouts[0].DaysWorked)
}

func TestRecalculate_FactsOutsidePeriodIgnored(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedFlatJob(t, mem, "j1", 500)
	require.NoError(t, mem.RecordAttendance(ctx, engine.AttendanceRecord{
		WorkerID: "w1", JobID: "j1",
		Date:   date(2025, time.May, 30),
		Status: engine.AttendancePresent,
	}))

	r := newRecalculator(mem, date(2025, time.June, 30))
	result, err := r.Recalculate(ctx, june2025())
	require.NoError(t, err)
	assert.Empty(t, result.Payouts)
}

// =============================================================================
// FAILURE SEMANTICS
// =============================================================================

func TestRecalculate_ReadFailureWritesNothing(t *testing.T) {
	// GIVEN: A store whose attendance read fails
	// WHEN: Recalculating
	// THEN: The run aborts with no result and no rows are persisted

	ctx := context.Background()
	mem := store.NewMemory()
	seedFlatJob(t, mem, "j1", 500)
	require.NoError(t, mem.RecordAttendance(ctx, att("w1", "j1", 2, engine.AttendancePresent)))

	failing := &failingStore{Memory: mem, failAttendance: true}
	r := engine.NewRecalculator(failing)
	r.Now = func() time.Time { return date(2025, time.June, 30).Time() }

	result, err := r.Recalculate(ctx, june2025())

	require.Error(t, err)
	assert.ErrorIs(t, err, errStorage)
	assert.Nil(t, result)

	stored, err := mem.ListPayoutsByPeriod(ctx, june2025().Start)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRecalculate_InsertFailureStillReturnsDisplaySet(t *testing.T) {
	// GIVEN: A store whose payout insert fails
	// WHEN: Recalculating
	// THEN: The full computed display set comes back alongside a WriteError

	ctx := context.Background()
	mem := store.NewMemory()
	seedFlatJob(t, mem, "j1", 500)
	require.NoError(t, mem.RecordAttendance(ctx, att("w1", "j1", 2, engine.AttendancePresent)))

	failing := &failingStore{Memory: mem, failInsert: true}
	r := engine.NewRecalculator(failing)
	r.Now = func() time.Time { return date(2025, time.June, 30).Time() }

	result, err := r.Recalculate(ctx, june2025())

	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrPayoutWrite)
	assert.ErrorIs(t, err, errStorage)

	require.NotNil(t, result)
	require.Len(t, result.Payouts, 1)
	assert.True(t, result.Payouts[0].TotalPayout.Equal(money(500)))
}
