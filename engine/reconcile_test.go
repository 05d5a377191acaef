package engine_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payout-engine/engine"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("payout-%d", n)
	}
}

func breakdown(worker, job string, total int64) engine.PayoutBreakdown {
	return engine.PayoutBreakdown{
		WorkerID:    engine.WorkerID(worker),
		JobID:       engine.JobID(job),
		DaysWorked:  5,
		TotalDays:   20,
		BasePay:     money(total),
		TotalPayout: money(total),
	}
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcile_AllNew(t *testing.T) {
	// GIVEN: Two computed breakdowns and no persisted rows
	// WHEN: Reconciling
	// THEN: Both become pending rows, and display equals the inserts

	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	res := engine.Reconcile(
		[]engine.PayoutBreakdown{breakdown("w1", "j1", 2000), breakdown("w2", "j1", 1500)},
		nil, june2025(), sequentialIDs(), now,
	)

	require.Len(t, res.ToInsert, 2)
	assert.Equal(t, res.ToInsert, res.ToDisplay)
	for _, rec := range res.ToInsert {
		assert.Equal(t, engine.StatusPending, rec.Status)
		assert.Equal(t, june2025().Start, rec.PeriodStart)
		assert.Equal(t, june2025().End, rec.PeriodEnd)
		assert.Equal(t, now, rec.CreatedAt)
		assert.NotEmpty(t, rec.ID)
	}
}

func TestReconcile_ExistingRowWins(t *testing.T) {
	// GIVEN: An approved row for (w1, j1, June) with total 2000, and a fresh
	//        computation for the same key with total 9999
	// WHEN: Reconciling
	// THEN: Nothing is inserted and the display keeps the stored amounts

	existing := engine.PayoutRecord{
		ID:          "stored-1",
		WorkerID:    "w1",
		JobID:       "j1",
		PeriodStart: june2025().Start,
		PeriodEnd:   june2025().End,
		TotalPayout: money(2000),
		Status:      engine.StatusApproved,
	}

	res := engine.Reconcile(
		[]engine.PayoutBreakdown{breakdown("w1", "j1", 9999)},
		[]engine.PayoutRecord{existing},
		june2025(), sequentialIDs(), time.Now(),
	)

	assert.Empty(t, res.ToInsert)
	require.Len(t, res.ToDisplay, 1)
	assert.Equal(t, "stored-1", res.ToDisplay[0].ID)
	assert.True(t, res.ToDisplay[0].TotalPayout.Equal(money(2000)))
	assert.Equal(t, engine.StatusApproved, res.ToDisplay[0].Status)
}

func TestReconcile_PendingRowAlsoFrozen(t *testing.T) {
	// The freeze applies to every stored status, pending included. A row
	// under review must not change underneath the reviewer.
	existing := engine.PayoutRecord{
		ID:          "stored-1",
		WorkerID:    "w1",
		JobID:       "j1",
		PeriodStart: june2025().Start,
		TotalPayout: money(100),
		Status:      engine.StatusPending,
	}

	res := engine.Reconcile(
		[]engine.PayoutBreakdown{breakdown("w1", "j1", 500)},
		[]engine.PayoutRecord{existing},
		june2025(), sequentialIDs(), time.Now(),
	)

	assert.Empty(t, res.ToInsert)
	assert.True(t, res.ToDisplay[0].TotalPayout.Equal(money(100)))
}

func TestReconcile_MixedNewAndExisting(t *testing.T) {
	existing := engine.PayoutRecord{
		ID: "stored-1", WorkerID: "w1", JobID: "j1",
		PeriodStart: june2025().Start, TotalPayout: money(2000),
		Status: engine.StatusProcessed,
	}

	res := engine.Reconcile(
		[]engine.PayoutBreakdown{breakdown("w1", "j1", 2100), breakdown("w2", "j1", 1500)},
		[]engine.PayoutRecord{existing},
		june2025(), sequentialIDs(), time.Now(),
	)

	require.Len(t, res.ToInsert, 1)
	assert.Equal(t, engine.WorkerID("w2"), res.ToInsert[0].WorkerID)
	require.Len(t, res.ToDisplay, 2)
}

func TestReconcile_Idempotent(t *testing.T) {
	// GIVEN: A first reconciliation whose inserts were persisted
	// WHEN: Reconciling the same computation against those rows
	// THEN: The second run inserts nothing and displays the same set

	computed := []engine.PayoutBreakdown{breakdown("w1", "j1", 2000), breakdown("w2", "j2", 450)}
	now := time.Now()

	first := engine.Reconcile(computed, nil, june2025(), sequentialIDs(), now)
	second := engine.Reconcile(computed, first.ToInsert, june2025(), sequentialIDs(), now)

	assert.Empty(t, second.ToInsert)
	assert.Equal(t, first.ToDisplay, second.ToDisplay)
}

func TestReconcile_DisplaySorted(t *testing.T) {
	res := engine.Reconcile(
		[]engine.PayoutBreakdown{
			breakdown("w2", "j2", 1),
			breakdown("w1", "j1", 1),
			breakdown("w2", "j1", 1),
		},
		nil, june2025(), sequentialIDs(), time.Now(),
	)

	var keys []string
	for _, rec := range res.ToDisplay {
		keys = append(keys, string(rec.JobID)+"/"+string(rec.WorkerID))
	}
	assert.Equal(t, []string{"j1/w1", "j1/w2", "j2/w2"}, keys)
}
