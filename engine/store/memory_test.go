package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payout-engine/engine"
	"github.com/warp/payout-engine/engine/store"
)

func pending(id, worker, job string, total int64) engine.PayoutRecord {
	return engine.PayoutRecord{
		ID:          id,
		WorkerID:    engine.WorkerID(worker),
		JobID:       engine.JobID(job),
		PeriodStart: engine.NewDate(2025, time.June, 1),
		PeriodEnd:   engine.NewDate(2025, time.June, 30),
		TotalPayout: decimal.NewFromInt(total),
		Status:      engine.StatusPending,
	}
}

func TestMemory_InsertPayouts_ConflictSkipped(t *testing.T) {
	// The memory store mirrors the SQL adapters' ON CONFLICT DO NOTHING
	// semantics so engine tests exercise the same contract.
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, mem.InsertPayouts(ctx, []engine.PayoutRecord{pending("p1", "w1", "j1", 2000)}))
	require.NoError(t, mem.InsertPayouts(ctx, []engine.PayoutRecord{
		pending("p2", "w1", "j1", 9999),
		pending("p3", "w2", "j1", 1500),
	}))

	records, err := mem.ListPayoutsByPeriod(ctx, engine.NewDate(2025, time.June, 1))
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.NotEqual(t, "p2", rec.ID, "conflicting row must be skipped")
	}
}

func TestMemory_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.InsertPayouts(ctx, []engine.PayoutRecord{pending("p1", "w1", "j1", 2000)}))

	require.NoError(t, mem.UpdatePayoutStatus(ctx, "p1", engine.StatusApproved))

	err := mem.UpdatePayoutStatus(ctx, "p1", engine.StatusApproved)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)

	err = mem.UpdatePayoutStatus(ctx, "missing", engine.StatusApproved)
	assert.ErrorIs(t, err, engine.ErrPayoutNotFound)

	got, err := mem.GetPayout(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusApproved, got.Status)
}

func TestMemory_ListJobConfigs_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	for _, id := range []engine.JobID{"j3", "j1", "j2"} {
		require.NoError(t, mem.SaveJob(ctx, engine.JobPayConfig{JobID: id, PayStructure: engine.PayFlat}))
	}
	// Re-saving must not duplicate or reorder.
	require.NoError(t, mem.SaveJob(ctx, engine.JobPayConfig{JobID: "j1", PayStructure: engine.PayHourly}))

	configs, err := mem.ListJobConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, engine.JobID("j3"), configs[0].JobID)
	assert.Equal(t, engine.PayHourly, configs[1].PayStructure)
}
