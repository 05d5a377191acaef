// Package store provides an in-memory Store implementation (for testing/dev).
package store

import (
	"context"
	"sync"

	"github.com/warp/payout-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation of the persistence boundary
// =============================================================================

// Memory mirrors the SQL adapters' semantics, including the uniqueness
// guard on (worker_id, job_id, period_start): a conflicting payout insert
// is skipped, never an error.
type Memory struct {
	mu           sync.RWMutex
	jobs         map[engine.JobID]engine.JobPayConfig
	jobOrder     []engine.JobID
	assignments  []engine.Assignment
	attendance   []engine.AttendanceRecord
	deliverables []engine.DeliverableRecord
	payouts      []engine.PayoutRecord
	payoutKeys   map[payoutKey]bool
}

type payoutKey struct {
	Worker      engine.WorkerID
	Job         engine.JobID
	PeriodStart engine.Date
}

func NewMemory() *Memory {
	return &Memory{
		jobs:       make(map[engine.JobID]engine.JobPayConfig),
		payoutKeys: make(map[payoutKey]bool),
	}
}

// =============================================================================
// WRITES - Recording workflow / job CRUD adapters
// =============================================================================

// SaveJob creates or replaces a job pay configuration.
func (m *Memory) SaveJob(_ context.Context, config engine.JobPayConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[config.JobID]; !ok {
		m.jobOrder = append(m.jobOrder, config.JobID)
	}
	m.jobs[config.JobID] = config
	return nil
}

// AssignWorker adds a worker to a job's roster. Idempotent.
func (m *Memory) AssignWorker(_ context.Context, job engine.JobID, worker engine.WorkerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.JobID == job && a.WorkerID == worker {
			return nil
		}
	}
	m.assignments = append(m.assignments, engine.Assignment{JobID: job, WorkerID: worker})
	return nil
}

// RecordAttendance appends an attendance fact.
func (m *Memory) RecordAttendance(_ context.Context, record engine.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance = append(m.attendance, record)
	return nil
}

// RecordDeliverable appends a deliverable fact.
func (m *Memory) RecordDeliverable(_ context.Context, record engine.DeliverableRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliverables = append(m.deliverables, record)
	return nil
}

// =============================================================================
// ENGINE READS
// =============================================================================

func (m *Memory) ListJobConfigs(_ context.Context) ([]engine.JobPayConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	configs := make([]engine.JobPayConfig, 0, len(m.jobOrder))
	for _, id := range m.jobOrder {
		configs = append(configs, m.jobs[id])
	}
	return configs, nil
}

func (m *Memory) GetJobConfig(_ context.Context, job engine.JobID) (engine.JobPayConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	config, ok := m.jobs[job]
	if !ok {
		return engine.JobPayConfig{}, engine.ErrJobNotFound
	}
	return config, nil
}

func (m *Memory) ListAttendance(_ context.Context, period engine.Period) ([]engine.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []engine.AttendanceRecord
	for _, r := range m.attendance {
		if period.Contains(r.Date) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) ListDeliverables(_ context.Context, period engine.Period) ([]engine.DeliverableRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []engine.DeliverableRecord
	for _, r := range m.deliverables {
		if period.Contains(r.Date) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) ListAssignments(_ context.Context) ([]engine.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]engine.Assignment(nil), m.assignments...), nil
}

func (m *Memory) ListPayoutsByPeriod(_ context.Context, periodStart engine.Date) ([]engine.PayoutRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []engine.PayoutRecord
	for _, p := range m.payouts {
		if p.PeriodStart.Equal(periodStart) {
			result = append(result, p)
		}
	}
	return result, nil
}

// =============================================================================
// PAYOUT WRITES
// =============================================================================

// InsertPayouts appends new payout rows, skipping any that conflict on
// (worker_id, job_id, period_start). Matches the SQL adapters'
// ON CONFLICT DO NOTHING behavior.
func (m *Memory) InsertPayouts(_ context.Context, records []engine.PayoutRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		k := payoutKey{Worker: rec.WorkerID, Job: rec.JobID, PeriodStart: rec.PeriodStart}
		if m.payoutKeys[k] {
			continue
		}
		m.payoutKeys[k] = true
		m.payouts = append(m.payouts, rec)
	}
	return nil
}

func (m *Memory) GetPayout(_ context.Context, id string) (engine.PayoutRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payouts {
		if p.ID == id {
			return p, nil
		}
	}
	return engine.PayoutRecord{}, engine.ErrPayoutNotFound
}

// UpdatePayoutStatus performs the approval workflow's single capability: a
// validated status write by id. The engine never calls this.
func (m *Memory) UpdatePayoutStatus(_ context.Context, id string, status engine.PayoutStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.payouts {
		if p.ID != id {
			continue
		}
		if !p.Status.CanTransitionTo(status) {
			return &engine.TransitionError{PayoutID: id, From: p.Status, To: status}
		}
		m.payouts[i].Status = status
		return nil
	}
	return engine.ErrPayoutNotFound
}
