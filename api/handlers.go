/*
handlers.go - HTTP API handlers for the payout engine

PURPOSE:
  Exposes the payout engine to the surrounding dashboard. Handles HTTP
  request/response and JSON serialization, delegating to the engine and the
  store. The engine itself has no protocol of its own; this layer is the
  thin glue the dashboard calls.

ENDPOINTS:
  Payouts:
    POST   /api/payouts/recalculate   Run the engine for a period
    GET    /api/payouts               List stored rows for a period
    POST   /api/payouts/{id}/approve  Approval workflow: pending -> approved
    POST   /api/payouts/{id}/process  Approval workflow: approved -> processed

  Collaborator adapters (job CRUD / recording workflows):
    GET    /api/jobs
    POST   /api/jobs
    POST   /api/jobs/{id}/workers
    POST   /api/attendance
    POST   /api/deliverables

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (invalid status transition)
  - 500: Internal errors
  - 502: Computed but not (fully) persisted - the response still carries
         the complete display set, per the engine's write-failure contract
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payout-engine/engine"
)

// Store is everything the API needs from persistence: the engine's read/
// write boundary plus the collaborator adapters.
type Store interface {
	engine.Store

	SaveJob(ctx context.Context, config engine.JobPayConfig) error
	GetJobConfig(ctx context.Context, job engine.JobID) (engine.JobPayConfig, error)
	AssignWorker(ctx context.Context, job engine.JobID, worker engine.WorkerID) error
	RecordAttendance(ctx context.Context, record engine.AttendanceRecord) error
	RecordDeliverable(ctx context.Context, record engine.DeliverableRecord) error
	GetPayout(ctx context.Context, id string) (engine.PayoutRecord, error)
	UpdatePayoutStatus(ctx context.Context, id string, status engine.PayoutStatus) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Recalc *engine.Recalculator
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store Store) *Handler {
	return &Handler{
		Store:  store,
		Recalc: engine.NewRecalculator(store),
	}
}

// =============================================================================
// PAYOUT HANDLERS
// =============================================================================

// Recalculate runs the engine for the requested period (default: current
// calendar month) and returns the full display set.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	period := engine.MonthOf(engine.Today())
	if req.PeriodStart != "" {
		start, err := engine.ParseDate(req.PeriodStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period_start", err)
			return
		}
		period = engine.MonthOf(start)
		period.Start = start
	}
	if req.PeriodEnd != "" {
		end, err := engine.ParseDate(req.PeriodEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period_end", err)
			return
		}
		period.End = end
	}

	recalc := h.Recalc
	if req.AsOf != "" {
		asOf, err := engine.ParseDate(req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of", err)
			return
		}
		clocked := *h.Recalc
		clocked.Now = func() time.Time { return asOf.Time() }
		recalc = &clocked
	}

	result, err := recalc.Recalculate(r.Context(), period)
	if err != nil && result == nil {
		writeError(w, http.StatusInternalServerError, "Recalculation failed", err)
		return
	}

	resp := RecalculationResponse{
		PeriodStart: result.Period.Start.String(),
		PeriodEnd:   result.Period.End.String(),
		Payouts:     payoutDTOs(result.Payouts),
		Inserted:    len(result.Inserted),
		Warnings:    warningDTOs(result.Warnings),
	}

	status := http.StatusOK
	if err != nil {
		// Write failure: the computation survives, persistence didn't.
		resp.WriteError = err.Error()
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

// ListPayouts returns stored payout rows for a period (default: current
// calendar month).
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	periodStart := engine.MonthOf(engine.Today()).Start
	if raw := r.URL.Query().Get("period_start"); raw != "" {
		var err error
		periodStart, err = engine.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period_start", err)
			return
		}
	}

	records, err := h.Store.ListPayoutsByPeriod(r.Context(), periodStart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payouts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period_start": periodStart.String(),
		"payouts":      payoutDTOs(records),
	})
}

// ApprovePayout moves a payout pending -> approved on behalf of the
// approval workflow.
func (h *Handler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, engine.StatusApproved)
}

// ProcessPayout moves a payout approved -> processed.
func (h *Handler) ProcessPayout(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, engine.StatusProcessed)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to engine.PayoutStatus) {
	id := chi.URLParam(r, "id")

	err := h.Store.UpdatePayoutStatus(r.Context(), id, to)
	switch {
	case errors.Is(err, engine.ErrPayoutNotFound):
		writeError(w, http.StatusNotFound, "Payout not found", err)
		return
	case errors.Is(err, engine.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Invalid status transition", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to update status", err)
		return
	}

	payout, err := h.Store.GetPayout(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payout", err)
		return
	}
	writeJSON(w, http.StatusOK, payoutDTO(payout))
}

// =============================================================================
// JOB HANDLERS (job CRUD adapter)
// =============================================================================

// ListJobs returns all job pay configurations.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Store.ListJobConfigs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}
	dtos := make([]JobDTO, len(configs))
	for i, c := range configs {
		dtos[i] = jobDTO(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": dtos})
}

// CreateJob creates or replaces a job pay configuration.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	config := engine.JobPayConfig{
		JobID:             engine.JobID(req.ID),
		Name:              req.Name,
		PayStructure:      engine.PayStructure(req.PayStructure),
		FlatRate:          decimal.NewFromFloat(req.FlatRate),
		HourlyRate:        decimal.NewFromFloat(req.HourlyRate),
		CommissionPerItem: decimal.NewFromFloat(req.CommissionPerItem),
		TargetDeliverable: decimal.NewFromFloat(req.TargetDeliverable),
		ExcludedWeekdays:  engine.ParseWeekdays(req.ExcludedDays),
	}
	if err := h.Store.SaveJob(r.Context(), config); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save job", err)
		return
	}
	writeJSON(w, http.StatusCreated, jobDTO(config))
}

// AssignWorker adds a worker to the job's roster. Roster membership is what
// includes a worker in pool-commission calculations.
func (h *Handler) AssignWorker(w http.ResponseWriter, r *http.Request) {
	jobID := engine.JobID(chi.URLParam(r, "id"))

	var req AssignWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.WorkerID == "" {
		writeError(w, http.StatusBadRequest, "worker_id is required", nil)
		return
	}

	if _, err := h.Store.GetJobConfig(r.Context(), jobID); err != nil {
		if errors.Is(err, engine.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load job", err)
		return
	}

	if err := h.Store.AssignWorker(r.Context(), jobID, engine.WorkerID(req.WorkerID)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assign worker", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"job_id":    string(jobID),
		"worker_id": req.WorkerID,
	})
}

// =============================================================================
// FACT RECORDING HANDLERS (recording workflow adapters)
// =============================================================================

// RecordAttendance stores one attendance fact.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req RecordAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.WorkerID == "" || req.JobID == "" {
		writeError(w, http.StatusBadRequest, "worker_id and job_id are required", nil)
		return
	}

	status := engine.AttendanceStatus(req.Status)
	switch status {
	case engine.AttendancePresent, engine.AttendanceAbsent, engine.AttendancePartial:
	default:
		writeError(w, http.StatusBadRequest, "status must be present, absent, or partial", nil)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	record := engine.AttendanceRecord{
		WorkerID: engine.WorkerID(req.WorkerID),
		JobID:    engine.JobID(req.JobID),
		Date:     date,
		Status:   status,
	}
	if err := h.Store.RecordAttendance(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record attendance", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// RecordDeliverable stores one deliverable fact. Omitting worker_id records
// a team-level quantity for pool-commission jobs.
func (h *Handler) RecordDeliverable(w http.ResponseWriter, r *http.Request) {
	var req RecordDeliverableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required", nil)
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must be non-negative", nil)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	record := engine.DeliverableRecord{
		WorkerID: engine.WorkerID(req.WorkerID),
		JobID:    engine.JobID(req.JobID),
		Date:     date,
		Quantity: decimal.NewFromFloat(req.Quantity),
	}
	if err := h.Store.RecordDeliverable(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record deliverable", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
