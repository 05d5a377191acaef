/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract. Amounts cross
  the wire as float64; the engine keeps decimals internally and any currency
  rounding stays a presentation concern of the consuming UI.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import (
	"time"

	"github.com/warp/payout-engine/engine"
)

// =============================================================================
// JOBS
// =============================================================================

// JobDTO represents a job's pay configuration in API responses.
type JobDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	PayStructure      string   `json:"pay_structure"`
	FlatRate          float64  `json:"flat_rate"`
	HourlyRate        float64  `json:"hourly_rate"`
	CommissionPerItem float64  `json:"commission_per_item"`
	TargetDeliverable float64  `json:"target_deliverable"`
	ExcludedDays      []string `json:"excluded_days"`
}

// CreateJobRequest is the job CRUD adapter's write payload.
type CreateJobRequest struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	PayStructure      string   `json:"pay_structure"`
	FlatRate          float64  `json:"flat_rate"`
	HourlyRate        float64  `json:"hourly_rate"`
	CommissionPerItem float64  `json:"commission_per_item"`
	TargetDeliverable float64  `json:"target_deliverable"`
	ExcludedDays      []string `json:"excluded_days"`
}

// AssignWorkerRequest adds a worker to a job's roster.
type AssignWorkerRequest struct {
	WorkerID string `json:"worker_id"`
}

// =============================================================================
// FACT RECORDING
// =============================================================================

// RecordAttendanceRequest is one attendance fact.
type RecordAttendanceRequest struct {
	WorkerID string `json:"worker_id"`
	JobID    string `json:"job_id"`
	Date     string `json:"date"`
	Status   string `json:"status"`
}

// RecordDeliverableRequest is one deliverable fact. An empty worker_id marks
// a team-level record for pool-commission jobs.
type RecordDeliverableRequest struct {
	WorkerID string  `json:"worker_id,omitempty"`
	JobID    string  `json:"job_id"`
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

// =============================================================================
// PAYOUTS
// =============================================================================

// RecalculateRequest triggers a payout recalculation. All fields optional;
// the default period is the current calendar month.
type RecalculateRequest struct {
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
	AsOf        string `json:"as_of,omitempty"`
}

// PayoutDTO represents one payout row.
type PayoutDTO struct {
	ID                 string  `json:"id"`
	WorkerID           string  `json:"worker_id"`
	JobID              string  `json:"job_id"`
	PeriodStart        string  `json:"period_start"`
	PeriodEnd          string  `json:"period_end"`
	DaysWorked         int     `json:"days_worked"`
	TotalDays          int     `json:"total_days"`
	Deliverables       float64 `json:"deliverables"`
	TargetDeliverables float64 `json:"target_deliverables"`
	BasePay            float64 `json:"base_pay"`
	Commission         float64 `json:"commission"`
	TotalPayout        float64 `json:"total_payout"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

// WarningDTO flags a job whose pay structure matched no calculation branch.
type WarningDTO struct {
	JobID        string `json:"job_id"`
	PayStructure string `json:"pay_structure"`
	Message      string `json:"message"`
}

// RecalculationResponse is the payload of a recalculation run.
type RecalculationResponse struct {
	PeriodStart string       `json:"period_start"`
	PeriodEnd   string       `json:"period_end"`
	Payouts     []PayoutDTO  `json:"payouts"`
	Inserted    int          `json:"inserted"`
	Warnings    []WarningDTO `json:"warnings,omitempty"`

	// WriteError is set when computed rows could not all be persisted; the
	// payout list above is still the complete display set.
	WriteError string `json:"write_error,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func jobDTO(c engine.JobPayConfig) JobDTO {
	excluded := c.ExcludedWeekdays.Names()
	if excluded == nil {
		excluded = []string{}
	}
	return JobDTO{
		ID:                string(c.JobID),
		Name:              c.Name,
		PayStructure:      string(c.PayStructure),
		FlatRate:          c.FlatRate.InexactFloat64(),
		HourlyRate:        c.HourlyRate.InexactFloat64(),
		CommissionPerItem: c.CommissionPerItem.InexactFloat64(),
		TargetDeliverable: c.TargetDeliverable.InexactFloat64(),
		ExcludedDays:      excluded,
	}
}

func payoutDTO(p engine.PayoutRecord) PayoutDTO {
	dto := PayoutDTO{
		ID:                 p.ID,
		WorkerID:           string(p.WorkerID),
		JobID:              string(p.JobID),
		PeriodStart:        p.PeriodStart.String(),
		PeriodEnd:          p.PeriodEnd.String(),
		DaysWorked:         p.DaysWorked,
		TotalDays:          p.TotalDays,
		Deliverables:       p.Deliverables.InexactFloat64(),
		TargetDeliverables: p.TargetDeliverables.InexactFloat64(),
		BasePay:            p.BasePay.InexactFloat64(),
		Commission:         p.Commission.InexactFloat64(),
		TotalPayout:        p.TotalPayout.InexactFloat64(),
		Status:             string(p.Status),
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func payoutDTOs(records []engine.PayoutRecord) []PayoutDTO {
	dtos := make([]PayoutDTO, len(records))
	for i, p := range records {
		dtos[i] = payoutDTO(p)
	}
	return dtos
}

func warningDTOs(warnings []engine.Warning) []WarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	dtos := make([]WarningDTO, len(warnings))
	for i, w := range warnings {
		dtos[i] = WarningDTO{
			JobID:        string(w.JobID),
			PayStructure: string(w.PayStructure),
			Message:      w.Message,
		}
	}
	return dtos
}
