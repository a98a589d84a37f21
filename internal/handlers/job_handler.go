package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/lifecycle"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

type JobHandler struct {
	Store     store.Store
	Lifecycle *lifecycle.Controller
}

func NewJobHandler(st store.Store, lc *lifecycle.Controller) *JobHandler {
	return &JobHandler{Store: st, Lifecycle: lc}
}

// JobResponse is the response DTO for a job.
type JobResponse struct {
	ID           string  `json:"id"`
	HomeownerID  string  `json:"homeowner_id"`
	ContractorID *string `json:"contractor_id,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description"`
	TradeID     string `json:"trade_id"`

	Location string   `json:"location"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`

	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`

	PreferredDate *time.Time `json:"preferred_date,omitempty"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`

	EstimatedCost *int64 `json:"estimated_cost,omitempty"`
	ActualCost    *int64 `json:"actual_cost,omitempty"`

	CompletionRequestedAt *time.Time `json:"completion_requested_at,omitempty"`
	FlaggedAt             *time.Time `json:"flagged_at,omitempty"`
	CancelledBy           *string    `json:"cancelled_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toJobResponse(j *models.Job) JobResponse {
	resp := JobResponse{
		ID:                    j.ID.String(),
		HomeownerID:           j.HomeownerID.String(),
		Title:                 j.Title,
		Description:           j.Description,
		TradeID:               j.TradeID.String(),
		Location:              j.Location,
		Lat:                   j.Lat,
		Lng:                   j.Lng,
		Status:                string(j.Status),
		PaymentStatus:         string(j.PaymentStatus),
		PreferredDate:         j.PreferredDate,
		ScheduledFor:          j.ScheduledFor,
		EstimatedCost:         j.EstimatedCost,
		ActualCost:            j.ActualCost,
		CompletionRequestedAt: j.CompletionRequestedAt,
		FlaggedAt:             j.FlaggedAt,
		CreatedAt:             j.CreatedAt,
		UpdatedAt:             j.UpdatedAt,
	}
	if j.ContractorID != nil {
		s := j.ContractorID.String()
		resp.ContractorID = &s
	}
	if j.CancelledBy != nil {
		s := j.CancelledBy.String()
		resp.CancelledBy = &s
	}
	return resp
}

type CreateJobReq struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	TradeID       string   `json:"trade_id"`
	Location      string   `json:"location"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	PreferredDate string   `json:"preferred_date"` // RFC3339 or 2006-01-02, empty = whenever
	EstimatedCost *int64   `json:"estimated_cost"`
}

// Create posts a new job. The matcher runs synchronously; the ranked matches
// come back in the response so the homeowner sees who was notified.
func (h *JobHandler) Create(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req CreateJobReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	tradeID, err := uuid.Parse(req.TradeID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid trade ID",
		})
	}

	var preferred *time.Time
	if req.PreferredDate != "" {
		t, err := parseDate(req.PreferredDate)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid preferred date",
			})
		}
		preferred = &t
	}

	job, matches, err := h.Lifecycle.CreateJob(c.Context(), userID, lifecycle.CreateJobInput{
		Title:         req.Title,
		Description:   req.Description,
		TradeID:       tradeID,
		Location:      req.Location,
		Lat:           req.Lat,
		Lng:           req.Lng,
		PreferredDate: preferred,
		EstimatedCost: req.EstimatedCost,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"job":     toJobResponse(job),
			"matches": matches,
		},
	})
}

// List returns the caller's jobs: posted ones for homeowners, assigned ones
// for contractors.
func (h *JobHandler) List(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var jobs []models.Job
	switch c.Locals("role") {
	case string(models.RoleHomeowner):
		jobs, err = h.Store.JobsByHomeowner(c.Context(), userID)
	case string(models.RoleContractor):
		jobs, err = h.Store.JobsByContractor(c.Context(), userID)
	default:
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Use the admin endpoints",
		})
	}
	if err != nil {
		return fail(c, err)
	}

	out := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

// Get returns one job. Only the job's parties and admins can see it.
func (h *JobHandler) Get(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid job ID",
		})
	}

	job, err := h.Store.JobByID(c.Context(), jobID)
	if err != nil {
		return fail(c, err)
	}

	isParty := job.HomeownerID == userID ||
		(job.ContractorID != nil && *job.ContractorID == userID)
	if !isParty && c.Locals("role") != string(models.RoleAdmin) {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "You are not a party to this job",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toJobResponse(job),
	})
}

type ScheduleReq struct {
	ScheduledFor string `json:"scheduled_for"` // RFC3339
}

// Schedule confirms the visit date, matched -> scheduled.
func (h *JobHandler) Schedule(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid job ID",
		})
	}

	var req ScheduleReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	when, err := parseDate(req.ScheduledFor)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid scheduled date",
		})
	}

	var job *models.Job
	err = withConflictRetry(func() error {
		job, err = h.Lifecycle.Schedule(c.Context(), userID, jobID, when)
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job scheduled",
		"data":    toJobResponse(job),
	})
}

// Start marks the contractor on site, scheduled -> in_progress.
func (h *JobHandler) Start(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid job ID",
		})
	}

	var job *models.Job
	err = withConflictRetry(func() error {
		job, err = h.Lifecycle.Start(c.Context(), userID, jobID)
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job started",
		"data":    toJobResponse(job),
	})
}

// RequestCompletion is the contractor's half of the completion handshake.
func (h *JobHandler) RequestCompletion(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid job ID",
		})
	}

	var job *models.Job
	err = withConflictRetry(func() error {
		job, err = h.Lifecycle.RequestCompletion(c.Context(), userID, jobID)
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Completion requested",
		"data":    toJobResponse(job),
	})
}

type ConfirmCompletionReq struct {
	ActualCost *int64 `json:"actual_cost"`
}

// ConfirmCompletion is the homeowner's half: in_progress -> completed.
func (h *JobHandler) ConfirmCompletion(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid job ID",
		})
	}

	var req ConfirmCompletionReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request body",
			})
		}
	}

	var job *models.Job
	err = withConflictRetry(func() error {
		job, err = h.Lifecycle.ConfirmCompletion(c.Context(), userID, jobID, req.ActualCost)
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job completed",
		"data":    toJobResponse(job),
	})
}

// Cancel applies the per-state cancellation policy.
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid job ID",
		})
	}

	var job *models.Job
	err = withConflictRetry(func() error {
		job, err = h.Lifecycle.Cancel(c.Context(), userID, jobID)
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job cancelled",
		"data":    toJobResponse(job),
	})
}

// parseDate accepts RFC3339 timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
