package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/lifecycle"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

type QuoteHandler struct {
	Store     store.Store
	Lifecycle *lifecycle.Controller
}

func NewQuoteHandler(st store.Store, lc *lifecycle.Controller) *QuoteHandler {
	return &QuoteHandler{Store: st, Lifecycle: lc}
}

type QuoteResponse struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	ContractorID string    `json:"contractor_id"`
	Amount       int64     `json:"amount"`
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`

	Contractor *UserMini `json:"contractor,omitempty"`
}

func toQuoteResponse(q *models.Quote) QuoteResponse {
	return QuoteResponse{
		ID:           q.ID.String(),
		JobID:        q.JobID.String(),
		ContractorID: q.ContractorID.String(),
		Amount:       q.Amount,
		Message:      q.Message,
		Status:       string(q.Status),
		CreatedAt:    q.CreatedAt,
		Contractor:   toUserMini(q.Contractor),
	}
}

type SubmitQuoteReq struct {
	Amount  int64  `json:"amount"` // cents
	Message string `json:"message"`
}

// Submit records a contractor's bid on a pending job.
func (h *QuoteHandler) Submit(c *fiber.Ctx) error {
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

	var req SubmitQuoteReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	quote, err := h.Lifecycle.SubmitQuote(c.Context(), userID, jobID, req.Amount, req.Message)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    toQuoteResponse(quote),
	})
}

// ListForJob returns a job's quotes. The homeowner and admins see all of
// them; a contractor only ever sees their own bid.
func (h *QuoteHandler) ListForJob(c *fiber.Ctx) error {
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

	role := c.Locals("role")
	if job.HomeownerID == userID || role == string(models.RoleAdmin) {
		quotes, err := h.Store.QuotesByJob(c.Context(), jobID)
		if err != nil {
			return fail(c, err)
		}
		out := make([]QuoteResponse, 0, len(quotes))
		for i := range quotes {
			out = append(out, toQuoteResponse(&quotes[i]))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    out,
		})
	}

	if role == string(models.RoleContractor) {
		quote, err := h.Store.QuoteByJobAndContractor(c.Context(), jobID, userID)
		if errs.KindOf(err) == errs.KindNotFound {
			return c.JSON(fiber.Map{
				"success": true,
				"data":    []QuoteResponse{},
			})
		}
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    []QuoteResponse{toQuoteResponse(quote)},
		})
	}

	return c.Status(403).JSON(fiber.Map{
		"success": false,
		"message": "You are not a party to this job",
	})
}

// Accept assigns the quoting contractor, pending -> matched. Exactly one
// accept wins when several race; the rest get the invalid-transition reply.
func (h *QuoteHandler) Accept(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	quoteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid quote ID",
		})
	}

	var job *models.Job
	err = withConflictRetry(func() error {
		job, err = h.Lifecycle.AcceptQuote(c.Context(), userID, quoteID)
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Quote accepted",
		"data":    toJobResponse(job),
	})
}

// Reject closes a quote; the job keeps collecting others.
func (h *QuoteHandler) Reject(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	quoteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid quote ID",
		})
	}

	quote, err := h.Lifecycle.RejectQuote(c.Context(), userID, quoteID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Quote rejected",
		"data":    toQuoteResponse(quote),
	})
}
