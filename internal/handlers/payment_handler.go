package handlers

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/lifecycle"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/services/payment"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

type PaymentHandler struct {
	Store     store.Store
	Lifecycle *lifecycle.Controller
	Processor *payment.Processor
}

func NewPaymentHandler(st store.Store, lc *lifecycle.Controller, p *payment.Processor) *PaymentHandler {
	return &PaymentHandler{Store: st, Lifecycle: lc, Processor: p}
}

type CreateChargeReq struct {
	JobID string `json:"job_id"`
}

// CreateCharge opens a hosted-checkout charge for a job. The unpaid ->
// pending flip happens before the processor call, so a double-submit loses
// the compare-and-set instead of creating two charges.
func (h *PaymentHandler) CreateCharge(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req CreateChargeReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid job ID"})
	}

	job, err := h.Store.JobByID(c.Context(), jobID)
	if err != nil {
		return fail(c, err)
	}
	if job.HomeownerID != userID {
		return c.Status(403).JSON(fiber.Map{"success": false, "message": "Only the homeowner can pay for this job"})
	}
	if job.Status == models.JobStatusPending {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Job has no contractor yet"})
	}
	if job.Status == models.JobStatusCancelled {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Job is cancelled"})
	}
	if job.PaymentStatus != models.PaymentStatusUnpaid {
		return c.Status(409).JSON(fiber.Map{"success": false, "message": "Payment is already " + string(job.PaymentStatus)})
	}

	amount := job.ActualCost
	if amount == nil {
		amount = job.EstimatedCost
	}
	if amount == nil || *amount <= 0 {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Job has no agreed cost yet"})
	}

	homeowner, err := h.Store.UserByID(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	if _, err := h.Lifecycle.MarkPaymentPending(c.Context(), jobID); err != nil {
		return fail(c, err)
	}

	merchantRef := "JOB-" + job.ID.String()
	charge, err := h.Processor.CreateCharge(c.Context(), merchantRef, *amount, homeowner.Name, homeowner.Email, job.Title)
	if err != nil {
		log.Printf("Payment gateway error for job %s: %v", jobID, err)
		if _, rerr := h.Lifecycle.RevertPaymentPending(c.Context(), jobID); rerr != nil {
			log.Printf("Error reverting payment state for job %s: %v", jobID, rerr)
		}
		return c.Status(503).JSON(fiber.Map{"success": false, "message": "Payment gateway error"})
	}

	record := models.PaymentCharge{
		JobID:       job.ID,
		Reference:   charge.Reference,
		MerchantRef: merchantRef,
		Amount:      charge.Amount,
		CheckoutURL: charge.CheckoutURL,
		Status:      models.ChargeStatusUnpaid,
	}
	if err := h.Store.CreatePaymentCharge(c.Context(), &record); err != nil {
		// The checkout link still works; the webhook correlates via the
		// merchant ref, so losing the audit row is survivable.
		log.Printf("Failed to save payment charge for job %s: %v", jobID, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"checkout_url": charge.CheckoutURL,
			"reference":    charge.Reference,
			"amount":       charge.Amount,
		},
	})
}

type PaymentCallbackPayload struct {
	Reference   string `json:"reference"`
	MerchantRef string `json:"merchant_ref"`
	TotalAmount int64  `json:"total_amount"`
	Status      string `json:"status"` // PAID, EXPIRED, FAILED
	PaidAt      int64  `json:"paid_at"`
	Note        string `json:"note"`
}

// HandleCallback consumes the processor webhook. Correlation runs off the
// merchant ref (JOB-{id}); the charge row is audit only. Repeated PAID
// callbacks are no-ops.
func (h *PaymentHandler) HandleCallback(c *fiber.Ctx) error {
	signature := c.Get("X-Callback-Signature")
	if signature == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Missing signature"})
	}

	body := c.Body()
	if !h.Processor.ValidateSignature(signature, body) {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid signature"})
	}

	var payload PaymentCallbackPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid payload"})
	}

	// Audit row first.
	if charge, err := h.Store.PaymentChargeByReference(c.Context(), payload.Reference); err != nil {
		log.Printf("Charge not found for ref %s", payload.Reference)
	} else {
		charge.Status = models.ChargeStatus(payload.Status)
		if payload.PaidAt > 0 {
			t := time.Unix(payload.PaidAt, 0)
			charge.PaidAt = &t
		}
		if err := h.Store.UpdatePaymentCharge(c.Context(), charge); err != nil {
			log.Printf("Error updating charge %s: %v", payload.Reference, err)
		}
	}

	rawID := strings.TrimPrefix(payload.MerchantRef, "JOB-")
	jobID, err := uuid.Parse(rawID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "message": "Invalid merchant ref"})
	}

	switch payload.Status {
	case "PAID":
		if _, err := h.Lifecycle.MarkPaid(c.Context(), jobID); err != nil {
			log.Printf("Error marking job %s paid: %v", jobID, err)
			return c.JSON(fiber.Map{"success": false, "message": "Job not found, ignored"})
		}
	case "FAILED", "EXPIRED":
		// Let the homeowner start over.
		if _, err := h.Lifecycle.RevertPaymentPending(c.Context(), jobID); err != nil {
			log.Printf("Payment %s for job %s: revert skipped: %v", payload.Status, jobID, err)
		}
	}

	return c.JSON(fiber.Map{"success": true})
}
