package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/messaging"
)

type MessageHandler struct {
	Svc *messaging.Service
}

func NewMessageHandler(svc *messaging.Service) *MessageHandler {
	return &MessageHandler{Svc: svc}
}

type SendMessageReq struct {
	JobID      string `json:"job_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// Send posts a message into a job conversation. The service enforces that
// both ends are parties to the job.
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid job ID",
		})
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid receiver ID",
		})
	}

	msg, err := h.Svc.PostMessage(c.Context(), userID, jobID, receiverID, req.Content)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

// Thread returns one job conversation, oldest first. The counterpart is
// required so a homeowner with several quoting contractors gets one thread
// each.
func (h *MessageHandler) Thread(c *fiber.Ctx) error {
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
	counterpartID, err := uuid.Parse(c.Query("with"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Query param 'with' must be a user ID",
		})
	}

	msgs, err := h.Svc.Thread(c.Context(), userID, jobID, counterpartID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msgs,
	})
}

// MarkRead flips one received message to read. Idempotent.
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	messageID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid message ID",
		})
	}

	msg, err := h.Svc.MarkRead(c.Context(), userID, messageID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

// MarkThreadRead marks every unread message the caller received in one
// thread. Returns how many actually flipped.
func (h *MessageHandler) MarkThreadRead(c *fiber.Ctx) error {
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
	counterpartID, err := uuid.Parse(c.Query("with"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Query param 'with' must be a user ID",
		})
	}

	n, err := h.Svc.MarkThreadRead(c.Context(), userID, jobID, counterpartID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"marked": n},
	})
}

// Conversations lists the caller's threads, most recent activity first.
func (h *MessageHandler) Conversations(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	convs, err := h.Svc.Conversations(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    convs,
	})
}

// UnreadCount returns the caller's total unread messages, for the nav badge.
func (h *MessageHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	n, err := h.Svc.UnreadTotal(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"unread": n},
	})
}
