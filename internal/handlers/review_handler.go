package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/lifecycle"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

type ReviewHandler struct {
	Store     store.Store
	Lifecycle *lifecycle.Controller
}

func NewReviewHandler(st store.Store, lc *lifecycle.Controller) *ReviewHandler {
	return &ReviewHandler{Store: st, Lifecycle: lc}
}

type ReviewResponse struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	SubjectID string    `json:"subject_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	Author *UserMini `json:"author,omitempty"`
}

func toReviewResponse(r *models.Review, author *models.User) ReviewResponse {
	return ReviewResponse{
		ID:        r.ID.String(),
		JobID:     r.JobID.String(),
		SubjectID: r.SubjectID.String(),
		Rating:    r.Rating,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
		Author:    toUserMini(author),
	}
}

type SubmitReviewReq struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// Submit records a review on a completed job. One per author per job; the
// subject's average rating is refreshed by the controller.
func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
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

	var req SubmitReviewReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	review, err := h.Lifecycle.SubmitReview(c.Context(), userID, jobID, req.Rating, req.Text)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    toReviewResponse(review, nil),
	})
}

// ListForUser returns the reviews written about a user, newest first.
// Public: review history is part of a contractor's storefront.
func (h *ReviewHandler) ListForUser(c *fiber.Ctx) error {
	subjectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user ID",
		})
	}

	reviews, err := h.Store.ReviewsBySubject(c.Context(), subjectID)
	if err != nil {
		return fail(c, err)
	}

	authors := make(map[uuid.UUID]*models.User)
	out := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		r := &reviews[i]
		author, ok := authors[r.AuthorID]
		if !ok {
			author, err = h.Store.UserByID(c.Context(), r.AuthorID)
			if err != nil {
				log.Printf("Error loading review author %s: %v", r.AuthorID, err)
				author = nil
			}
			authors[r.AuthorID] = author
		}
		out = append(out, toReviewResponse(r, author))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}
