package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/lifecycle"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

// AdminHandler is the back-office surface: the flagged-job queue and the
// force-resolve escape hatch for stuck jobs.
type AdminHandler struct {
	Store     store.Store
	Lifecycle *lifecycle.Controller
}

func NewAdminHandler(st store.Store, lc *lifecycle.Controller) *AdminHandler {
	return &AdminHandler{Store: st, Lifecycle: lc}
}

func (h *AdminHandler) Routes(r fiber.Router, roleGate fiber.Handler) {
	g := r.Group("/admin", roleGate)
	g.Get("/jobs/flagged", h.FlaggedJobs)
	g.Post("/jobs/:id/resolve", h.ResolveJob)
	g.Patch("/users/:id/disable", h.DisableUser)
}

// FlaggedJobs lists pending jobs the matcher found nobody for, oldest flag
// first.
func (h *AdminHandler) FlaggedJobs(c *fiber.Ctx) error {
	jobs, err := h.Store.FlaggedJobs(c.Context())
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

type ResolveJobReq struct {
	Resolution string `json:"resolution"` // completed or cancelled
}

// ResolveJob force-moves a job to a terminal state, the one legal bypass of
// the transition table.
func (h *AdminHandler) ResolveJob(c *fiber.Ctx) error {
	adminID, err := getUserUUID(c)
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

	var req ResolveJobReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var job *models.Job
	err = withConflictRetry(func() error {
		job, err = h.Lifecycle.AdminResolve(c.Context(), adminID, jobID, models.JobStatus(req.Resolution))
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job resolved",
		"data":    toJobResponse(job),
	})
}

// DisableUser soft-disables an account. Disabled contractors drop out of the
// matching pool; job history stays intact.
func (h *AdminHandler) DisableUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user ID",
		})
	}

	user, err := h.Store.UserByID(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	if user.IsActive {
		user.IsActive = false
		if err := h.Store.UpdateUser(c.Context(), user); err != nil {
			return fail(c, err)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User disabled",
	})
}
