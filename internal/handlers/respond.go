package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/homefix-app/platform_be_homefix/internal/errs"
	"github.com/homefix-app/platform_be_homefix/internal/models"
)

// UserMini is the embedded-user DTO for list responses.
type UserMini struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

func toUserMini(u *models.User) *UserMini {
	if u == nil {
		return nil
	}
	return &UserMini{
		ID:            u.ID.String(),
		Name:          u.Name,
		AverageRating: u.AverageRating,
		RatingCount:   u.RatingCount,
	}
}

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	v := c.Locals("userId")
	if v == nil {
		return uuid.Nil, fmt.Errorf("unauthorized")
	}

	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		return uuid.Parse(t)
	case []byte:
		return uuid.ParseBytes(t)
	default:
		return uuid.Nil, fmt.Errorf("invalid userId type: %T", v)
	}
}

func statusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return fiber.StatusNotFound
	case errs.KindForbidden:
		return fiber.StatusForbidden
	case errs.KindInvalidTransition:
		return fiber.StatusUnprocessableEntity
	case errs.KindConflict:
		return fiber.StatusConflict
	case errs.KindValidation:
		return fiber.StatusBadRequest
	case errs.KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// fail renders a core error in the standard envelope. Invalid transitions
// also carry the states the job could legally move to.
func fail(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"success": false,
		"message": err.Error(),
	}
	if kind := errs.KindOf(err); kind != "" {
		body["kind"] = string(kind)
	}
	if allowed := errs.AllowedOf(err); len(allowed) > 0 {
		body["allowed_next"] = allowed
	}
	return c.Status(statusOf(err)).JSON(body)
}

// withConflictRetry re-runs fn once when a status compare-and-set lost its
// race. The second attempt re-reads the row, so it either succeeds or turns
// into the real rejection (usually an invalid transition).
func withConflictRetry(fn func() error) error {
	err := fn()
	if err != nil && errs.KindOf(err) == errs.KindConflict {
		return fn()
	}
	return err
}
