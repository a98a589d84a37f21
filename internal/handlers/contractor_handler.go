package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

// ContractorHandler is the contractor's self-service surface: profile,
// schedule, trade membership, own quotes, and the open-job feed that backs
// clients who poll instead of holding a websocket.
type ContractorHandler struct {
	Store store.Store
}

func NewContractorHandler(st store.Store) *ContractorHandler {
	return &ContractorHandler{Store: st}
}

func (h *ContractorHandler) Routes(r fiber.Router, roleGate fiber.Handler) {
	g := r.Group("/contractor", roleGate)
	g.Get("/profile", h.GetProfile)
	g.Put("/profile", h.UpsertProfile)
	g.Get("/schedule", h.ListSlots)
	g.Post("/schedule", h.CreateSlot)
	g.Patch("/schedule/:id", h.UpdateSlot)
	g.Get("/trades", h.ListTrades)
	g.Post("/trades", h.DeclareTrade)
	g.Get("/quotes", h.ListQuotes)
	g.Get("/jobs/open", h.OpenJobs)
}

func (h *ContractorHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	p, err := h.Store.ContractorProfileByUser(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    p,
	})
}

type UpsertProfileReq struct {
	Headline string   `json:"headline"`
	About    string   `json:"about"`
	City     string   `json:"city"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

// UpsertProfile creates or updates the matcher-facing profile fields.
func (h *ContractorHandler) UpsertProfile(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req UpsertProfileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	p := &models.ContractorProfile{
		UserID:   userID,
		Headline: req.Headline,
		About:    req.About,
		City:     req.City,
		Lat:      req.Lat,
		Lng:      req.Lng,
	}
	// Keep the counter cache across upserts.
	if existing, err := h.Store.ContractorProfileByUser(c.Context(), userID); err == nil {
		p.CompletedJobs = existing.CompletedJobs
	}

	if err := h.Store.UpsertContractorProfile(c.Context(), p); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated",
		"data":    p,
	})
}

func (h *ContractorHandler) ListSlots(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	slots, err := h.Store.SlotsByContractor(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    slots,
	})
}

type CreateSlotReq struct {
	Start     string          `json:"start"` // RFC3339
	End       string          `json:"end"`
	Available *bool           `json:"available"` // default true
	Meta      json.RawMessage `json:"meta"`
}

func (h *ContractorHandler) CreateSlot(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req CreateSlotReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	start, err := parseDate(req.Start)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid start time",
		})
	}
	end, err := parseDate(req.End)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid end time",
		})
	}
	if !end.After(start) {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "End must be after start",
		})
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	slot := models.ScheduleSlot{
		ContractorID: userID,
		Start:        start,
		End:          end,
		Available:    available,
	}
	if len(req.Meta) > 0 {
		slot.Meta = datatypes.JSON(req.Meta)
	}

	if err := h.Store.CreateScheduleSlot(c.Context(), &slot); err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    slot,
	})
}

type UpdateSlotReq struct {
	Start     *string         `json:"start"`
	End       *string         `json:"end"`
	Available *bool           `json:"available"`
	Meta      json.RawMessage `json:"meta"`
}

func (h *ContractorHandler) UpdateSlot(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	slotID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid slot ID",
		})
	}

	var req UpdateSlotReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	slot, err := h.Store.ScheduleSlotByID(c.Context(), slotID)
	if err != nil {
		return fail(c, err)
	}
	if slot.ContractorID != userID {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Not your slot",
		})
	}

	if req.Start != nil {
		start, err := parseDate(*req.Start)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid start time",
			})
		}
		slot.Start = start
	}
	if req.End != nil {
		end, err := parseDate(*req.End)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid end time",
			})
		}
		slot.End = end
	}
	if !slot.End.After(slot.Start) {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "End must be after start",
		})
	}
	if req.Available != nil {
		slot.Available = *req.Available
	}
	if len(req.Meta) > 0 {
		slot.Meta = datatypes.JSON(req.Meta)
	}

	if err := h.Store.UpdateScheduleSlot(c.Context(), slot); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Slot updated",
		"data":    slot,
	})
}

func (h *ContractorHandler) ListTrades(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	trades, err := h.Store.TradesByContractor(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    trades,
	})
}

type DeclareTradeReq struct {
	TradeID string `json:"trade_id"`
}

// DeclareTrade links the contractor to a trade, which puts them into that
// trade's matching pool.
func (h *ContractorHandler) DeclareTrade(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req DeclareTradeReq
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

	if _, err := h.Store.TradeByID(c.Context(), tradeID); err != nil {
		return fail(c, err)
	}

	ct := models.ContractorTrade{ContractorID: userID, TradeID: tradeID}
	if err := h.Store.CreateContractorTrade(c.Context(), &ct); err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    ct,
	})
}

func (h *ContractorHandler) ListQuotes(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	quotes, err := h.Store.QuotesByContractor(c.Context(), userID)
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

// OpenJobs lists pending jobs in the contractor's trades, newest first. This
// is the polling counterpart to the NewJobMatch push: a contractor without a
// live websocket still finds work here.
func (h *ContractorHandler) OpenJobs(c *fiber.Ctx) error {
	userID, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	myTrades, err := h.Store.TradesByContractor(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	tradeSet := make(map[uuid.UUID]bool, len(myTrades))
	for _, ct := range myTrades {
		tradeSet[ct.TradeID] = true
	}

	pending, err := h.Store.JobsByStatus(c.Context(), models.JobStatusPending)
	if err != nil {
		return fail(c, err)
	}

	out := make([]JobResponse, 0)
	for i := range pending {
		if tradeSet[pending[i].TradeID] {
			out = append(out, toJobResponse(&pending[i]))
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
		"meta": fiber.Map{
			"fetched_at": time.Now(),
		},
	})
}
