package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/store"
)

type TradeHandler struct {
	Store store.Store
}

func NewTradeHandler(st store.Store) *TradeHandler {
	return &TradeHandler{Store: st}
}

// List is public: the taxonomy drives the job-post form and contractor
// onboarding.
func (h *TradeHandler) List(c *fiber.Ctx) error {
	trades, err := h.Store.Trades(c.Context())
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    trades,
	})
}

type CreateTradeReq struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Create seeds a trade. Routed behind the admin role gate.
func (h *TradeHandler) Create(c *fiber.Ctx) error {
	var req CreateTradeReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Name is required",
		})
	}

	trade := models.Trade{Name: name, Icon: strings.TrimSpace(req.Icon)}
	if err := h.Store.CreateTrade(c.Context(), &trade); err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    trade,
	})
}
