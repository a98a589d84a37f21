package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefix-app/platform_be_homefix/internal/config"
	"github.com/homefix-app/platform_be_homefix/internal/lifecycle"
	"github.com/homefix-app/platform_be_homefix/internal/matching"
	"github.com/homefix-app/platform_be_homefix/internal/middleware"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/realtime"
	"github.com/homefix-app/platform_be_homefix/internal/services/payment"
	"github.com/homefix-app/platform_be_homefix/internal/store"
	"github.com/homefix-app/platform_be_homefix/internal/utils"
)

// flowEnv wires the full route table against the in-memory store, mirroring
// the composition in cmd/api.
type flowEnv struct {
	app  *fiber.App
	st   *store.MemoryStore
	ctrl *lifecycle.Controller
}

func newFlowEnv(t *testing.T, payProc *payment.Processor) *flowEnv {
	t.Helper()

	st := store.NewMemory()
	hub := realtime.NewHub()
	notifier := realtime.NewNotifier(hub, st, nil)
	matcher := matching.New(st, config.DefaultMatching())
	controller := lifecycle.NewController(st, matcher, notifier, nil)

	jobH := NewJobHandler(st, controller)
	quoteH := NewQuoteHandler(st, controller)
	adminH := NewAdminHandler(st, controller)
	paymentH := NewPaymentHandler(st, controller, payProc)

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/payments/callback", paymentH.HandleCallback)

	protected := api.Group("/",
		middleware.JWTFromCookie(testSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Post("/jobs", middleware.RequireRoles("homeowner"), jobH.Create)
	protected.Get("/jobs", jobH.List)
	protected.Get("/jobs/:id", jobH.Get)
	protected.Post("/jobs/:id/cancel", jobH.Cancel)
	protected.Post("/jobs/:id/schedule", jobH.Schedule)
	protected.Post("/jobs/:id/start",
		middleware.RequireRoles("contractor"), jobH.Start)
	protected.Post("/jobs/:id/completion/request",
		middleware.RequireRoles("contractor"), jobH.RequestCompletion)
	protected.Post("/jobs/:id/completion/confirm",
		middleware.RequireRoles("homeowner"), jobH.ConfirmCompletion)

	protected.Post("/jobs/:id/quotes",
		middleware.RequireRoles("contractor"), quoteH.Submit)
	protected.Get("/jobs/:id/quotes", quoteH.ListForJob)
	protected.Post("/quotes/:id/accept",
		middleware.RequireRoles("homeowner"), quoteH.Accept)
	protected.Post("/quotes/:id/reject",
		middleware.RequireRoles("homeowner"), quoteH.Reject)

	protected.Post("/payments/charge",
		middleware.RequireRoles("homeowner"), paymentH.CreateCharge)

	adminH.Routes(protected, middleware.RequireRoles("admin"))

	return &flowEnv{app: app, st: st, ctrl: controller}
}

// userWithCookie seeds an account and signs its session cookie directly; the
// login round-trip has its own tests.
func (e *flowEnv) userWithCookie(t *testing.T, name string, role models.Role) (*models.User, *http.Cookie) {
	t.Helper()

	u := &models.User{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "irrelevant",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, e.st.CreateUser(context.Background(), u))

	token, err := utils.SignJWT(testSecret, u.ID.String(), string(role), 60)
	require.NoError(t, err)
	return u, &http.Cookie{Name: "hf_token", Value: token}
}

func (e *flowEnv) trade(t *testing.T, name string) *models.Trade {
	t.Helper()
	tr := &models.Trade{Name: name}
	require.NoError(t, e.st.CreateTrade(context.Background(), tr))
	return tr
}

func (e *flowEnv) contractorInTrade(t *testing.T, name string, tradeID uuid.UUID) (*models.User, *http.Cookie) {
	t.Helper()
	u, ck := e.userWithCookie(t, name, models.RoleContractor)
	ct := &models.ContractorTrade{ContractorID: u.ID, TradeID: tradeID}
	require.NoError(t, e.st.CreateContractorTrade(context.Background(), ct))
	return u, ck
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestJobLifecycleOverTheAPI(t *testing.T) {
	env := newFlowEnv(t, nil)
	tr := env.trade(t, "plumbing")
	homeowner, hoCk := env.userWithCookie(t, "Olive", models.RoleHomeowner)
	contractor, coCk := env.contractorInTrade(t, "Wes", tr.ID)

	// The posting route is homeowner-only.
	resp := doJSON(t, env.app, http.MethodPost, "/api/jobs", map[string]any{
		"title": "nope", "trade_id": tr.ID.String(),
	}, coCk)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs", map[string]any{
		"title":       "Fix leaking sink",
		"description": "Water pooling under the kitchen unit",
		"trade_id":    tr.ID.String(),
		"location":    "Norwich",
	}, hoCk)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := dataOf(t, decodeBody(t, resp))
	job := created["job"].(map[string]any)
	jobID := job["id"].(string)
	assert.Equal(t, "pending", job["status"])
	assert.Equal(t, "unpaid", job["payment_status"])
	assert.Equal(t, homeowner.ID.String(), job["homeowner_id"])

	matches := created["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, contractor.ID.String(), matches[0].(map[string]any)["contractor_id"])

	// Quoting is contractor-only.
	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs/"+jobID+"/quotes", map[string]any{
		"amount": 18000,
	}, hoCk)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs/"+jobID+"/quotes", map[string]any{
		"amount":  18000,
		"message": "Can come Tuesday",
	}, coCk)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	quoteID := dataOf(t, decodeBody(t, resp))["id"].(string)

	// The homeowner sees the bid list; accepting is theirs alone.
	resp = doJSON(t, env.app, http.MethodGet, "/api/jobs/"+jobID+"/quotes", nil, hoCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	quotes := decodeBody(t, resp)["data"].([]any)
	require.Len(t, quotes, 1)

	resp = doJSON(t, env.app, http.MethodPost, "/api/quotes/"+quoteID+"/accept", nil, coCk)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, env.app, http.MethodPost, "/api/quotes/"+quoteID+"/accept", nil, hoCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, "matched", accepted["status"])
	assert.Equal(t, contractor.ID.String(), accepted["contractor_id"])
	assert.EqualValues(t, 18000, accepted["estimated_cost"])

	// Either party may schedule; this time the homeowner does.
	when := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs/"+jobID+"/schedule", map[string]any{
		"scheduled_for": when,
	}, hoCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "scheduled", dataOf(t, decodeBody(t, resp))["status"])

	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs/"+jobID+"/start", nil, coCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in_progress", dataOf(t, decodeBody(t, resp))["status"])

	// Completion handshake: contractor requests, homeowner confirms.
	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs/"+jobID+"/completion/confirm", nil, hoCk)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode,
		"confirm before the contractor asked should be rejected")

	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs/"+jobID+"/completion/request", nil, coCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, dataOf(t, decodeBody(t, resp))["completion_requested_at"])

	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs/"+jobID+"/completion/confirm", nil, hoCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, "completed", done["status"])
	assert.EqualValues(t, 18000, done["actual_cost"], "actual cost defaults to the accepted quote")

	// Terminal states reject further verbs with the allowed-next hint.
	resp = doJSON(t, env.app, http.MethodPost, "/api/jobs/"+jobID+"/cancel", nil, hoCk)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	rejected := decodeBody(t, resp)
	assert.Equal(t, false, rejected["success"])
	assert.Equal(t, "invalid_transition", rejected["kind"])
}

func TestJobVisibilityOverTheAPI(t *testing.T) {
	env := newFlowEnv(t, nil)
	tr := env.trade(t, "roofing")
	_, hoCk := env.userWithCookie(t, "Olive", models.RoleHomeowner)
	_, rivalCk := env.userWithCookie(t, "Rory", models.RoleHomeowner)
	_, coCk := env.contractorInTrade(t, "Wes", tr.ID)
	_, adminCk := env.userWithCookie(t, "Ada", models.RoleAdmin)

	resp := doJSON(t, env.app, http.MethodPost, "/api/jobs", map[string]any{
		"title":    "Replace cracked tiles",
		"trade_id": tr.ID.String(),
		"location": "Norwich",
	}, hoCk)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	jobID := dataOf(t, decodeBody(t, resp))["job"].(map[string]any)["id"].(string)

	// Owner and admin can read the job; an unrelated homeowner cannot. The
	// quoting contractor is not a party until a quote is accepted.
	for name, tc := range map[string]struct {
		cookie *http.Cookie
		want   int
	}{
		"owner":    {hoCk, http.StatusOK},
		"admin":    {adminCk, http.StatusOK},
		"stranger": {rivalCk, http.StatusForbidden},
		"bidder":   {coCk, http.StatusForbidden},
	} {
		resp := doJSON(t, env.app, http.MethodGet, "/api/jobs/"+jobID, nil, tc.cookie)
		assert.Equal(t, tc.want, resp.StatusCode, "viewer %s", name)
	}

	// The list endpoint is scoped per role.
	resp = doJSON(t, env.app, http.MethodGet, "/api/jobs", nil, hoCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody(t, resp)["data"].([]any), 1)

	resp = doJSON(t, env.app, http.MethodGet, "/api/jobs", nil, rivalCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody(t, resp)["data"])

	resp = doJSON(t, env.app, http.MethodGet, "/api/jobs", nil, coCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody(t, resp)["data"], "nothing assigned to the contractor yet")

	resp = doJSON(t, env.app, http.MethodGet, "/api/jobs", nil, adminCk)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminQueueOverTheAPI(t *testing.T) {
	env := newFlowEnv(t, nil)
	tr := env.trade(t, "electrics")
	_, hoCk := env.userWithCookie(t, "Olive", models.RoleHomeowner)
	_, adminCk := env.userWithCookie(t, "Ada", models.RoleAdmin)

	// No contractor covers this trade, so the job lands in the flagged queue.
	resp := doJSON(t, env.app, http.MethodPost, "/api/jobs", map[string]any{
		"title":    "Rewire the garage",
		"trade_id": tr.ID.String(),
		"location": "Norwich",
	}, hoCk)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := dataOf(t, decodeBody(t, resp))
	jobID := created["job"].(map[string]any)["id"].(string)
	assert.Empty(t, created["matches"])
	assert.NotNil(t, created["job"].(map[string]any)["flagged_at"])

	resp = doJSON(t, env.app, http.MethodGet, "/api/admin/jobs/flagged", nil, hoCk)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, env.app, http.MethodGet, "/api/admin/jobs/flagged", nil, adminCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	flagged := decodeBody(t, resp)["data"].([]any)
	require.Len(t, flagged, 1)
	assert.Equal(t, jobID, flagged[0].(map[string]any)["id"])

	resp = doJSON(t, env.app, http.MethodPost, "/api/admin/jobs/"+jobID+"/resolve", map[string]any{
		"resolution": "cancelled",
	}, adminCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", dataOf(t, decodeBody(t, resp))["status"])

	resp = doJSON(t, env.app, http.MethodGet, "/api/admin/jobs/flagged", nil, adminCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody(t, resp)["data"])
}
