package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefix-app/platform_be_homefix/internal/config"
	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/services/payment"
)

const gatewayPrivateKey = "private-key-456"

// fakeGateway returns a processor endpoint that accepts every charge.
func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MerchantRef string `json:"merchant_ref"`
			Amount      int64  `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"reference":    "GW-" + req.MerchantRef,
				"merchant_ref": req.MerchantRef,
				"checkout_url": "https://checkout.test/" + req.MerchantRef,
				"amount":       req.Amount,
			},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func gatewayProcessor(baseURL string) *payment.Processor {
	return payment.New(config.PaymentConfig{
		APIKey:       "api-key-123",
		PrivateKey:   gatewayPrivateKey,
		MerchantCode: "HOMEFIX",
		BaseURL:      baseURL,
	})
}

// seedChargeableJob puts a matched, unpaid job with an agreed cost in the store.
func seedChargeableJob(t *testing.T, env *flowEnv, homeownerID, contractorID, tradeID uuid.UUID, amount int64) *models.Job {
	t.Helper()
	job := &models.Job{
		HomeownerID:   homeownerID,
		ContractorID:  &contractorID,
		Title:         "Boiler service",
		TradeID:       tradeID,
		Location:      "Norwich",
		Status:        models.JobStatusMatched,
		PaymentStatus: models.PaymentStatusUnpaid,
		EstimatedCost: &amount,
	}
	require.NoError(t, env.st.CreateJob(context.Background(), job))
	return job
}

func TestCreateChargeOverTheAPI(t *testing.T) {
	ts := fakeGateway(t)
	env := newFlowEnv(t, gatewayProcessor(ts.URL))
	tr := env.trade(t, "heating")
	homeowner, hoCk := env.userWithCookie(t, "Olive", models.RoleHomeowner)
	contractor, coCk := env.contractorInTrade(t, "Wes", tr.ID)
	job := seedChargeableJob(t, env, homeowner.ID, contractor.ID, tr.ID, 18000)

	// The charge route is homeowner-only.
	resp := doJSON(t, env.app, http.MethodPost, "/api/payments/charge", map[string]any{
		"job_id": job.ID.String(),
	}, coCk)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, env.app, http.MethodPost, "/api/payments/charge", map[string]any{
		"job_id": job.ID.String(),
	}, hoCk)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, "https://checkout.test/JOB-"+job.ID.String(), data["checkout_url"])
	assert.EqualValues(t, 18000, data["amount"])
	reference := data["reference"].(string)

	stored, err := env.st.JobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)

	charge, err := env.st.PaymentChargeByReference(context.Background(), reference)
	require.NoError(t, err)
	assert.Equal(t, job.ID, charge.JobID)
	assert.Equal(t, "JOB-"+job.ID.String(), charge.MerchantRef)
	assert.Equal(t, models.ChargeStatusUnpaid, charge.Status)

	// A second submit loses to the pending payment state.
	resp = doJSON(t, env.app, http.MethodPost, "/api/payments/charge", map[string]any{
		"job_id": job.ID.String(),
	}, hoCk)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateChargeNeedsAnAssignedContractor(t *testing.T) {
	ts := fakeGateway(t)
	env := newFlowEnv(t, gatewayProcessor(ts.URL))
	tr := env.trade(t, "heating")
	homeowner, hoCk := env.userWithCookie(t, "Olive", models.RoleHomeowner)

	cost := int64(9000)
	job := &models.Job{
		HomeownerID:   homeowner.ID,
		Title:         "Radiator bleed",
		TradeID:       tr.ID,
		Status:        models.JobStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		EstimatedCost: &cost,
	}
	require.NoError(t, env.st.CreateJob(context.Background(), job))

	resp := doJSON(t, env.app, http.MethodPost, "/api/payments/charge", map[string]any{
		"job_id": job.ID.String(),
	}, hoCk)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Job has no contractor yet", decodeBody(t, resp)["message"])
}

func TestCreateChargeRevertsWhenTheGatewayRefuses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "merchant suspended",
		})
	}))
	t.Cleanup(ts.Close)

	env := newFlowEnv(t, gatewayProcessor(ts.URL))
	tr := env.trade(t, "heating")
	homeowner, hoCk := env.userWithCookie(t, "Olive", models.RoleHomeowner)
	contractor, _ := env.contractorInTrade(t, "Wes", tr.ID)
	job := seedChargeableJob(t, env, homeowner.ID, contractor.ID, tr.ID, 18000)

	resp := doJSON(t, env.app, http.MethodPost, "/api/payments/charge", map[string]any{
		"job_id": job.ID.String(),
	}, hoCk)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// The pending flip is undone so the homeowner can retry.
	stored, err := env.st.JobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus)
}

func signCallback(body []byte) string {
	mac := hmac.New(sha256.New, []byte(gatewayPrivateKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postCallback(t *testing.T, env *flowEnv, body []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Callback-Signature", signature)
	}
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestPaymentCallbackOverTheAPI(t *testing.T) {
	env := newFlowEnv(t, gatewayProcessor(""))
	tr := env.trade(t, "heating")
	homeowner, _ := env.userWithCookie(t, "Olive", models.RoleHomeowner)
	contractor, _ := env.contractorInTrade(t, "Wes", tr.ID)

	job := seedChargeableJob(t, env, homeowner.ID, contractor.ID, tr.ID, 18000)
	_, err := env.ctrl.MarkPaymentPending(context.Background(), job.ID)
	require.NoError(t, err)

	charge := &models.PaymentCharge{
		JobID:       job.ID,
		Reference:   "GW-REF-1",
		MerchantRef: "JOB-" + job.ID.String(),
		Amount:      18000,
		Status:      models.ChargeStatusUnpaid,
	}
	require.NoError(t, env.st.CreatePaymentCharge(context.Background(), charge))

	body, err := json.Marshal(map[string]any{
		"reference":    "GW-REF-1",
		"merchant_ref": charge.MerchantRef,
		"total_amount": 18000,
		"status":       "PAID",
		"paid_at":      time.Now().Unix(),
	})
	require.NoError(t, err)

	// Tampered signature first: rejected, nothing moves.
	resp := postCallback(t, env, body, signCallback(append([]byte("x"), body...)))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	stored, err := env.st.JobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)

	resp = postCallback(t, env, body, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The signed webhook lands the payment.
	resp = postCallback(t, env, body, signCallback(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["success"])

	stored, err = env.st.JobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)

	updated, err := env.st.PaymentChargeByReference(context.Background(), "GW-REF-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChargeStatusPaid, updated.Status)
	require.NotNil(t, updated.PaidAt)

	// Processors redeliver; the replay must not disturb the paid state.
	resp = postCallback(t, env, body, signCallback(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored, err = env.st.JobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
}

func TestPaymentCallbackFailureReopensTheCharge(t *testing.T) {
	env := newFlowEnv(t, gatewayProcessor(""))
	tr := env.trade(t, "heating")
	homeowner, _ := env.userWithCookie(t, "Olive", models.RoleHomeowner)
	contractor, _ := env.contractorInTrade(t, "Wes", tr.ID)

	job := seedChargeableJob(t, env, homeowner.ID, contractor.ID, tr.ID, 26000)
	_, err := env.ctrl.MarkPaymentPending(context.Background(), job.ID)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"reference":    "GW-REF-2",
		"merchant_ref": "JOB-" + job.ID.String(),
		"total_amount": 26000,
		"status":       "EXPIRED",
	})
	require.NoError(t, err)

	resp := postCallback(t, env, body, signCallback(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := env.st.JobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus,
		"an expired checkout should let the homeowner start over")
}
