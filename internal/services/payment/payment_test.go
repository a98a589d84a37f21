package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefix-app/platform_be_homefix/internal/config"
)

func testConfig(baseURL string) config.PaymentConfig {
	return config.PaymentConfig{
		APIKey:       "api-key-123",
		PrivateKey:   "private-key-456",
		MerchantCode: "HOMEFIX",
		BaseURL:      baseURL,
		CallbackURL:  "https://api.homefix.dev/api/payments/callback",
		ReturnURL:    "https://app.homefix.dev/payments/done",
	}
}

func hmacHex(key, data string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func TestCreateChargeSignsTheRequestAndParsesTheCharge(t *testing.T) {
	var got struct {
		MerchantRef string `json:"merchant_ref"`
		Amount      int64  `json:"amount"`
		CallbackURL string `json:"callback_url"`
		Signature   string `json:"signature"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/create", r.URL.Path)
		assert.Equal(t, "Bearer api-key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"message":"ok","data":{"reference":"T123","merchant_ref":"JOB-1","checkout_url":"https://pay.example/T123","amount":15000}}`)
	}))
	defer ts.Close()

	p := New(testConfig(ts.URL))
	charge, err := p.CreateCharge(context.Background(), "JOB-1", 15000, "Hope", "hope@example.com", "Fix leaking sink")
	require.NoError(t, err)

	assert.Equal(t, "T123", charge.Reference)
	assert.Equal(t, "JOB-1", charge.MerchantRef)
	assert.Equal(t, "https://pay.example/T123", charge.CheckoutURL)
	assert.Equal(t, int64(15000), charge.Amount)

	assert.Equal(t, "JOB-1", got.MerchantRef)
	assert.Equal(t, int64(15000), got.Amount)
	assert.Equal(t, "https://api.homefix.dev/api/payments/callback", got.CallbackURL)
	// merchant_code + merchant_ref + amount under the private key.
	assert.Equal(t, hmacHex("private-key-456", "HOMEFIXJOB-115000"), got.Signature)
}

func TestCreateChargeSurfacesProcessorRefusal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"success":false,"message":"amount below minimum"}`)
	}))
	defer ts.Close()

	p := New(testConfig(ts.URL))
	_, err := p.CreateCharge(context.Background(), "JOB-2", 10, "Hope", "hope@example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount below minimum")
}

func TestCreateChargeWhenGatewayIsDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	p := New(testConfig(ts.URL))
	_, err := p.CreateCharge(context.Background(), "JOB-3", 5000, "Hope", "hope@example.com", "")
	require.Error(t, err)
}

func TestDefaultsToSandboxWithoutBaseURL(t *testing.T) {
	p := New(config.PaymentConfig{PrivateKey: "k"})
	assert.Equal(t, sandboxURL, p.baseURL)
}

func TestValidateSignature(t *testing.T) {
	p := New(testConfig("http://unused"))
	body := []byte(`{"reference":"T123","merchant_ref":"JOB-1","status":"PAID"}`)
	sig := hmacHex("private-key-456", string(body))

	assert.True(t, p.ValidateSignature(sig, body))
	assert.False(t, p.ValidateSignature(sig, append(body, ' ')), "tampered body must fail")
	assert.False(t, p.ValidateSignature("deadbeef", body))
	assert.False(t, p.ValidateSignature("", body))
}
