package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/homefix-app/platform_be_homefix/internal/config"
)

// sandboxURL is used when no processor base URL is configured.
const sandboxURL = "https://pay.homefix.dev/api-sandbox"

// Processor is the client for the external payment gateway. The gateway is
// opaque to the rest of the system: we create a hosted-checkout charge and
// later consume its signed webhook; capture and settlement live entirely on
// the processor's side.
type Processor struct {
	client       *http.Client
	apiKey       string
	privateKey   string
	merchantCode string
	baseURL      string
	callbackURL  string
	returnURL    string
}

func New(cfg config.PaymentConfig) *Processor {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sandboxURL
	}
	return &Processor{
		client:       &http.Client{Timeout: 15 * time.Second},
		apiKey:       cfg.APIKey,
		privateKey:   cfg.PrivateKey,
		merchantCode: cfg.MerchantCode,
		baseURL:      baseURL,
		callbackURL:  cfg.CallbackURL,
		returnURL:    cfg.ReturnURL,
	}
}

type chargeRequest struct {
	MerchantRef   string `json:"merchant_ref"`
	Amount        int64  `json:"amount"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Description   string `json:"description"`
	CallbackURL   string `json:"callback_url"`
	ReturnURL     string `json:"return_url"`
	ExpiredTime   int64  `json:"expired_time"` // unix
	Signature     string `json:"signature"`
}

// Charge is the processor's view of a created transaction.
type Charge struct {
	Reference   string `json:"reference"`
	MerchantRef string `json:"merchant_ref"`
	CheckoutURL string `json:"checkout_url"`
	Amount      int64  `json:"amount"`
}

type chargeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    Charge `json:"data"`
}

// CreateCharge opens a hosted-checkout transaction at the processor. The
// request is signed with HMAC-SHA256(merchant_code + merchant_ref + amount)
// under the merchant private key, per the gateway contract.
func (p *Processor) CreateCharge(ctx context.Context, merchantRef string, amount int64, customerName, customerEmail, description string) (*Charge, error) {
	sigData := fmt.Sprintf("%s%s%d", p.merchantCode, merchantRef, amount)

	reqBody := chargeRequest{
		MerchantRef:   merchantRef,
		Amount:        amount,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Description:   description,
		CallbackURL:   p.callbackURL,
		ReturnURL:     p.returnURL,
		ExpiredTime:   time.Now().Add(24 * time.Hour).Unix(),
		Signature:     p.sign(sigData),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transaction/create", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp chargeResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse processor response: %v", err)
	}
	if !apiResp.Success {
		return nil, fmt.Errorf("processor error: %s", apiResp.Message)
	}
	return &apiResp.Data, nil
}

// ValidateSignature checks a webhook body against its X-Callback-Signature
// header: HMAC-SHA256(raw_body) under the merchant private key.
func (p *Processor) ValidateSignature(incomingSig string, body []byte) bool {
	h := hmac.New(sha256.New, []byte(p.privateKey))
	h.Write(body)
	calculated := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(calculated), []byte(incomingSig))
}

func (p *Processor) sign(data string) string {
	h := hmac.New(sha256.New, []byte(p.privateKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
