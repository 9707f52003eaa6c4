package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fm_servicios_backend/platform/logger"
)

const (
	transbankIntegrationURL = "https://webpay3gint.transbank.cl"
	transbankProductionURL  = "https://webpay3g.transbank.cl"
	transbankTransactions   = "/rswebpaytransaction/api/webpay/v1.2/transactions"
)

// TransbankConfig holds Webpay Plus credentials.
type TransbankConfig struct {
	CommerceCode string
	APIKey       string
	Live         bool
	Timeout      time.Duration
}

// Transbank talks to the Webpay Plus REST API.
type Transbank struct {
	httpClient   *http.Client
	baseURL      string
	commerceCode string
	apiKey       string
	log          *logger.Logger
}

// NewTransbank creates a Webpay Plus client. Without Live it targets the
// integration environment.
func NewTransbank(cfg TransbankConfig, log *logger.Logger) *Transbank {
	base := transbankIntegrationURL
	if cfg.Live {
		base = transbankProductionURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Transbank{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      base,
		commerceCode: cfg.CommerceCode,
		apiKey:       cfg.APIKey,
		log:          log,
	}
}

// WithBaseURL points the client at another host, such as a test server.
func (t *Transbank) WithBaseURL(base string) *Transbank {
	t.baseURL = base
	return t
}

func (t *Transbank) Name() string { return "Transbank" }

// Create handles POST /transactions.
func (t *Transbank) Create(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	payload := apiCreateRequest{
		BuyOrder:  req.BuyOrder,
		SessionID: req.SessionID,
		Amount:    req.Amount,
		ReturnURL: req.ReturnURL,
	}
	var out apiCreateResponse
	if err := t.do(ctx, http.MethodPost, t.baseURL+transbankTransactions, payload, &out); err != nil {
		return CreateResponse{}, err
	}
	if out.Token == "" || out.URL == "" {
		return CreateResponse{}, fmt.Errorf("transbank create: empty token")
	}
	return CreateResponse{
		Token:  out.Token,
		URL:    out.URL,
		PayURL: out.URL + "?token_ws=" + url.QueryEscape(out.Token),
	}, nil
}

// Commit handles PUT /transactions/{token}. It is not retried: a second
// commit of the same token is rejected by Transbank.
func (t *Transbank) Commit(ctx context.Context, token string) (CommitResult, error) {
	var out apiCommitResponse
	reqURL := fmt.Sprintf("%s%s/%s", t.baseURL, transbankTransactions, url.PathEscape(token))
	if err := t.do(ctx, http.MethodPut, reqURL, nil, &out); err != nil {
		return CommitResult{}, err
	}
	res := CommitResult{
		Status:            out.Status,
		ResponseCode:      out.ResponseCode,
		AuthorizationCode: out.AuthorizationCode,
		BuyOrder:          out.BuyOrder,
		SessionID:         out.SessionID,
		Amount:            out.Amount,
	}
	if out.CardDetail != nil {
		res.CardLast4 = last4(out.CardDetail.CardNumber)
	}
	return res, nil
}

func (t *Transbank) do(ctx context.Context, method, reqURL string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Tbk-Api-Key-Id", t.commerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Error("transbank request failed", "error", err, "method", method)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		t.log.Error("transbank upstream error", "status", resp.StatusCode, "message", apiErr.ErrorMessage)
		if apiErr.ErrorMessage != "" {
			return fmt.Errorf("transbank: status %d: %s", resp.StatusCode, apiErr.ErrorMessage)
		}
		return fmt.Errorf("transbank: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type apiCreateRequest struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

type apiCreateResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type apiCommitResponse struct {
	VCI                string         `json:"vci"`
	Amount             int64          `json:"amount"`
	Status             string         `json:"status"`
	BuyOrder           string         `json:"buy_order"`
	SessionID          string         `json:"session_id"`
	CardDetail         *apiCardDetail `json:"card_detail"`
	AccountingDate     string         `json:"accounting_date"`
	TransactionDate    string         `json:"transaction_date"`
	AuthorizationCode  string         `json:"authorization_code"`
	PaymentTypeCode    string         `json:"payment_type_code"`
	ResponseCode       *int           `json:"response_code"`
	InstallmentsNumber int            `json:"installments_number"`
}

type apiCardDetail struct {
	CardNumber string `json:"card_number"`
}

type apiError struct {
	ErrorMessage string `json:"error_message"`
}
