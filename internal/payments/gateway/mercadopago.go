package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fm_servicios_backend/platform/logger"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

// MercadoPago creates checkout preferences and resolves payments. The
// preference ID plays the role of the transaction token; the buy order
// travels as external_reference.
type MercadoPago struct {
	preferences preference.Client
	payments    payment.Client
	sandbox     bool
	log         *logger.Logger
}

// NewMercadoPago builds the client from an access token. TEST- tokens use the
// sandbox checkout.
func NewMercadoPago(accessToken string, log *logger.Logger) (*MercadoPago, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrNotConfigured
	}
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	log.Info("mercado pago client initialized")
	return &MercadoPago{
		preferences: preference.NewClient(cfg),
		payments:    payment.NewClient(cfg),
		sandbox:     strings.HasPrefix(accessToken, "TEST-"),
		log:         log,
	}, nil
}

func (m *MercadoPago) Name() string { return "Mercado Pago" }

func (m *MercadoPago) Create(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	pref := preference.Request{
		Items: []preference.ItemRequest{{
			ID:         req.BuyOrder,
			Title:      "Cotizacion " + strings.TrimPrefix(req.BuyOrder, "cot"),
			Quantity:   1,
			UnitPrice:  float64(req.Amount),
			CurrencyID: "CLP",
		}},
		ExternalReference: req.BuyOrder,
		BackURLs: &preference.BackURLsRequest{
			Success: req.ReturnURL,
			Pending: req.ReturnURL,
			Failure: req.ReturnURL,
		},
		AutoReturn: "approved",
	}

	resp, err := m.preferences.Create(ctx, pref)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("mercadopago create preference: %w", err)
	}
	link := resp.InitPoint
	if m.sandbox && resp.SandboxInitPoint != "" {
		link = resp.SandboxInitPoint
	}
	return CreateResponse{Token: resp.ID, URL: link, PayURL: link}, nil
}

// Commit looks up a payment by its ID. Mercado Pago captures on its side, so
// this only reads the outcome.
func (m *MercadoPago) Commit(ctx context.Context, paymentID string) (CommitResult, error) {
	id, err := strconv.Atoi(strings.TrimSpace(paymentID))
	if err != nil {
		return CommitResult{}, fmt.Errorf("mercadopago: invalid payment id %q", paymentID)
	}
	resp, err := m.payments.Get(ctx, id)
	if err != nil {
		return CommitResult{}, fmt.Errorf("mercadopago get payment: %w", err)
	}

	res := CommitResult{
		BuyOrder:          resp.ExternalReference,
		AuthorizationCode: strconv.Itoa(resp.ID),
		CardLast4:         resp.Card.LastFourDigits,
		Amount:            int64(resp.TransactionAmount),
	}
	switch resp.Status {
	case "approved":
		res.Status, res.ResponseCode = StatusAuthorized, intPtr(0)
	case "rejected":
		res.Status, res.ResponseCode = StatusFailed, intPtr(-1)
	case "cancelled":
		res.Status = "ABORTED"
	default:
		res.Status = strings.ToUpper(resp.Status)
	}
	return res, nil
}
