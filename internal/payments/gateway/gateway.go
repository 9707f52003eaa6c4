// Package gateway contains the card payment providers: Transbank Webpay Plus,
// Mercado Pago and an always-approving mock for local work.
package gateway

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=mocks/gateway_mock.go -package=mocks fm_servicios_backend/internal/payments/gateway Gateway

// Transaction states stored in quotes.tb_status.
const (
	StatusAuthorized = "AUTHORIZED"
	StatusFailed     = "FAILED"
)

// ErrNotConfigured is returned by a provider missing its credentials.
var ErrNotConfigured = errors.New("payment gateway not configured")

// CreateRequest opens a transaction. Amount is in whole pesos.
type CreateRequest struct {
	BuyOrder  string
	SessionID string
	Amount    int64
	ReturnURL string
}

// CreateResponse identifies the new transaction. PayURL is where the
// customer completes the payment.
type CreateResponse struct {
	Token  string
	URL    string
	PayURL string
}

// CommitResult is the provider's verdict on a transaction.
type CommitResult struct {
	Status            string
	ResponseCode      *int
	AuthorizationCode string
	BuyOrder          string
	SessionID         string
	CardLast4         string
	Amount            int64
}

// Authorized reports a successful payment: AUTHORIZED with response code 0.
func (r CommitResult) Authorized() bool {
	return r.Status == StatusAuthorized && r.ResponseCode != nil && *r.ResponseCode == 0
}

// Gateway is a payment provider.
type Gateway interface {
	Name() string
	Create(ctx context.Context, req CreateRequest) (CreateResponse, error)
	Commit(ctx context.Context, token string) (CommitResult, error)
}

func intPtr(v int) *int { return &v }

func last4(card string) string {
	if len(card) <= 4 {
		return card
	}
	return card[len(card)-4:]
}
