package gateway

import (
	"context"
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// Mock approves every transaction. It sends the customer straight to the
// return URL with the token, as Webpay does after a payment.
type Mock struct {
	mu     sync.Mutex
	orders map[string]CreateRequest
}

func NewMock() *Mock {
	return &Mock{orders: make(map[string]CreateRequest)}
}

func (m *Mock) Name() string { return "Mock" }

func (m *Mock) Create(_ context.Context, req CreateRequest) (CreateResponse, error) {
	token := uuid.NewString()
	m.mu.Lock()
	m.orders[token] = req
	m.mu.Unlock()

	pay := req.ReturnURL
	if u, err := url.Parse(req.ReturnURL); err == nil {
		q := u.Query()
		q.Set("token_ws", token)
		u.RawQuery = q.Encode()
		pay = u.String()
	}
	return CreateResponse{Token: token, URL: req.ReturnURL, PayURL: pay}, nil
}

func (m *Mock) Commit(_ context.Context, token string) (CommitResult, error) {
	m.mu.Lock()
	req := m.orders[token]
	m.mu.Unlock()
	return CommitResult{
		Status:            StatusAuthorized,
		ResponseCode:      intPtr(0),
		AuthorizationCode: "MOCK00",
		BuyOrder:          req.BuyOrder,
		SessionID:         req.SessionID,
		CardLast4:         "6623",
		Amount:            req.Amount,
	}, nil
}
