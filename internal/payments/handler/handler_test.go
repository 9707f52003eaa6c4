package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fm_servicios_backend/internal/payments/gateway"
	"fm_servicios_backend/internal/payments/service"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type memQuotes struct {
	repository.Repository
	quotes map[int64]repository.Quote
}

func (m *memQuotes) Get(_ context.Context, id int64) (repository.Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return repository.Quote{}, apperr.NotFound("quote not found")
	}
	return q, nil
}

func (m *memQuotes) GetForUpdate(ctx context.Context, id int64) (repository.Quote, error) {
	return m.Get(ctx, id)
}

func (m *memQuotes) FindByToken(_ context.Context, token string) (repository.Quote, error) {
	for _, q := range m.quotes {
		if q.Gateway.Token == token {
			return q, nil
		}
	}
	return repository.Quote{}, apperr.NotFound("quote not found")
}

func (m *memQuotes) FindByBuyOrder(_ context.Context, buyOrder string) (repository.Quote, error) {
	for _, q := range m.quotes {
		if q.Gateway.BuyOrder == buyOrder {
			return q, nil
		}
	}
	return repository.Quote{}, apperr.NotFound("quote not found")
}

func (m *memQuotes) Items(context.Context, int64) ([]repository.Item, error) { return nil, nil }

func (m *memQuotes) SaveGateway(_ context.Context, q repository.Quote) error {
	m.quotes[q.ID] = q
	return nil
}

func newRouter(t *testing.T, resultURL string, quotes ...repository.Quote) (*gin.Engine, *memQuotes, *service.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memQuotes{quotes: map[int64]repository.Quote{}}
	for _, q := range quotes {
		repo.quotes[q.ID] = q
	}
	svc := service.New(repo, inlineTx{}, gateway.NewMock(), nil, nil, service.Options{
		ReturnURL:  "https://fm.test/api/v1/payments/webpay/return",
		FixedPrice: 50000,
	}, logger.Discard())
	h := New(svc, validator.New(), resultURL)

	r := gin.New()
	h.RegisterReturnRoutes(r.Group("/api/v1/payments"))
	h.RegisterStaffRoutes(r.Group("/api/v1/quotes"))
	return r, repo, svc
}

func accepted(id int64) repository.Quote {
	return repository.Quote{ID: id, CustomerID: 3, Status: repository.StatusAccepted}
}

func TestStaffPayRejectsBadInput(t *testing.T) {
	r, _, _ := newRouter(t, "", accepted(7))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/abc/pay", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/7/pay", strings.NewReader(`{"amount":0}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffPayOpensTransaction(t *testing.T) {
	r, repo, _ := newRouter(t, "", accepted(7))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/7/pay", strings.NewReader(`{"amount":12000}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var body service.TransactionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cot7", body.BuyOrder)
	assert.Equal(t, int64(12000), body.Amount)
	assert.Equal(t, repository.StatusPaymentInProgress, repo.quotes[7].Status)
}

func TestStaffPayOnPendingQuoteConflicts(t *testing.T) {
	r, _, _ := newRouter(t, "", repository.Quote{ID: 8, Status: repository.StatusPending})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/8/pay", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWebpayReturnCompletesQuote(t *testing.T) {
	r, repo, svc := newRouter(t, "", accepted(7))
	info, err := svc.CreateTransaction(context.Background(), 7, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	form := url.Values{"token_ws": {info.Token}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webpay/return", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out service.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, int64(7), out.QuoteID)
	assert.Equal(t, repository.StatusCompleted, repo.quotes[7].Status)
}

func TestWebpayAbortRedirectsToResultPage(t *testing.T) {
	q := accepted(7)
	q.Status = repository.StatusPaymentInProgress
	q.Gateway = repository.Gateway{Token: "tok", BuyOrder: "cot7", Status: repository.GatewayCreated}
	r, repo, _ := newRouter(t, "https://fm.test/pago/", q)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/webpay/return?TBK_TOKEN=tok&TBK_ORDEN_COMPRA=cot7", nil))

	require.Equal(t, http.StatusSeeOther, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/pago", loc.Path)
	assert.Equal(t, "cancelado", loc.Query().Get("pago"))
	assert.Equal(t, "7", loc.Query().Get("cotizacion"))
	assert.Equal(t, repository.GatewayAborted, repo.quotes[7].Gateway.Status)
	assert.Equal(t, repository.StatusPaymentInProgress, repo.quotes[7].Status)
}
