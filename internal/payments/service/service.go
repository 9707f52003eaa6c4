// Package service opens gateway transactions for quotes and reconciles their
// outcome into the quote lifecycle.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fm_servicios_backend/internal/events"
	"fm_servicios_backend/internal/invoicing"
	"fm_servicios_backend/internal/payments/audit"
	"fm_servicios_backend/internal/payments/gateway"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/db"
	"fm_servicios_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// minAmount is charged when a quote has no positive total.
const minAmount = 10

// Invoicer issues the invoice of a paid quote.
type Invoicer interface {
	Issue(ctx context.Context, quoteID int64) (invoicing.Issued, error)
}

// Receipt is the payment confirmation sent to the customer.
type Receipt struct {
	Quote    repository.Quote
	Amount   decimal.Decimal
	Provider string
	PDF      []byte
	FileName string
}

// Receipts delivers payment confirmations.
type Receipts interface {
	PaymentReceipt(ctx context.Context, r Receipt) bool
}

// TransactionInfo is an opened transaction.
type TransactionInfo struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	PayURL   string `json:"payUrl"`
	BuyOrder string `json:"buyOrder"`
	Amount   int64  `json:"amount"`
}

// Options configure the service.
type Options struct {
	ReturnURL  string
	Timeout    time.Duration
	FixedPrice int64
}

// Service coordinates the gateway with quote storage.
type Service struct {
	repo     repository.Repository
	tx       db.Transactor
	gateway  gateway.Gateway
	journal  audit.Journal
	invoicer Invoicer
	receipts Receipts
	bus      events.Bus
	opts     Options
	log      *logger.Logger
	now      func() time.Time
	suffix   func() string
}

func New(repo repository.Repository, tx db.Transactor, gw gateway.Gateway, journal audit.Journal, bus events.Bus, opts Options, log *logger.Logger) *Service {
	if journal == nil {
		journal = audit.Noop{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Service{
		repo:    repo,
		tx:      tx,
		gateway: gw,
		journal: journal,
		bus:     bus,
		opts:    opts,
		log:     log,
		now:     time.Now,
		suffix:  randomSuffix,
	}
}

// SetInvoicer injects the invoice issuer used after a payment completes.
func (s *Service) SetInvoicer(inv Invoicer) {
	s.invoicer = inv
}

// SetReceipts injects the receipt notifier.
func (s *Service) SetReceipts(r Receipts) {
	s.receipts = r
}

// Provider names the configured gateway.
func (s *Service) Provider() string {
	return s.gateway.Name()
}

// CreateForCustomer opens a transaction on one of the caller's own quotes.
func (s *Service) CreateForCustomer(ctx context.Context, quoteID, customerID int64) (TransactionInfo, error) {
	q, err := s.repo.Get(ctx, quoteID)
	if err != nil {
		return TransactionInfo{}, err
	}
	if q.CustomerID != customerID {
		return TransactionInfo{}, apperr.Forbidden("quote belongs to another customer")
	}
	return s.CreateTransaction(ctx, quoteID, nil)
}

// CreateTransaction opens a gateway transaction for an accepted or
// in-payment quote. A nil amount charges the quote's authorized total.
func (s *Service) CreateTransaction(ctx context.Context, quoteID int64, amount *int64) (TransactionInfo, error) {
	q, err := s.repo.Get(ctx, quoteID)
	if err != nil {
		return TransactionInfo{}, err
	}
	if err := ensurePayable(q); err != nil {
		return TransactionInfo{}, err
	}

	total := int64(0)
	if amount != nil {
		total = *amount
	} else if total, err = s.quoteTotal(ctx, q); err != nil {
		return TransactionInfo{}, err
	}
	if total <= 0 {
		total = minAmount
	}

	req := gateway.CreateRequest{
		BuyOrder:  BuyOrder(q.ID),
		SessionID: fmt.Sprintf("user-%d-%s", q.CustomerID, s.suffix()),
		Amount:    total,
		ReturnURL: s.opts.ReturnURL,
	}

	started := time.Now()
	gwCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	resp, err := s.gateway.Create(gwCtx, req)
	cancel()
	s.log.ExternalCall(s.gateway.Name(), "create", started, err)
	s.record(ctx, audit.Entry{
		QuoteID: q.ID, Provider: s.gateway.Name(), Operation: audit.OpCreate,
		BuyOrder: req.BuyOrder, Token: resp.Token, Amount: total, Error: errText(err),
	})
	if err != nil {
		return TransactionInfo{}, apperr.External("could not start the payment", err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetForUpdate(ctx, q.ID)
		if err != nil {
			return err
		}
		if err := ensurePayable(locked); err != nil {
			return err
		}

		from := locked.Status
		now := s.now()
		locked.Gateway = repository.Gateway{
			Token:       resp.Token,
			BuyOrder:    req.BuyOrder,
			SessionID:   req.SessionID,
			Status:      repository.GatewayCreated,
			RedirectURL: resp.URL,
			CreatedAt:   &now,
		}
		locked.Status = repository.StatusPaymentInProgress
		if err := s.repo.SaveGateway(ctx, locked); err != nil {
			return err
		}
		if from != locked.Status {
			s.log.Transition(locked.ID, string(from), string(locked.Status))
		}
		return nil
	})
	if err != nil {
		return TransactionInfo{}, err
	}

	return TransactionInfo{
		Token:    resp.Token,
		URL:      resp.URL,
		PayURL:   resp.PayURL,
		BuyOrder: req.BuyOrder,
		Amount:   total,
	}, nil
}

// Commit asks the gateway for the outcome of token. It is never retried.
func (s *Service) Commit(ctx context.Context, token string) (gateway.CommitResult, error) {
	started := time.Now()
	gwCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	res, err := s.gateway.Commit(gwCtx, token)
	cancel()
	s.log.ExternalCall(s.gateway.Name(), "commit", started, err)

	s.record(ctx, audit.Entry{
		QuoteID: quoteIDFromBuyOrder(res.BuyOrder), Provider: s.gateway.Name(), Operation: audit.OpCommit,
		BuyOrder: res.BuyOrder, Token: token, Amount: res.Amount, Status: res.Status,
		ResponseCode: res.ResponseCode, Error: errText(err),
	})
	if err != nil {
		return gateway.CommitResult{}, apperr.External("could not confirm the payment", err)
	}
	return res, nil
}

// ExpireStale marks CREATED transactions older than olderThan as EXPIRED.
// The quotes stay in PROCESO_PAGO so a new transaction can be opened.
func (s *Service) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	ids, err := s.repo.ExpireGateway(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.log.Info("expired stale payment transactions", "count", len(ids), "quoteIds", ids)
	}
	return len(ids), nil
}

func (s *Service) quoteTotal(ctx context.Context, q repository.Quote) (int64, error) {
	if q.EstimatedBudget.Valid && q.EstimatedBudget.Decimal.IsPositive() {
		return q.EstimatedBudget.Decimal.Round(0).IntPart(), nil
	}
	items, err := s.repo.Items(ctx, q.ID)
	if err != nil {
		return 0, err
	}
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Quantity.Mul(it.UnitPrice))
	}
	if sum.IsPositive() {
		return sum.Round(0).IntPart(), nil
	}
	return s.opts.FixedPrice, nil
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if err := s.journal.Record(ctx, e); err != nil {
		s.log.Warn("payment audit write failed", "error", err, "operation", e.Operation, "buyOrder", e.BuyOrder)
	}
}

func ensurePayable(q repository.Quote) error {
	switch q.Status {
	case repository.StatusAccepted, repository.StatusPaymentInProgress:
		return nil
	case repository.StatusCompleted:
		return apperr.StateConflict("quote is already paid").WithDetails(map[string]string{"status": string(q.Status)})
	}
	return apperr.StateConflict("only accepted quotes can be paid").WithDetails(map[string]string{"status": string(q.Status)})
}

// BuyOrder is the gateway order reference of a quote.
func BuyOrder(quoteID int64) string {
	return fmt.Sprintf("cot%d", quoteID)
}

func quoteIDFromBuyOrder(buyOrder string) int64 {
	var id int64
	if _, err := fmt.Sscanf(buyOrder, "cot%d", &id); err != nil {
		return 0
	}
	return id
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
