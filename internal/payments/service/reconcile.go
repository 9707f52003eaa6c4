package service

import (
	"context"
	"strings"

	"fm_servicios_backend/internal/events"
	"fm_servicios_backend/internal/payments/gateway"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

// QuoteRef locates the quote of a gateway callback: by token first, then by
// buy order.
type QuoteRef struct {
	Token    string
	BuyOrder string
}

// Outcome is the result of a reconciliation.
type Outcome struct {
	QuoteID          int64  `json:"quoteId"`
	Success          bool   `json:"success"`
	AlreadyCompleted bool   `json:"alreadyCompleted"`
	Status           string `json:"status"`
	ResponseCode     *int   `json:"responseCode,omitempty"`
}

// ReturnParams are the fields Webpay posts back to the return URL.
type ReturnParams struct {
	TokenWS        string
	TBKOrdenCompra string
	TBKToken       string
}

// Reconcile applies a commit result to its quote. An authorized result
// completes the quote once; replays on a completed quote change nothing.
func (s *Service) Reconcile(ctx context.Context, ref QuoteRef, res gateway.CommitResult) (Outcome, error) {
	success := res.Authorized()
	var (
		q   repository.Quote
		out Outcome
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.lockQuote(ctx, ref)
		if err != nil {
			return err
		}
		out = Outcome{QuoteID: q.ID, Status: res.Status, ResponseCode: res.ResponseCode}

		if q.Status == repository.StatusCompleted {
			out.Success = success
			out.AlreadyCompleted = true
			out.Status = q.Gateway.Status
			return nil
		}

		if superseded(q, ref) {
			if !success {
				s.log.Warn("ignoring result of replaced payment transaction", "quoteId", q.ID, "status", res.Status)
				return nil
			}
			q.Gateway.Token = ref.Token
		}
		if res.Status != "" {
			q.Gateway.Status = res.Status
		}
		q.Gateway.ResponseCode = res.ResponseCode
		if !success {
			return s.repo.SaveGateway(ctx, q)
		}

		if res.AuthorizationCode != "" {
			q.Gateway.AuthCode = res.AuthorizationCode
		}
		q.Gateway.CardLast4 = res.CardLast4
		from := q.Status
		now := s.now()
		q.Status = repository.StatusCompleted
		q.ResolvedAt = &now
		if err := s.repo.SaveGateway(ctx, q); err != nil {
			return err
		}
		s.log.Transition(q.ID, string(from), string(q.Status))
		out.Success = true
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if out.Success && !out.AlreadyCompleted {
		s.afterPayment(ctx, q, res)
	} else if !out.Success {
		s.log.Warn("payment not authorized", "quoteId", q.ID, "status", res.Status, "responseCode", res.ResponseCode)
	}
	return out, nil
}

// HandleReturn processes the Webpay return. A missing token_ws means the
// customer aborted the payment form.
func (s *Service) HandleReturn(ctx context.Context, p ReturnParams) (Outcome, error) {
	token := strings.TrimSpace(p.TokenWS)
	if token == "" {
		return s.markAborted(ctx, QuoteRef{Token: strings.TrimSpace(p.TBKToken), BuyOrder: strings.TrimSpace(p.TBKOrdenCompra)})
	}

	res, err := s.Commit(ctx, token)
	if err != nil {
		s.markGateway(ctx, QuoteRef{Token: token, BuyOrder: p.TBKOrdenCompra}, repository.GatewayError)
		return Outcome{Status: repository.GatewayError}, err
	}
	return s.Reconcile(ctx, QuoteRef{Token: token, BuyOrder: res.BuyOrder}, res)
}

// HandleMercadoPagoReturn processes the Mercado Pago back URL. Without a
// payment ID the checkout was abandoned.
func (s *Service) HandleMercadoPagoReturn(ctx context.Context, paymentID, externalReference string) (Outcome, error) {
	ref := QuoteRef{BuyOrder: strings.TrimSpace(externalReference)}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" || paymentID == "null" {
		return s.markAborted(ctx, ref)
	}

	res, err := s.Commit(ctx, paymentID)
	if err != nil {
		s.markGateway(ctx, ref, repository.GatewayError)
		return Outcome{Status: repository.GatewayError}, err
	}
	if res.BuyOrder != "" {
		ref.BuyOrder = res.BuyOrder
	}
	return s.Reconcile(ctx, ref, res)
}

func (s *Service) markAborted(ctx context.Context, ref QuoteRef) (Outcome, error) {
	id := s.markGateway(ctx, ref, repository.GatewayAborted)
	s.log.Info("payment aborted by customer", "quoteId", id, "buyOrder", ref.BuyOrder)
	return Outcome{QuoteID: id, Status: repository.GatewayAborted}, nil
}

// markGateway records a terminal tb_status without touching the quote
// state. Unknown references, completed quotes and replaced transactions are
// left alone.
func (s *Service) markGateway(ctx context.Context, ref QuoteRef, status string) int64 {
	var id int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		q, err := s.lockQuote(ctx, ref)
		if err != nil {
			return err
		}
		id = q.ID
		if q.Status == repository.StatusCompleted || superseded(q, ref) {
			return nil
		}
		q.Gateway.Status = status
		return s.repo.SaveGateway(ctx, q)
	})
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		s.log.Error("failed to record gateway status", "error", err, "status", status, "buyOrder", ref.BuyOrder)
	}
	return id
}

func (s *Service) lockQuote(ctx context.Context, ref QuoteRef) (repository.Quote, error) {
	var (
		q   repository.Quote
		err error
	)
	switch {
	case ref.Token != "":
		q, err = s.repo.FindByToken(ctx, ref.Token)
		if apperr.Is(err, apperr.KindNotFound) && ref.BuyOrder != "" {
			q, err = s.repo.FindByBuyOrder(ctx, ref.BuyOrder)
		}
	case ref.BuyOrder != "":
		q, err = s.repo.FindByBuyOrder(ctx, ref.BuyOrder)
	default:
		return repository.Quote{}, apperr.NotFound("payment reference not found")
	}
	if err != nil {
		return repository.Quote{}, err
	}
	return s.repo.GetForUpdate(ctx, q.ID)
}

// superseded reports whether ref names an older transaction than the one the
// quote holds. A late authorization still completes the quote.
func superseded(q repository.Quote, ref QuoteRef) bool {
	return ref.Token != "" && q.Gateway.Token != "" && q.Gateway.Token != ref.Token
}

// afterPayment issues the invoice, sends the receipt and announces the
// payment. Failures are logged; the payment stands.
func (s *Service) afterPayment(ctx context.Context, q repository.Quote, res gateway.CommitResult) {
	amount := decimal.NewFromInt(res.Amount)
	if q.EstimatedBudget.Valid {
		amount = q.EstimatedBudget.Decimal
	}

	receipt := Receipt{Quote: q, Amount: amount, Provider: s.gateway.Name()}
	if s.invoicer != nil {
		issued, err := s.invoicer.Issue(ctx, q.ID)
		if err != nil {
			s.log.Error("invoice issue failed", "error", err, "quoteId", q.ID)
		} else {
			receipt.PDF = issued.PDF
			receipt.FileName = issued.FileName
		}
	}
	if s.receipts != nil && !s.receipts.PaymentReceipt(ctx, receipt) {
		s.log.Warn("payment receipt not delivered", "quoteId", q.ID)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.PaymentCompleted{
			BaseEvent:     events.NewBaseEvent(),
			QuoteID:       q.ID,
			Amount:        amount.Round(0).IntPart(),
			AuthCode:      q.Gateway.AuthCode,
			CustomerPhone: q.CustomerPhone,
		})
	}
}
