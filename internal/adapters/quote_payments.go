package adapters

import (
	"context"

	paysvc "fm_servicios_backend/internal/payments/service"
	quotesvc "fm_servicios_backend/internal/quotes/service"
)

// TransactionOpener is the narrow interface of the payments service used
// when an informe authorizes payment.
type TransactionOpener interface {
	CreateTransaction(ctx context.Context, quoteID int64, amount *int64) (paysvc.TransactionInfo, error)
}

// QuotePayments adapts the payments service to quotes/service.Payments.
type QuotePayments struct {
	payments TransactionOpener
}

func NewQuotePayments(payments TransactionOpener) *QuotePayments {
	return &QuotePayments{payments: payments}
}

// StartPayment opens a gateway transaction and returns the customer link.
func (a *QuotePayments) StartPayment(ctx context.Context, quoteID int64, amount *int64) (quotesvc.PaymentLink, error) {
	info, err := a.payments.CreateTransaction(ctx, quoteID, amount)
	if err != nil {
		return quotesvc.PaymentLink{}, err
	}
	return quotesvc.PaymentLink{
		Token:    info.Token,
		URL:      info.URL,
		PayURL:   info.PayURL,
		BuyOrder: info.BuyOrder,
		Amount:   info.Amount,
	}, nil
}

var _ quotesvc.Payments = (*QuotePayments)(nil)
