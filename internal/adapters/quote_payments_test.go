package adapters

import (
	"context"
	"errors"
	"testing"

	paysvc "fm_servicios_backend/internal/payments/service"
)

type stubOpener struct {
	info   paysvc.TransactionInfo
	err    error
	amount *int64
}

func (s *stubOpener) CreateTransaction(_ context.Context, _ int64, amount *int64) (paysvc.TransactionInfo, error) {
	s.amount = amount
	return s.info, s.err
}

func TestStartPaymentCopiesTransaction(t *testing.T) {
	opener := &stubOpener{info: paysvc.TransactionInfo{
		Token: "01ab", URL: "https://webpay.test/init", PayURL: "https://webpay.test/init?token_ws=01ab",
		BuyOrder: "cot9", Amount: 59500,
	}}
	amount := int64(59500)

	link, err := NewQuotePayments(opener).StartPayment(context.Background(), 9, &amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.PayURL != "https://webpay.test/init?token_ws=01ab" || link.BuyOrder != "cot9" || link.Amount != 59500 {
		t.Fatalf("unexpected link: %#v", link)
	}
	if opener.amount == nil || *opener.amount != 59500 {
		t.Fatalf("amount not forwarded: %v", opener.amount)
	}
}

func TestStartPaymentPropagatesErrors(t *testing.T) {
	opener := &stubOpener{err: errors.New("gateway down")}

	if _, err := NewQuotePayments(opener).StartPayment(context.Background(), 9, nil); err == nil {
		t.Fatal("expected error")
	}
}
