package service

import (
	"context"
	"time"

	"fm_servicios_backend/internal/quotes/repository"
	schedrepo "fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/platform/clock"

	"github.com/shopspring/decimal"
)

// VisitInfo is the visit part of a customer notice.
type VisitInfo struct {
	Date       time.Time
	Time       *clock.Clock
	Technician string
	Address    string
}

// Notice describes a quote for a customer-facing message.
type Notice struct {
	QuoteID       int64
	CustomerName  string
	CustomerEmail string
	Subject       string
	ServiceTitle  string
	Message       string
	Place         string
	Region        string
	Comuna        string
	Budget        decimal.NullDecimal
	Reason        string
	Visit         *VisitInfo
}

// RequestNotice describes an incoming request as typed by the customer.
type RequestNotice struct {
	Notice
	FirstName string
	LastName  string
	Phone     string
	Body      string
	Covered   bool
}

// PaymentNotice carries the authorized amount and where to pay it.
type PaymentNotice struct {
	Notice
	Amount decimal.Decimal
	PayURL string
}

// Notifier delivers lifecycle messages. Each method reports whether the
// message was sent; a failed delivery never undoes a transition.
type Notifier interface {
	RequestReceived(ctx context.Context, n RequestNotice) bool
	RequestForStaff(ctx context.Context, n RequestNotice) bool
	QuoteReady(ctx context.Context, n Notice) bool
	QuoteAccepted(ctx context.Context, n Notice) bool
	QuoteRejected(ctx context.Context, n Notice) bool
	PaymentAuthorized(ctx context.Context, n PaymentNotice) bool
}

type nopNotifier struct{}

func (nopNotifier) RequestReceived(context.Context, RequestNotice) bool   { return false }
func (nopNotifier) RequestForStaff(context.Context, RequestNotice) bool   { return false }
func (nopNotifier) QuoteReady(context.Context, Notice) bool               { return false }
func (nopNotifier) QuoteAccepted(context.Context, Notice) bool            { return false }
func (nopNotifier) QuoteRejected(context.Context, Notice) bool            { return false }
func (nopNotifier) PaymentAuthorized(context.Context, PaymentNotice) bool { return false }

func noticeFor(q repository.Quote, v *schedrepo.Visit) Notice {
	n := Notice{
		QuoteID:       q.ID,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		Subject:       q.Subject,
		ServiceTitle:  q.ServiceTitle,
		Message:       q.Message,
		Place:         q.Place,
		Region:        q.Region,
		Comuna:        q.Comuna,
		Budget:        q.EstimatedBudget,
		Reason:        q.RejectionReason,
	}
	if v != nil {
		n.Visit = &VisitInfo{
			Date:       v.Date,
			Time:       v.Time,
			Technician: v.TechnicianName,
			Address:    v.Address,
		}
	}
	return n
}
