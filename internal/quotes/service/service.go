// Package service implements the quote lifecycle: request intake, pricing,
// acceptance, the technical report and the hand-off to payment.
package service

import (
	"context"
	"time"

	custrepo "fm_servicios_backend/internal/customers/repository"
	custsvc "fm_servicios_backend/internal/customers/service"
	"fm_servicios_backend/internal/locations"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/internal/quotes/transport"
	schedrepo "fm_servicios_backend/internal/scheduling/repository"
	schedsvc "fm_servicios_backend/internal/scheduling/service"
	techrepo "fm_servicios_backend/internal/technicians/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/db"
	"fm_servicios_backend/platform/logger"

	"github.com/shopspring/decimal"
)

// Customers finds or provisions the account behind a request.
type Customers interface {
	FindOrProvision(ctx context.Context, in custsvc.ProvisionInput) (custrepo.Customer, error)
}

// Technicians resolves who attends a quote.
type Technicians interface {
	ResolveActive(ctx context.Context, slug string) (techrepo.Technician, error)
	ForService(ctx context.Context, serviceID *int64) (techrepo.Technician, bool, error)
	ForUser(ctx context.Context, userID int64) (techrepo.Technician, error)
}

// Scheduler books the visits of a quote.
type Scheduler interface {
	Schedule(ctx context.Context, in schedsvc.ScheduleInput) (schedrepo.Visit, error)
	Reschedule(ctx context.Context, visitID int64, in schedsvc.RescheduleInput) (schedrepo.Visit, error)
	Cancel(ctx context.Context, visitID int64) error
	Get(ctx context.Context, visitID int64) (schedrepo.Visit, error)
	ActiveVisitForQuote(ctx context.Context, quoteID int64) (schedrepo.Visit, bool, error)
	AssignedToQuote(ctx context.Context, quoteID int64, technicianSlug string) (bool, error)
}

// PaymentLink is a gateway transaction ready for the customer.
type PaymentLink struct {
	Token    string
	URL      string
	PayURL   string
	BuyOrder string
	Amount   int64
}

// Payments opens gateway transactions for quotes awaiting payment.
type Payments interface {
	StartPayment(ctx context.Context, quoteID int64, amount *int64) (PaymentLink, error)
}

// Policy holds the business constants of the quoting flow.
type Policy struct {
	FixedPrice       int64
	UncoveredComunas []string
}

// Actor is the authenticated caller of a staff or technician action.
type Actor struct {
	UserID int64
	Staff  bool
}

var defaultVisitTime = clock.At(10, 0)

// Service orchestrates the quote state machine.
type Service struct {
	repo        repository.Repository
	tx          db.Transactor
	customers   Customers
	technicians Technicians
	visits      Scheduler
	catalog     locations.Catalog
	notifier    Notifier
	payments    Payments
	policy      Policy
	log         *logger.Logger
	now         func() time.Time
}

func New(
	repo repository.Repository,
	tx db.Transactor,
	customers Customers,
	technicians Technicians,
	visits Scheduler,
	catalog locations.Catalog,
	policy Policy,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		tx:          tx,
		customers:   customers,
		technicians: technicians,
		visits:      visits,
		catalog:     catalog,
		notifier:    nopNotifier{},
		policy:      policy,
		log:         log,
		now:         time.Now,
	}
}

// SetNotifier injects the customer and staff notifier.
func (s *Service) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetPayments injects the gateway transaction starter used after the informe.
func (s *Service) SetPayments(p Payments) {
	s.payments = p
}

func (s *Service) fixedPrice() decimal.Decimal {
	return decimal.NewFromInt(s.policy.FixedPrice)
}

// Get returns a quote with its items and canonical visit.
func (s *Service) Get(ctx context.Context, id int64) (transport.QuoteResponse, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	return s.detail(ctx, q)
}

// GetForCustomer is Get restricted to the quote's owner.
func (s *Service) GetForCustomer(ctx context.Context, id, customerID int64) (transport.QuoteResponse, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	if q.CustomerID != customerID {
		return transport.QuoteResponse{}, apperr.NotFound("quote not found")
	}
	return s.detail(ctx, q)
}

func (s *Service) List(ctx context.Context, req transport.ListQuotesRequest) (transport.QuoteListResponse, error) {
	params := repository.ListParams{
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      max(req.Page, 1),
		PageSize:  clampPageSize(req.PageSize),
	}
	if req.Status != "" {
		st := repository.Status(req.Status)
		params.Status = &st
	}
	return s.list(ctx, params)
}

// ListForCustomer lists the caller's own quotes, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID int64, req transport.ListQuotesRequest) (transport.QuoteListResponse, error) {
	params := repository.ListParams{
		CustomerID: &customerID,
		Page:       max(req.Page, 1),
		PageSize:   clampPageSize(req.PageSize),
	}
	if req.Status != "" {
		st := repository.Status(req.Status)
		params.Status = &st
	}
	return s.list(ctx, params)
}

func (s *Service) list(ctx context.Context, params repository.ListParams) (transport.QuoteListResponse, error) {
	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.QuoteListResponse{}, err
	}
	items := make([]transport.QuoteResponse, 0, len(result.Items))
	for _, q := range result.Items {
		items = append(items, transport.ToQuoteResponse(q))
	}
	return transport.QuoteListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

func (s *Service) detail(ctx context.Context, q repository.Quote) (transport.QuoteResponse, error) {
	items, err := s.repo.Items(ctx, q.ID)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	visit, ok, err := s.visits.ActiveVisitForQuote(ctx, q.ID)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	resp := transport.ToQuoteResponse(q)
	resp.Items = transport.ToItemResponses(items)
	if ok {
		resp.Visit = visitSummary(visit)
	}
	return resp, nil
}

func visitSummary(v schedrepo.Visit) *transport.VisitSummary {
	sum := &transport.VisitSummary{
		ID:         v.ID,
		Technician: v.TechnicianSlug,
		Name:       v.TechnicianName,
		Date:       v.Date.Format(clock.DateLayout),
		Address:    v.Address,
	}
	if v.Time != nil {
		t := v.Time.String()
		sum.Time = &t
	}
	return sum
}

func clampPageSize(size int) int {
	if size < 1 || size > 100 {
		return 20
	}
	return size
}
