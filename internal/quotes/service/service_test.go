package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	custrepo "fm_servicios_backend/internal/customers/repository"
	custsvc "fm_servicios_backend/internal/customers/service"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/internal/quotes/transport"
	schedrepo "fm_servicios_backend/internal/scheduling/repository"
	schedsvc "fm_servicios_backend/internal/scheduling/service"
	schedtransport "fm_servicios_backend/internal/scheduling/transport"
	techrepo "fm_servicios_backend/internal/technicians/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type memQuotes struct {
	quotes    map[int64]repository.Quote
	items     map[int64][]repository.Item
	customers map[int64]custrepo.Customer
	services  map[int64]string
	nextID    int64
}

func (m *memQuotes) Create(_ context.Context, p repository.CreateParams) (repository.Quote, error) {
	m.nextID++
	c := m.customers[p.CustomerID]
	q := repository.Quote{
		ID: m.nextID, CustomerID: p.CustomerID, CustomerName: c.FullName(), CustomerEmail: c.Email,
		BuildingID: p.BuildingID, ServiceID: p.ServiceID, Subject: p.Subject, Message: p.Message,
		EstimatedBudget: p.EstimatedBudget, Place: p.Place, Region: p.Region, Comuna: p.Comuna,
		Status: p.Status, ResolvedAt: p.ResolvedAt, RejectionReason: p.RejectionReason,
	}
	if p.ServiceID != nil {
		q.ServiceTitle = m.services[*p.ServiceID]
	}
	m.quotes[q.ID] = q
	return q, nil
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

func (m *memQuotes) List(_ context.Context, p repository.ListParams) (repository.ListResult, error) {
	var out []repository.Quote
	for id := int64(1); id <= m.nextID; id++ {
		q, ok := m.quotes[id]
		if !ok {
			continue
		}
		if p.CustomerID != nil && q.CustomerID != *p.CustomerID {
			continue
		}
		if p.Status != nil && q.Status != *p.Status {
			continue
		}
		out = append(out, q)
	}
	return repository.ListResult{Items: out, Total: len(out), Page: p.Page, PageSize: p.PageSize, TotalPages: 1}, nil
}

func (m *memQuotes) ServiceTitle(_ context.Context, serviceID int64) (string, error) {
	title, ok := m.services[serviceID]
	if !ok {
		return "", apperr.NotFound("service not found")
	}
	return title, nil
}

func (m *memQuotes) Items(_ context.Context, quoteID int64) ([]repository.Item, error) {
	return m.items[quoteID], nil
}

func (m *memQuotes) SaveState(_ context.Context, q repository.Quote) error {
	cur, ok := m.quotes[q.ID]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	cur.Status = q.Status
	cur.ResolvedAt = q.ResolvedAt
	cur.RejectionReason = q.RejectionReason
	cur.EstimatedBudget = q.EstimatedBudget
	m.quotes[q.ID] = cur
	return nil
}

func (m *memQuotes) ReplaceItems(_ context.Context, quoteID int64, items []repository.Item) error {
	m.items[quoteID] = items
	return nil
}

func (m *memQuotes) SaveGateway(_ context.Context, q repository.Quote) error {
	m.quotes[q.ID] = q
	return nil
}

func (m *memQuotes) ExpireGateway(context.Context, time.Time) ([]int64, error) {
	return nil, nil
}

type fakeCustomers struct {
	repo *memQuotes
}

func (f fakeCustomers) FindOrProvision(_ context.Context, in custsvc.ProvisionInput) (custrepo.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	for _, c := range f.repo.customers {
		if c.Email == email {
			return c, nil
		}
	}
	id := int64(len(f.repo.customers) + 100)
	first, last, _ := strings.Cut(in.Name, " ")
	c := custrepo.Customer{ID: id, Email: email, FirstName: first, LastName: last, Phone: in.Phone, Role: "CLIENTE"}
	f.repo.customers[id] = c
	return c, nil
}

type fakeTechnicians struct {
	items []techrepo.Technician
}

func (f fakeTechnicians) ResolveActive(_ context.Context, slug string) (techrepo.Technician, error) {
	for _, t := range f.items {
		if t.Slug == slug && t.Active {
			return t, nil
		}
	}
	return techrepo.Technician{}, apperr.Validation("unknown technician").WithField("technician")
}

func (f fakeTechnicians) ForService(context.Context, *int64) (techrepo.Technician, bool, error) {
	for _, t := range f.items {
		if t.Active {
			return t, true, nil
		}
	}
	return techrepo.Technician{}, false, nil
}

func (f fakeTechnicians) ForUser(_ context.Context, userID int64) (techrepo.Technician, error) {
	for _, t := range f.items {
		if t.UserID != nil && *t.UserID == userID {
			return t, nil
		}
	}
	return techrepo.Technician{}, apperr.Forbidden("not a technician")
}

// memVisits books visits and rejects two timed visits of one technician
// on the same slot.
type memVisits struct {
	visits map[int64]schedrepo.Visit
	nextID int64
}

func (m *memVisits) taken(slug string, date time.Time, at *clock.Clock, exclude int64) bool {
	if at == nil {
		return false
	}
	for _, v := range m.visits {
		if v.ID == exclude || v.TechnicianSlug != slug || v.Time == nil {
			continue
		}
		if v.Date.Equal(date) && *v.Time == *at {
			return true
		}
	}
	return false
}

func (m *memVisits) Schedule(_ context.Context, in schedsvc.ScheduleInput) (schedrepo.Visit, error) {
	if m.taken(in.Technician.Slug, in.Date, in.Time, 0) {
		return schedrepo.Visit{}, apperr.SchedulingConflict("slot taken")
	}
	m.nextID++
	v := schedrepo.Visit{
		ID: m.nextID, TechnicianSlug: in.Technician.Slug, TechnicianName: in.Technician.Name,
		QuoteID: in.QuoteID, CustomerName: in.CustomerName, CustomerEmail: in.CustomerEmail,
		Region: in.Region, Comuna: in.Comuna, Date: in.Date, Time: in.Time,
		Address: in.Address, Notes: in.Notes,
	}
	m.visits[v.ID] = v
	return v, nil
}

func (m *memVisits) Reschedule(_ context.Context, id int64, in schedsvc.RescheduleInput) (schedrepo.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return schedrepo.Visit{}, apperr.NotFound("visit not found")
	}
	if in.Technician != nil {
		v.TechnicianSlug, v.TechnicianName = in.Technician.Slug, in.Technician.Name
	}
	if in.Date != nil {
		v.Date = *in.Date
	}
	if in.Time != nil {
		v.Time = in.Time
	}
	if in.ClearTime {
		v.Time = nil
	}
	if m.taken(v.TechnicianSlug, v.Date, v.Time, id) {
		return schedrepo.Visit{}, apperr.SchedulingConflict("slot taken")
	}
	m.visits[id] = v
	return v, nil
}

func (m *memVisits) Cancel(_ context.Context, id int64) error {
	if _, ok := m.visits[id]; !ok {
		return apperr.NotFound("visit not found")
	}
	delete(m.visits, id)
	return nil
}

func (m *memVisits) Get(_ context.Context, id int64) (schedrepo.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return schedrepo.Visit{}, apperr.NotFound("visit not found")
	}
	return v, nil
}

func (m *memVisits) ActiveVisitForQuote(_ context.Context, quoteID int64) (schedrepo.Visit, bool, error) {
	var best schedrepo.Visit
	found := false
	for _, v := range m.visits {
		if v.QuoteID == nil || *v.QuoteID != quoteID {
			continue
		}
		if !found || v.ID < best.ID {
			best, found = v, true
		}
	}
	return best, found, nil
}

func (m *memVisits) AssignedToQuote(_ context.Context, quoteID int64, slug string) (bool, error) {
	for _, v := range m.visits {
		if v.QuoteID != nil && *v.QuoteID == quoteID && v.TechnicianSlug == slug {
			return true, nil
		}
	}
	return false, nil
}

type mapCatalog map[string][]string

func (c mapCatalog) Regions(context.Context) ([]string, error) {
	out := make([]string, 0, len(c))
	for r := range c {
		out = append(out, r)
	}
	return out, nil
}

func (c mapCatalog) Comunas(_ context.Context, region string) ([]string, error) {
	return c[region], nil
}

type fakePayments struct {
	calls   []int64
	amounts []int64
	err     error
}

func (f *fakePayments) StartPayment(_ context.Context, quoteID int64, amount *int64) (PaymentLink, error) {
	if f.err != nil {
		return PaymentLink{}, f.err
	}
	f.calls = append(f.calls, quoteID)
	f.amounts = append(f.amounts, *amount)
	token := fmt.Sprintf("tok-%d", quoteID)
	return PaymentLink{
		Token:    token,
		URL:      "https://webpay3gint.transbank.cl/webpayserver/initTransaction",
		PayURL:   "https://webpay3gint.transbank.cl/webpayserver/initTransaction?token_ws=" + token,
		BuyOrder: fmt.Sprintf("FM-%d", quoteID),
		Amount:   *amount,
	}, nil
}

type recNotifier struct {
	nopNotifier
	ready    []Notice
	accepted []Notice
	rejected []Notice
	paid     []PaymentNotice
	received []RequestNotice
}

func (r *recNotifier) RequestReceived(_ context.Context, n RequestNotice) bool {
	r.received = append(r.received, n)
	return true
}

func (r *recNotifier) QuoteReady(_ context.Context, n Notice) bool {
	r.ready = append(r.ready, n)
	return true
}

func (r *recNotifier) QuoteAccepted(_ context.Context, n Notice) bool {
	r.accepted = append(r.accepted, n)
	return true
}

func (r *recNotifier) QuoteRejected(_ context.Context, n Notice) bool {
	r.rejected = append(r.rejected, n)
	return true
}

func (r *recNotifier) PaymentAuthorized(_ context.Context, n PaymentNotice) bool {
	r.paid = append(r.paid, n)
	return true
}

type fixture struct {
	svc      *Service
	quotes   *memQuotes
	visits   *memVisits
	payments *fakePayments
	notes    *recNotifier
}

var techUserID int64 = 77

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quotes := &memQuotes{
		quotes:    map[int64]repository.Quote{},
		items:     map[int64][]repository.Item{},
		customers: map[int64]custrepo.Customer{},
		services:  map[int64]string{1: "Gasfitería"},
	}
	visits := &memVisits{visits: map[int64]schedrepo.Visit{}}
	techs := fakeTechnicians{items: []techrepo.Technician{
		{ID: 1, Slug: "juan-perez", FirstName: "Juan", LastName: "Perez", UserID: &techUserID, Active: true},
		{ID: 2, Slug: "ana-soto", FirstName: "Ana", LastName: "Soto", Active: true},
	}}
	catalog := mapCatalog{
		"Metropolitana de Santiago": {"Santiago", "Ñuñoa", "Providencia"},
		"Valparaíso":                {"Isla de Pascua", "Viña del Mar"},
	}
	policy := Policy{FixedPrice: 50000, UncoveredComunas: []string{"Isla de Pascua"}}

	svc := New(quotes, inlineTx{}, fakeCustomers{repo: quotes}, techs, visits, catalog, policy, logger.Discard())
	svc.now = func() time.Time { return time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC) }
	payments := &fakePayments{}
	notes := &recNotifier{}
	svc.SetPayments(payments)
	svc.SetNotifier(notes)
	return &fixture{svc: svc, quotes: quotes, visits: visits, payments: payments, notes: notes}
}

func (f *fixture) request(t *testing.T, comuna string) CreateResult {
	t.Helper()
	res, err := f.svc.Create(context.Background(), transport.CreateRequestRequest{
		FirstName: "María",
		LastName:  "González",
		Email:     "Maria@Example.cl",
		Phone:     "9 1234 5678",
		Subject:   "Filtración en baño",
		Region:    "metropolitana de santiago",
		Comuna:    comuna,
		Place:     "Av. Siempre Viva 123",
		Message:   "Gotea el lavamanos",
	})
	require.NoError(t, err)
	return res
}

func TestCreateOpensPendingQuoteWithProvisionalVisit(t *testing.T) {
	f := newFixture(t)

	res := f.request(t, "nunoa")

	assert.True(t, res.Covered)
	assert.True(t, res.Notified)
	assert.Equal(t, repository.StatusPending, res.Quote.Status)
	assert.Equal(t, "Ñuñoa", res.Quote.Comuna)
	assert.Equal(t, "maria@example.cl", res.Quote.CustomerEmail)
	assert.Contains(t, res.Quote.Message, "Teléfono: +56912345678")
	assert.Contains(t, res.Quote.Message, "Región/Comuna: Metropolitana de Santiago/Ñuñoa")
	assert.True(t, strings.HasSuffix(res.Quote.Message, "\n\nGotea el lavamanos"))

	require.NotNil(t, res.Quote.Visit)
	assert.Equal(t, "2025-03-13", res.Quote.Visit.Date)
	require.NotNil(t, res.Quote.Visit.Time)
	assert.Equal(t, "10:00", *res.Quote.Visit.Time)
	require.Len(t, f.notes.received, 1)
	assert.Equal(t, "Maria@Example.cl", f.notes.received[0].CustomerEmail)
}

func TestCreateRejectsUncoveredComuna(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Create(context.Background(), transport.CreateRequestRequest{
		FirstName: "Pedro",
		Email:     "pedro@example.cl",
		Subject:   "Pintura",
		Region:    "Valparaiso",
		Comuna:    "isla de pascua",
	})
	require.NoError(t, err)

	assert.False(t, res.Covered)
	assert.Equal(t, repository.StatusRejected, res.Quote.Status)
	assert.Equal(t, "No contamos con cobertura en Isla de Pascua.", res.Quote.RejectionReason)
	assert.NotNil(t, res.Quote.ResolvedAt)
	assert.Nil(t, res.Quote.Visit)
	assert.Empty(t, f.visits.visits)
}

func TestCreateRejectsBadPhone(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), transport.CreateRequestRequest{
		FirstName: "Pedro",
		Email:     "pedro@example.cl",
		Phone:     "12",
		Subject:   "Pintura",
		Region:    "Metropolitana de Santiago",
		Comuna:    "Santiago",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, f.quotes.quotes)
}

func TestCreateFallsBackToUntimedVisitWhenSlotTaken(t *testing.T) {
	f := newFixture(t)
	first := f.request(t, "Santiago")
	require.NotNil(t, first.Quote.Visit)

	second := f.request(t, "Providencia")

	require.NotNil(t, second.Quote.Visit)
	assert.Nil(t, second.Quote.Visit.Time)
	assert.Equal(t, first.Quote.Visit.Date, second.Quote.Visit.Date)
}

func TestPriceAndSendMovesVisitToChosenTechnician(t *testing.T) {
	f := newFixture(t)
	created := f.request(t, "Santiago")

	res, err := f.svc.PriceAndSend(context.Background(), created.Quote.ID, PriceAndSendInput{
		Price:          "$59.500",
		TechnicianSlug: "ana-soto",
	})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusSent, res.Quote.Status)
	require.NotNil(t, res.Quote.EstimatedBudget)
	assert.Equal(t, int64(59500), *res.Quote.EstimatedBudget)
	require.NotNil(t, res.Quote.Visit)
	assert.Equal(t, "ana-soto", res.Quote.Visit.Technician)
	assert.Equal(t, created.Quote.Visit.ID, res.Quote.Visit.ID)
	assert.Len(t, f.notes.ready, 1)
}

func TestPriceAndSendKeepsDayWhenTechnicianBusyAtDefaultSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	require.NotNil(t, created.Quote.Visit)
	at := defaultVisitTime
	_, err := f.visits.Schedule(ctx, schedsvc.ScheduleInput{
		Technician: schedsvc.TechnicianRef{Slug: "ana-soto", Name: "Ana Soto"},
		Date:       time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
		Time:       &at,
	})
	require.NoError(t, err)

	res, err := f.svc.PriceAndSend(ctx, created.Quote.ID, PriceAndSendInput{Price: "40000", TechnicianSlug: "ana-soto"})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusSent, res.Quote.Status)
	require.NotNil(t, res.Quote.Visit)
	assert.Equal(t, created.Quote.Visit.ID, res.Quote.Visit.ID)
	assert.Equal(t, "ana-soto", res.Quote.Visit.Technician)
	assert.Equal(t, "2025-03-13", res.Quote.Visit.Date)
	assert.Nil(t, res.Quote.Visit.Time)
}

func TestPriceAndSendBooksUntimedVisitWhenTodayTenIsTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	delete(f.visits.visits, created.Quote.Visit.ID)
	at := defaultVisitTime
	_, err := f.visits.Schedule(ctx, schedsvc.ScheduleInput{
		Technician: schedsvc.TechnicianRef{Slug: "ana-soto", Name: "Ana Soto"},
		Date:       time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		Time:       &at,
	})
	require.NoError(t, err)

	res, err := f.svc.PriceAndSend(ctx, created.Quote.ID, PriceAndSendInput{Price: "40000", TechnicianSlug: "ana-soto"})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusSent, f.quotes.quotes[created.Quote.ID].Status)
	require.NotNil(t, res.Quote.Visit)
	assert.Equal(t, "2025-03-12", res.Quote.Visit.Date)
	assert.Nil(t, res.Quote.Visit.Time)
}

func TestPriceAndSendRefusesTakenSlotThatStaffPicked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	at := defaultVisitTime
	day := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	_, err := f.visits.Schedule(ctx, schedsvc.ScheduleInput{
		Technician: schedsvc.TechnicianRef{Slug: "ana-soto", Name: "Ana Soto"},
		Date:       day,
		Time:       &at,
	})
	require.NoError(t, err)

	_, err = f.svc.PriceAndSend(ctx, created.Quote.ID, PriceAndSendInput{
		Price: "40000", TechnicianSlug: "ana-soto", Date: &day, Time: &at,
	})
	assert.True(t, apperr.Is(err, apperr.KindSchedulingConflict))
	assert.Equal(t, repository.StatusPending, f.quotes.quotes[created.Quote.ID].Status)
}

func TestPriceAndSendValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t)
	created := f.request(t, "Santiago")

	_, err := f.svc.PriceAndSend(context.Background(), created.Quote.ID, PriceAndSendInput{Price: "0", TechnicianSlug: "ana-soto"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.PriceAndSend(context.Background(), created.Quote.ID, PriceAndSendInput{Price: "1000", TechnicianSlug: "ghost"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.Equal(t, repository.StatusPending, f.quotes.quotes[created.Quote.ID].Status)
}

func TestStateMachineRejectsIllegalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	id := created.Quote.ID
	owner := created.Quote.CustomerID

	_, err := f.svc.CustomerAccept(ctx, id, owner)
	assert.True(t, apperr.Is(err, apperr.KindStateConflict), "pending quotes are not customer-acceptable")

	_, err = f.svc.PriceAndSend(ctx, id, PriceAndSendInput{Price: "40000", TechnicianSlug: "juan-perez"})
	require.NoError(t, err)

	_, err = f.svc.CustomerReject(ctx, id, owner+1, "no")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	res, err := f.svc.CustomerReject(ctx, id, owner, "Muy caro")
	require.NoError(t, err)
	assert.Equal(t, repository.StatusRejected, res.Quote.Status)
	assert.Equal(t, "Muy caro", res.Quote.RejectionReason)
	assert.NotNil(t, res.Quote.ResolvedAt)

	_, err = f.svc.CustomerAccept(ctx, id, owner)
	assert.True(t, apperr.Is(err, apperr.KindStateConflict))
	_, err = f.svc.StaffAccept(ctx, id, nil)
	assert.True(t, apperr.Is(err, apperr.KindStateConflict))
	_, err = f.svc.PriceAndSend(ctx, id, PriceAndSendInput{Price: "40000", TechnicianSlug: "juan-perez"})
	assert.True(t, apperr.Is(err, apperr.KindStateConflict))
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	created := f.request(t, "Santiago")

	_, err := f.svc.StaffReject(context.Background(), created.Quote.ID, "   ")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, repository.StatusPending, f.quotes.quotes[created.Quote.ID].Status)
}

func TestStaffAcceptUsesFixedPriceWhenUnpriced(t *testing.T) {
	f := newFixture(t)
	created := f.request(t, "Santiago")

	res, err := f.svc.StaffAccept(context.Background(), created.Quote.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, repository.StatusAccepted, res.Quote.Status)
	require.NotNil(t, res.Quote.EstimatedBudget)
	assert.Equal(t, int64(50000), *res.Quote.EstimatedBudget)
	assert.NotNil(t, res.Quote.ResolvedAt)
	assert.Len(t, f.notes.accepted, 1)
}

func TestStaffAcceptRejectsBadPriceWithoutChanges(t *testing.T) {
	f := newFixture(t)
	created := f.request(t, "Santiago")
	bad := "abc"

	_, err := f.svc.StaffAccept(context.Background(), created.Quote.ID, &bad)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, repository.StatusPending, f.quotes.quotes[created.Quote.ID].Status)
}

func TestInformeWithoutItemsBillsFixedPricePlusVAT(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	_, err := f.svc.StaffAccept(ctx, created.Quote.ID, nil)
	require.NoError(t, err)

	res, err := f.svc.GenerateInforme(ctx, created.Quote.ID, Actor{UserID: 1, Staff: true}, InformeInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(50000), res.Net)
	assert.Equal(t, int64(9500), res.Tax)
	assert.Equal(t, int64(59500), res.Gross)
	assert.Equal(t, "$59.500", res.Text)
	assert.Equal(t, repository.StatusPaymentInProgress, res.Quote.Status)
	assert.NotNil(t, res.Quote.ResolvedAt)
	require.NotNil(t, res.Quote.EstimatedBudget)
	assert.Equal(t, int64(59500), *res.Quote.EstimatedBudget)

	require.NotNil(t, res.Payment)
	assert.Equal(t, int64(59500), res.Payment.Amount)
	assert.Equal(t, []int64{59500}, f.payments.amounts)
	assert.True(t, res.Notified)

	items := f.quotes.items[created.Quote.ID]
	require.Len(t, items, 1)
	assert.Equal(t, "Filtración en baño", items[0].Description)
	assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(50000)))
}

func TestInformeLaborReplacesBasePrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	_, err := f.svc.StaffAccept(ctx, created.Quote.ID, nil)
	require.NoError(t, err)

	base := "80000"
	res, err := f.svc.GenerateInforme(ctx, created.Quote.ID, Actor{Staff: true}, InformeInput{
		BasePrice: &base,
		Labor: []PricedItem{
			{Name: "Cambio de sifón", Price: decimal.NewFromInt(20000)},
			{Name: "Sellado", Price: decimal.NewFromInt(-5000)},
		},
		Materials: []PricedItem{{Name: "Sifón PVC", Price: decimal.NewFromInt(10000)}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(30000), res.Net)
	assert.Equal(t, int64(5700), res.Tax)
	assert.Equal(t, int64(35700), res.Gross)

	items := f.quotes.items[created.Quote.ID]
	require.Len(t, items, 3)
	assert.Equal(t, "Trabajo: Cambio de sifón", items[0].Description)
	assert.True(t, items[1].UnitPrice.IsZero())
	assert.Equal(t, "Insumo: Sifón PVC", items[2].Description)
}

func TestInformeRoundsAmountsToWholePesos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	_, err := f.svc.StaffAccept(ctx, created.Quote.ID, nil)
	require.NoError(t, err)

	res, err := f.svc.GenerateInforme(ctx, created.Quote.ID, Actor{Staff: true}, InformeInput{
		Labor:     []PricedItem{{Name: "Revisión", Price: decimal.RequireFromString("100.5")}},
		Materials: []PricedItem{{Name: "Teflón", Price: decimal.RequireFromString("10.4")}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(111), res.Net)
	assert.Equal(t, int64(21), res.Tax)
	assert.Equal(t, int64(132), res.Gross)
	require.NotNil(t, res.Quote.EstimatedBudget)
	assert.Equal(t, int64(132), *res.Quote.EstimatedBudget)
	assert.True(t, f.quotes.quotes[created.Quote.ID].EstimatedBudget.Decimal.Equal(decimal.NewFromInt(132)))
	assert.Equal(t, []int64{132}, f.payments.amounts)

	items := f.quotes.items[created.Quote.ID]
	require.Len(t, items, 2)
	assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(101)))
	assert.True(t, items[1].UnitPrice.Equal(decimal.NewFromInt(10)))
}

func TestInformeRequiresAcceptedQuote(t *testing.T) {
	f := newFixture(t)
	created := f.request(t, "Santiago")

	_, err := f.svc.GenerateInforme(context.Background(), created.Quote.ID, Actor{Staff: true}, InformeInput{})
	assert.True(t, apperr.Is(err, apperr.KindStateConflict))
	assert.Empty(t, f.payments.calls)
}

func TestInformeChecksTechnicianAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	_, err := f.svc.PriceAndSend(ctx, created.Quote.ID, PriceAndSendInput{Price: "50000", TechnicianSlug: "ana-soto"})
	require.NoError(t, err)
	_, err = f.svc.StaffAccept(ctx, created.Quote.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.GenerateInforme(ctx, created.Quote.ID, Actor{UserID: techUserID}, InformeInput{})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.PriceAndSend(ctx, created.Quote.ID, PriceAndSendInput{Price: "50000", TechnicianSlug: "juan-perez"})
	assert.True(t, apperr.Is(err, apperr.KindStateConflict))
}

func TestInformeSurfacesGatewayFailureAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	_, err := f.svc.StaffAccept(ctx, created.Quote.ID, nil)
	require.NoError(t, err)
	f.payments.err = apperr.External("webpay unavailable", nil)

	res, err := f.svc.GenerateInforme(ctx, created.Quote.ID, Actor{Staff: true}, InformeInput{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindExternal))
	assert.Equal(t, int64(59500), res.Gross)
	assert.Equal(t, repository.StatusPaymentInProgress, f.quotes.quotes[created.Quote.ID].Status)
}

func TestVisitDeskLocksAcceptedQuotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.request(t, "Santiago")
	visitID := created.Quote.Visit.ID

	date := "2025-03-20"
	moved, err := f.svc.RescheduleVisit(ctx, visitID, schedtransport.UpdateVisitRequest{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, date, moved.Date)

	_, err = f.svc.StaffAccept(ctx, created.Quote.ID, nil)
	require.NoError(t, err)

	err = f.svc.CancelVisit(ctx, visitID)
	assert.True(t, apperr.Is(err, apperr.KindStateConflict))
	_, err = f.svc.RescheduleVisit(ctx, visitID, schedtransport.UpdateVisitRequest{Date: &date})
	assert.True(t, apperr.Is(err, apperr.KindStateConflict))
	assert.Contains(t, f.visits.visits, visitID)
}

func TestBookVisitOpensAcceptedQuote(t *testing.T) {
	f := newFixture(t)
	serviceID := int64(1)

	v, err := f.svc.BookVisit(context.Background(), schedtransport.CreateVisitRequest{
		TechnicianSlug: "juan-perez",
		CustomerName:   "Luis Rojas",
		CustomerEmail:  "luis@example.cl",
		Region:         "Metropolitana de Santiago",
		Comuna:         "Providencia",
		Date:           "2025-03-18",
		Time:           "09:30",
		ServiceID:      &serviceID,
	})
	require.NoError(t, err)

	require.NotNil(t, v.QuoteID)
	q := f.quotes.quotes[*v.QuoteID]
	assert.Equal(t, repository.StatusAccepted, q.Status)
	assert.Equal(t, "Gasfitería", q.Subject)
	assert.Equal(t, "-", q.Place)
	assert.Contains(t, q.Message, "Visita agendada manualmente desde agenda interna.")
	assert.Contains(t, q.Message, "Servicio: Gasfitería")
}

func TestBookVisitRejectsUnknownService(t *testing.T) {
	f := newFixture(t)
	serviceID := int64(99)

	_, err := f.svc.BookVisit(context.Background(), schedtransport.CreateVisitRequest{
		TechnicianSlug: "juan-perez",
		CustomerEmail:  "luis@example.cl",
		Region:         "Metropolitana de Santiago",
		Comuna:         "Providencia",
		Date:           "2025-03-18",
		ServiceID:      &serviceID,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, f.quotes.quotes)
}

func TestGetForCustomerHidesOtherCustomersQuotes(t *testing.T) {
	f := newFixture(t)
	created := f.request(t, "Santiago")

	_, err := f.svc.GetForCustomer(context.Background(), created.Quote.ID, created.Quote.CustomerID+1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := f.svc.GetForCustomer(context.Background(), created.Quote.ID, created.Quote.CustomerID)
	require.NoError(t, err)
	assert.NotNil(t, got.Visit)
}
