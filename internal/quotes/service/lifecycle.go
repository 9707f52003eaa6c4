package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/internal/quotes/transport"
	schedrepo "fm_servicios_backend/internal/scheduling/repository"
	schedsvc "fm_servicios_backend/internal/scheduling/service"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/money"

	"github.com/shopspring/decimal"
)

const (
	laborPrefix    = "Trabajo: "
	materialPrefix = "Insumo: "
)

// PriceAndSendInput prices a pending quote. Date and Time are optional; a new
// visit defaults to today at 10:00.
type PriceAndSendInput struct {
	Price          string
	TechnicianSlug string
	Date           *time.Time
	Time           *clock.Clock
}

// PricedItem is a labor or material line typed in the informe.
type PricedItem struct {
	Name  string
	Price decimal.Decimal
}

type InformeInput struct {
	BasePrice *string
	Labor     []PricedItem
	Materials []PricedItem
}

// Totals are the informe amounts in pesos.
type Totals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
}

// PriceAndSend moves a pending quote to ENVIADA with its price, and books or
// moves its visit to the chosen technician.
func (s *Service) PriceAndSend(ctx context.Context, quoteID int64, in PriceAndSendInput) (transport.ActionResponse, error) {
	price, err := parsePrice(in.Price, "price")
	if err != nil {
		return transport.ActionResponse{}, err
	}
	tech, err := s.technicians.ResolveActive(ctx, in.TechnicianSlug)
	if err != nil {
		return transport.ActionResponse{}, err
	}
	ref := schedsvc.TechnicianRef{Slug: tech.Slug, Name: tech.FullName()}

	var (
		q     repository.Quote
		visit schedrepo.Visit
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.repo.GetForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if q.Status != repository.StatusPending {
			return apperr.StateConflict("only pending quotes can be sent").WithDetails(map[string]string{"status": string(q.Status)})
		}

		visit, err = s.sendVisit(ctx, q, ref, in)
		if err != nil {
			return err
		}

		from := q.Status
		q.Status = repository.StatusSent
		q.EstimatedBudget = decimal.NewNullDecimal(price)
		q.ResolvedAt = nil
		q.RejectionReason = ""
		if err := s.repo.SaveState(ctx, q); err != nil {
			return err
		}
		s.log.Transition(q.ID, string(from), string(q.Status))
		return nil
	})
	if err != nil {
		return transport.ActionResponse{}, err
	}

	notified := s.notifier.QuoteReady(ctx, noticeFor(q, &visit))
	if !notified {
		s.log.Warn("quote ready notice not delivered", "quoteId", q.ID)
	}
	resp := transport.ToQuoteResponse(q)
	resp.Visit = visitSummary(visit)
	return transport.ActionResponse{Quote: resp, Notified: notified}, nil
}

// CustomerAccept accepts a sent quote on behalf of its owner.
func (s *Service) CustomerAccept(ctx context.Context, quoteID, customerID int64) (transport.ActionResponse, error) {
	return s.accept(ctx, quoteID, nil, func(q repository.Quote) error {
		if err := ensureOwner(q, customerID); err != nil {
			return err
		}
		return ensureStatus(q, "only sent quotes can be accepted", repository.StatusSent)
	})
}

// CustomerReject rejects a sent quote on behalf of its owner.
func (s *Service) CustomerReject(ctx context.Context, quoteID, customerID int64, reason string) (transport.ActionResponse, error) {
	return s.reject(ctx, quoteID, reason, func(q repository.Quote) error {
		if err := ensureOwner(q, customerID); err != nil {
			return err
		}
		return ensureStatus(q, "only sent quotes can be rejected", repository.StatusSent)
	})
}

// StaffAccept accepts a pending or sent quote. A nil price falls back to the
// fixed price; an unparseable one fails before anything changes.
func (s *Service) StaffAccept(ctx context.Context, quoteID int64, price *string) (transport.ActionResponse, error) {
	budget := s.fixedPrice()
	if price != nil && strings.TrimSpace(*price) != "" {
		parsed, err := parsePrice(*price, "price")
		if err != nil {
			return transport.ActionResponse{}, err
		}
		budget = parsed
	}
	return s.accept(ctx, quoteID, &budget, func(q repository.Quote) error {
		return ensureStatus(q, "only pending or sent quotes can be accepted", repository.StatusPending, repository.StatusSent)
	})
}

func (s *Service) StaffReject(ctx context.Context, quoteID int64, reason string) (transport.ActionResponse, error) {
	return s.reject(ctx, quoteID, reason, func(q repository.Quote) error {
		return ensureStatus(q, "only pending or sent quotes can be rejected", repository.StatusPending, repository.StatusSent)
	})
}

func (s *Service) accept(ctx context.Context, quoteID int64, budget *decimal.Decimal, guard func(repository.Quote) error) (transport.ActionResponse, error) {
	var (
		q     repository.Quote
		visit *schedrepo.Visit
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.repo.GetForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := guard(q); err != nil {
			return err
		}

		from := q.Status
		now := s.now()
		q.Status = repository.StatusAccepted
		q.RejectionReason = ""
		q.ResolvedAt = &now
		switch {
		case budget != nil:
			q.EstimatedBudget = decimal.NewNullDecimal(*budget)
		case !q.EstimatedBudget.Valid:
			q.EstimatedBudget = decimal.NewNullDecimal(s.fixedPrice())
		}
		if err := s.repo.SaveState(ctx, q); err != nil {
			return err
		}

		visit, err = s.ensureVisit(ctx, q, clock.NextBusinessDay(clock.Today(now)))
		if err != nil {
			return err
		}
		s.log.Transition(q.ID, string(from), string(q.Status))
		return nil
	})
	if err != nil {
		return transport.ActionResponse{}, err
	}

	notified := s.notifier.QuoteAccepted(ctx, noticeFor(q, visit))
	resp := transport.ToQuoteResponse(q)
	if visit != nil {
		resp.Visit = visitSummary(*visit)
	}
	return transport.ActionResponse{Quote: resp, Notified: notified}, nil
}

func (s *Service) reject(ctx context.Context, quoteID int64, reason string, guard func(repository.Quote) error) (transport.ActionResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return transport.ActionResponse{}, apperr.Validation("a rejection reason is required").WithField("reason")
	}

	var q repository.Quote
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.repo.GetForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := guard(q); err != nil {
			return err
		}

		from := q.Status
		now := s.now()
		q.Status = repository.StatusRejected
		q.RejectionReason = reason
		q.ResolvedAt = &now
		if err := s.repo.SaveState(ctx, q); err != nil {
			return err
		}
		s.log.Transition(q.ID, string(from), string(q.Status))
		return nil
	})
	if err != nil {
		return transport.ActionResponse{}, err
	}

	notified := s.notifier.QuoteRejected(ctx, noticeFor(q, nil))
	return transport.ActionResponse{Quote: transport.ToQuoteResponse(q), Notified: notified}, nil
}

// GenerateInforme records the labor and materials of an accepted quote,
// moves it to PROCESO_PAGO with the VAT-inclusive total and opens the
// gateway transaction. Technicians may only report on quotes they visit.
func (s *Service) GenerateInforme(ctx context.Context, quoteID int64, actor Actor, in InformeInput) (transport.InformeResponse, error) {
	if !actor.Staff {
		if err := s.ensureAssigned(ctx, quoteID, actor.UserID); err != nil {
			return transport.InformeResponse{}, err
		}
	}

	var base *decimal.Decimal
	if in.BasePrice != nil && strings.TrimSpace(*in.BasePrice) != "" {
		parsed, err := money.Parse(*in.BasePrice)
		if err != nil {
			return transport.InformeResponse{}, apperr.Validation("invalid base price").WithField("basePrice")
		}
		parsed = clampZero(parsed)
		base = &parsed
	}

	var (
		q      repository.Quote
		totals Totals
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.repo.GetForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := ensureStatus(q, "only accepted quotes can be reported", repository.StatusAccepted); err != nil {
			return err
		}

		fallback := s.fixedPrice()
		if q.EstimatedBudget.Valid {
			fallback = q.EstimatedBudget.Decimal
		}
		if base == nil {
			base = &fallback
		}

		var items []repository.Item
		totals, items = informeLines(q, *base, in)
		if err := s.repo.ReplaceItems(ctx, q.ID, items); err != nil {
			return err
		}

		from := q.Status
		q.Status = repository.StatusPaymentInProgress
		q.EstimatedBudget = decimal.NewNullDecimal(totals.Gross)
		if err := s.repo.SaveState(ctx, q); err != nil {
			return err
		}
		s.log.Transition(q.ID, string(from), string(q.Status))
		return nil
	})
	if err != nil {
		return transport.InformeResponse{}, err
	}

	resp := transport.InformeResponse{
		ActionResponse: transport.ActionResponse{Quote: transport.ToQuoteResponse(q)},
		Net:            money.Pesos(totals.Net),
		Tax:            money.Pesos(totals.Tax),
		Gross:          money.Pesos(totals.Gross),
		Text:           money.CLP(totals.Gross),
	}

	if s.payments == nil {
		return resp, apperr.External("payment gateway is not configured", nil)
	}
	amount := money.Pesos(totals.Gross)
	link, err := s.payments.StartPayment(ctx, q.ID, &amount)
	if err != nil {
		return resp, err
	}
	resp.Payment = &transport.PaymentLinkResponse{
		Token:    link.Token,
		URL:      link.URL,
		PayURL:   link.PayURL,
		BuyOrder: link.BuyOrder,
		Amount:   link.Amount,
	}

	resp.Notified = s.notifier.PaymentAuthorized(ctx, PaymentNotice{
		Notice: noticeFor(q, nil),
		Amount: decimal.NewFromInt(link.Amount),
		PayURL: link.PayURL,
	})
	return resp, nil
}

// sendVisit books or moves the quote's visit to the chosen technician. When
// staff picked neither date nor time, a taken slot keeps the day untimed
// instead of failing the send.
func (s *Service) sendVisit(ctx context.Context, q repository.Quote, ref schedsvc.TechnicianRef, in PriceAndSendInput) (schedrepo.Visit, error) {
	picked := in.Date != nil || in.Time != nil

	current, ok, err := s.visits.ActiveVisitForQuote(ctx, q.ID)
	if err != nil {
		return schedrepo.Visit{}, err
	}
	if ok {
		move := schedsvc.RescheduleInput{Technician: &ref, Date: in.Date, Time: in.Time}
		v, err := s.visits.Reschedule(ctx, current.ID, move)
		if !picked && apperr.Is(err, apperr.KindSchedulingConflict) {
			s.log.Info("visit slot taken for new technician, keeping day without time", "quoteId", q.ID, "technician", ref.Slug)
			move.ClearTime = true
			v, err = s.visits.Reschedule(ctx, current.ID, move)
		}
		return v, err
	}

	date := clock.Today(s.now())
	if in.Date != nil {
		date = *in.Date
	}
	at := defaultVisitTime
	if in.Time != nil {
		at = *in.Time
	}
	book := schedsvc.ScheduleInput{
		Technician:    ref,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		Region:        q.Region,
		Comuna:        q.Comuna,
		Date:          date,
		Time:          &at,
		Address:       q.Place,
		Notes:         q.Message,
		QuoteID:       &q.ID,
	}
	v, err := s.visits.Schedule(ctx, book)
	if !picked && apperr.Is(err, apperr.KindSchedulingConflict) {
		s.log.Info("default visit slot taken, booking without time", "quoteId", q.ID, "technician", ref.Slug)
		book.Time = nil
		v, err = s.visits.Schedule(ctx, book)
	}
	return v, err
}

// informeLines computes the totals and the replacement line items.
// net = labor total (or base price when no labor is given) + materials.
// Every amount is whole pesos so the stored total equals the charged one.
func informeLines(q repository.Quote, base decimal.Decimal, in InformeInput) (Totals, []repository.Item) {
	one := decimal.NewFromInt(1)
	var (
		items     []repository.Item
		laborSum  decimal.Decimal
		materials decimal.Decimal
	)
	for _, it := range in.Labor {
		price := clampZero(it.Price).Round(0)
		laborSum = laborSum.Add(price)
		items = append(items, repository.Item{
			Description: laborPrefix + orDefault(it.Name, "Trabajo"),
			Quantity:    one,
			UnitPrice:   price,
		})
	}
	for _, it := range in.Materials {
		price := clampZero(it.Price).Round(0)
		materials = materials.Add(price)
		items = append(items, repository.Item{
			Description: materialPrefix + orDefault(it.Name, "Insumo"),
			Quantity:    one,
			UnitPrice:   price,
		})
	}

	net := base.Round(0)
	if len(in.Labor) > 0 {
		net = laborSum
	}
	net = net.Add(materials)

	if len(items) == 0 && net.IsPositive() {
		desc := q.Subject
		if desc == "" {
			desc = orDefault(q.ServiceTitle, "Servicio")
		}
		items = append(items, repository.Item{Description: desc, Quantity: one, UnitPrice: net})
	}

	tax := money.Tax(net)
	return Totals{Net: net, Tax: tax, Gross: net.Add(tax)}, items
}

func (s *Service) ensureAssigned(ctx context.Context, quoteID, userID int64) error {
	tech, err := s.technicians.ForUser(ctx, userID)
	if err != nil {
		return err
	}
	assigned, err := s.visits.AssignedToQuote(ctx, quoteID, tech.Slug)
	if err != nil {
		return err
	}
	if !assigned {
		return apperr.Forbidden("no visits assigned to you on this quote")
	}
	return nil
}

// ensureVisit returns the canonical visit of q, booking a provisional one on
// date when there is none.
func (s *Service) ensureVisit(ctx context.Context, q repository.Quote, date time.Time) (*schedrepo.Visit, error) {
	current, ok, err := s.visits.ActiveVisitForQuote(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		return &current, nil
	}
	return s.autoSchedule(ctx, q, date)
}

// autoSchedule books a provisional 10:00 visit with the technician matched to
// the quote's service. When 10:00 collides the visit keeps the day without a
// time. No active technician means no visit.
func (s *Service) autoSchedule(ctx context.Context, q repository.Quote, date time.Time) (*schedrepo.Visit, error) {
	tech, ok, err := s.technicians.ForService(ctx, q.ServiceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn("no active technician for provisional visit", "quoteId", q.ID)
		return nil, nil
	}

	notes := strings.TrimSpace(q.Message)
	if notes == "" {
		notes = fmt.Sprintf("Cotizacion #%d", q.ID)
	}
	at := defaultVisitTime
	quoteID := q.ID
	in := schedsvc.ScheduleInput{
		Technician:    schedsvc.TechnicianRef{Slug: tech.Slug, Name: tech.FullName()},
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		Region:        q.Region,
		Comuna:        q.Comuna,
		Date:          date,
		Time:          &at,
		Address:       q.Place,
		Notes:         notes,
		QuoteID:       &quoteID,
	}
	v, err := s.visits.Schedule(ctx, in)
	if apperr.Is(err, apperr.KindSchedulingConflict) {
		s.log.Info("default visit slot taken, booking without time", "quoteId", q.ID, "technician", tech.Slug)
		in.Time = nil
		v, err = s.visits.Schedule(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func ensureOwner(q repository.Quote, customerID int64) error {
	if q.CustomerID != customerID {
		return apperr.Forbidden("quote belongs to another customer")
	}
	return nil
}

func ensureStatus(q repository.Quote, msg string, allowed ...repository.Status) error {
	if slices.Contains(allowed, q.Status) {
		return nil
	}
	return apperr.StateConflict(msg).WithDetails(map[string]string{"status": string(q.Status)})
}

// parsePrice accepts CLP amounts like "59500" or "$59.500" and rounds to whole pesos.
func parsePrice(raw, field string) (decimal.Decimal, error) {
	d, err := money.Parse(raw)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, apperr.Validation("price must be a positive amount").WithField(field)
	}
	return d.Round(0), nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
