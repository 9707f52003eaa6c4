package service

import (
	"context"
	"fmt"
	"strings"

	custsvc "fm_servicios_backend/internal/customers/service"
	"fm_servicios_backend/internal/locations"
	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/internal/quotes/transport"
	schedrepo "fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/phone"
	"fm_servicios_backend/platform/sanitize"
	"fm_servicios_backend/platform/slug"
)

// CreateResult is the outcome of a customer request.
type CreateResult struct {
	Quote    transport.QuoteResponse `json:"quote"`
	Covered  bool                    `json:"covered"`
	Notified bool                    `json:"notified"`
}

// Create opens a quote from the contact form. The customer account is found
// or provisioned by email. Requests from uncovered comunas are rejected on
// the spot; the rest get a provisional visit for tomorrow at 10:00.
func (s *Service) Create(ctx context.Context, req transport.CreateRequestRequest) (CreateResult, error) {
	var normPhone string
	if strings.TrimSpace(req.Phone) != "" {
		p, err := phone.NormalizeCL(req.Phone)
		if err != nil {
			return CreateResult{}, apperr.Validation("invalid phone number").WithField("phone")
		}
		normPhone = p
	}

	region, comuna, err := locations.Resolve(ctx, s.catalog, req.Region, req.Comuna)
	if err != nil {
		return CreateResult{}, err
	}

	firstName := sanitize.Text(req.FirstName)
	lastName := sanitize.Text(req.LastName)
	place := sanitize.Text(req.Place)
	body := strings.TrimSpace(sanitize.Text(req.Message))
	covered := s.covers(comuna)

	var (
		q     repository.Quote
		visit *schedrepo.Visit
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := s.customers.FindOrProvision(ctx, custsvc.ProvisionInput{
			Email: req.Email,
			Name:  strings.TrimSpace(firstName + " " + lastName),
			Phone: normPhone,
		})
		if err != nil {
			return err
		}

		params := repository.CreateParams{
			CustomerID: customer.ID,
			BuildingID: req.BuildingID,
			ServiceID:  req.ServiceID,
			Subject:    sanitize.Text(req.Subject),
			Message:    requestMessage(normPhone, place, region, comuna, body),
			Place:      place,
			Region:     region,
			Comuna:     comuna,
			Status:     repository.StatusPending,
		}
		if !covered {
			now := s.now()
			params.Status = repository.StatusRejected
			params.RejectionReason = fmt.Sprintf("No contamos con cobertura en %s.", comuna)
			params.ResolvedAt = &now
		}

		q, err = s.repo.Create(ctx, params)
		if err != nil {
			return err
		}
		if !covered {
			s.log.Transition(q.ID, "", string(q.Status))
			return nil
		}

		tomorrow := clock.Today(s.now()).AddDate(0, 0, 1)
		visit, err = s.autoSchedule(ctx, q, tomorrow)
		return err
	})
	if err != nil {
		return CreateResult{}, err
	}

	s.log.Info("quote requested", "quoteId", q.ID, "comuna", comuna, "covered", covered, "email", sanitize.MaskEmail(q.CustomerEmail))

	notice := RequestNotice{
		Notice:    noticeFor(q, visit),
		FirstName: firstName,
		LastName:  lastName,
		Phone:     normPhone,
		Body:      body,
		Covered:   covered,
	}
	notice.CustomerEmail = strings.TrimSpace(req.Email)
	notified := s.notifier.RequestReceived(ctx, notice)
	s.notifier.RequestForStaff(ctx, notice)

	resp := transport.ToQuoteResponse(q)
	if visit != nil {
		resp.Visit = visitSummary(*visit)
	}
	return CreateResult{Quote: resp, Covered: covered, Notified: notified}, nil
}

func (s *Service) covers(comuna string) bool {
	key := slug.Fold(comuna)
	if key == "" {
		return true
	}
	for _, c := range s.policy.UncoveredComunas {
		if slug.Fold(c) == key {
			return false
		}
	}
	return true
}

func requestMessage(phoneNumber, place, region, comuna, body string) string {
	lines := []string{
		"Teléfono: " + orDefault(phoneNumber, "-"),
		"Lugar: " + orDefault(place, "-"),
		fmt.Sprintf("Región/Comuna: %s/%s", orDefault(region, "-"), orDefault(comuna, "-")),
	}
	msg := strings.Join(lines, "\n")
	if body != "" {
		msg += "\n\n" + body
	}
	return msg
}
