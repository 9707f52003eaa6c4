package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	custsvc "fm_servicios_backend/internal/customers/service"
	"fm_servicios_backend/internal/locations"
	"fm_servicios_backend/internal/quotes/repository"
	schedrepo "fm_servicios_backend/internal/scheduling/repository"
	schedsvc "fm_servicios_backend/internal/scheduling/service"
	schedtransport "fm_servicios_backend/internal/scheduling/transport"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/phone"
	"fm_servicios_backend/platform/sanitize"
)

// lockedStatuses are the quote states whose visit may no longer be moved or
// cancelled from the agenda.
var lockedStatuses = []repository.Status{
	repository.StatusAccepted,
	repository.StatusPaymentInProgress,
	repository.StatusCompleted,
}

// BookVisit schedules a visit from the staff agenda. The customer is
// provisioned and an accepted quote is opened so the visit can be billed.
func (s *Service) BookVisit(ctx context.Context, req schedtransport.CreateVisitRequest) (schedtransport.VisitResponse, error) {
	date, err := clock.ParseDate(req.Date)
	if err != nil {
		return schedtransport.VisitResponse{}, apperr.Validation("invalid date").WithField("date")
	}
	at, err := optionalClock(req.Time)
	if err != nil {
		return schedtransport.VisitResponse{}, err
	}

	var normPhone string
	if strings.TrimSpace(req.CustomerPhone) != "" {
		normPhone, err = phone.NormalizeCL(req.CustomerPhone)
		if err != nil {
			return schedtransport.VisitResponse{}, apperr.Validation("invalid phone number").WithField("customerPhone")
		}
	}

	tech, err := s.technicians.ResolveActive(ctx, req.TechnicianSlug)
	if err != nil {
		return schedtransport.VisitResponse{}, err
	}
	region, comuna, err := locations.Resolve(ctx, s.catalog, req.Region, req.Comuna)
	if err != nil {
		return schedtransport.VisitResponse{}, err
	}

	serviceTitle := ""
	if req.ServiceID != nil {
		serviceTitle, err = s.repo.ServiceTitle(ctx, *req.ServiceID)
		if apperr.Is(err, apperr.KindNotFound) {
			return schedtransport.VisitResponse{}, apperr.Validation("unknown service").WithField("serviceId")
		}
		if err != nil {
			return schedtransport.VisitResponse{}, err
		}
	}

	name := sanitize.Text(req.CustomerName)
	address := sanitize.Text(req.Address)
	notes := sanitize.Text(req.Notes)

	var visit schedrepo.Visit
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := s.customers.FindOrProvision(ctx, custsvc.ProvisionInput{
			Email: req.CustomerEmail,
			Name:  name,
			Phone: normPhone,
		})
		if err != nil {
			return err
		}

		now := s.now()
		q, err := s.repo.Create(ctx, repository.CreateParams{
			CustomerID: customer.ID,
			ServiceID:  req.ServiceID,
			Subject:    orDefault(serviceTitle, "Visita tecnica"),
			Message:    manualVisitMessage(name, date, at, serviceTitle, address, region, comuna, notes),
			Place:      orDefault(address, "-"),
			Region:     region,
			Comuna:     comuna,
			Status:     repository.StatusAccepted,
			ResolvedAt: &now,
		})
		if err != nil {
			return err
		}
		s.log.Transition(q.ID, "", string(q.Status))

		visit, err = s.visits.Schedule(ctx, schedsvc.ScheduleInput{
			Technician:    schedsvc.TechnicianRef{Slug: tech.Slug, Name: tech.FullName()},
			CustomerName:  name,
			CustomerEmail: customer.Email,
			Region:        region,
			Comuna:        comuna,
			Date:          date,
			Time:          at,
			Address:       address,
			Notes:         notes,
			QuoteID:       &q.ID,
		})
		return err
	})
	if err != nil {
		return schedtransport.VisitResponse{}, err
	}
	return schedtransport.ToResponse(visit), nil
}

// RescheduleVisit moves a visit unless its quote is already accepted or paid.
func (s *Service) RescheduleVisit(ctx context.Context, visitID int64, req schedtransport.UpdateVisitRequest) (schedtransport.VisitResponse, error) {
	in := schedsvc.RescheduleInput{Address: req.Address, Notes: req.Notes}
	if req.Date != nil {
		d, err := clock.ParseDate(*req.Date)
		if err != nil {
			return schedtransport.VisitResponse{}, apperr.Validation("invalid date").WithField("date")
		}
		in.Date = &d
	}
	if req.Time != nil {
		if strings.TrimSpace(*req.Time) == "" {
			in.ClearTime = true
		} else {
			at, err := optionalClock(*req.Time)
			if err != nil {
				return schedtransport.VisitResponse{}, err
			}
			in.Time = at
		}
	}
	if req.TechnicianSlug != nil {
		tech, err := s.technicians.ResolveActive(ctx, *req.TechnicianSlug)
		if err != nil {
			return schedtransport.VisitResponse{}, err
		}
		in.Technician = &schedsvc.TechnicianRef{Slug: tech.Slug, Name: tech.FullName()}
	}

	var saved schedrepo.Visit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureVisitEditable(ctx, visitID); err != nil {
			return err
		}
		var err error
		saved, err = s.visits.Reschedule(ctx, visitID, in)
		return err
	})
	if err != nil {
		return schedtransport.VisitResponse{}, err
	}
	return schedtransport.ToResponse(saved), nil
}

// CancelVisit deletes a visit unless its quote is already accepted or paid.
func (s *Service) CancelVisit(ctx context.Context, visitID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureVisitEditable(ctx, visitID); err != nil {
			return err
		}
		return s.visits.Cancel(ctx, visitID)
	})
}

func (s *Service) ensureVisitEditable(ctx context.Context, visitID int64) error {
	v, err := s.visits.Get(ctx, visitID)
	if err != nil {
		return err
	}
	if v.QuoteID == nil {
		return nil
	}
	q, err := s.repo.GetForUpdate(ctx, *v.QuoteID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, st := range lockedStatuses {
		if q.Status == st {
			return apperr.StateConflict("the visit belongs to a quote that is already accepted").
				WithDetails(map[string]any{"quoteId": q.ID, "status": string(q.Status)})
		}
	}
	return nil
}

func optionalClock(raw string) (*clock.Clock, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	c, err := clock.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("invalid time").WithField("time")
	}
	return &c, nil
}

func manualVisitMessage(name string, date time.Time, at *clock.Clock, service, address, region, comuna, notes string) string {
	lines := []string{
		"Visita agendada manualmente desde agenda interna.",
		"Cliente: " + name,
		"Fecha/Hora: " + clock.Display(date, at),
		"Servicio: " + orDefault(service, "-"),
		"Direccion: " + orDefault(address, "-"),
		fmt.Sprintf("Region/Comuna: %s/%s", orDefault(region, "-"), orDefault(comuna, "-")),
	}
	if notes != "" {
		lines = append(lines, "Notas: "+notes)
	}
	return strings.Join(lines, "\n")
}
