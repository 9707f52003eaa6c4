// Package service books technician visits and keeps a technician from being
// double-booked.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fm_servicios_backend/internal/events"
	"fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/db"
	"fm_servicios_backend/platform/logger"
)

const placeholder = "-"

// ErrNoActiveTechnician is returned when a booking has no technician to
// attach to.
var ErrNoActiveTechnician = errors.New("no active technician available")

// TechnicianRef identifies the technician of a visit.
type TechnicianRef struct {
	Slug string
	Name string
}

type ScheduleInput struct {
	Technician    TechnicianRef
	CustomerName  string
	CustomerEmail string
	Region        string
	Comuna        string
	Date          time.Time
	Time          *clock.Clock
	Address       string
	Notes         string
	QuoteID       *int64
}

// RescheduleInput changes a visit. Nil fields keep their current value;
// ClearTime drops the time of day.
type RescheduleInput struct {
	Technician *TechnicianRef
	Date       *time.Time
	Time       *clock.Clock
	ClearTime  bool
	Address    *string
	Notes      *string
}

type Service struct {
	repo   repository.Repository
	tx     db.Transactor
	bus    events.Bus
	window time.Duration
	log    *logger.Logger
}

func New(repo repository.Repository, tx db.Transactor, bus events.Bus, window time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, tx: tx, bus: bus, window: window, log: log}
}

// Schedule books a visit. The conflict check and the insert share one
// transaction holding the technician's booking lock.
func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (repository.Visit, error) {
	slug := strings.TrimSpace(in.Technician.Slug)
	if slug == "" {
		return repository.Visit{}, apperr.Wrap(apperr.KindValidation, "no active technician available", ErrNoActiveTechnician).WithField("technician")
	}

	visit := repository.Visit{
		TechnicianSlug: slug,
		TechnicianName: strings.TrimSpace(in.Technician.Name),
		QuoteID:        in.QuoteID,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		CustomerEmail:  strings.TrimSpace(in.CustomerEmail),
		Region:         in.Region,
		Comuna:         in.Comuna,
		Date:           clock.DateOf(in.Date),
		Time:           in.Time,
		Address:        orPlaceholder(in.Address),
		Notes:          orPlaceholder(in.Notes),
	}

	var saved repository.Visit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockTechnician(ctx, slug); err != nil {
			return err
		}
		if err := s.ensureFree(ctx, slug, visit.Date, visit.Time, 0); err != nil {
			return err
		}
		var err error
		saved, err = s.repo.Insert(ctx, visit)
		if err != nil {
			return err
		}
		db.AfterCommit(ctx, func(ctx context.Context) { s.publishScheduled(ctx, saved) })
		return nil
	})
	if err != nil {
		return repository.Visit{}, err
	}

	s.log.Info("visit scheduled", "visitId", saved.ID, "technician", saved.TechnicianSlug, "date", saved.Date.Format(clock.DateLayout))
	return saved, nil
}

// Reschedule moves a visit, re-running the conflict check without counting
// the visit against itself.
func (s *Service) Reschedule(ctx context.Context, visitID int64, in RescheduleInput) (repository.Visit, error) {
	var saved repository.Visit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, visitID)
		if err != nil {
			return err
		}

		next := applyReschedule(current, in)
		if next.TechnicianSlug == "" {
			return apperr.Wrap(apperr.KindValidation, "no active technician available", ErrNoActiveTechnician).WithField("technician")
		}
		if err := s.repo.LockTechnician(ctx, next.TechnicianSlug); err != nil {
			return err
		}
		if err := s.ensureFree(ctx, next.TechnicianSlug, next.Date, next.Time, visitID); err != nil {
			return err
		}

		saved, err = s.repo.Update(ctx, next)
		if err != nil {
			return err
		}
		if !saved.StartsAt().Equal(current.StartsAt()) || saved.TechnicianSlug != current.TechnicianSlug {
			db.AfterCommit(ctx, func(ctx context.Context) { s.publishRescheduled(ctx, saved) })
		}
		return nil
	})
	if err != nil {
		return repository.Visit{}, err
	}
	return saved, nil
}

// Cancel deletes a visit unconditionally. Callers that must respect the
// quote lifecycle go through the quotes service instead.
func (s *Service) Cancel(ctx context.Context, visitID int64) error {
	if err := s.repo.Delete(ctx, visitID); err != nil {
		return err
	}
	s.log.Info("visit cancelled", "visitId", visitID)
	return nil
}

func (s *Service) Get(ctx context.Context, visitID int64) (repository.Visit, error) {
	return s.repo.Get(ctx, visitID)
}

func (s *Service) ListAgenda(ctx context.Context, filter repository.AgendaFilter) ([]repository.Visit, error) {
	return s.repo.ListAgenda(ctx, filter)
}

// ActiveVisitForQuote returns the canonical visit of a quote; ok is false
// when the quote has none.
func (s *Service) ActiveVisitForQuote(ctx context.Context, quoteID int64) (v repository.Visit, ok bool, err error) {
	v, err = s.repo.ActiveForQuote(ctx, quoteID)
	if apperr.Is(err, apperr.KindNotFound) {
		return repository.Visit{}, false, nil
	}
	if err != nil {
		return repository.Visit{}, false, err
	}
	return v, true, nil
}

// AssignedToQuote reports whether the technician attends any visit of the quote.
func (s *Service) AssignedToQuote(ctx context.Context, quoteID int64, technicianSlug string) (bool, error) {
	return s.repo.AssignedToQuote(ctx, quoteID, technicianSlug)
}

func (s *Service) ensureFree(ctx context.Context, slug string, date time.Time, at *clock.Clock, excludeID int64) error {
	busy, err := s.HasConflict(ctx, slug, &date, at, excludeID)
	if err != nil {
		return err
	}
	if busy {
		return apperr.SchedulingConflict("technician already has a visit within the collision window").
			WithDetails(map[string]string{"technician": slug, "slot": clock.Display(date, at)})
	}
	return nil
}

func applyReschedule(v repository.Visit, in RescheduleInput) repository.Visit {
	if in.Technician != nil {
		v.TechnicianSlug = strings.TrimSpace(in.Technician.Slug)
		v.TechnicianName = strings.TrimSpace(in.Technician.Name)
	}
	if in.Date != nil {
		v.Date = clock.DateOf(*in.Date)
	}
	switch {
	case in.ClearTime:
		v.Time = nil
	case in.Time != nil:
		v.Time = in.Time
	}
	if in.Address != nil {
		v.Address = orPlaceholder(*in.Address)
	}
	if in.Notes != nil {
		v.Notes = orPlaceholder(*in.Notes)
	}
	return v
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return placeholder
	}
	return s
}

func (s *Service) publishScheduled(ctx context.Context, v repository.Visit) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.VisitScheduled{
		BaseEvent:      events.NewBaseEvent(),
		VisitID:        v.ID,
		QuoteID:        v.QuoteID,
		TechnicianSlug: v.TechnicianSlug,
		TechnicianName: v.TechnicianName,
		CustomerName:   v.CustomerName,
		CustomerEmail:  v.CustomerEmail,
		Address:        v.Address,
		Region:         v.Region,
		Comuna:         v.Comuna,
		Notes:          v.Notes,
		StartsAt:       v.StartsAt(),
		Timed:          v.Time != nil,
	})
}

func (s *Service) publishRescheduled(ctx context.Context, v repository.Visit) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.VisitRescheduled{
		BaseEvent:      events.NewBaseEvent(),
		VisitID:        v.ID,
		TechnicianSlug: v.TechnicianSlug,
		CustomerName:   v.CustomerName,
		CustomerEmail:  v.CustomerEmail,
		TechnicianName: v.TechnicianName,
		Address:        v.Address,
		StartsAt:       v.StartsAt(),
		Timed:          v.Time != nil,
	})
}
