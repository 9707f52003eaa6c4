package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"fm_servicios_backend/internal/events"
	"fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/logger"
)

type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type memRepo struct {
	mu     sync.Mutex
	visits map[int64]repository.Visit
	nextID int64
	locks  []string
}

func newMemRepo() *memRepo {
	return &memRepo{visits: map[int64]repository.Visit{}}
}

func (m *memRepo) LockTechnician(_ context.Context, slug string) error {
	m.locks = append(m.locks, slug)
	return nil
}

func (m *memRepo) Insert(_ context.Context, v repository.Visit) (repository.Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	v.ID = m.nextID
	m.visits[v.ID] = v
	return v, nil
}

func (m *memRepo) Update(_ context.Context, v repository.Visit) (repository.Visit, error) {
	if _, ok := m.visits[v.ID]; !ok {
		return repository.Visit{}, apperr.NotFound("visit not found")
	}
	m.visits[v.ID] = v
	return v, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.visits[id]; !ok {
		return apperr.NotFound("visit not found")
	}
	delete(m.visits, id)
	return nil
}

func (m *memRepo) Get(_ context.Context, id int64) (repository.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return repository.Visit{}, apperr.NotFound("visit not found")
	}
	return v, nil
}

func (m *memRepo) ListForTechnician(_ context.Context, slug string, from, to time.Time, excludeID int64) ([]repository.Visit, error) {
	var out []repository.Visit
	for _, v := range m.visits {
		if v.TechnicianSlug != slug || v.ID == excludeID || v.Date.Before(from) || v.Date.After(to) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *memRepo) ActiveForQuote(_ context.Context, quoteID int64) (repository.Visit, error) {
	var out []repository.Visit
	for _, v := range m.visits {
		if v.QuoteID != nil && *v.QuoteID == quoteID {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return repository.Visit{}, apperr.NotFound("visit not found")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out[0], nil
}

func (m *memRepo) AssignedToQuote(_ context.Context, quoteID int64, slug string) (bool, error) {
	for _, v := range m.visits {
		if v.QuoteID != nil && *v.QuoteID == quoteID && v.TechnicianSlug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ListAgenda(_ context.Context, _ repository.AgendaFilter) ([]repository.Visit, error) {
	var out []repository.Visit
	for _, v := range m.visits {
		out = append(out, v)
	}
	return out, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService() (*Service, *memRepo, *recordingBus) {
	repo := newMemRepo()
	bus := &recordingBus{}
	return New(repo, inlineTx{}, bus, 3*time.Hour, logger.Discard()), repo, bus
}

var day = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func clockPtr(h, m int) *clock.Clock {
	c := clock.At(h, m)
	return &c
}

func timed(slug string, date time.Time, h, m int) repository.Visit {
	return repository.Visit{TechnicianSlug: slug, Date: date, Time: clockPtr(h, m)}
}

func TestConflictsWindow(t *testing.T) {
	window := 3 * time.Hour
	existing := []repository.Visit{timed("tec-a", day, 14, 0)}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "one hour later", at: clock.Combine(day, clock.At(15, 0)), want: true},
		{name: "exactly three hours later", at: clock.Combine(day, clock.At(17, 0)), want: true},
		{name: "three hours and a minute later", at: clock.Combine(day, clock.At(17, 1)), want: false},
		{name: "three hours earlier", at: clock.Combine(day, clock.At(11, 0)), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conflicts(existing, tt.at, window); got != tt.want {
				t.Fatalf("conflicts = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConflictsIgnoresUntimedVisits(t *testing.T) {
	existing := []repository.Visit{{TechnicianSlug: "tec-a", Date: day}}
	if conflicts(existing, clock.Combine(day, clock.At(0, 30)), 3*time.Hour) {
		t.Fatal("untimed visit reported as conflict")
	}
}

func TestHasConflictAcrossMidnight(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	_, _ = repo.Insert(ctx, timed("tec-a", day, 23, 0))

	next := day.AddDate(0, 0, 1)
	busy, err := svc.HasConflict(ctx, "tec-a", &next, clockPtr(1, 0), 0)
	if err != nil {
		t.Fatalf("HasConflict: %v", err)
	}
	if !busy {
		t.Fatal("expected conflict with previous-day 23:00 visit")
	}
}

func TestHasConflictWithoutTimeIsFalse(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	_, _ = repo.Insert(ctx, timed("tec-a", day, 10, 0))

	busy, err := svc.HasConflict(ctx, "tec-a", &day, nil, 0)
	if err != nil || busy {
		t.Fatalf("HasConflict without time = %v, %v", busy, err)
	}
	busy, err = svc.HasConflict(ctx, "tec-a", nil, clockPtr(10, 0), 0)
	if err != nil || busy {
		t.Fatalf("HasConflict without date = %v, %v", busy, err)
	}
}

func TestScheduleRejectsDoubleBooking(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Schedule(ctx, ScheduleInput{
		Technician: TechnicianRef{Slug: "tec-a", Name: "Ana"},
		Date:       day,
		Time:       clockPtr(14, 0),
	})
	if err != nil {
		t.Fatalf("first Schedule: %v", err)
	}
	if first.Address != "-" || first.Notes != "-" {
		t.Fatalf("expected placeholder address and notes, got %q %q", first.Address, first.Notes)
	}

	_, err = svc.Schedule(ctx, ScheduleInput{Technician: TechnicianRef{Slug: "tec-a"}, Date: day, Time: clockPtr(15, 0)})
	if !apperr.Is(err, apperr.KindSchedulingConflict) {
		t.Fatalf("expected scheduling conflict, got %v", err)
	}

	if _, err := svc.Schedule(ctx, ScheduleInput{Technician: TechnicianRef{Slug: "tec-b"}, Date: day, Time: clockPtr(15, 0)}); err != nil {
		t.Fatalf("different technician should not conflict: %v", err)
	}
	if _, err := svc.Schedule(ctx, ScheduleInput{Technician: TechnicianRef{Slug: "tec-a"}, Date: day, Time: clockPtr(17, 1)}); err != nil {
		t.Fatalf("17:01 should not conflict: %v", err)
	}
	if len(repo.visits) != 3 {
		t.Fatalf("expected 3 visits, got %d", len(repo.visits))
	}
	if len(repo.locks) != 4 {
		t.Fatalf("expected every booking to take the lock, got %d", len(repo.locks))
	}
}

func TestScheduleWithoutTechnician(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Schedule(context.Background(), ScheduleInput{Date: day})
	if !errors.Is(err, ErrNoActiveTechnician) {
		t.Fatalf("expected ErrNoActiveTechnician, got %v", err)
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", apperr.GetKind(err))
	}
}

func TestReschedulePublishesAndExcludesSelf(t *testing.T) {
	svc, _, bus := newTestService()
	ctx := context.Background()

	v, err := svc.Schedule(ctx, ScheduleInput{Technician: TechnicianRef{Slug: "tec-a"}, Date: day, Time: clockPtr(10, 0)})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	moved, err := svc.Reschedule(ctx, v.ID, RescheduleInput{Time: clockPtr(11, 0)})
	if err != nil {
		t.Fatalf("Reschedule within own window: %v", err)
	}
	if moved.Time.String() != "11:00" {
		t.Fatalf("time = %v", moved.Time)
	}

	if len(bus.events) != 2 {
		t.Fatalf("expected scheduled and rescheduled events, got %d", len(bus.events))
	}
	if _, ok := bus.events[1].(events.VisitRescheduled); !ok {
		t.Fatalf("second event = %T", bus.events[1])
	}
}

func TestCancelUnknownVisit(t *testing.T) {
	svc, _, _ := newTestService()
	if err := svc.Cancel(context.Background(), 99); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
