package service

import (
	"context"
	"time"

	"fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/platform/clock"
)

// conflicts reports whether any timed visit starts within window of
// candidate, bounds included. Untimed visits never collide.
func conflicts(visits []repository.Visit, candidate time.Time, window time.Duration) bool {
	lo, hi := candidate.Add(-window), candidate.Add(window)
	for _, v := range visits {
		if v.Time == nil {
			continue
		}
		at := v.StartsAt()
		if !at.Before(lo) && !at.After(hi) {
			return true
		}
	}
	return false
}

// HasConflict reports whether the technician already has a timed visit
// within the collision window of date+at. A missing date or time never
// conflicts. excludeID skips the visit being rescheduled; pass 0 for none.
func (s *Service) HasConflict(ctx context.Context, slug string, date *time.Time, at *clock.Clock, excludeID int64) (bool, error) {
	if date == nil || at == nil || slug == "" {
		return false, nil
	}
	candidate := clock.Combine(*date, *at)
	from := clock.DateOf(candidate.Add(-s.window))
	to := clock.DateOf(candidate.Add(s.window))

	visits, err := s.repo.ListForTechnician(ctx, slug, from, to, excludeID)
	if err != nil {
		return false, err
	}
	return conflicts(visits, candidate, s.window), nil
}
