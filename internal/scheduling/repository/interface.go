package repository

import (
	"context"
	"time"

	"fm_servicios_backend/platform/clock"
)

// Visit is a booked technician visit. The technician is referenced by slug
// with a name snapshot, so reads survive the technician being removed.
type Visit struct {
	ID             int64
	TechnicianSlug string
	TechnicianName string
	QuoteID        *int64
	CustomerName   string
	CustomerEmail  string
	Region         string
	Comuna         string
	Date           time.Time
	Time           *clock.Clock
	Address        string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StartsAt is the wall-clock start, or midnight of Date for untimed visits.
func (v Visit) StartsAt() time.Time {
	if v.Time == nil {
		return clock.DateOf(v.Date)
	}
	return clock.Combine(v.Date, *v.Time)
}

type AgendaFilter struct {
	TechnicianSlug string
	From           *time.Time
	To             *time.Time
	Limit          int
}

// Repository defines visit persistence.
type Repository interface {
	// LockTechnician serializes bookings for slug until the surrounding
	// transaction ends.
	LockTechnician(ctx context.Context, slug string) error
	Insert(ctx context.Context, v Visit) (Visit, error)
	Update(ctx context.Context, v Visit) (Visit, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Visit, error)
	// ListForTechnician returns visits of slug dated within [from, to],
	// skipping excludeID.
	ListForTechnician(ctx context.Context, slug string, from, to time.Time, excludeID int64) ([]Visit, error)
	// ActiveForQuote returns the first visit of a quote by date, then time
	// with untimed last, then id.
	ActiveForQuote(ctx context.Context, quoteID int64) (Visit, error)
	// AssignedToQuote reports whether the technician has any visit on the quote.
	AssignedToQuote(ctx context.Context, quoteID int64, technicianSlug string) (bool, error)
	ListAgenda(ctx context.Context, filter AgendaFilter) ([]Visit, error)
}
