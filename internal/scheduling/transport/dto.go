package transport

import (
	"time"

	"fm_servicios_backend/internal/scheduling/repository"
	"fm_servicios_backend/platform/clock"
)

// CreateVisitRequest books a visit from the staff agenda. The customer is
// provisioned and an accepted quote is opened for the visit.
type CreateVisitRequest struct {
	TechnicianSlug string `json:"technician" validate:"required,max=80"`
	CustomerName   string `json:"customerName" validate:"required,max=255"`
	CustomerEmail  string `json:"customerEmail" validate:"omitempty,email,max=254"`
	CustomerPhone  string `json:"customerPhone" validate:"omitempty,clphone"`
	ServiceID      *int64 `json:"serviceId" validate:"omitempty,gt=0"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string `json:"time" validate:"omitempty,datetime=15:04"`
	Address        string `json:"address" validate:"max=255"`
	Region         string `json:"region" validate:"required,max=100"`
	Comuna         string `json:"comuna" validate:"required,max=100"`
	Notes          string `json:"notes" validate:"max=2000"`
}

// UpdateVisitRequest moves or edits a visit. Omitted fields are kept; an
// empty time string clears the time of day.
type UpdateVisitRequest struct {
	TechnicianSlug *string `json:"technician" validate:"omitempty,max=80"`
	Date           *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time           *string `json:"time" validate:"omitempty,max=8"`
	Address        *string `json:"address" validate:"omitempty,max=255"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

type VisitResponse struct {
	ID             int64     `json:"id"`
	TechnicianSlug string    `json:"technician"`
	TechnicianName string    `json:"technicianName"`
	QuoteID        *int64    `json:"quoteId,omitempty"`
	CustomerName   string    `json:"customerName"`
	CustomerEmail  string    `json:"customerEmail"`
	Region         string    `json:"region"`
	Comuna         string    `json:"comuna"`
	Date           string    `json:"date"`
	Time           *string   `json:"time"`
	Address        string    `json:"address"`
	Notes          string    `json:"notes"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type AgendaResponse struct {
	Items []VisitResponse `json:"items"`
}

func ToResponse(v repository.Visit) VisitResponse {
	resp := VisitResponse{
		ID:             v.ID,
		TechnicianSlug: v.TechnicianSlug,
		TechnicianName: v.TechnicianName,
		QuoteID:        v.QuoteID,
		CustomerName:   v.CustomerName,
		CustomerEmail:  v.CustomerEmail,
		Region:         v.Region,
		Comuna:         v.Comuna,
		Date:           v.Date.Format(clock.DateLayout),
		Address:        v.Address,
		Notes:          v.Notes,
		UpdatedAt:      v.UpdatedAt,
	}
	if v.Time != nil {
		s := v.Time.String()
		resp.Time = &s
	}
	return resp
}
