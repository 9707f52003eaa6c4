// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"fm_servicios_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Scheduling Domain Events
// =============================================================================

// VisitScheduled is published after a visit row is committed.
// Timed is false for visits without a time; StartsAt then holds midnight.
type VisitScheduled struct {
	BaseEvent
	VisitID        int64     `json:"visitId"`
	QuoteID        *int64    `json:"quoteId,omitempty"`
	TechnicianSlug string    `json:"technicianSlug"`
	TechnicianName string    `json:"technicianName"`
	CustomerName   string    `json:"customerName"`
	CustomerEmail  string    `json:"customerEmail"`
	Address        string    `json:"address"`
	Region         string    `json:"region"`
	Comuna         string    `json:"comuna"`
	Notes          string    `json:"notes"`
	StartsAt       time.Time `json:"startsAt"`
	Timed          bool      `json:"timed"`
}

func (e VisitScheduled) EventName() string { return "scheduling.visit.scheduled" }

// VisitRescheduled is published when a visit moves to a new date or time.
type VisitRescheduled struct {
	BaseEvent
	VisitID        int64     `json:"visitId"`
	TechnicianSlug string    `json:"technicianSlug"`
	CustomerName   string    `json:"customerName"`
	CustomerEmail  string    `json:"customerEmail"`
	TechnicianName string    `json:"technicianName"`
	Address        string    `json:"address"`
	StartsAt       time.Time `json:"startsAt"`
	Timed          bool      `json:"timed"`
}

func (e VisitRescheduled) EventName() string { return "scheduling.visit.rescheduled" }

// =============================================================================
// Payment Domain Events
// =============================================================================

// PaymentCompleted is published once a gateway authorization completes a quote.
type PaymentCompleted struct {
	BaseEvent
	QuoteID       int64  `json:"quoteId"`
	Amount        int64  `json:"amount"`
	AuthCode      string `json:"authCode"`
	CustomerPhone string `json:"customerPhone,omitempty"`
}

func (e PaymentCompleted) EventName() string { return "payments.payment.completed" }
