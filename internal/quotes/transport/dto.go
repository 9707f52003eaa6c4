package transport

import (
	"time"

	"fm_servicios_backend/internal/quotes/repository"
	"fm_servicios_backend/platform/money"

	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateRequestRequest is the public contact form that opens a quote.
type CreateRequestRequest struct {
	FirstName  string `json:"firstName" validate:"required,max=150"`
	LastName   string `json:"lastName" validate:"max=150"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Phone      string `json:"phone" validate:"omitempty,clphone"`
	Subject    string `json:"subject" validate:"required,max=200"`
	ServiceID  *int64 `json:"serviceId" validate:"omitempty,gt=0"`
	BuildingID *int64 `json:"buildingId" validate:"omitempty,gt=0"`
	Place      string `json:"place" validate:"max=255"`
	Region     string `json:"region" validate:"required,max=100"`
	Comuna     string `json:"comuna" validate:"required,max=100"`
	Message    string `json:"message" validate:"max=5000"`
}

// PriceAndSendRequest prices a pending quote and books its visit.
type PriceAndSendRequest struct {
	Price      string `json:"price" validate:"required,max=20"`
	Technician string `json:"technician" validate:"required,max=80"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time       string `json:"time" validate:"omitempty,datetime=15:04"`
}

// AcceptRequest is the staff acceptance; an omitted price uses the fixed price.
type AcceptRequest struct {
	Price *string `json:"price" validate:"omitempty,max=20"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// PricedItemRequest is one labor or material line of an informe.
type PricedItemRequest struct {
	Name  string          `json:"name" validate:"max=200"`
	Price decimal.Decimal `json:"price"`
}

// InformeRequest closes the technical report of an accepted quote.
type InformeRequest struct {
	BasePrice *string             `json:"basePrice" validate:"omitempty,max=20"`
	Labor     []PricedItemRequest `json:"labor" validate:"omitempty,max=50,dive"`
	Materials []PricedItemRequest `json:"materials" validate:"omitempty,max=50,dive"`
}

// ListQuotesRequest defines the query parameters for listing quotes
type ListQuotesRequest struct {
	Status    string `form:"status" validate:"omitempty,oneof=PENDIENTE ENVIADA ACEPTADA RECHAZADA PROCESO_PAGO COMPLETADA"`
	Search    string `form:"search" validate:"max=100"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=status budget createdAt updatedAt"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

type ItemResponse struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Total       int64  `json:"total"`
}

type VisitSummary struct {
	ID         int64   `json:"id"`
	Technician string  `json:"technician"`
	Name       string  `json:"technicianName"`
	Date       string  `json:"date"`
	Time       *string `json:"time"`
	Address    string  `json:"address"`
}

type PaymentSummary struct {
	Status       string `json:"status,omitempty"`
	BuyOrder     string `json:"buyOrder,omitempty"`
	ResponseCode *int   `json:"responseCode,omitempty"`
	AuthCode     string `json:"authCode,omitempty"`
	CardLast4    string `json:"cardLast4,omitempty"`
}

type QuoteResponse struct {
	ID              int64             `json:"id"`
	Status          repository.Status `json:"status"`
	CustomerID      int64             `json:"customerId"`
	CustomerName    string            `json:"customerName"`
	CustomerEmail   string            `json:"customerEmail"`
	ServiceID       *int64            `json:"serviceId,omitempty"`
	ServiceTitle    string            `json:"serviceTitle,omitempty"`
	Subject         string            `json:"subject"`
	Message         string            `json:"message"`
	EstimatedBudget *int64            `json:"estimatedBudget"`
	BudgetText      string            `json:"estimatedBudgetText,omitempty"`
	Place           string            `json:"place"`
	Region          string            `json:"region"`
	Comuna          string            `json:"comuna"`
	ResolvedAt      *time.Time        `json:"resolvedAt,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
	Payment         *PaymentSummary   `json:"payment,omitempty"`
	Items           []ItemResponse    `json:"items,omitempty"`
	Visit           *VisitSummary     `json:"visit,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type QuoteListResponse struct {
	Items      []QuoteResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

type PaymentLinkResponse struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	PayURL   string `json:"payUrl"`
	BuyOrder string `json:"buyOrder"`
	Amount   int64  `json:"amount"`
}

// ActionResponse is returned by lifecycle actions. Notified is false when the
// customer email could not be delivered.
type ActionResponse struct {
	Quote    QuoteResponse        `json:"quote"`
	Notified bool                 `json:"notified"`
	Payment  *PaymentLinkResponse `json:"payment,omitempty"`
}

// InformeResponse carries the totals computed for the technical report.
type InformeResponse struct {
	ActionResponse
	Net   int64  `json:"net"`
	Tax   int64  `json:"tax"`
	Gross int64  `json:"gross"`
	Text  string `json:"grossText"`
}

// ToQuoteResponse maps a quote without items or visit.
func ToQuoteResponse(q repository.Quote) QuoteResponse {
	resp := QuoteResponse{
		ID:              q.ID,
		Status:          q.Status,
		CustomerID:      q.CustomerID,
		CustomerName:    q.CustomerName,
		CustomerEmail:   q.CustomerEmail,
		ServiceID:       q.ServiceID,
		ServiceTitle:    q.ServiceTitle,
		Subject:         q.Subject,
		Message:         q.Message,
		Place:           q.Place,
		Region:          q.Region,
		Comuna:          q.Comuna,
		ResolvedAt:      q.ResolvedAt,
		RejectionReason: q.RejectionReason,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	if q.EstimatedBudget.Valid {
		pesos := money.Pesos(q.EstimatedBudget.Decimal)
		resp.EstimatedBudget = &pesos
		resp.BudgetText = money.CLP(q.EstimatedBudget.Decimal)
	}
	if q.Gateway.Status != "" {
		resp.Payment = &PaymentSummary{
			Status:       q.Gateway.Status,
			BuyOrder:     q.Gateway.BuyOrder,
			ResponseCode: q.Gateway.ResponseCode,
			AuthCode:     q.Gateway.AuthCode,
			CardLast4:    q.Gateway.CardLast4,
		}
	}
	return resp
}

func ToItemResponses(items []repository.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemResponse{
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   money.Pesos(it.UnitPrice),
			Total:       money.Pesos(it.UnitPrice.Mul(it.Quantity)),
		})
	}
	return out
}
