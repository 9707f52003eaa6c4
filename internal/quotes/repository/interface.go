package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a quote. Values are the persisted strings.
type Status string

const (
	StatusPending           Status = "PENDIENTE"
	StatusSent              Status = "ENVIADA"
	StatusAccepted          Status = "ACEPTADA"
	StatusRejected          Status = "RECHAZADA"
	StatusPaymentInProgress Status = "PROCESO_PAGO"
	StatusCompleted         Status = "COMPLETADA"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusAccepted, StatusRejected, StatusPaymentInProgress, StatusCompleted:
		return true
	}
	return false
}

// Gateway transaction states stored in tb_status.
const (
	GatewayCreated    = "CREATED"
	GatewayAuthorized = "AUTHORIZED"
	GatewayAborted    = "ABORTED"
	GatewayError      = "ERROR"
	GatewayFailed     = "FAILED"
	GatewayExpired    = "EXPIRED"
)

// Gateway holds the state of the quote's latest payment transaction.
type Gateway struct {
	Token        string
	BuyOrder     string
	SessionID    string
	Status       string
	ResponseCode *int
	AuthCode     string
	CardLast4    string
	RedirectURL  string
	CreatedAt    *time.Time
}

// Quote is a customer request moving through pricing, acceptance and payment.
type Quote struct {
	ID              int64
	CustomerID      int64
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	BuildingID      *int64
	ServiceID       *int64
	ServiceTitle    string
	Subject         string
	Message         string
	EstimatedBudget decimal.NullDecimal
	Place           string
	Region          string
	Comuna          string
	Status          Status
	// ResolvedAt is set on ACEPTADA, RECHAZADA and COMPLETADA, and stays set
	// through PROCESO_PAGO since that state is only reached from ACEPTADA.
	// It is nil on PENDIENTE and ENVIADA.
	ResolvedAt      *time.Time
	RejectionReason string
	Gateway         Gateway
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ServiceName is the service title, falling back to the subject.
func (q Quote) ServiceName() string {
	if q.ServiceTitle != "" {
		return q.ServiceTitle
	}
	return q.Subject
}

// Item is a priced line of a quote.
type Item struct {
	ID          int64
	QuoteID     int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Position    int
}

// CreateParams holds the columns of a new quote.
type CreateParams struct {
	CustomerID      int64
	BuildingID      *int64
	ServiceID       *int64
	Subject         string
	Message         string
	Place           string
	Region          string
	Comuna          string
	Status          Status
	ResolvedAt      *time.Time
	RejectionReason string
	EstimatedBudget decimal.NullDecimal
}

// ListParams filters and pages quotes.
type ListParams struct {
	Status     *Status
	CustomerID *int64
	Search     string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

type ListResult struct {
	Items      []Quote
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository defines quote persistence. Methods join the transaction in ctx.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Quote, error)
	Get(ctx context.Context, id int64) (Quote, error)
	// GetForUpdate locks the quote row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (Quote, error)
	FindByToken(ctx context.Context, token string) (Quote, error)
	FindByBuyOrder(ctx context.Context, buyOrder string) (Quote, error)
	List(ctx context.Context, params ListParams) (ListResult, error)
	// ServiceTitle returns the title of a service category.
	ServiceTitle(ctx context.Context, serviceID int64) (string, error)
	Items(ctx context.Context, quoteID int64) ([]Item, error)
	// SaveState writes status, resolved_at, rejection_reason and estimated_budget.
	SaveState(ctx context.Context, q Quote) error
	// ReplaceItems deletes every line of the quote and inserts items in order.
	ReplaceItems(ctx context.Context, quoteID int64, items []Item) error
	// SaveGateway writes the tb_* columns and the status.
	SaveGateway(ctx context.Context, q Quote) error
	// ExpireGateway marks CREATED transactions older than before as EXPIRED
	// on quotes still awaiting payment, returning the affected quote IDs.
	ExpireGateway(ctx context.Context, before time.Time) ([]int64, error)
}
