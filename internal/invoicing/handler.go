package invoicing

import (
	"net/http"
	"strconv"

	"fm_servicios_backend/platform/httpkit"
	"fm_servicios_backend/platform/money"

	"github.com/gin-gonic/gin"
)

type lineResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Total       int64  `json:"total"`
}

type breakdownResponse struct {
	Labor     []lineResponse `json:"labor"`
	Materials []lineResponse `json:"materials"`
	Net       int64          `json:"net"`
	Tax       int64          `json:"tax"`
	Gross     int64          `json:"gross"`
	GrossText string         `json:"grossText"`
}

type issuedResponse struct {
	DocumentID  *int64 `json:"documentId,omitempty"`
	FileName    string `json:"fileName"`
	StorageURL  string `json:"storageUrl,omitempty"`
	LocalPath   string `json:"localPath,omitempty"`
	Rendered    bool   `json:"rendered"`
	TotalAmount int64  `json:"total"`
}

// Handler exposes invoice previews and manual re-issue to staff.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetBreakdown handles GET /api/v1/quotes/:id/breakdown
func (h *Handler) GetBreakdown(c *gin.Context) {
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	b, err := h.svc.Breakdown(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, breakdownResponse{
		Labor:     toLineResponses(b.Labor),
		Materials: toLineResponses(b.Materials),
		Net:       money.Pesos(b.Net),
		Tax:       money.Pesos(b.Tax),
		Gross:     money.Pesos(b.Gross),
		GrossText: money.CLP(b.Gross),
	})
}

// Issue handles POST /api/v1/quotes/:id/invoice
func (h *Handler) Issue(c *gin.Context) {
	id, ok := parseQuoteID(c)
	if !ok {
		return
	}
	issued, err := h.svc.Issue(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := issuedResponse{
		FileName:    issued.FileName,
		Rendered:    len(issued.PDF) > 0,
		TotalAmount: money.Pesos(issued.Total),
	}
	if issued.Document != nil {
		resp.DocumentID = &issued.Document.ID
		resp.StorageURL = issued.Document.StorageURL
		resp.LocalPath = issued.Document.LocalPath
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func toLineResponses(lines []Line) []lineResponse {
	out := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineResponse{
			Code:        l.Code,
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			UnitPrice:   money.Pesos(l.UnitPrice),
			Total:       money.Pesos(l.Total()),
		})
	}
	return out
}

func parseQuoteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid quote id", nil)
		return 0, false
	}
	return id, true
}
