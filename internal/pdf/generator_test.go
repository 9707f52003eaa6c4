package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRenderInvoiceProducesPDF(t *testing.T) {
	data := InvoiceData{
		Number:        42,
		IssuedAt:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		CompanyName:   "FM Servicios Generales Limitada",
		CustomerName:  "Ana Rojas",
		CustomerEmail: "ana@example.cl",
		Region:        "Metropolitana",
		Comuna:        "Maipu",
		ServiceLabel:  "Mantención",
		Labor: []InvoiceLine{{
			Code: "TRAB", Description: "Mantención", Quantity: decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(50000), Total: decimal.NewFromInt(50000),
		}},
		Net:   decimal.NewFromInt(50000),
		Tax:   decimal.NewFromInt(9500),
		Total: decimal.NewFromInt(59500),
	}

	out, err := RenderInvoice(data)
	if err != nil {
		t.Fatalf("RenderInvoice: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", out[:min(len(out), 8)])
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := formatQuantity(decimal.RequireFromString("2.00")); got != "2" {
		t.Fatalf("got %q", got)
	}
	if got := formatQuantity(decimal.RequireFromString("1.50")); got != "1.5" {
		t.Fatalf("got %q", got)
	}
}
