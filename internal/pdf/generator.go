// Package pdf renders invoices with maroto/v2. The layout follows the
// company's paper invoice: issuer band, customer block, separate labor and
// materials tables, and a payment summary.
package pdf

import (
	"fmt"
	"strings"
	"time"

	"fm_servicios_backend/platform/money"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

// ── Colour palette ──────────────────────────────────────────────────────

var (
	colorAccent    = &props.Color{Red: 0, Green: 19, Blue: 93}
	colorWhite     = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorPrimary   = &props.Color{Red: 17, Green: 24, Blue: 39}
	colorSecondary = &props.Color{Red: 64, Green: 70, Blue: 79}
	colorSoft      = &props.Color{Red: 245, Green: 247, Blue: 255}
	colorTableHead = &props.Color{Red: 241, Green: 245, Blue: 249}
	colorBorder    = &props.Color{Red: 226, Green: 232, Blue: 240}
)

// ── Data struct ─────────────────────────────────────────────────────────

// InvoiceLine is one row of the labor or materials table.
type InvoiceLine struct {
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// InvoiceData holds everything printed on an invoice.
type InvoiceData struct {
	Number       int64
	IssuedAt     time.Time
	CompanyName  string
	CompanyRUT   string
	CompanyEmail string

	CustomerName  string
	CustomerEmail string
	Region        string
	Comuna        string
	Address       string
	ServiceLabel  string

	Labor     []InvoiceLine
	Materials []InvoiceLine
	Net       decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal

	// Optional QR code (PNG) linking to the document.
	QRCode []byte
}

// RenderInvoice builds the invoice PDF.
func RenderInvoice(data InvoiceData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(12).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	if err := m.RegisterFooter(buildFooter(data)); err != nil {
		return nil, fmt.Errorf("register footer: %w", err)
	}

	m.AddRows(buildHeader(data))
	m.AddRows(row.New(6))
	m.AddRows(buildCustomerBlock(data)...)
	m.AddRows(row.New(6))
	m.AddRows(buildLinesTable("Trabajos", data.Labor, "")...)
	m.AddRows(row.New(4))
	m.AddRows(buildLinesTable("Insumos", data.Materials, "Sin insumos declarados")...)
	m.AddRows(row.New(6))
	m.AddRows(buildSummary(data)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Header ──────────────────────────────────────────────────────────────

func buildHeader(data InvoiceData) core.Row {
	issuer := col.New(8).Add(
		text.New(strings.ToUpper(data.CompanyName), props.Text{Size: 12, Style: fontstyle.Bold, Color: colorWhite, Top: 3, Left: 3}),
		text.New("Giro: Servicios de mantenimiento y reparación", props.Text{Size: 8, Color: colorWhite, Top: 10, Left: 3}),
		text.New(issuerLine(data), props.Text{Size: 8, Color: colorWhite, Top: 15, Left: 3}),
	)
	title := col.New(4).Add(
		text.New("FACTURA ELECTRÓNICA", props.Text{Size: 11, Style: fontstyle.Bold, Color: colorWhite, Align: align.Right, Top: 3, Right: 3}),
		text.New(fmt.Sprintf("N° %d", data.Number), props.Text{Size: 11, Style: fontstyle.Bold, Color: colorWhite, Align: align.Right, Top: 11, Right: 3}),
	)
	return row.New(24).Add(issuer, title).WithStyle(&props.Cell{BackgroundColor: colorAccent})
}

func issuerLine(data InvoiceData) string {
	parts := []string{"Santiago, Chile"}
	if data.CompanyRUT != "" {
		parts = append(parts, "RUT "+data.CompanyRUT)
	}
	if data.CompanyEmail != "" {
		parts = append(parts, data.CompanyEmail)
	}
	return strings.Join(parts, "  ·  ")
}

// ── Customer block ──────────────────────────────────────────────────────

func buildCustomerBlock(data InvoiceData) []core.Row {
	label := props.Text{Size: 8, Style: fontstyle.Bold, Color: colorPrimary}
	value := props.Text{Size: 8, Color: colorSecondary}
	section := props.Text{Size: 9, Style: fontstyle.Bold, Color: colorSecondary}

	field := func(name, val string) core.Row {
		return row.New(5).Add(
			col.New(3).Add(text.New(name, label)),
			col.New(9).Add(text.New(orDash(val), value)),
		)
	}

	rows := []core.Row{
		row.New(6).Add(
			col.New(7).Add(text.New("Datos del cliente", section)),
			col.New(5).Add(text.New("Servicio", section)),
		),
		field("CLIENTE:", data.CustomerName),
		field("CORREO:", data.CustomerEmail),
		field("REGIÓN/COMUNA:", orDash(data.Region)+" / "+orDash(data.Comuna)),
		field("DIRECCIÓN:", data.Address),
		field("FECHA:", data.IssuedAt.Format("02/01/2006")),
		field("TRABAJO / SERVICIO:", data.ServiceLabel),
	}
	return rows
}

// ── Line tables ─────────────────────────────────────────────────────────

func buildLinesTable(title string, lines []InvoiceLine, emptyText string) []core.Row {
	headerStyle := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Top: 1.5}
	headerRight := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Align: align.Right, Top: 1.5}

	rows := []core.Row{
		row.New(7).Add(col.New(12).Add(text.New(title, props.Text{Size: 9, Style: fontstyle.Bold, Color: colorAccent}))),
		row.New(7).Add(
			col.New(2).Add(text.New("Código", headerStyle)),
			col.New(5).Add(text.New("Descripción", headerStyle)),
			col.New(1).Add(text.New("Cantidad", headerRight)),
			col.New(2).Add(text.New("Precio", headerRight)),
			col.New(2).Add(text.New("Valor", headerRight)),
		).WithStyle(&props.Cell{BackgroundColor: colorTableHead, BorderType: border.Bottom, BorderColor: colorBorder}),
	}

	if len(lines) == 0 && emptyText != "" {
		return append(rows, row.New(6).Add(
			col.New(12).Add(text.New(emptyText, props.Text{Size: 8, Color: colorSecondary, Top: 1})),
		))
	}

	normal := props.Text{Size: 8, Color: colorPrimary, Top: 1}
	right := props.Text{Size: 8, Color: colorPrimary, Align: align.Right, Top: 1}
	for i, l := range lines {
		r := row.New(6).Add(
			col.New(2).Add(text.New(orDash(l.Code), normal)),
			col.New(5).Add(text.New(orDash(l.Description), normal)),
			col.New(1).Add(text.New(formatQuantity(l.Quantity), right)),
			col.New(2).Add(text.New(money.CLP(l.UnitPrice), right)),
			col.New(2).Add(text.New(money.CLP(l.Total), right)),
		)
		if i%2 == 1 {
			r.WithStyle(&props.Cell{BackgroundColor: colorSoft})
		}
		rows = append(rows, r)
	}
	return rows
}

// ── Summary ─────────────────────────────────────────────────────────────

func buildSummary(data InvoiceData) []core.Row {
	label := props.Text{Size: 9, Color: colorSecondary, Align: align.Right}
	value := props.Text{Size: 9, Color: colorPrimary, Align: align.Right}
	bold := props.Text{Size: 11, Style: fontstyle.Bold, Color: colorAccent, Align: align.Right, Top: 2}

	left := col.New(4)
	if len(data.QRCode) > 0 {
		left.Add(image.NewFromBytes(data.QRCode, extension.Png, props.Rect{Percent: 80}))
	}

	rows := []core.Row{
		row.New(1).WithStyle(&props.Cell{BorderType: border.Bottom, BorderColor: colorBorder}),
		row.New(3),
		row.New(6).Add(col.New(12).Add(text.New("Resumen de pago", props.Text{Size: 10, Style: fontstyle.Bold, Color: colorAccent, Align: align.Right}))),
		row.New(6).Add(col.New(9).Add(text.New("MONTO NETO", label)), col.New(3).Add(text.New(money.CLP(data.Net), value))),
		row.New(6).Add(col.New(9).Add(text.New("I.V.A. 19%", label)), col.New(3).Add(text.New(money.CLP(data.Tax), value))),
		row.New(10).Add(
			col.New(9).Add(text.New("TOTAL PAGADO", bold)),
			col.New(3).Add(text.New(money.CLP(data.Total), bold)),
		).WithStyle(&props.Cell{BackgroundColor: colorTableHead, BorderType: border.Top | border.Bottom, BorderColor: colorBorder}),
		row.New(4),
		row.New(24).Add(left, col.New(8).Add(text.New("Detalle generado automáticamente para registro interno.", props.Text{Size: 7, Color: colorSecondary, Top: 2}))),
	}
	return rows
}

// ── Footer (registered, repeats on every page) ──────────────────────────

func buildFooter(data InvoiceData) core.Row {
	parts := []string{data.CompanyName}
	if data.CompanyRUT != "" {
		parts = append(parts, "RUT: "+data.CompanyRUT)
	}
	if data.CompanyEmail != "" {
		parts = append(parts, data.CompanyEmail)
	}
	return row.New(10).Add(
		col.New(12).Add(text.New(strings.Join(parts, "  ·  "), props.Text{
			Size:  6.5,
			Color: colorSecondary,
			Align: align.Center,
			Top:   4,
		})),
	).WithStyle(&props.Cell{BorderType: border.Top, BorderColor: colorBorder})
}

// ── Helpers ─────────────────────────────────────────────────────────────

// formatQuantity prints 2 as "2" and 1.5 as "1.5".
func formatQuantity(q decimal.Decimal) string {
	return q.Round(2).String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
