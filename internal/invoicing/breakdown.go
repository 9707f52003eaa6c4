// Package invoicing turns a paid quote into an invoice: it splits the quote
// items into labor and materials, reconciles the totals against the amount
// actually charged, renders the PDF and files it as a document.
package invoicing

import (
	"regexp"
	"strings"

	"fm_servicios_backend/platform/money"

	"github.com/shopspring/decimal"
)

const (
	CodeLabor    = "TRAB"
	CodeMaterial = "INS"

	defaultServiceLabel = "Servicio contratado"
)

var prefixPattern = regexp.MustCompile(`(?i)^(trabajo|insumo)\s*:\s*`)

// Item is a stored quote line.
type Item struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// QuoteSnapshot is the part of a quote the aggregator reads.
type QuoteSnapshot struct {
	ID              int64
	Subject         string
	ServiceTitle    string
	EstimatedBudget *decimal.Decimal
	Items           []Item
}

// Line is an invoice row.
type Line struct {
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

func (l Line) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Breakdown is the invoice body. Gross is the amount actually charged when
// the quote carries one.
type Breakdown struct {
	Labor     []Line
	Materials []Line
	Net       decimal.Decimal
	Tax       decimal.Decimal
	Gross     decimal.Decimal
}

// Description is the headline service label of the quote.
func (q QuoteSnapshot) Description() string {
	if s := strings.TrimSpace(q.Subject); s != "" {
		return s
	}
	if s := strings.TrimSpace(q.ServiceTitle); s != "" {
		return s
	}
	return defaultServiceLabel
}

// Aggregate builds the invoice breakdown of q. Items whose description
// starts with "insumo" are materials and everything else is labor. A quote
// without items gets one labor line worth its budget net of tax, or
// fixedPrice when there is no budget. When the stored budget disagrees with
// net plus tax by more than one peso, net and tax are recomputed from the
// budget so the invoice matches what was charged.
func Aggregate(q QuoteSnapshot, fixedPrice decimal.Decimal) Breakdown {
	var b Breakdown
	for _, it := range q.Items {
		raw := strings.TrimSpace(it.Description)
		desc := prefixPattern.ReplaceAllString(raw, "")
		if desc == "" {
			desc = raw
		}
		if desc == "" {
			desc = "-"
		}

		qty := it.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		line := Line{Description: desc, Quantity: qty, UnitPrice: it.UnitPrice}

		if strings.HasPrefix(strings.ToLower(raw), "insumo") {
			line.Code = CodeMaterial
			b.Materials = append(b.Materials, line)
		} else {
			line.Code = CodeLabor
			b.Labor = append(b.Labor, line)
		}
	}

	hasBudget := q.EstimatedBudget != nil && q.EstimatedBudget.IsPositive()

	if len(b.Labor) == 0 && len(b.Materials) == 0 {
		price := fixedPrice
		if hasBudget {
			price = money.NetOf(*q.EstimatedBudget).Round(0)
		}
		b.Labor = append(b.Labor, Line{
			Code:        CodeLabor,
			Description: q.Description(),
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   price,
		})
	}

	for _, l := range b.Labor {
		b.Net = b.Net.Add(l.Total())
	}
	for _, l := range b.Materials {
		b.Net = b.Net.Add(l.Total())
	}
	b.Tax = money.Tax(b.Net)
	b.Gross = b.Net.Add(b.Tax)

	if hasBudget {
		total := *q.EstimatedBudget
		if total.Sub(b.Gross).Abs().GreaterThan(decimal.NewFromInt(1)) {
			b.Net = money.NetOf(total).Round(0)
			b.Tax = total.Sub(b.Net)
		}
		b.Gross = total
	}
	return b
}
