package invoicing

import (
	"testing"

	"github.com/shopspring/decimal"
)

var fixedPrice = decimal.NewFromInt(50000)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestAggregateSplitsLaborAndMaterials(t *testing.T) {
	q := QuoteSnapshot{
		ID: 7,
		Items: []Item{
			{Description: "Trabajo: Cambio de enchufe", Quantity: dec("1"), UnitPrice: dec("10000")},
			{Description: "Insumo: Enchufe doble", Quantity: dec("2"), UnitPrice: dec("500")},
		},
	}

	b := Aggregate(q, fixedPrice)

	if len(b.Labor) != 1 || len(b.Materials) != 1 {
		t.Fatalf("labor=%d materials=%d", len(b.Labor), len(b.Materials))
	}
	if b.Labor[0].Description != "Cambio de enchufe" || b.Labor[0].Code != CodeLabor {
		t.Fatalf("labor line = %+v", b.Labor[0])
	}
	if b.Materials[0].Description != "Enchufe doble" || b.Materials[0].Code != CodeMaterial {
		t.Fatalf("material line = %+v", b.Materials[0])
	}
	assertAmount(t, "net", b.Net, "11000")
	assertAmount(t, "tax", b.Tax, "2090")
	assertAmount(t, "gross", b.Gross, "13090")
}

func TestAggregateReconcilesToChargedTotal(t *testing.T) {
	q := QuoteSnapshot{
		EstimatedBudget: decPtr("20000"),
		Items: []Item{
			{Description: "Trabajo: Cambio de enchufe", Quantity: dec("1"), UnitPrice: dec("10000")},
			{Description: "INSUMO: Enchufe doble", Quantity: dec("2"), UnitPrice: dec("500")},
		},
	}

	b := Aggregate(q, fixedPrice)

	assertAmount(t, "net", b.Net, "16807")
	assertAmount(t, "tax", b.Tax, "3193")
	assertAmount(t, "gross", b.Gross, "20000")
}

func TestAggregateKeepsComputedTotalsWithinOnePeso(t *testing.T) {
	q := QuoteSnapshot{
		EstimatedBudget: decPtr("59500"),
		Items:           []Item{{Description: "Trabajo: Mantención", Quantity: dec("1"), UnitPrice: dec("50000")}},
	}

	b := Aggregate(q, fixedPrice)

	assertAmount(t, "net", b.Net, "50000")
	assertAmount(t, "tax", b.Tax, "9500")
	assertAmount(t, "gross", b.Gross, "59500")
}

func TestAggregateSynthesizesLineWithoutItems(t *testing.T) {
	b := Aggregate(QuoteSnapshot{Subject: "Pintura fachada", EstimatedBudget: decPtr("20000")}, fixedPrice)
	if len(b.Labor) != 1 || b.Labor[0].Description != "Pintura fachada" {
		t.Fatalf("labor = %+v", b.Labor)
	}
	assertAmount(t, "unit price", b.Labor[0].UnitPrice, "16807")
	assertAmount(t, "gross", b.Gross, "20000")

	b = Aggregate(QuoteSnapshot{ServiceTitle: "Gasfitería"}, fixedPrice)
	if b.Labor[0].Description != "Gasfitería" {
		t.Fatalf("description = %q", b.Labor[0].Description)
	}
	assertAmount(t, "net", b.Net, "50000")
	assertAmount(t, "gross", b.Gross, "59500")

	b = Aggregate(QuoteSnapshot{}, fixedPrice)
	if b.Labor[0].Description != "Servicio contratado" {
		t.Fatalf("description = %q", b.Labor[0].Description)
	}
}

func TestAggregateUnprefixedItemsAreLabor(t *testing.T) {
	b := Aggregate(QuoteSnapshot{Items: []Item{{Description: "Revisión general", Quantity: dec("1"), UnitPrice: dec("1000")}}}, fixedPrice)
	if len(b.Labor) != 1 || b.Labor[0].Description != "Revisión general" {
		t.Fatalf("labor = %+v", b.Labor)
	}
}
