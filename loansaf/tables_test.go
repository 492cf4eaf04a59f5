package loansaf

import (
	"testing"

	"github.com/loantwindb/loantwin-go/dlr"
)

func TestExtractTables_PricingGrid(t *testing.T) {
	pages := []Page{{Number: 4, Text: "Schedule B\n" +
		"Pricing Grid\n" +
		"Rating Margin\n" +
		"A- : 150 bps\n" +
		"BBB+ | 175 bps\n" +
		"BB 250\n"}}

	tables := ExtractTables(pages)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}

	table := tables[0]
	if table.Type != dlr.TablePricingGrid {
		t.Errorf("type = %q, want pricing_grid", table.Type)
	}
	if table.Page != 4 {
		t.Errorf("page = %d, want 4", table.Page)
	}
	if table.Title != "Pricing Grid" {
		t.Errorf("title = %q, want Pricing Grid", table.Title)
	}
	if table.Confidence != 0.88 {
		t.Errorf("confidence = %v, want 0.88", table.Confidence)
	}

	rows, ok := table.Data.([]dlr.PricingRow)
	if !ok {
		t.Fatalf("data is %T, want []dlr.PricingRow", table.Data)
	}
	want := []dlr.PricingRow{
		{Rating: "A-", MarginBPS: 150},
		{Rating: "BBB+", MarginBPS: 175},
		{Rating: "BB", MarginBPS: 250},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestExtractTables_PricingGridDefaultRow(t *testing.T) {
	// A detected grid whose rows cannot be parsed still yields the
	// standard investment-grade band.
	pages := []Page{{Number: 1, Text: "Margin Ratchet applies per the Rating of the Borrower as set out in Schedule C."}}

	tables := ExtractTables(pages)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}
	rows := tables[0].Data.([]dlr.PricingRow)
	if len(rows) != 1 || rows[0].Rating != "BBB" || rows[0].MarginBPS != 175 {
		t.Errorf("default rows = %+v, want [{BBB 175}]", rows)
	}
}

func TestExtractTables_FeeSchedule(t *testing.T) {
	pages := []Page{{Number: 7, Text: "Fee Schedule\n" +
		"Arrangement: 1.5%\n" +
		"Commitment: 50 bps\n" +
		"Agency: £75,000 per annum\n"}}

	tables := ExtractTables(pages)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}

	table := tables[0]
	if table.Type != dlr.TableFeeSchedule {
		t.Errorf("type = %q, want fee_schedule", table.Type)
	}

	fees, ok := table.Data.(dlr.FeeSchedule)
	if !ok {
		t.Fatalf("data is %T, want dlr.FeeSchedule", table.Data)
	}
	if fees.ArrangementFeeBPS != 150 {
		t.Errorf("arrangement fee = %v bps, want 150 (1.5%% converted)", fees.ArrangementFeeBPS)
	}
	if fees.CommitmentFeeBPS != 50 {
		t.Errorf("commitment fee = %v bps, want 50", fees.CommitmentFeeBPS)
	}
	if fees.AgencyFee != 75000 {
		t.Errorf("agency fee = %v, want 75000", fees.AgencyFee)
	}
}

func TestExtractTables_FacilitySchedule(t *testing.T) {
	pages := []Page{{Number: 2, Text: "Facilities\n" +
		"Amount (£)\n" +
		"Term Loan A: £200m\n" +
		"Term Loan B: £100 million\n" +
		"Revolving: £50m\n"}}

	tables := ExtractTables(pages)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}

	facilities, ok := tables[0].Data.([]dlr.Facility)
	if !ok {
		t.Fatalf("data is %T, want []dlr.Facility", tables[0].Data)
	}
	want := []dlr.Facility{
		{Name: "Term Loan A", Amount: 200_000_000, Currency: "GBP"},
		{Name: "Term Loan B", Amount: 100_000_000, Currency: "GBP"},
		{Name: "Revolving Credit Facility", Amount: 50_000_000, Currency: "GBP"},
	}
	if len(facilities) != len(want) {
		t.Fatalf("got %d facilities, want %d: %+v", len(facilities), len(want), facilities)
	}
	for i := range want {
		if facilities[i] != want[i] {
			t.Errorf("facility %d = %+v, want %+v", i, facilities[i], want[i])
		}
	}
}

func TestExtractTables_USDWithoutSymbol(t *testing.T) {
	pages := []Page{{Number: 1, Text: "Commitments\n" +
		"Amount\n" +
		"Term Loan A: 350,000,000\n"}}

	tables := ExtractTables(pages)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}
	facilities := tables[0].Data.([]dlr.Facility)
	if len(facilities) != 1 {
		t.Fatalf("got %d facilities, want 1", len(facilities))
	}
	if facilities[0].Currency != "USD" {
		t.Errorf("currency = %q, want USD default", facilities[0].Currency)
	}
	if facilities[0].Amount != 350_000_000 {
		t.Errorf("amount = %v, want 350000000", facilities[0].Amount)
	}
}

func TestExtractTables_NoTables(t *testing.T) {
	pages := []Page{{Number: 1, Text: "The Borrower shall deliver the financial statements required by Clause 19."}}
	if tables := ExtractTables(pages); len(tables) != 0 {
		t.Errorf("got %d tables from plain text, want 0", len(tables))
	}
}
