package loansaf

import (
	"reflect"
	"strings"
	"testing"
)

const preambleText = "THIS CREDIT AGREEMENT is entered into between the parties identified on the signature pages hereto, each of which agrees to the terms set out below."

func definitionsPage() Page {
	return Page{
		Number: 1,
		Text: preambleText + "\n" +
			"Clause 1.1 Definitions\n" +
			"In this Agreement, unless the context otherwise requires, capitalised terms have the meanings given to them in Schedule A, and references to Clauses are to clauses of this Agreement.",
	}
}

func TestSegmentClauses_NumberedHeading(t *testing.T) {
	clauses := SegmentClauses([]Page{definitionsPage()})

	if len(clauses) != 2 {
		t.Fatalf("SegmentClauses() returned %d clauses, want 2 (preamble + definitions)", len(clauses))
	}

	if clauses[0].Heading != "Preamble" {
		t.Errorf("first heading = %q, want Preamble", clauses[0].Heading)
	}
	if clauses[1].Heading != "Clause 1.1 Definitions" {
		t.Errorf("second heading = %q, want %q", clauses[1].Heading, "Clause 1.1 Definitions")
	}
	if clauses[1].PageStart != 1 || clauses[1].PageEnd != 1 {
		t.Errorf("definitions pages = %d..%d, want 1..1", clauses[1].PageStart, clauses[1].PageEnd)
	}
	if strings.HasPrefix(clauses[1].Body, "Clause 1.1") {
		t.Error("heading line should not be part of the body")
	}
}

func TestSegmentClauses_HeadingVariants(t *testing.T) {
	tests := []struct {
		name    string
		heading string
		want    string
	}{
		{"clause with dash", "Clause 2.3 - Interest Periods", "Clause 2.3 Interest Periods"},
		{"article with colon", "Article 5: Representations", "Article 5 Representations"},
		{"section with trailing dot", "Section 9.02. Notices", "Section 9.02. Notices"},
		{"lowercase keyword", "clause 14 Assignment", "clause 14 Assignment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Page{
				Number: 1,
				Text: preambleText + "\n" + tt.heading + "\n" +
					"The parties agree to the detailed provisions set out in this clause, which apply to every Facility made available under this Agreement and bind each Obligor.",
			}
			clauses := SegmentClauses([]Page{page})
			if len(clauses) != 2 {
				t.Fatalf("got %d clauses, want 2", len(clauses))
			}
			if clauses[1].Heading != tt.want {
				t.Errorf("heading = %q, want %q", clauses[1].Heading, tt.want)
			}
		})
	}
}

func TestSegmentClauses_EarlyHeadingIsReference(t *testing.T) {
	// A heading-shaped line before the current body reaches length is a
	// cross-reference, not a new clause.
	page := Page{
		Number: 1,
		Text: "See\n" +
			"Clause 3.1 Margin\n" +
			"for the applicable rate. " + preambleText,
	}
	clauses := SegmentClauses([]Page{page})

	if len(clauses) != 1 {
		t.Fatalf("got %d clauses, want 1", len(clauses))
	}
	if clauses[0].Heading != "Preamble" {
		t.Errorf("heading = %q, want Preamble", clauses[0].Heading)
	}
	if !strings.Contains(clauses[0].Body, "Clause 3.1 Margin") {
		t.Error("reference line should remain in the preamble body")
	}
}

func TestSegmentClauses_PageSpan(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: preambleText + "\nClause 7.1 Financial Covenants\nThe Borrower shall ensure that the Leverage Ratio does not"},
		{Number: 2, Text: "exceed 4.0x on each Quarter Date, tested on a rolling twelve month basis in accordance with the Compliance Certificate."},
	}
	clauses := SegmentClauses(pages)

	if len(clauses) != 2 {
		t.Fatalf("got %d clauses, want 2", len(clauses))
	}
	cov := clauses[1]
	if cov.PageStart != 1 || cov.PageEnd != 2 {
		t.Errorf("covenant clause pages = %d..%d, want 1..2", cov.PageStart, cov.PageEnd)
	}
}

func TestSegmentClauses_DropsFragments(t *testing.T) {
	pages := []Page{{Number: 1, Text: "Short preamble."}}
	if clauses := SegmentClauses(pages); len(clauses) != 0 {
		t.Errorf("got %d clauses from a fragment, want 0", len(clauses))
	}
}

func TestSegmentClauses_VarianceScore(t *testing.T) {
	clauses := SegmentClauses([]Page{definitionsPage()})

	for _, c := range clauses {
		if c.VarianceScore < 0.70 || c.VarianceScore >= 0.99 {
			t.Errorf("clause %q variance = %v, want in [0.70, 0.99)", c.Heading, c.VarianceScore)
		}
		if c.IsStandard != (c.VarianceScore > 0.85) {
			t.Errorf("clause %q IsStandard = %v inconsistent with variance %v",
				c.Heading, c.IsStandard, c.VarianceScore)
		}
	}
}

func TestSegmentClauses_Deterministic(t *testing.T) {
	first := SegmentClauses([]Page{definitionsPage()})
	second := SegmentClauses([]Page{definitionsPage()})

	if !reflect.DeepEqual(first, second) {
		t.Error("SegmentClauses() is not deterministic across runs")
	}
}
