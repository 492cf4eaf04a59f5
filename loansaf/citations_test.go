package loansaf

import (
	"strings"
	"testing"

	"github.com/loantwindb/loantwin-go/dlr"
)

func citationClauses() []dlr.Clause {
	return []dlr.Clause{
		{
			Heading:   "Preamble",
			Body:      "This Agreement records the terms on which the Lenders make the Facilities available.",
			PageStart: 1, PageEnd: 1,
		},
		{
			Heading:   "Clause 14 Assignment and Transfer",
			Body:      "A Lender may assign any of its rights to another bank or financial institution.",
			PageStart: 30, PageEnd: 32,
		},
		{
			Heading:   "Clause 27 Miscellaneous",
			Body:      "The courts of the State of New York have jurisdiction. The Governing Law of this Agreement is the law of the State of New York.",
			PageStart: 61, PageEnd: 62,
		},
	}
}

func findCitation(citations []dlr.Citation, keyword string) (dlr.Citation, bool) {
	for _, c := range citations {
		if c.Keyword == keyword {
			return c, true
		}
	}
	return dlr.Citation{}, false
}

func TestGenerateCitations_HeadingAndBodyBands(t *testing.T) {
	citations := GenerateCitations(citationClauses())

	assignment, ok := findCitation(citations, "Assignment")
	if !ok {
		t.Fatal("no citation for Assignment")
	}
	if assignment.Clause != "Clause 14 Assignment and Transfer" {
		t.Errorf("Assignment anchored to %q", assignment.Clause)
	}
	if assignment.PageStart != 30 || assignment.PageEnd != 32 {
		t.Errorf("Assignment pages = %d..%d, want 30..32", assignment.PageStart, assignment.PageEnd)
	}
	if assignment.Confidence < 0.95 || assignment.Confidence > 0.99 {
		t.Errorf("heading match confidence = %v, want in [0.95, 0.99]", assignment.Confidence)
	}

	law, ok := findCitation(citations, "Governing Law")
	if !ok {
		t.Fatal("no citation for Governing Law")
	}
	if law.Clause != "Clause 27 Miscellaneous" {
		t.Errorf("Governing Law anchored to %q", law.Clause)
	}
	if law.Confidence < 0.85 || law.Confidence > 0.94 {
		t.Errorf("body match confidence = %v, want in [0.85, 0.94]", law.Confidence)
	}

	// Keywords the clauses never mention stay out of the citation list.
	if _, ok := findCitation(citations, "ESG"); ok {
		t.Error("unexpected ESG citation")
	}
}

func TestGenerateCitations_FirstClauseWins(t *testing.T) {
	clauses := []dlr.Clause{
		{Heading: "Clause 5 Margin", Body: "The Margin is 175 bps.", PageStart: 10, PageEnd: 10},
		{Heading: "Clause 6 Margin Adjustment", Body: "The Margin adjusts per the grid.", PageStart: 12, PageEnd: 12},
	}

	citations := GenerateCitations(clauses)
	margin, ok := findCitation(citations, "Margin")
	if !ok {
		t.Fatal("no citation for Margin")
	}
	if margin.Clause != "Clause 5 Margin" {
		t.Errorf("Margin anchored to %q, want the first matching clause", margin.Clause)
	}

	count := 0
	for _, c := range citations {
		if c.Keyword == "Margin" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Margin cited %d times, want 1", count)
	}
}

func TestGenerateCitations_BodyWindowBound(t *testing.T) {
	// A keyword buried past the body window is not supporting evidence.
	deep := strings.Repeat("boilerplate text ", 40) + "Sustainability targets apply."
	clauses := []dlr.Clause{{Heading: "Clause 9 Information", Body: deep, PageStart: 20, PageEnd: 21}}

	citations := GenerateCitations(clauses)
	if _, ok := findCitation(citations, "Sustainability"); ok {
		t.Error("keyword past the body window should not be cited")
	}
}

func TestGenerateCitations_Deterministic(t *testing.T) {
	a := GenerateCitations(citationClauses())
	b := GenerateCitations(citationClauses())
	if len(a) != len(b) {
		t.Fatalf("citation counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("citation %d differs across runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
