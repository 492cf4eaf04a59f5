package dlr

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/xuri/excelize/v2"
)

func sampleDLR() *DLR {
	maturity := "March 15, 2030"
	score := 85.0
	return &DLR{
		BorrowerName:        "Per Schedule A",
		AgreementDate:       "March 15, 2025",
		MaturityDate:        &maturity,
		GoverningLaw:        "New York Law",
		DocumentType:        "Credit Agreement",
		Currency:            "USD",
		FacilityType:        "Term Loan",
		TotalCommitment:     350000000,
		MarginBPS:           175,
		BaseRate:            "SOFR",
		IsESGLinked:         true,
		ESGScore:            &score,
		TransferabilityMode: "Consent Required",
		Parties: []Party{
			{Name: "The Bank of New York Mellon", Role: "Administrative Agent"},
			{Name: "Per Schedule A", Role: "Borrower"},
		},
		Facilities: []Facility{
			{Name: "Term Loan A", Type: "Term Loan", Amount: 200000000, Currency: "USD", Confidence: 0.87},
		},
		Transfer: Transferability{
			Mode:            "Assignment",
			ConsentRequired: true,
			ConsentType:     "Agent Bank",
			Restrictions:    []string{"White-listed Transferee List"},
			Confidence:      0.85,
		},
		Covenants: []Covenant{
			{Type: "Financial", Name: "Leverage Ratio", Threshold: "< 4.0x", CurrentValue: 3.2, HeadroomPercent: 20, TestFrequency: "Quarterly", Confidence: 0.96},
		},
		Obligations: []Obligation{
			{Role: "Borrower", Title: "Financial Statements", Details: "deliver audited financial statements...", DueHint: "90 days post-YE", Status: "Draft", IsESG: false, Confidence: 0.95},
		},
		EventsOfDefault: []EventOfDefault{
			{Trigger: "Non-Payment", Notice: "None", GracePeriod: "3 Business Days", Confidence: 0.90},
			{Trigger: "Breach of Covenant", Notice: "Required", GracePeriod: "30 days (if curable)"},
		},
		ESG: []ESGItem{
			{KPIName: "GHG Emissions", TargetDescription: "Sustainability KPI 1 - Annual reduction target", ReportingFrequency: "Annual", Status: "on_track", Confidence: 0.94},
		},
		Citations: []Citation{
			{Keyword: "Governing Law", Clause: "Section 10.1 Governing Law", PageStart: 42, PageEnd: 42, Confidence: 0.97},
		},
		Tables: []Table{
			{Type: TablePricingGrid, Page: 5, Title: "Pricing Grid", Data: []PricingRow{{Rating: "BBB", MarginBPS: 175}}, Confidence: 0.88},
		},
		Summary: ExtractionSummary{
			TotalPages:       48,
			OCRPages:         []int{12, 13},
			ClausesExtracted: 37,
			TablesExtracted:  1,
			TableTypes:       []TableType{TablePricingGrid},
			ExtractionMethod: MethodHybrid,
		},
		ExtractionConfidence: 0.92,
		AIEnhanced:           true,
		TotalPages:           48,
		TotalClauses:         37,
	}
}

func TestDLR_RoundTrip(t *testing.T) {
	record := sampleDLR()

	first, err := sonic.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded DLR
	if err := sonic.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	second, err := sonic.Marshal(&decoded)
	if err != nil {
		t.Fatalf("re-Marshal() error = %v", err)
	}

	var before, after map[string]any
	if err := sonic.Unmarshal(first, &before); err != nil {
		t.Fatalf("Unmarshal(first) error = %v", err)
	}
	if err := sonic.Unmarshal(second, &after); err != nil {
		t.Fatalf("Unmarshal(second) error = %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("round trip changed the record:\nbefore: %v\nafter:  %v", before, after)
	}
}

func TestDLR_StableKeysPresent(t *testing.T) {
	raw, err := sonic.Marshal(sampleDLR())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	keys := []string{
		"borrower_name", "agreement_date", "maturity_date", "governing_law",
		"document_type", "currency", "facility_type", "total_commitment",
		"margin_bps", "base_rate", "is_esg_linked", "esg_score",
		"transferability_mode", "parties", "facilities", "transferability",
		"covenants", "obligations", "events_of_default", "esg", "citations",
		"tables", "extraction_summary", "extraction_confidence", "ai_enhanced",
		"total_pages", "total_clauses",
	}
	for _, key := range keys {
		if _, ok := doc[key]; !ok {
			t.Errorf("key %q missing from serialized DLR", key)
		}
	}
}

func TestDLR_FallbackEventOmitsConfidence(t *testing.T) {
	raw, err := sonic.Marshal(sampleDLR())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var doc struct {
		Events []map[string]any `json:"events_of_default"`
	}
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(doc.Events) != 2 {
		t.Fatalf("events_of_default len = %d, want 2", len(doc.Events))
	}
	if _, ok := doc.Events[0]["confidence"]; !ok {
		t.Error("matched event lost its confidence")
	}
	if _, ok := doc.Events[1]["confidence"]; ok {
		t.Error("fallback event should not carry a confidence key")
	}
}

func TestValidate(t *testing.T) {
	t.Run("complete record passes", func(t *testing.T) {
		result, err := Validate(sampleDLR())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if !result.Valid {
			t.Fatalf("Validate() invalid, errors = %v", result.Errors)
		}
	})

	t.Run("missing facilities fails", func(t *testing.T) {
		record := sampleDLR()
		record.Facilities = nil
		result, err := Validate(record)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if result.Valid {
			t.Error("Validate() accepted a record with no facilities")
		}
	})

	t.Run("out of range confidence fails", func(t *testing.T) {
		record := sampleDLR()
		record.ExtractionConfidence = 1.5
		result, err := Validate(record)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if result.Valid {
			t.Error("Validate() accepted extraction_confidence > 1")
		}
	})
}

func TestExportXLSX(t *testing.T) {
	record := sampleDLR()
	raw, err := ExportXLSX(record)
	if err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("ExportXLSX() returned no bytes")
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Summary", "Facilities", "Covenants", "Obligations", "Citations"} {
		if index, _ := f.GetSheetIndex(sheet); index == -1 {
			t.Errorf("sheet %q missing", sheet)
		}
	}

	borrower, err := f.GetCellValue("Summary", "B1")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if borrower != record.BorrowerName {
		t.Errorf("Summary!B1 = %q, want %q", borrower, record.BorrowerName)
	}

	facility, err := f.GetCellValue("Facilities", "A2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if facility != "Term Loan A" {
		t.Errorf("Facilities!A2 = %q, want Term Loan A", facility)
	}
}
