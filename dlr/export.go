package dlr

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX renders a DLR as an XLSX workbook for analyst handoff:
// a summary sheet plus one sheet each for facilities, covenants,
// obligations, and citations.
func ExportXLSX(record *DLR) ([]byte, error) {
	f := excelize.NewFile()

	writeSummarySheet(f, record)
	writeFacilitiesSheet(f, record.Facilities)
	writeCovenantsSheet(f, record.Covenants)
	writeObligationsSheet(f, record.Obligations)
	writeCitationsSheet(f, record.Citations)

	// NewFile seeds a default sheet we never write to.
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}
	if index, _ := f.GetSheetIndex("Summary"); index != -1 {
		f.SetActiveSheet(index)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func ensureSheet(f *excelize.File, name string) {
	if index, _ := f.GetSheetIndex(name); index == -1 {
		_, _ = f.NewSheet(name)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func writeSummarySheet(f *excelize.File, record *DLR) {
	const sheet = "Summary"
	ensureSheet(f, sheet)

	maturity := ""
	if record.MaturityDate != nil {
		maturity = *record.MaturityDate
	}
	esgScore := ""
	if record.ESGScore != nil {
		esgScore = fmt.Sprintf("%.1f", *record.ESGScore)
	}

	rows := [][2]any{
		{"Borrower", record.BorrowerName},
		{"Agreement Date", record.AgreementDate},
		{"Maturity Date", maturity},
		{"Governing Law", record.GoverningLaw},
		{"Document Type", record.DocumentType},
		{"Currency", record.Currency},
		{"Facility Type", record.FacilityType},
		{"Total Commitment", record.TotalCommitment},
		{"Margin (bps)", record.MarginBPS},
		{"Base Rate", record.BaseRate},
		{"ESG Linked", record.IsESGLinked},
		{"ESG Score", esgScore},
		{"Transferability", record.TransferabilityMode},
		{"Pages", record.TotalPages},
		{"Clauses", record.TotalClauses},
		{"Extraction Method", string(record.Summary.ExtractionMethod)},
		{"Extraction Confidence", record.ExtractionConfidence},
	}
	for i, r := range rows {
		writeRow(f, sheet, i+1, r[0], r[1])
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 40)
}

func writeFacilitiesSheet(f *excelize.File, facilities []Facility) {
	const sheet = "Facilities"
	ensureSheet(f, sheet)

	writeRow(f, sheet, 1, "Name", "Type", "Amount", "Currency", "Confidence")
	for i, fac := range facilities {
		writeRow(f, sheet, i+2, fac.Name, fac.Type, fac.Amount, fac.Currency, fac.Confidence)
	}
	_ = f.SetColWidth(sheet, "A", "B", 28)
	_ = f.SetColWidth(sheet, "C", "C", 18)
}

func writeCovenantsSheet(f *excelize.File, covenants []Covenant) {
	const sheet = "Covenants"
	ensureSheet(f, sheet)

	writeRow(f, sheet, 1, "Name", "Type", "Threshold", "Current", "Headroom %", "Frequency", "Confidence")
	for i, c := range covenants {
		writeRow(f, sheet, i+2, c.Name, c.Type, c.Threshold, c.CurrentValue, c.HeadroomPercent, c.TestFrequency, c.Confidence)
	}
	_ = f.SetColWidth(sheet, "A", "A", 26)
}

func writeObligationsSheet(f *excelize.File, obligations []Obligation) {
	const sheet = "Obligations"
	ensureSheet(f, sheet)

	writeRow(f, sheet, 1, "Title", "Role", "Due", "ESG", "Details", "Confidence")
	for i, o := range obligations {
		writeRow(f, sheet, i+2, o.Title, o.Role, o.DueHint, o.IsESG, truncate(o.Details, 140), o.Confidence)
	}
	_ = f.SetColWidth(sheet, "A", "A", 30)
	_ = f.SetColWidth(sheet, "E", "E", 60)
}

func writeCitationsSheet(f *excelize.File, citations []Citation) {
	const sheet = "Citations"
	ensureSheet(f, sheet)

	writeRow(f, sheet, 1, "Keyword", "Clause", "Page", "Confidence")
	for i, c := range citations {
		writeRow(f, sheet, i+2, c.Keyword, c.Clause, c.PageStart, c.Confidence)
	}
	_ = f.SetColWidth(sheet, "B", "B", 48)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
