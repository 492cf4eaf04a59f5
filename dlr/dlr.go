// Package dlr defines the Digital Loan Record, the canonical structured
// output of loan agreement extraction, along with its JSON schema
// validation and spreadsheet export.
//
// A DLR is assembled once per extraction run and never mutated afterwards.
// Consumers (the store, the HTTP API, exports) receive it as an immutable
// value; anything they persist is a copy.
package dlr

// TableType identifies the kind of structural table detected in a document.
type TableType string

const (
	TablePricingGrid      TableType = "pricing_grid"
	TableFeeSchedule      TableType = "fee_schedule"
	TableFacilitySchedule TableType = "facility_schedule"
)

// ExtractionMethod records which extraction tier produced the record.
type ExtractionMethod string

const (
	// MethodHybrid means an AI pass contributed fields on top of the
	// regex tier.
	MethodHybrid ExtractionMethod = "hybrid"
	// MethodRegexOnly means every field came from patterns or defaults.
	MethodRegexOnly ExtractionMethod = "regex_only"
)

// Party is a named participant in the agreement, deduplicated by name
// within a single DLR.
type Party struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Facility is a single tranche or commitment under the agreement.
type Facility struct {
	Name     string  `json:"name"`
	Type     string  `json:"type,omitempty"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	// Confidence is extraction certainty in [0,1], not legal validity.
	Confidence float64 `json:"confidence,omitempty"`
}

// PricingRow is one rating band of a margin ratchet.
type PricingRow struct {
	Rating    string `json:"rating"`
	MarginBPS int    `json:"margin_bps"`
}

// FeeSchedule holds the fees recognized from a fee table. Absent fees are
// omitted rather than zeroed.
type FeeSchedule struct {
	ArrangementFeeBPS float64 `json:"arrangement_fee_bps,omitempty"`
	CommitmentFeeBPS  float64 `json:"commitment_fee_bps,omitempty"`
	AgencyFee         float64 `json:"agency_fee,omitempty"`
}

// Table is a structural table located in the document text. Data holds the
// parser-specific rows: []PricingRow, FeeSchedule, or []Facility.
type Table struct {
	Type       TableType `json:"type"`
	Page       int       `json:"page"`
	Title      string    `json:"title"`
	Data       any       `json:"data"`
	Confidence float64   `json:"confidence"`
}

// Clause is a heading-delimited unit of contract text with page provenance.
// Clauses are returned alongside the DLR rather than embedded in it; only
// their count and citations appear in the record itself.
type Clause struct {
	Heading   string `json:"heading"`
	Body      string `json:"body"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`

	// VarianceScore is a similarity proxy to a standard template in [0,1].
	VarianceScore float64 `json:"variance_score"`
	IsStandard    bool    `json:"is_standard"`
}

// Covenant is a financial covenant with its threshold and an illustrative
// current value when the document states none.
type Covenant struct {
	Type            string  `json:"type"`
	Name            string  `json:"name"`
	Threshold       string  `json:"threshold"`
	CurrentValue    float64 `json:"current_value"`
	HeadroomPercent float64 `json:"headroom_percent"`
	TestFrequency   string  `json:"test_frequency"`
	Confidence      float64 `json:"confidence"`
}

// Obligation is a recurring delivery duty of a party under the agreement.
type Obligation struct {
	Role    string `json:"role"`
	Title   string `json:"title"`
	Details string `json:"details"`

	// DueHint is the human-readable frequency from the document
	// ("Quarterly", "90 days post-YE"); concrete dates are derived at
	// persistence time from the loan's closing date.
	DueHint    string  `json:"due_hint"`
	Status     string  `json:"status"`
	IsESG      bool    `json:"is_esg"`
	Confidence float64 `json:"confidence"`
}

// EventOfDefault is a default trigger with its notice and grace terms.
// Confidence is omitted for entries synthesized from the standard fallback
// list rather than matched in the text.
type EventOfDefault struct {
	Trigger     string  `json:"trigger"`
	Notice      string  `json:"notice"`
	GracePeriod string  `json:"grace_period"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// ESGItem is a sustainability KPI referenced by the agreement.
type ESGItem struct {
	KPIName            string  `json:"kpi_name"`
	TargetDescription  string  `json:"target_description"`
	ReportingFrequency string  `json:"reporting_frequency"`
	Status             string  `json:"status"`
	Confidence         float64 `json:"confidence"`
}

// Citation anchors a legally significant keyword to the clause that best
// supports it.
type Citation struct {
	Keyword   string `json:"keyword"`
	Clause    string `json:"clause"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`

	// Confidence is high when the keyword appears in the clause heading,
	// medium when only in the body.
	Confidence float64 `json:"confidence"`
}

// SanctionsRestriction is the restriction entry recorded when the transfer
// provisions reference sanctions or restricted transferee screening.
const SanctionsRestriction = "Sanctions and Restricted Transferee Screening"

// Transferability summarizes the agreement's transfer and assignment
// provisions.
type Transferability struct {
	// Mode is "Assignment" or "Novation".
	Mode            string   `json:"mode"`
	ConsentRequired bool     `json:"consent_required"`
	ConsentType     string   `json:"consent_type"`
	Restrictions    []string `json:"restrictions"`
	Confidence      float64  `json:"confidence"`
}

// SanctionsFlagged reports whether the restrictions include sanctions
// screening. Trade pack risk scoring keys off this.
func (t Transferability) SanctionsFlagged() bool {
	for _, r := range t.Restrictions {
		if r == SanctionsRestriction {
			return true
		}
	}
	return false
}

// ExtractionSummary describes how the record was produced.
type ExtractionSummary struct {
	TotalPages int `json:"total_pages"`

	// OCRPages lists 1-indexed pages whose text came from the OCR chain
	// rather than the PDF text layer.
	OCRPages         []int            `json:"ocr_pages"`
	ClausesExtracted int              `json:"clauses_extracted"`
	TablesExtracted  int              `json:"tables_extracted"`
	TableTypes       []TableType      `json:"table_types"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}

// DLR is the Digital Loan Record: the root aggregate handed to storage and
// serialized verbatim to API clients.
type DLR struct {
	// Core identification
	BorrowerName  string  `json:"borrower_name"`
	AgreementDate string  `json:"agreement_date"`
	MaturityDate  *string `json:"maturity_date"`
	GoverningLaw  string  `json:"governing_law"`
	DocumentType  string  `json:"document_type"`

	// Financial terms
	Currency        string  `json:"currency"`
	FacilityType    string  `json:"facility_type"`
	TotalCommitment float64 `json:"total_commitment"`
	MarginBPS       int     `json:"margin_bps"`
	BaseRate        string  `json:"base_rate"`

	// ESG
	IsESGLinked bool     `json:"is_esg_linked"`
	ESGScore    *float64 `json:"esg_score"`

	// Transfer
	TransferabilityMode string `json:"transferability_mode"`

	// Structured collections
	Parties         []Party          `json:"parties"`
	Facilities      []Facility       `json:"facilities"`
	Transfer        Transferability  `json:"transferability"`
	Covenants       []Covenant       `json:"covenants"`
	Obligations     []Obligation     `json:"obligations"`
	EventsOfDefault []EventOfDefault `json:"events_of_default"`
	ESG             []ESGItem        `json:"esg"`
	Citations       []Citation       `json:"citations"`
	Tables          []Table          `json:"tables"`

	// Provenance
	Summary              ExtractionSummary `json:"extraction_summary"`
	ExtractionConfidence float64           `json:"extraction_confidence"`
	AIEnhanced           bool              `json:"ai_enhanced"`
	TotalPages           int               `json:"total_pages"`
	TotalClauses         int               `json:"total_clauses"`
}
