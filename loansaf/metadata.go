package loansaf

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/dlr"
	"github.com/loantwindb/loantwin-go/llm"
)

// headPages bounds how much of the document the date, borrower and currency
// heuristics look at. The operative head of a loan agreement sits well
// inside the first fifteen pages.
const headPages = 15

// aiSampleChars bounds the document prefix sent to the model.
const aiSampleChars = 12000

// Metadata holds the scalar fields recovered from a document, after the
// AI, pattern and default tiers have been merged.
type Metadata struct {
	BorrowerName        string
	AgreementDate       string
	MaturityDate        *string
	GoverningLaw        string
	Currency            string
	IsESGLinked         bool
	FacilityType        string
	MarginBPS           int
	BaseRate            string
	TotalCommitment     float64
	DocumentType        string
	AdministrativeAgent string
	Lender              string
	TransferabilityMode string
	ESGScore            *float64
	Parties             []dlr.Party

	ExtractionConfidence float64
	AIEnhanced           bool
}

// aiMetadata is the JSON shape requested from the model. Numeric fields
// tolerate string-typed values since models do not reliably honor "as a
// number".
type aiMetadata struct {
	BorrowerName        string    `json:"borrower_name"`
	LenderName          string    `json:"lender_name"`
	AdministrativeAgent string    `json:"administrative_agent"`
	CollateralAgent     string    `json:"collateral_agent"`
	AgreementDate       string    `json:"agreement_date"`
	EffectiveDate       string    `json:"effective_date"`
	MaturityDate        string    `json:"maturity_date"`
	GoverningLaw        string    `json:"governing_law"`
	Currency            string    `json:"currency"`
	TotalCommitment     flexFloat `json:"total_commitment"`
	FacilityType        string    `json:"facility_type"`
	MarginBPS           flexInt   `json:"margin_bps"`
	BaseRate            string    `json:"base_rate"`
	IsESGLinked         bool      `json:"is_esg_linked"`
	DocumentType        string    `json:"document_type"`
}

const metadataSystem = "You are an expert legal document analyst specializing in loan agreements. " +
	"Extract data precisely from the text provided. If a field is not found, use null."

const metadataPrompt = `Analyze this loan agreement document and extract the following fields.
Return ONLY a valid JSON object with these exact keys:

{
  "borrower_name": "Full legal name of the borrower entity or 'Redacted' if not visible",
  "lender_name": "Name of the primary lender",
  "administrative_agent": "Name of the administrative agent bank",
  "collateral_agent": "Name of the collateral agent if different",
  "agreement_date": "Date of the agreement in format 'Month Day, Year'",
  "effective_date": "Effective date if different from agreement date",
  "maturity_date": "Loan maturity/termination date",
  "governing_law": "Governing law jurisdiction (e.g., 'New York Law', 'English Law')",
  "currency": "Primary currency code (USD, GBP, EUR, etc)",
  "total_commitment": "Total facility/commitment amount as a number",
  "facility_type": "Type of facility (Term Loan, Revolving, etc)",
  "margin_bps": "Interest margin in basis points if stated",
  "base_rate": "Base interest rate reference (SOFR, LIBOR, SONIA, etc)",
  "is_esg_linked": true/false,
  "document_type": "Type of document (Credit Agreement, Loan Agreement, etc)"
}

DOCUMENT TEXT:
%s

Return ONLY the JSON object, no explanation.`

// aiExtract runs the single AI metadata pass over the document prefix. A
// nil client returns the zero struct without error; call or parse failures
// wrap ErrAIExtraction so the caller can degrade to the pattern tier.
func (e *Extractor) aiExtract(ctx context.Context, fullText string) (aiMetadata, error) {
	var out aiMetadata
	if e.client == nil {
		return out, nil
	}

	prompt := metadataSystem + "\n\n" + fmt.Sprintf(metadataPrompt, runePrefix(fullText, aiSampleChars))
	raw, err := llm.GenerateWithRetry(ctx, e.client, prompt, e.aiTimeout)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrAIExtraction, err)
	}

	parsed, err := llm.ParseJSON[aiMetadata](raw)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrAIExtraction, err)
	}
	e.logger.Debug("ai metadata extracted", zap.String("borrower", parsed.BorrowerName))
	return parsed, nil
}

// extractMetadata merges the AI pass with the pattern tier and documented
// defaults. Pattern priority follows the field: currency symbols outrank an
// AI currency guess, while most other fields prefer the AI value.
func (e *Extractor) extractMetadata(ctx context.Context, d *document) Metadata {
	head := headText(d.pages)
	headUpper := strings.ToUpper(head)
	headLower := strings.ToLower(head)
	fullLower := strings.ToLower(d.fullText)

	ai, err := e.aiExtract(ctx, d.fullText)
	if err != nil {
		e.logger.Warn("ai metadata pass failed, using pattern tier",
			zap.String("path", d.path), zap.Error(err))
	}

	law := ai.GoverningLaw
	if law == "" {
		law = resolve(d.fullText, defaultGoverningLaw, governingLawResolvers...)
	}

	borrower := ai.BorrowerName
	if borrower == "" {
		borrower = "Unknown Borrower"
	}
	// Redacted agreements name the borrower only by reference.
	switch {
	case strings.Contains(headUpper, "IDENTIFIED ON") || strings.Contains(headUpper, "SIGNATURE PAGES"):
		borrower = "Per Signature Pages (Redacted)"
	case strings.Contains(headUpper, "SCHEDULE A") &&
		(strings.Contains(headLower, "set forth") || strings.Contains(headLower, "identified")):
		borrower = "Per Schedule A"
	}

	parties := DetectParties(d.fullText, borrower)

	// Currency symbols in the head outrank the AI guess, and the AI guess
	// is ignored entirely for treasury documents.
	currency := "USD"
	if c, ok := detectCurrency(head, fullLower); ok {
		currency = c
	} else if ai.Currency != "" && !strings.Contains(strings.ToUpper(d.fullText), "TREASURY") {
		currency = ai.Currency
	}

	agreementDate := ai.AgreementDate
	if agreementDate == "" {
		agreementDate = ai.EffectiveDate
	}
	if agreementDate == "" {
		agreementDate = resolve(head, defaultAgreementDate, agreementDateResolvers...)
	}

	facilityType := ai.FacilityType
	if facilityType == "" {
		facilityType = resolve(fullLower, defaultFacilityType, facilityTypeResolvers...)
	}

	marginBPS := int(ai.MarginBPS)
	if marginBPS == 0 {
		marginBPS = resolve(d.fullText, defaultMarginBPS, marginResolvers...)
	}

	baseRate := ai.BaseRate
	if baseRate == "" {
		baseRate = resolve(d.fullText, defaultBaseRate, baseRateResolvers...)
	}

	commitment := float64(ai.TotalCommitment)
	if commitment == 0 {
		commitment = resolve(d.fullText, 0, commitmentResolvers...)
	}

	isESG := ai.IsESGLinked || esgLinked(fullLower)

	docType := ai.DocumentType
	if docType == "" {
		docType = "Loan Agreement"
	}
	if strings.Contains(fullLower, "credit agreement") {
		docType = "Credit Agreement"
	} else if strings.Contains(fullLower, "facility agreement") {
		docType = "Facility Agreement"
	}

	transferMode := "Open Transfer"
	if strings.Contains(fullLower, "consent") {
		transferMode = "Consent Required"
	}

	var maturity *string
	if ai.MaturityDate != "" {
		m := ai.MaturityDate
		maturity = &m
	}

	var esgScore *float64
	if isESG {
		score := 85.0
		esgScore = &score
	}

	adminAgent := ai.AdministrativeAgent
	if adminAgent == "" && len(parties) > 0 {
		adminAgent = parties[0].Name
	}

	confidence := 0.75
	if e.client != nil {
		confidence = 0.92
	}

	return Metadata{
		BorrowerName:         borrower,
		AgreementDate:        agreementDate,
		MaturityDate:         maturity,
		GoverningLaw:         law,
		Currency:             currency,
		IsESGLinked:          isESG,
		FacilityType:         facilityType,
		MarginBPS:            marginBPS,
		BaseRate:             baseRate,
		TotalCommitment:      commitment,
		DocumentType:         docType,
		AdministrativeAgent:  adminAgent,
		Lender:               ai.LenderName,
		TransferabilityMode:  transferMode,
		ESGScore:             esgScore,
		Parties:              parties,
		ExtractionConfidence: confidence,
		AIEnhanced:           e.client != nil,
	}
}

// detectCurrency applies the literal symbol and keyword checks. ok is false
// only when no rule fired, leaving room for the AI tier.
func detectCurrency(head, fullLower string) (string, bool) {
	switch {
	case strings.Contains(head, "£") || strings.Contains(fullLower, "sterling") || strings.Contains(head, "GBP"):
		return "GBP", true
	case strings.Contains(head, "€") || strings.Contains(head, "EUR"):
		return "EUR", true
	case strings.Contains(head, "$") || strings.Contains(head, "USD") ||
		strings.Contains(fullLower, "dollar") || strings.Contains(head, "U.S."):
		return "USD", true
	}
	return "", false
}

func headText(pages []Page) string {
	n := headPages
	if len(pages) < n {
		n = len(pages)
	}
	parts := make([]string, 0, n)
	for _, p := range pages[:n] {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

// flexFloat tolerates numbers serialized as strings, with thousands
// separators, or as null. Unparseable values resolve to zero so the pattern
// tier can take over.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var v flexFloat
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}
