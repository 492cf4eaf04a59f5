package loansaf

import (
	"regexp"

	"github.com/loantwindb/loantwin-go/dlr"
)

var (
	whitelistRe    = regexp.MustCompile(`(?i)(white list|whitelist|approved transferee|pre-approved)`)
	novationRe     = regexp.MustCompile(`(?i)novation`)
	freeTransferRe = regexp.MustCompile(`(?i)freely transferable|without consent`)
	sanctionsRe    = regexp.MustCompile(`(?i)(sanctions|restricted transferee|embargo)`)
)

// AnalyzeTransferability extracts the transfer and assignment provisions,
// starting from the LMA-standard assignment-with-agent-consent position and
// adjusting for what the document actually says.
func AnalyzeTransferability(fullText string) dlr.Transferability {
	t := dlr.Transferability{
		Mode:            "Assignment",
		ConsentRequired: true,
		ConsentType:     "Agent Bank",
		Restrictions:    []string{},
		Confidence:      0.85,
	}

	if whitelistRe.MatchString(fullText) {
		t.Restrictions = append(t.Restrictions, "White-listed Transferee List")
		t.ConsentType = "White-list Only"
	}
	if novationRe.MatchString(fullText) {
		t.Mode = "Novation"
	}
	if freeTransferRe.MatchString(fullText) {
		t.ConsentRequired = false
	}
	if sanctionsRe.MatchString(fullText) {
		t.Restrictions = append(t.Restrictions, dlr.SanctionsRestriction)
	}
	return t
}
