package loansaf

import (
	"regexp"
	"strings"

	"github.com/loantwindb/loantwin-go/dlr"
)

var obligationPatterns = []struct {
	title string
	re    *regexp.Regexp
	role  string
	due   string
}{
	{"Financial Statements", regexp.MustCompile(`(?i)(deliver|provide|submit).{0,80}(financial statements|accounts)`), "Borrower", "90 days post-YE"},
	{"Compliance Certificate", regexp.MustCompile(`(?i)(deliver|provide|submit).{0,80}(compliance certificate)`), "Borrower", "Quarterly"},
	{"Utilization Request", regexp.MustCompile(`(?i)(deliver|provide|submit).{0,80}(utilization request)`), "Lender", "5 Business Days"},
	{"ESG Impact Report", regexp.MustCompile(`(?i)(deliver|provide|submit).{0,80}(esg report|sustainability)`), "Borrower", "Annually"},
}

// ExtractObligations finds the standard delivery obligations by verb-object
// proximity. Details carry the matched text, truncated for display.
func ExtractObligations(fullText string) []dlr.Obligation {
	var obligations []dlr.Obligation
	for _, p := range obligationPatterns {
		m := p.re.FindString(fullText)
		if m == "" {
			continue
		}
		obligations = append(obligations, dlr.Obligation{
			Role:       p.role,
			Title:      p.title,
			Details:    runePrefix(m, 200) + "...",
			DueHint:    p.due,
			Status:     "Draft",
			IsESG:      strings.Contains(p.title, "ESG") || strings.Contains(p.title, "Sustainability"),
			Confidence: round2(scoreBetween(p.title+m, 0.92, 0.99)),
		})
	}
	return obligations
}
