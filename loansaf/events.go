package loansaf

import (
	"regexp"
	"strings"

	"github.com/loantwindb/loantwin-go/dlr"
)

var eodPatterns = []struct {
	re      *regexp.Regexp
	trigger string
	grace   string
}{
	{regexp.MustCompile(`[Nn]on[-\s]?[Pp]ayment`), "Non-Payment", "3 Business Days"},
	{regexp.MustCompile(`[Bb]reach of [Cc]ovenant`), "Breach of Covenant", "30 days (if curable)"},
	{regexp.MustCompile(`[Cc]ross[-\s]?[Dd]efault`), "Cross-Default", "None"},
	{regexp.MustCompile(`[Ii]nsolvency`), "Insolvency", "None"},
	{regexp.MustCompile(`[Mm]aterial [Aa]dverse [Cc]hange`), "Material Adverse Change", "Immediate"},
	{regexp.MustCompile(`[Mm]isrepresentation`), "Misrepresentation", "None"},
}

// ExtractEventsOfDefault presence-tests the standard trigger list against
// the document. When none are named, the three baseline market events are
// assumed; those carry no confidence because nothing was matched.
func ExtractEventsOfDefault(fullText string) []dlr.EventOfDefault {
	var events []dlr.EventOfDefault
	for _, p := range eodPatterns {
		if !p.re.MatchString(fullText) {
			continue
		}
		notice := "None"
		if strings.Contains(strings.ToLower(p.trigger), "breach") {
			notice = "Required"
		}
		events = append(events, dlr.EventOfDefault{
			Trigger:     p.trigger,
			Notice:      notice,
			GracePeriod: p.grace,
			Confidence:  0.90,
		})
	}

	if len(events) == 0 {
		events = []dlr.EventOfDefault{
			{Trigger: "Non-Payment", Notice: "None", GracePeriod: "3 Business Days"},
			{Trigger: "Breach of Covenant", Notice: "Required", GracePeriod: "30 days (if curable)"},
			{Trigger: "Cross-Default", Notice: "Required", GracePeriod: "None"},
		}
	}
	return events
}
