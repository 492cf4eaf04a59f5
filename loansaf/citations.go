package loansaf

import (
	"regexp"

	"github.com/loantwindb/loantwin-go/dlr"
)

// citationBodyWindow bounds how deep into a clause body the keyword search
// looks. Keywords buried past the head of a clause are weak support.
const citationBodyWindow = 500

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

var citationKeywords = compileKeywords(
	"Governing Law",
	"Assignment",
	"Transfer",
	"Financial Covenant",
	"Event of Default",
	"ESG",
	"Sustainability",
	"Margin",
	"Interest",
)

func compileKeywords(words ...string) []keywordPattern {
	out := make([]keywordPattern, len(words))
	for i, w := range words {
		out[i] = keywordPattern{keyword: w, re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w))}
	}
	return out
}

// GenerateCitations links each legally significant keyword to the first
// clause that mentions it. A keyword in the clause heading scores in the
// high band; one found only in the body head scores in the medium band.
func GenerateCitations(clauses []dlr.Clause) []dlr.Citation {
	var citations []dlr.Citation
	for _, kp := range citationKeywords {
		for _, c := range clauses {
			inHeading := kp.re.MatchString(c.Heading)
			if !inHeading && !kp.re.MatchString(runePrefix(c.Body, citationBodyWindow)) {
				continue
			}
			lo, hi := 0.85, 0.94
			if inHeading {
				lo, hi = 0.95, 0.99
			}
			citations = append(citations, dlr.Citation{
				Keyword:    kp.keyword,
				Clause:     c.Heading,
				PageStart:  c.PageStart,
				PageEnd:    c.PageEnd,
				Confidence: round2(scoreBetween(kp.keyword+c.Heading, lo, hi)),
			})
			break
		}
	}
	return citations
}
