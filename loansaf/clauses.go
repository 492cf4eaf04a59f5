package loansaf

import (
	"regexp"
	"strings"

	"github.com/loantwindb/loantwin-go/dlr"
)

var headingRe = regexp.MustCompile(`(?i)^(Clause|Article|Section)\s*(\d+[.\d]*)\s*[-–:.]?\s*(.+)`)

const (
	// minOpenBody is the body length a clause needs before a new heading is
	// allowed to close it. Shorter matches are treated as references to
	// other clauses, not headings.
	minOpenBody = 50
	// minClauseBody filters fragments out of the final clause list.
	minClauseBody = 80

	minVariance       = 0.70
	maxVariance       = 0.99
	standardThreshold = 0.85
)

// segmenter accumulates the clause under construction while folding over
// document lines.
type segmenter struct {
	clauses   []dlr.Clause
	heading   string
	lines     []string
	pageStart int
	pageEnd   int
}

// SegmentClauses splits document text into clauses on Clause/Article/Section
// numbered headings. The first segment, before any heading, is the Preamble.
func SegmentClauses(pages []Page) []dlr.Clause {
	s := &segmenter{heading: "Preamble", pageStart: 1, pageEnd: 1}
	for _, page := range pages {
		for _, line := range strings.Split(page.Text, "\n") {
			s.step(line, page.Number)
		}
	}
	s.flush()
	return s.clauses
}

// step consumes one line: a numbered heading closes the current clause and
// opens the next, anything else (including headings arriving too early)
// extends the current body.
func (s *segmenter) step(line string, page int) {
	m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
	if m != nil && len(s.body()) > minOpenBody {
		s.flush()
		s.heading = m[1] + " " + m[2] + " " + strings.TrimSpace(m[3])
		s.pageStart = page
		s.pageEnd = page
		return
	}
	s.lines = append(s.lines, line)
	s.pageEnd = page
}

// flush finalizes the clause under construction, dropping fragments too
// short to be a real clause.
func (s *segmenter) flush() {
	body := s.body()
	if len(body) > minClauseBody {
		vs := round2(scoreBetween(s.heading+body, minVariance, maxVariance))
		s.clauses = append(s.clauses, dlr.Clause{
			Heading:       s.heading,
			Body:          body,
			PageStart:     s.pageStart,
			PageEnd:       s.pageEnd,
			VarianceScore: vs,
			IsStandard:    vs > standardThreshold,
		})
	}
	s.lines = nil
}

func (s *segmenter) body() string {
	return strings.TrimSpace(strings.Join(s.lines, "\n"))
}
