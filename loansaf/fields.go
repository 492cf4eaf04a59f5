package loansaf

import (
	"regexp"
	"strconv"
	"strings"
)

// FieldResolver derives a single metadata field from a body of text.
// Resolvers for a field run in priority order; the first hit wins. Keeping
// each tier a separate pure function makes the fallback ladder testable
// tier by tier.
type FieldResolver[T any] func(text string) (T, bool)

// resolve runs the resolvers in order and returns the first hit, falling
// back to def.
func resolve[T any](text string, def T, resolvers ...FieldResolver[T]) T {
	for _, r := range resolvers {
		if v, ok := r(text); ok {
			return v
		}
	}
	return def
}

// regexGroup yields the first capture group of the first match.
func regexGroup(re *regexp.Regexp) FieldResolver[string] {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

// containsAny yields value when any needle occurs in the text. Matching is
// as case-sensitive as the needles themselves; callers pass lowercased text
// where the original terms are case-insensitive.
func containsAny(value string, needles ...string) FieldResolver[string] {
	return func(text string) (string, bool) {
		for _, n := range needles {
			if strings.Contains(text, n) {
				return value, true
			}
		}
		return "", false
	}
}

// Governing law: explicit governing-law sections first, then "governed by
// the laws of" phrasing, then jurisdiction-first phrasing. Searched over the
// whole document.
var governingLawResolvers = []FieldResolver[string]{
	lawPattern(`(?is)GOVERNING\s+LAW[:.\s]+.*?(New York|English|Delaware|California)\s*Law`),
	lawPattern(`(?i)governed by.*?laws? of\s+(?:the\s+)?(?:State of\s+)?(New York|England|Delaware)`),
	lawPattern(`(?i)(New York|English|Delaware)\s*Law\s*shall\s*govern`),
}

const defaultGoverningLaw = "New York Law"

func lawPattern(expr string) FieldResolver[string] {
	re := regexp.MustCompile(expr)
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		found := strings.TrimSpace(m[1])
		if !strings.Contains(found, "Law") {
			found += " Law"
		}
		return found, true
	}
}

// Agreement date: searched over the head of the document only, where the
// dating clause lives. Case stays significant; dates in the operative text
// are capitalized.
var agreementDateResolvers = []FieldResolver[string]{
	regexGroup(regexp.MustCompile(`[Dd]ated\s+(?:as of\s+)?(\w+\s+\d{1,2},?\s+\d{4})`)),
	regexGroup(regexp.MustCompile(`(?:Agreement|dated).*?(\d{1,2}\s+\w+\s+\d{4})`)),
	regexGroup(regexp.MustCompile(`Effective\s+Date[:\s]+(\w+\s+\d{1,2},?\s+\d{4})`)),
}

const defaultAgreementDate = "Date per Schedule A"

// Facility type: keyword presence over lowercased full text. Combined
// term-and-revolving structures are checked before the single types.
var facilityTypeResolvers = []FieldResolver[string]{
	func(lower string) (string, bool) {
		if strings.Contains(lower, "revolving") && strings.Contains(lower, "term") {
			return "Term Loan & Revolving Credit Facility", true
		}
		return "", false
	},
	containsAny("Revolving Credit Facility", "revolving"),
	containsAny("Term Loan", "term loan"),
}

const defaultFacilityType = "Term Loan"

// Margin: stated margin, margin-after-number phrasing, then spread.
var marginResolvers = []FieldResolver[int]{
	bpsPattern(`(?:Applicable\s+)?[Mm]argin[:\s]+(\d+(?:\.\d+)?)\s*(?:basis points|bps|bp)`),
	bpsPattern(`(\d+(?:\.\d+)?)\s*(?:basis points|bps)\s*(?:margin|spread)`),
	bpsPattern(`[Ss]pread[:\s]+(\d+(?:\.\d+)?)\s*(?:bps|bp)`),
}

// defaultMarginBPS is the market-standard investment grade margin.
const defaultMarginBPS = 175

func bpsPattern(expr string) FieldResolver[int] {
	re := regexp.MustCompile(expr)
	return func(text string) (int, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || int(v) == 0 {
			return 0, false
		}
		return int(v), true
	}
}

// Base rate: reference rate names are matched case-sensitively; "prime" in
// running text is not the Prime Rate.
var baseRateResolvers = []FieldResolver[string]{
	containsAny("SOFR", "SOFR", "Secured Overnight"),
	containsAny("SONIA", "SONIA"),
	containsAny("EURIBOR", "EURIBOR"),
	containsAny("LIBOR (Legacy)", "LIBOR"),
	containsAny("Prime Rate", "Prime"),
}

const defaultBaseRate = "Variable Rate"

// Total commitment: treasury-style maximum amount lines first, then generic
// commitment or principal lines with an optional million/billion unit.
var commitmentResolvers = []FieldResolver[float64]{
	amountPattern(`(?i)(?:Maximum|Total|Aggregate)\s+(?:UST\s+)?(?:Debt\s+)?Amount[:\s]+\$?([0-9,]+(?:\.\d+)?)`),
	scaledAmountPattern(`(?i)(?:Commitment|Principal)[:\s]+\$?([0-9,]+(?:\.\d+)?)\s*(million|billion)?`),
}

func amountPattern(expr string) FieldResolver[float64] {
	re := regexp.MustCompile(expr)
	return func(text string) (float64, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		amt := parseAmount(m[1])
		return amt, amt != 0
	}
}

func scaledAmountPattern(expr string) FieldResolver[float64] {
	re := regexp.MustCompile(expr)
	return func(text string) (float64, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		amt := parseAmount(m[1])
		if amt == 0 {
			return 0, false
		}
		switch strings.ToLower(m[2]) {
		case "million":
			amt *= 1_000_000
		case "billion":
			amt *= 1_000_000_000
		}
		return amt, true
	}
}

// esgKeywords mark sustainability-linked agreements. Checked against
// lowercased full text.
var esgKeywords = []string{
	"sustainability-linked",
	"esg",
	"sustainability kpi",
	"green loan",
	"sustainability performance",
	"carbon",
	"ghg emissions",
}

func esgLinked(fullLower string) bool {
	for _, kw := range esgKeywords {
		if strings.Contains(fullLower, kw) {
			return true
		}
	}
	return false
}
