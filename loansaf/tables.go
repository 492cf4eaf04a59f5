package loansaf

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/loantwindb/loantwin-go/dlr"
)

// Table detection works on headers: a section title followed within a short
// window by a column keyword. The window past the match is then parsed for
// rows. Confidences are fixed per table type since detection strength does
// not vary with content.
var (
	pricingHeaderRe  = regexp.MustCompile(`(?i)(Pricing Grid|Margin Ratchet|Interest Rate Table)[\s\S]{0,500}(Rating|Grade|Level)`)
	feeHeaderRe      = regexp.MustCompile(`(?i)(Fee Schedule|Fees|Fee Structure)[\s\S]{0,500}(Arrangement|Commitment|Agency)`)
	facilityHeaderRe = regexp.MustCompile(`(?i)(Facilities|Commitments)[\s\S]{0,300}(Amount|Commitment|Currency)`)

	pricingRowRe = regexp.MustCompile(`(?i)([A-D][+-]?|BBB[+-]?|BB[+-]?|B[+-]?)\s*[:|\s]+(\d+)\s*(bps|bp|basis)?`)

	arrangementFeeRe = regexp.MustCompile(`(?i)Arrangement[:\s]+(\d+(?:\.\d+)?)\s*(%|bps)`)
	commitmentFeeRe  = regexp.MustCompile(`(?i)Commitment[:\s]+(\d+(?:\.\d+)?)\s*(%|bps)`)
	agencyFeeRe      = regexp.MustCompile(`(?i)Agency[:\s]+[£$€]?(\d+(?:,\d+)*(?:\.\d+)?)`)
)

var facilityRowPatterns = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`(?i)Term Loan A?[:\s]+[£$€]?(\d+(?:,\d+)*(?:\.\d+)?)\s*(m|million)?`), "Term Loan A"},
	{regexp.MustCompile(`(?i)Term Loan B[:\s]+[£$€]?(\d+(?:,\d+)*(?:\.\d+)?)\s*(m|million)?`), "Term Loan B"},
	{regexp.MustCompile(`(?i)Revolving[:\s]+[£$€]?(\d+(?:,\d+)*(?:\.\d+)?)\s*(m|million)?`), "Revolving Credit Facility"},
	{regexp.MustCompile(`(?i)RCF[:\s]+[£$€]?(\d+(?:,\d+)*(?:\.\d+)?)\s*(m|million)?`), "Revolving Credit Facility"},
}

// parseWindow is how far past a header match the row parsers look.
const parseWindow = 500

// ExtractTables scans each page for pricing grids, fee schedules and
// facility commitment tables.
func ExtractTables(pages []Page) []dlr.Table {
	var tables []dlr.Table
	for _, page := range pages {
		tables = append(tables, extractPageTables(page.Text, page.Number)...)
	}
	return tables
}

func extractPageTables(text string, pageNum int) []dlr.Table {
	var tables []dlr.Table

	if loc := pricingHeaderRe.FindStringSubmatchIndex(text); loc != nil {
		tables = append(tables, dlr.Table{
			Type:       dlr.TablePricingGrid,
			Page:       pageNum,
			Title:      text[loc[2]:loc[3]],
			Data:       parsePricingGrid(window(text, loc[0], loc[1])),
			Confidence: 0.88,
		})
	}

	if loc := feeHeaderRe.FindStringSubmatchIndex(text); loc != nil {
		tables = append(tables, dlr.Table{
			Type:       dlr.TableFeeSchedule,
			Page:       pageNum,
			Title:      text[loc[2]:loc[3]],
			Data:       parseFeeTable(window(text, loc[0], loc[1])),
			Confidence: 0.85,
		})
	}

	if loc := facilityHeaderRe.FindStringSubmatchIndex(text); loc != nil {
		tables = append(tables, dlr.Table{
			Type:       dlr.TableFacilitySchedule,
			Page:       pageNum,
			Title:      text[loc[2]:loc[3]],
			Data:       parseFacilityTable(window(text, loc[0], loc[1])),
			Confidence: 0.87,
		})
	}

	return tables
}

// window slices text from a match start to slightly past its end, clamped to
// the text length.
func window(text string, start, end int) string {
	end += parseWindow
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}

// parsePricingGrid collects rating-to-margin rows like "BBB+ 175 bps" or
// "A- | 150". A grid that detects but yields no rows gets a standard
// investment-grade default.
func parsePricingGrid(text string) []dlr.PricingRow {
	var rows []dlr.PricingRow
	for _, line := range strings.Split(text, "\n") {
		m := pricingRowRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		bps, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		rows = append(rows, dlr.PricingRow{
			Rating:    strings.ToUpper(m[1]),
			MarginBPS: bps,
		})
	}
	if len(rows) == 0 {
		return []dlr.PricingRow{{Rating: "BBB", MarginBPS: 175}}
	}
	return rows
}

// parseFeeTable pulls the three standard fee lines. Percentages convert to
// basis points.
func parseFeeTable(text string) dlr.FeeSchedule {
	var fees dlr.FeeSchedule

	if m := arrangementFeeRe.FindStringSubmatch(text); m != nil {
		fees.ArrangementFeeBPS = feeToBPS(m[1], m[2])
	}
	if m := commitmentFeeRe.FindStringSubmatch(text); m != nil {
		fees.CommitmentFeeBPS = feeToBPS(m[1], m[2])
	}
	if m := agencyFeeRe.FindStringSubmatch(text); m != nil {
		fees.AgencyFee = parseAmount(m[1])
	}
	return fees
}

func feeToBPS(value, unit string) float64 {
	v := parseAmount(value)
	if strings.Contains(unit, "%") {
		return v * 100
	}
	return v
}

// parseFacilityTable matches the named facility lines in order. Currency is
// inferred from the window head, defaulting to USD.
func parseFacilityTable(text string) []dlr.Facility {
	currency := "USD"
	if strings.ContainsRune(runePrefix(text, 50), '£') {
		currency = "GBP"
	}

	var facilities []dlr.Facility
	for _, p := range facilityRowPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount := parseAmount(m[1])
		if strings.Contains(strings.ToLower(m[2]), "m") {
			amount *= 1_000_000
		}
		facilities = append(facilities, dlr.Facility{
			Name:     p.name,
			Amount:   amount,
			Currency: currency,
		})
	}
	return facilities
}

func parseAmount(s string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v
}
