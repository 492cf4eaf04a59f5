package loansaf

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/loantwindb/loantwin-go/dlr"
)

type knownParty struct {
	pattern *regexp.Regexp
	// context matches the role stated in the same sentence as the name,
	// which wins over the default role.
	context *regexp.Regexp
	name    string
	role    string
}

func party(expr, name, role string) knownParty {
	return knownParty{
		pattern: regexp.MustCompile(`(?i)` + expr),
		context: regexp.MustCompile(`(?i)` + expr + `[^.]*?(Administrative Agent|Collateral Agent|Lender|Agent)`),
		name:    name,
		role:    role,
	}
}

// knownParties maps institution name patterns to display names and the role
// they typically hold when the surrounding text names none.
var knownParties = []knownParty{
	party(`THE BANK OF NEW YORK MELLON`, "The Bank of New York Mellon", "Administrative Agent"),
	party(`UNITED STATES DEPARTMENT OF THE TREASURY`, "U.S. Department of the Treasury", "Lender"),
	party(`JPMORGAN CHASE`, "JPMorgan Chase Bank", "Agent"),
	party(`CITIBANK`, "Citibank, N.A.", "Agent"),
	party(`WELLS FARGO`, "Wells Fargo Bank", "Agent"),
	party(`BANK OF AMERICA`, "Bank of America, N.A.", "Agent"),
	party(`HSBC`, "HSBC Bank", "Agent"),
	party(`BARCLAYS`, "Barclays Bank PLC", "Lender"),
	party(`DEUTSCHE BANK`, "Deutsche Bank AG", "Agent"),
	party(`CREDIT SUISSE`, "Credit Suisse AG", "Agent"),
	party(`GOLDMAN SACHS`, "Goldman Sachs Bank USA", "Lender"),
}

var roleTitle = cases.Title(language.English)

// DetectParties scans for known financial institutions and appends the
// borrower. Each institution appears at most once.
func DetectParties(fullText, borrower string) []dlr.Party {
	var parties []dlr.Party
	seen := make(map[string]bool)

	for _, kp := range knownParties {
		if !kp.pattern.MatchString(fullText) || seen[kp.name] {
			continue
		}
		role := kp.role
		if m := kp.context.FindStringSubmatch(fullText); m != nil {
			role = roleTitle.String(m[1])
		}
		parties = append(parties, dlr.Party{Name: kp.name, Role: role})
		seen[kp.name] = true
	}

	if !seen[borrower] {
		parties = append(parties, dlr.Party{Name: borrower, Role: "Borrower"})
	}
	return parties
}
