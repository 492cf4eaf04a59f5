package loansaf

import "testing"

func TestDetectParties_KnownInstitutions(t *testing.T) {
	text := "among ACME HOLDINGS LIMITED, as Borrower, THE BANK OF NEW YORK MELLON, " +
		"as Administrative Agent, and BARCLAYS BANK PLC, as a Lender."

	parties := DetectParties(text, "ACME HOLDINGS LIMITED")

	byName := make(map[string]string)
	for _, p := range parties {
		byName[p.Name] = p.Role
	}

	if role := byName["The Bank of New York Mellon"]; role != "Administrative Agent" {
		t.Errorf("BNY Mellon role = %q, want Administrative Agent", role)
	}
	if _, ok := byName["Barclays Bank PLC"]; !ok {
		t.Error("Barclays not detected")
	}
	if role := byName["ACME HOLDINGS LIMITED"]; role != "Borrower" {
		t.Errorf("borrower role = %q, want Borrower", role)
	}
}

func TestDetectParties_RoleFromContext(t *testing.T) {
	// A role stated in the same sentence overrides the default role for
	// that institution.
	text := "with GOLDMAN SACHS BANK USA acting as Administrative Agent for the Lenders"

	parties := DetectParties(text, "Borrower")
	if len(parties) != 2 {
		t.Fatalf("got %d parties, want 2", len(parties))
	}
	if parties[0].Name != "Goldman Sachs Bank USA" {
		t.Errorf("name = %q, want Goldman Sachs Bank USA", parties[0].Name)
	}
	if parties[0].Role != "Administrative Agent" {
		t.Errorf("role = %q, want Administrative Agent (context wins over default Lender)", parties[0].Role)
	}
}

func TestDetectParties_Dedupe(t *testing.T) {
	text := "CITIBANK, N.A. as Issuing Bank. CITIBANK shall maintain the Register."

	parties := DetectParties(text, "Borrower")
	count := 0
	for _, p := range parties {
		if p.Name == "Citibank, N.A." {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Citibank appears %d times, want 1", count)
	}
}

func TestDetectParties_BorrowerAlwaysPresent(t *testing.T) {
	parties := DetectParties("no institutions named here", "Per Schedule A")
	if len(parties) != 1 {
		t.Fatalf("got %d parties, want 1", len(parties))
	}
	if parties[0].Name != "Per Schedule A" || parties[0].Role != "Borrower" {
		t.Errorf("got %+v, want the borrower entry", parties[0])
	}
}
