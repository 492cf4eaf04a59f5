package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/dlr"
)

// SaveExtraction persists one processing run atomically: the DLR blob and
// denormalized columns on the loan, the clause/obligation/trade-check child
// rows (replacing any previous run's), and the document's transition to
// ready. The loan's version is bumped so clients can detect reprocessing.
func (s *Store) SaveExtraction(ctx context.Context, loanID, documentID int64, record *dlr.DLR, clauses []dlr.Clause) error {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return err
	}
	blob, err := sonic.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling dlr: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE loans SET
			agreement_date = ?, governing_law = ?, borrower_name = ?,
			facility_type = ?, margin_bps = ?, currency = ?,
			is_esg_linked = ?, esg_score = ?, transferability_mode = ?,
			dlr_json = ?, version = version + 1
		WHERE id = ?`,
		record.AgreementDate, record.GoverningLaw, record.BorrowerName,
		record.FacilityType, record.MarginBPS, record.Currency,
		record.IsESGLinked, record.ESGScore, record.TransferabilityMode,
		blob, loanID)
	if err != nil {
		return fmt.Errorf("updating loan %d: %w", loanID, err)
	}

	for _, table := range []string{"clauses", "obligations", "trade_checks"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE loan_id = ?", table), loanID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	kept := clauses
	if len(kept) > maxClausesPerRun {
		kept = kept[:maxClausesPerRun]
	}
	for _, c := range kept {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clauses (loan_id, heading, body, page_start, page_end, variance_score, is_standard)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			loanID, c.Heading, strings.TrimSpace(c.Body),
			c.PageStart, c.PageEnd, c.VarianceScore, c.IsStandard)
		if err != nil {
			return fmt.Errorf("inserting clause: %w", err)
		}
	}

	closing := closingOrToday(loan.ClosingDate)
	for _, o := range expandObligations(closing, record.Obligations) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO obligations (loan_id, role, title, details, due_hint, due_date, status, is_esg, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			loanID, o.Role, o.Title, o.Details, o.DueHint, o.DueDate, o.Status, o.IsESG, o.Confidence)
		if err != nil {
			return fmt.Errorf("inserting obligation: %w", err)
		}
	}

	for _, c := range tradeChecks(record.Transfer) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trade_checks (loan_id, category, item, risk_level, rationale)
			VALUES (?, ?, ?, ?, ?)`,
			loanID, c.Category, c.Item, c.RiskLevel, c.Rationale)
		if err != nil {
			return fmt.Errorf("inserting trade check: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET status = ?, error = '', extraction_method = ? WHERE id = ?`,
		StatusReady, string(record.Summary.ExtractionMethod), documentID)
	if err != nil {
		return fmt.Errorf("marking document %d ready: %w", documentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	s.logger.Info("extraction saved",
		zap.Int64("loan_id", loanID),
		zap.Int64("document_id", documentID),
		zap.Int("clauses", len(kept)),
		zap.Int("obligations", len(record.Obligations)))
	return nil
}

func closingOrToday(closing string) time.Time {
	if t, err := time.Parse(dateLayout, closing); err == nil {
		return t
	}
	return time.Now().UTC()
}

// expandObligations turns extracted obligations into dated rows anchored on
// the loan's closing date. Annual financial statements land 120 days after
// the fiscal year end; compliance certificates fan out into four quarterly
// rows; everything else gets a 30-day placeholder.
func expandObligations(closing time.Time, obligations []dlr.Obligation) []StoredObligation {
	rows := make([]StoredObligation, 0, len(obligations))
	for _, o := range obligations {
		role := o.Role
		if role == "" {
			role = "Borrower"
		}
		title := o.Title
		if title == "" {
			title = "Obligation"
		}
		base := StoredObligation{
			Role:       role,
			Details:    o.Details,
			Status:     "open",
			IsESG:      o.IsESG,
			Confidence: o.Confidence,
		}

		lower := strings.ToLower(title)
		switch {
		case strings.Contains(lower, "financial statements"):
			row := base
			row.Title = title + " (Annual)"
			row.DueHint = "120 days after FYE"
			row.DueDate = closing.AddDate(0, 0, 365+120).Format(dateLayout)
			rows = append(rows, row)
		case strings.Contains(lower, "compliance certificate"):
			for q := 1; q <= 4; q++ {
				row := base
				row.Title = fmt.Sprintf("%s (Q%d)", title, q)
				row.DueHint = "45 days after Quarter End"
				row.DueDate = closing.AddDate(0, 0, 90*q+45).Format(dateLayout)
				rows = append(rows, row)
			}
		default:
			row := base
			row.Title = title
			row.DueHint = o.DueHint
			if row.DueHint == "" {
				row.DueHint = "Per agreement"
			}
			row.DueDate = closing.AddDate(0, 0, 30).Format(dateLayout)
			rows = append(rows, row)
		}
	}
	return rows
}

// tradeChecks derives the trade-readiness checklist from the transfer
// provisions. Consent and sanctions findings raise their items to high.
func tradeChecks(t dlr.Transferability) []TradeCheck {
	consentRisk := "low"
	if t.ConsentRequired {
		consentRisk = "high"
	}
	sanctionsRisk := "low"
	if t.SanctionsFlagged() {
		sanctionsRisk = "high"
	}
	return []TradeCheck{
		{Category: "Transferability", Item: "Confirm assignment/transfer mechanics", RiskLevel: "med", Rationale: "Standard signals"},
		{Category: "Consents", Item: "Borrower consent required for transfer", RiskLevel: consentRisk, Rationale: "Based on consent extraction"},
		{Category: "Sanctions", Item: "Sanctions and restricted transferee check", RiskLevel: sanctionsRisk, Rationale: "Sanctions keyword detected"},
	}
}
