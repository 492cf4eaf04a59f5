// Package store persists loans and their extraction output in sqlite. The
// DLR itself is stored as an opaque JSON blob on the loan row; the columns
// the UI filters on are denormalized alongside it. Clauses, obligations and
// trade checks are broken out into their own tables per processing run.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Schema for the loantwin tables. Applied by Init; every statement is
// idempotent so reapplying on startup is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS loans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	agreement_date TEXT,
	closing_date TEXT,
	governing_law TEXT,
	borrower_name TEXT,
	facility_type TEXT,
	margin_bps INTEGER,
	currency TEXT,
	is_esg_linked INTEGER NOT NULL DEFAULT 0,
	esg_score REAL,
	transferability_mode TEXT,
	dlr_json BLOB,
	version INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	loan_id INTEGER NOT NULL REFERENCES loans(id),
	filename TEXT NOT NULL,
	stored_path TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'uploaded',
	error TEXT NOT NULL DEFAULT '',
	file_hash TEXT NOT NULL DEFAULT '',
	extraction_method TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_loan ON documents(loan_id);
CREATE TABLE IF NOT EXISTS clauses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	loan_id INTEGER NOT NULL REFERENCES loans(id),
	heading TEXT NOT NULL,
	body TEXT NOT NULL,
	page_start INTEGER NOT NULL DEFAULT 1,
	page_end INTEGER NOT NULL DEFAULT 1,
	variance_score REAL NOT NULL DEFAULT 0,
	is_standard INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_clauses_loan ON clauses(loan_id);
CREATE TABLE IF NOT EXISTS obligations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	loan_id INTEGER NOT NULL REFERENCES loans(id),
	role TEXT NOT NULL,
	title TEXT NOT NULL,
	details TEXT NOT NULL,
	due_hint TEXT NOT NULL,
	due_date TEXT,
	status TEXT NOT NULL DEFAULT 'open',
	is_esg INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0.95
);
CREATE INDEX IF NOT EXISTS idx_obligations_loan ON obligations(loan_id);
CREATE TABLE IF NOT EXISTS trade_checks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	loan_id INTEGER NOT NULL REFERENCES loans(id),
	category TEXT NOT NULL,
	item TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	rationale TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trade_checks_loan ON trade_checks(loan_id);
`

// maxClausesPerRun caps how many clauses one processing run persists.
// Agreements routinely segment into thousands of fragments; everything a
// consumer navigates by sits in the first few hundred.
const maxClausesPerRun = 250

// Document status values. A document moves uploaded -> processing -> ready,
// or to failed with the error recorded.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Sentinel errors callers branch on.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDLRNotReady means the loan exists but no document has been
	// processed into a DLR yet.
	ErrDLRNotReady = errors.New("dlr not ready")
)

const dateLayout = "2006-01-02"

// Loan is a loan workspace row. Canonical fields denormalized from the DLR
// are null until a document is processed.
type Loan struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	AgreementDate       *string  `json:"agreement_date"`
	ClosingDate         string   `json:"closing_date"`
	GoverningLaw        *string  `json:"governing_law"`
	BorrowerName        *string  `json:"borrower_name"`
	FacilityType        *string  `json:"facility_type"`
	MarginBPS           *int     `json:"margin_bps"`
	Currency            *string  `json:"currency"`
	IsESGLinked         bool     `json:"is_esg_linked"`
	ESGScore            *float64 `json:"esg_score"`
	TransferabilityMode *string  `json:"transferability_mode"`
	Version             int      `json:"version"`
	CreatedAt           string   `json:"created_at"`
}

// Document is an uploaded source file and its processing state.
type Document struct {
	ID               int64  `json:"id"`
	LoanID           int64  `json:"loan_id"`
	Filename         string `json:"filename"`
	StoredPath       string `json:"stored_path"`
	Status           string `json:"status"`
	Error            string `json:"error,omitempty"`
	FileHash         string `json:"file_hash,omitempty"`
	ExtractionMethod string `json:"extraction_method,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// StoredClause is a persisted clause row.
type StoredClause struct {
	ID            int64   `json:"id"`
	LoanID        int64   `json:"loan_id"`
	Heading       string  `json:"heading"`
	Body          string  `json:"body"`
	PageStart     int     `json:"page_start"`
	PageEnd       int     `json:"page_end"`
	VarianceScore float64 `json:"variance_score"`
	IsStandard    bool    `json:"is_standard"`
}

// StoredObligation is a persisted obligation with its derived due date.
type StoredObligation struct {
	ID         int64   `json:"id"`
	LoanID     int64   `json:"loan_id"`
	Role       string  `json:"role"`
	Title      string  `json:"title"`
	Details    string  `json:"details"`
	DueHint    string  `json:"due_hint"`
	DueDate    string  `json:"due_date"`
	Status     string  `json:"status"`
	IsESG      bool    `json:"is_esg"`
	Confidence float64 `json:"confidence"`
}

// TradeCheck is one item of the trade-readiness checklist derived from the
// DLR's transferability analysis.
type TradeCheck struct {
	ID        int64  `json:"id"`
	LoanID    int64  `json:"loan_id"`
	Category  string `json:"category"`
	Item      string `json:"item"`
	RiskLevel string `json:"risk_level"`
	Rationale string `json:"rationale"`
}

// Store wraps the sqlite database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the sqlite database at path. The
// connection pool is capped at one connection: sqlite serializes writers
// anyway, and a single connection keeps in-memory databases coherent.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite %s: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Init applies the schema.
func (s *Store) Init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Ping reports database liveness; the readiness probe calls this.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateLoan inserts a new loan workspace. The closing date anchors
// obligation due-date derivation at processing time.
func (s *Store) CreateLoan(ctx context.Context, name string, closing time.Time) (*Loan, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO loans (name, closing_date, created_at) VALUES (?, ?, ?)`,
		name, closing.Format(dateLayout), now)
	if err != nil {
		return nil, fmt.Errorf("inserting loan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("loan id: %w", err)
	}
	s.logger.Info("loan created", zap.Int64("loan_id", id), zap.String("name", name))
	return s.GetLoan(ctx, id)
}

// GetLoan fetches a loan by id, ErrNotFound when absent.
func (s *Store) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, agreement_date, closing_date, governing_law,
		       borrower_name, facility_type, margin_bps, currency,
		       is_esg_linked, esg_score, transferability_mode, version, created_at
		FROM loans WHERE id = ?`, id)

	var l Loan
	var closing sql.NullString
	err := row.Scan(&l.ID, &l.Name, &l.AgreementDate, &closing, &l.GoverningLaw,
		&l.BorrowerName, &l.FacilityType, &l.MarginBPS, &l.Currency,
		&l.IsESGLinked, &l.ESGScore, &l.TransferabilityMode, &l.Version, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning loan %d: %w", id, err)
	}
	l.ClosingDate = closing.String
	return &l, nil
}

// SaveDocument records an uploaded file against a loan.
func (s *Store) SaveDocument(ctx context.Context, loanID int64, filename, storedPath, fileHash string) (*Document, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (loan_id, filename, stored_path, status, file_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		loanID, filename, storedPath, StatusUploaded, fileHash, now)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("document id: %w", err)
	}
	return s.GetDocument(ctx, id)
}

// GetDocument fetches a document by id, ErrNotFound when absent.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, loan_id, filename, stored_path, status, error, file_hash,
		       extraction_method, created_at
		FROM documents WHERE id = ?`, id)

	var d Document
	err := row.Scan(&d.ID, &d.LoanID, &d.Filename, &d.StoredPath, &d.Status,
		&d.Error, &d.FileHash, &d.ExtractionMethod, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document %d: %w", id, err)
	}
	return &d, nil
}

// ListDocuments returns a loan's documents in upload order.
func (s *Store) ListDocuments(ctx context.Context, loanID int64) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, filename, stored_path, status, error, file_hash,
		       extraction_method, created_at
		FROM documents WHERE loan_id = ? ORDER BY id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.LoanID, &d.Filename, &d.StoredPath, &d.Status,
			&d.Error, &d.FileHash, &d.ExtractionMethod, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SetDocumentStatus transitions a document's processing state, recording
// the error message on the failed path.
func (s *Store) SetDocumentStatus(ctx context.Context, id int64, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, error = ? WHERE id = ?`, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("updating document %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	return nil
}

// DLRBlob returns the loan's stored DLR JSON exactly as persisted.
// ErrDLRNotReady when no document has been processed yet.
func (s *Store) DLRBlob(ctx context.Context, loanID int64) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT dlr_json FROM loans WHERE id = ?`, loanID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading dlr for loan %d: %w", loanID, err)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrDLRNotReady)
	}
	return blob, nil
}

// ListClauses returns a loan's persisted clauses, optionally filtered to
// those whose heading or body contains query (case-insensitive).
func (s *Store) ListClauses(ctx context.Context, loanID int64, query string) ([]StoredClause, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, heading, body, page_start, page_end, variance_score, is_standard
		FROM clauses WHERE loan_id = ? ORDER BY id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("listing clauses: %w", err)
	}
	defer rows.Close()

	q := strings.ToLower(query)
	clauses := []StoredClause{}
	for rows.Next() {
		var c StoredClause
		if err := rows.Scan(&c.ID, &c.LoanID, &c.Heading, &c.Body,
			&c.PageStart, &c.PageEnd, &c.VarianceScore, &c.IsStandard); err != nil {
			return nil, fmt.Errorf("scanning clause: %w", err)
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Heading), q) &&
			!strings.Contains(strings.ToLower(c.Body), q) {
			continue
		}
		clauses = append(clauses, c)
	}
	return clauses, rows.Err()
}

// ListObligations returns a loan's obligations in due-date order.
func (s *Store) ListObligations(ctx context.Context, loanID int64) ([]StoredObligation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, role, title, details, due_hint, due_date, status, is_esg, confidence
		FROM obligations WHERE loan_id = ? ORDER BY due_date, id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("listing obligations: %w", err)
	}
	defer rows.Close()

	obligations := []StoredObligation{}
	for rows.Next() {
		var o StoredObligation
		var due sql.NullString
		if err := rows.Scan(&o.ID, &o.LoanID, &o.Role, &o.Title, &o.Details,
			&o.DueHint, &due, &o.Status, &o.IsESG, &o.Confidence); err != nil {
			return nil, fmt.Errorf("scanning obligation: %w", err)
		}
		o.DueDate = due.String
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

// TradePack returns the loan's trade-readiness checklist.
func (s *Store) TradePack(ctx context.Context, loanID int64) ([]TradeCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, category, item, risk_level, rationale
		FROM trade_checks WHERE loan_id = ? ORDER BY id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("listing trade checks: %w", err)
	}
	defer rows.Close()

	checks := []TradeCheck{}
	for rows.Next() {
		var c TradeCheck
		if err := rows.Scan(&c.ID, &c.LoanID, &c.Category, &c.Item, &c.RiskLevel, &c.Rationale); err != nil {
			return nil, fmt.Errorf("scanning trade check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
