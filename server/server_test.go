package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/dlr"
	"github.com/loantwindb/loantwin-go/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProcessor struct {
	record  *dlr.DLR
	clauses []dlr.Clause
	err     error
	gotPath string
}

func (p *stubProcessor) Process(ctx context.Context, path string) (*dlr.DLR, []dlr.Clause, error) {
	p.gotPath = path
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.record, p.clauses, nil
}

func stubRecord() *dlr.DLR {
	return &dlr.DLR{
		BorrowerName:  "Meridian Holdings Ltd",
		AgreementDate: "15 March 2024",
		GoverningLaw:  "English Law",
		DocumentType:  "Facility Agreement",
		Currency:      "GBP",
		FacilityType:  "Term Loan",
		MarginBPS:     225,
		Transfer: dlr.Transferability{
			Mode:            "Assignment",
			ConsentRequired: true,
		},
		TransferabilityMode: "Assignment",
		Obligations: []dlr.Obligation{
			{Role: "Borrower", Title: "Compliance Certificate", Details: "Signed", DueHint: "Quarterly", Confidence: 0.95},
		},
		Summary: dlr.ExtractionSummary{TotalPages: 12, ExtractionMethod: dlr.MethodRegexOnly},
	}
}

func newTestServer(t *testing.T) (*gin.Engine, *stubProcessor) {
	t.Helper()
	st, err := store.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Init())

	proc := &stubProcessor{
		record: stubRecord(),
		clauses: []dlr.Clause{
			{Heading: "1. Definitions", Body: "In this Agreement", PageStart: 1, PageEnd: 2},
			{Heading: "23. Governing Law", Body: "English law applies", PageStart: 11, PageEnd: 11},
		},
	}
	srv := New(st, proc, zap.NewNop(), t.TempDir(), 10)
	return srv.Router(), proc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &payload), w.Body.String())
	return payload
}

func createLoan(t *testing.T, router *gin.Engine) int64 {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/loans", gin.H{"name": "Project Meridian"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return int64(decode(t, w)["id"].(float64))
}

func uploadPDF(t *testing.T, router *gin.Engine, loanID int64, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/loans/"+itoa(loanID)+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestCreateLoan(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/loans", gin.H{"name": "Project Meridian"})
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, "Project Meridian", payload["name"])
	assert.NotZero(t, payload["id"])

	w = doJSON(t, router, http.MethodPost, "/api/loans", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLoan_NotFound(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/loans/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/loans/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDLR_ConflictBeforeProcessing(t *testing.T) {
	router, _ := newTestServer(t)
	id := createLoan(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/loans/"+itoa(id)+"/dlr", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["error"], "DLR not ready")
}

func TestUploadRejectsNonPDF(t *testing.T) {
	router, _ := newTestServer(t)
	id := createLoan(t, router)

	w := uploadPDF(t, router, id, "agreement.docx", "not a pdf")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Only PDF")
}

func TestUploadProcessAndViews(t *testing.T) {
	router, proc := newTestServer(t)
	id := createLoan(t, router)

	content := "%PDF-1.4 fake body"
	w := uploadPDF(t, router, id, "agreement.pdf", content)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc := decode(t, w)
	docID := int64(doc["id"].(float64))
	assert.Equal(t, "uploaded", doc["status"])
	assert.Equal(t, "agreement.pdf", doc["filename"])

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), doc["file_hash"])

	storedPath := doc["stored_path"].(string)
	_, err := os.Stat(storedPath)
	require.NoError(t, err)

	// Synchronous processing.
	w = doJSON(t, router, http.MethodPost, "/api/loans/"+itoa(id)+"/process-document/"+itoa(docID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["ok"])
	assert.Equal(t, storedPath, proc.gotPath)

	// DLR view carries the loan id alongside the record fields.
	w = doJSON(t, router, http.MethodGet, "/api/loans/"+itoa(id)+"/dlr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	record := decode(t, w)
	assert.Equal(t, float64(id), record["loan_id"])
	assert.Equal(t, "Meridian Holdings Ltd", record["borrower_name"])

	// Clause search.
	w = doJSON(t, router, http.MethodGet, "/api/loans/"+itoa(id)+"/clauses?query=governing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var clauses []map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &clauses))
	require.Len(t, clauses, 1)
	assert.Equal(t, "23. Governing Law", clauses[0]["heading"])

	// Obligations fan out of the stubbed compliance certificate.
	w = doJSON(t, router, http.MethodGet, "/api/loans/"+itoa(id)+"/obligations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var obligations []map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &obligations))
	assert.Len(t, obligations, 4)

	// Trade pack: consent required raises the consent item to high.
	w = doJSON(t, router, http.MethodGet, "/api/loans/"+itoa(id)+"/trade-pack", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var checks []map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &checks))
	require.Len(t, checks, 3)
	assert.Equal(t, "high", checks[1]["risk_level"])

	// Spreadsheet export.
	w = doJSON(t, router, http.MethodGet, "/api/loans/"+itoa(id)+"/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	// Raw file retrieval.
	w = doJSON(t, router, http.MethodGet, "/api/documents/"+itoa(docID)+"/file", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.String())
}

func TestProcessFailureMarksDocumentFailed(t *testing.T) {
	router, proc := newTestServer(t)
	id := createLoan(t, router)

	w := uploadPDF(t, router, id, "agreement.pdf", "%PDF-1.4")
	require.Equal(t, http.StatusOK, w.Code)
	docID := int64(decode(t, w)["id"].(float64))

	proc.err = errors.New("no text layer")
	w = doJSON(t, router, http.MethodPost, "/api/loans/"+itoa(id)+"/process-document/"+itoa(docID), nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Processing failed")

	w = doJSON(t, router, http.MethodGet, "/api/loans/"+itoa(id)+"/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "failed", docs[0]["status"])
	assert.Equal(t, "no text layer", docs[0]["error"])
}

func TestProcessDocumentNotLinked(t *testing.T) {
	router, _ := newTestServer(t)
	first := createLoan(t, router)
	second := createLoan(t, router)

	w := uploadPDF(t, router, first, "agreement.pdf", "%PDF-1.4")
	require.Equal(t, http.StatusOK, w.Code)
	docID := int64(decode(t, w)["id"].(float64))

	w = doJSON(t, router, http.MethodPost, "/api/loans/"+itoa(second)+"/process-document/"+itoa(docID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "trace-me", w.Header().Get("X-Request-ID"))
}
