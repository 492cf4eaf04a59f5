package loansaf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loantwindb/loantwin-go/dlr"
)

func TestProcess_MissingDocument(t *testing.T) {
	loader := NewLoader([]string{t.TempDir()}, nil)
	e := NewExtractor(loader, poolWithoutBackends(), nil, nil)

	_, _, err := e.Process(context.Background(), "no-such-agreement.pdf")
	if err == nil {
		t.Fatal("Process() succeeded on a missing document")
	}

	var openErr *DocumentOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("error = %v, want DocumentOpenError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error does not unwrap to ErrNotExist: %v", err)
	}
}

func TestProcess_Sample(t *testing.T) {
	samplePDF := filepath.Join("testdata", "sample_loan_agreement.pdf")
	if _, err := os.Stat(samplePDF); err != nil {
		t.Skip("sample PDF not present, skipping")
	}

	e := NewExtractor(NewLoader([]string{"testdata"}, nil), poolWithoutBackends(), nil, nil)
	record, clauses, err := e.Process(context.Background(), samplePDF)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if record.TotalPages == 0 {
		t.Error("no pages extracted")
	}
	if len(record.Facilities) == 0 {
		t.Error("record has no facilities")
	}
	if record.TotalClauses != len(clauses) {
		t.Errorf("total clauses = %d, clause list has %d", record.TotalClauses, len(clauses))
	}
	if record.AIEnhanced {
		t.Error("AIEnhanced without a configured client")
	}

	result, err := dlr.Validate(record)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.Valid {
		t.Errorf("extracted record violates the schema: %+v", result.Errors)
	}
}

func TestExtractorReadPage_Downgrades(t *testing.T) {
	e := NewExtractor(nil, poolWithoutBackends(), nil, nil)

	got := e.readPage(context.Background(), "doc.pdf", 4)
	if got != Placeholder(4) {
		t.Errorf("readPage() = %q, want the placeholder", got)
	}
}

func TestExtractorReadPage_CancelledContext(t *testing.T) {
	client := &fakeClient{err: errors.New("canceled upstream")}
	cfg := OCRConfig{TesseractBinary: missingBinary, RenderBinary: missingBinary}
	e := NewExtractor(nil, NewEnginePool(cfg, client, nil, nil), client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := e.readPage(ctx, "doc.pdf", 2); got != "" {
		t.Errorf("readPage() after cancel = %q, want empty", got)
	}
}

func TestResolvePath_FallbackDirs(t *testing.T) {
	dir := t.TempDir()
	stored := filepath.Join(dir, "agreement.pdf")
	if err := os.WriteFile(stored, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader([]string{dir}, nil)

	// An exact path resolves to itself.
	got, err := loader.ResolvePath(stored)
	if err != nil || got != stored {
		t.Errorf("ResolvePath(exact) = %q, %v", got, err)
	}

	// A stale path from another host resolves by base name.
	got, err = loader.ResolvePath(filepath.Join("/srv/old-host/uploads", "agreement.pdf"))
	if err != nil {
		t.Fatalf("ResolvePath(stale) error = %v", err)
	}
	if got != stored {
		t.Errorf("ResolvePath(stale) = %q, want %q", got, stored)
	}

	// Nothing matching anywhere is an open error.
	if _, err := loader.ResolvePath("missing.pdf"); err == nil {
		t.Error("ResolvePath(missing) succeeded")
	}
}

func TestHeadText(t *testing.T) {
	pages := make([]Page, 20)
	for i := range pages {
		pages[i] = Page{Number: i + 1, Text: "page"}
	}

	head := headText(pages)
	if got := strings.Count(head, "page"); got != headPages {
		t.Errorf("head covers %d pages, want %d", got, headPages)
	}

	short := headText(pages[:3])
	if got := strings.Count(short, "page"); got != 3 {
		t.Errorf("short head covers %d pages, want 3", got)
	}
}
