// Package loansaf extracts Digital Loan Records from loan agreement PDFs.
//
// The pipeline runs strictly page-ordered: load pages, route scanned or
// garbled pages through the OCR chain, segment clauses, detect tables, then
// merge AI, pattern and default tiers into the final record. Only document
// open failures abort a run; every other failure degrades to a lower tier
// and shows up as reduced confidence in the output.
package loansaf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/dlr"
	"github.com/loantwindb/loantwin-go/llm"
)

const defaultAITimeout = 45 * time.Second

// Extractor runs the extraction pipeline. It is safe for concurrent use:
// per-document state lives in the run, never on the Extractor.
type Extractor struct {
	loader    *Loader
	engines   *EnginePool
	client    llm.Client
	logger    *zap.Logger
	aiTimeout time.Duration
}

// NewExtractor assembles the pipeline. client may be nil, which disables
// the AI tiers everywhere; loader and logger may be nil for defaults.
func NewExtractor(loader *Loader, engines *EnginePool, client llm.Client, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = NewLoader(nil, logger)
	}
	if engines == nil {
		engines = NewEnginePool(OCRConfig{}, client, nil, logger)
	}
	return &Extractor{
		loader:    loader,
		engines:   engines,
		client:    client,
		logger:    logger,
		aiTimeout: defaultAITimeout,
	}
}

// document is the per-run state threaded through the pipeline stages.
type document struct {
	path     string
	pages    []Page
	fullText string
	clauses  []dlr.Clause
	tables   []dlr.Table
	ocrPages []int
}

// Process extracts a Digital Loan Record from the PDF at path. The returned
// clauses accompany the record for persistence; only their count and the
// citations derived from them appear inside it.
func (e *Extractor) Process(ctx context.Context, path string) (*dlr.DLR, []dlr.Clause, error) {
	start := time.Now()

	d, err := e.loadDocument(ctx, path)
	if err != nil {
		documentsProcessed.WithLabelValues("failed").Inc()
		return nil, nil, err
	}

	d.clauses = SegmentClauses(d.pages)
	d.tables = ExtractTables(d.pages)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	meta := e.extractMetadata(ctx, d)
	record := buildDLR(d, meta)

	documentsProcessed.WithLabelValues("ok").Inc()
	extractionSeconds.Observe(time.Since(start).Seconds())
	e.logger.Info("document extracted",
		zap.String("path", d.path),
		zap.Int("pages", len(d.pages)),
		zap.Int("clauses", len(d.clauses)),
		zap.Int("tables", len(d.tables)),
		zap.Int("ocr_pages", len(d.ocrPages)),
		zap.Bool("ai_enhanced", meta.AIEnhanced))
	return record, d.clauses, nil
}

// loadDocument loads pages in order and routes scanned or garbled pages
// through the OCR chain. OCR failures downgrade to placeholder text; only
// cancellation and open failures propagate.
func (e *Extractor) loadDocument(ctx context.Context, path string) (*document, error) {
	resolved, err := e.loader.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	infos, err := e.loader.Load(resolved)
	if err != nil {
		return nil, err
	}

	d := &document{path: resolved}
	var full strings.Builder
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// The garbled check runs on raw text: cleaning strips the very
		// replacement characters it measures.
		needsOCR := IsScanned(info) ||
			(len(info.Images) > 0 && NeedsOCRFallback(info.Text, DefaultMinTextChars))

		text := info.Text
		if needsOCR {
			text = e.readPage(ctx, resolved, info.Number)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			ocrPagesTotal.Inc()
		}
		text = CleanText(text)

		if strings.TrimSpace(text) == "" && len(text) < 10 {
			text = fmt.Sprintf("[OCR REQUIRED: Page %d appears to be an image]", info.Number)
			if !needsOCR {
				needsOCR = true
			}
		}

		d.pages = append(d.pages, Page{Number: info.Number, Text: text, NeedsOCR: needsOCR})
		if needsOCR {
			d.ocrPages = append(d.ocrPages, info.Number)
		}
		full.WriteString(text)
		full.WriteByte('\n')
	}
	d.fullText = full.String()
	return d, nil
}

// readPage runs one page through the OCR chain, downgrading any
// non-cancellation failure to placeholder text.
func (e *Extractor) readPage(ctx context.Context, path string, number int) string {
	text, err := e.engines.ReadPage(ctx, path, number)
	switch {
	case err == nil:
		return text
	case errors.Is(err, ErrOCRUnavailable):
		return Placeholder(number)
	case ctx.Err() != nil:
		return ""
	default:
		e.logger.Warn("ocr chain failed", zap.Int("page", number), zap.Error(err))
		return Placeholder(number)
	}
}
