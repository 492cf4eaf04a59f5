package loansaf

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/loantwindb/loantwin-go/llm"
	"github.com/loantwindb/loantwin-go/reading"
)

var (
	documentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loantwin_documents_processed_total",
		Help: "Documents run through extraction, by outcome.",
	}, []string{"outcome"})

	ocrPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loantwin_ocr_pages_total",
		Help: "Pages routed through the OCR chain.",
	})

	ocrBackendReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loantwin_ocr_backend_reads_total",
		Help: "OCR read attempts by backend, by outcome.",
	}, []string{"backend", "outcome"})

	llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loantwin_llm_calls_total",
		Help: "LLM generate calls by provider, by outcome.",
	}, []string{"provider", "outcome"})

	extractionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loantwin_extraction_seconds",
		Help:    "Wall time for full document extraction.",
		Buckets: prometheus.DefBuckets,
	})
)

// instrumentedReader counts read attempts per OCR backend. The fallback
// chain tries backends in order, so per-backend counters show which tier
// actually serves pages.
type instrumentedReader struct {
	reading.Reader
}

func instrumentReader(r reading.Reader) reading.Reader {
	return &instrumentedReader{Reader: r}
}

func (r *instrumentedReader) Read(ctx context.Context, pages []reading.PageImage, opts *reading.ReadOptions) ([]string, error) {
	results, err := r.Reader.Read(ctx, pages, opts)
	ocrBackendReads.WithLabelValues(r.Reader.Name(), readOutcome(results, err)).Inc()
	return results, err
}

func readOutcome(results []string, err error) string {
	if err != nil {
		return "error"
	}
	for _, text := range results {
		if strings.TrimSpace(text) != "" {
			return "ok"
		}
	}
	return "empty"
}

// InstrumentLLM wraps a client so every generate call lands in the
// loantwin_llm_calls_total counter.
func InstrumentLLM(c llm.Client, provider string) llm.Client {
	if c == nil {
		return nil
	}
	return &instrumentedLLM{inner: c, provider: provider}
}

type instrumentedLLM struct {
	inner    llm.Client
	provider string
}

func (c *instrumentedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.inner.Generate(ctx, prompt)
	if err != nil {
		llmCalls.WithLabelValues(c.provider, "error").Inc()
		return out, err
	}
	llmCalls.WithLabelValues(c.provider, "ok").Inc()
	return out, nil
}
