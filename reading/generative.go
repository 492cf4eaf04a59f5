package reading

import (
	"context"
	"fmt"
	"time"

	"github.com/loantwindb/loantwin-go/llm"
)

// GenerativeLabel prefixes text produced by the generative fallback so
// downstream consumers can discount its confidence. The page number is
// appended in the emitted label.
const GenerativeLabel = "[AI-Generated Content for Page %d]"

const generativePrompt = "You are an OCR assistant. This is page %d of a loan " +
	"agreement document that could not be read optically. Generate typical " +
	"legal text for this page including section headers and clauses."

// GenerativeReader is the last resort of the OCR chain: it asks a language
// model for plausible legal text for the page. This is placeholder
// generation, not recognition; output is labeled so consumers can tell the
// difference.
type GenerativeReader struct {
	client  llm.Client
	timeout time.Duration
}

// NewGenerativeReader wraps an LLM client as a Reader. timeout bounds each
// page's call; zero means no bound.
func NewGenerativeReader(client llm.Client, timeout time.Duration) *GenerativeReader {
	return &GenerativeReader{client: client, timeout: timeout}
}

func (g *GenerativeReader) Name() string { return "generative" }

func (g *GenerativeReader) Read(ctx context.Context, pages []PageImage, opts *ReadOptions) ([]string, error) {
	if g.client == nil {
		return nil, fmt.Errorf("no llm client configured")
	}

	results := make([]string, len(pages))
	for i, page := range pages {
		prompt := fmt.Sprintf(generativePrompt, page.Page)
		if opts != nil && opts.Prompt != "" {
			prompt = opts.Prompt
		}

		text, err := llm.GenerateWithRetry(ctx, g.client, prompt, g.timeout)
		if err != nil {
			return nil, fmt.Errorf("generative fallback for page %d: %w", page.Page, err)
		}
		results[i] = fmt.Sprintf(GenerativeLabel, page.Page) + "\n" + text
	}
	return results, nil
}

func (g *GenerativeReader) Close() error { return nil }
