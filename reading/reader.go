// Package reading provides OCR readers for rasterized document pages and a
// fallback chain that tries them in order. Readers are built once at startup
// from the capabilities found on the host and reused across documents.
package reading

import "context"

// PageImage is a single rasterized page handed to a Reader.
type PageImage struct {
	// Page is the 1-indexed page number in the source document.
	Page int
	// MIMEType describes Data (image/png for rendered pages).
	MIMEType string
	// Data is the encoded image.
	Data []byte
}

// Reader extracts text from rasterized pages.
type Reader interface {
	// Read extracts text from one or more pages, returning one string per
	// input page. An empty string means the reader could not recover text
	// for that page; callers fall through to the next reader in the chain.
	Read(ctx context.Context, pages []PageImage, opts *ReadOptions) ([]string, error)

	// Name identifies the backend for logs and capability reporting.
	Name() string

	// Close releases any resources held by the reader.
	Close() error
}

// ReadOptions configures a Read call.
type ReadOptions struct {
	// Language is the OCR language hint (tesseract language code).
	Language string

	// Prompt overrides the default prompt for generative readers.
	Prompt string
}

// ReadPage is a convenience wrapper for single-page reads.
func ReadPage(ctx context.Context, r Reader, page PageImage, opts *ReadOptions) (string, error) {
	results, err := r.Read(ctx, []PageImage{page}, opts)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0], nil
}
