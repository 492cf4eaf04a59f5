package reading

import (
	"context"
	"fmt"
	"strings"
)

// FallbackReader tries multiple Readers in order, returning the first result
// where at least one page produced non-empty text. Each backend is attempted
// exactly once per Read call.
type FallbackReader struct {
	readers []Reader
}

// NewFallbackReader creates a Reader that tries each reader in order.
func NewFallbackReader(readers ...Reader) *FallbackReader {
	return &FallbackReader{readers: readers}
}

// Read tries each reader in order. If all readers fail or return empty
// results, the last error is returned (or empty strings if no errors
// occurred).
func (f *FallbackReader) Read(ctx context.Context, pages []PageImage, opts *ReadOptions) ([]string, error) {
	var lastErr error

	for _, r := range f.readers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, err := r.Read(ctx, pages, opts)
		if err != nil {
			lastErr = err
			continue
		}
		for _, text := range results {
			if strings.TrimSpace(text) != "" {
				return results, nil
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all readers failed: %w", lastErr)
	}
	return make([]string, len(pages)), nil
}

// Name lists the chained backend names.
func (f *FallbackReader) Name() string {
	names := make([]string, len(f.readers))
	for i, r := range f.readers {
		names[i] = r.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

// Close closes all underlying readers, collecting any errors.
func (f *FallbackReader) Close() error {
	var errs []error
	for _, r := range f.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing readers: %v", errs)
	}
	return nil
}
