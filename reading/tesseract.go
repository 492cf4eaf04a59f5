package reading

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TesseractMode selects the trade-off between accuracy and speed.
type TesseractMode int

const (
	// ModeAccurate uses the LSTM engine with full page segmentation and
	// rejects low-confidence output so the chain can fall through.
	ModeAccurate TesseractMode = iota
	// ModeFast uses block segmentation without the confidence gate.
	ModeFast
)

// TesseractConfig configures a TesseractReader.
type TesseractConfig struct {
	// Binary is the tesseract executable name or path.
	Binary string
	// Language is the default OCR language (overridable per Read call).
	Language string
	// TessdataDir overrides the traineddata directory when set.
	TessdataDir string
	// MinConfidence is the mean word confidence in [0,1] below which an
	// accurate-mode result is treated as empty. Zero disables the gate.
	MinConfidence float64
}

// TesseractReader shells out to tesseract for each page image.
type TesseractReader struct {
	cfg    TesseractConfig
	mode   TesseractMode
	runner Runner
}

// NewTesseractReader creates a tesseract-backed reader.
func NewTesseractReader(cfg TesseractConfig, mode TesseractMode, runner Runner) *TesseractReader {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &TesseractReader{cfg: cfg, mode: mode, runner: runner}
}

func (t *TesseractReader) Name() string {
	if t.mode == ModeFast {
		return "tesseract-fast"
	}
	return "tesseract"
}

// Read writes each page image to a temp file and runs tesseract over it.
// Pages that fail individually come back as empty strings; Read only errors
// when every page failed.
func (t *TesseractReader) Read(ctx context.Context, pages []PageImage, opts *ReadOptions) ([]string, error) {
	if len(pages) == 0 {
		return []string{}, nil
	}

	lang := t.cfg.Language
	if opts != nil && opts.Language != "" {
		lang = opts.Language
	}

	tmpDir, err := os.MkdirTemp("", "loantwin-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	results := make([]string, len(pages))
	var lastErr error
	failed := 0

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(tmpDir, fmt.Sprintf("page-%d.png", page.Page))
		if err := os.WriteFile(path, page.Data, 0o600); err != nil {
			lastErr = err
			failed++
			continue
		}

		text, err := t.recognize(ctx, path, lang)
		if err != nil {
			lastErr = err
			failed++
			continue
		}

		if t.mode == ModeAccurate && t.cfg.MinConfidence > 0 && strings.TrimSpace(text) != "" {
			conf, err := t.tsvConfidence(ctx, path, lang)
			if err == nil && conf > 0 && conf < t.cfg.MinConfidence {
				// Low-confidence recognition reads worse than a retry on
				// the next backend.
				text = ""
			}
		}
		results[i] = text
	}

	if failed == len(pages) && lastErr != nil {
		return nil, fmt.Errorf("tesseract: %w", lastErr)
	}
	return results, nil
}

func (t *TesseractReader) recognize(ctx context.Context, path, lang string) (string, error) {
	args := []string{path, "stdout", "-l", lang}
	switch t.mode {
	case ModeAccurate:
		args = append(args, "--oem", "1", "--psm", "3")
	case ModeFast:
		args = append(args, "--psm", "6")
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, stderr, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, firstLine(stderr))
	}
	return string(out), nil
}

// tsvConfidence runs tesseract in TSV mode and returns the mean word
// confidence in [0,1]. Returns 0 when no confident words were reported.
func (t *TesseractReader) tsvConfidence(ctx context.Context, path, lang string) (float64, error) {
	args := []string{path, "stdout", "-l", lang, "--oem", "1", "--psm", "3"}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, _, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return 0, err
	}

	var sum float64
	var n int
	for i, line := range strings.Split(string(out), "\n") {
		if i == 0 || line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		// TSV columns: level..height, conf, text. conf is -1 for
		// non-word rows.
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		sum += conf
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n) / 100.0, nil
}

func (t *TesseractReader) Close() error { return nil }

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}
