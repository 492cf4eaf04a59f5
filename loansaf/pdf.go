package loansaf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ajroetker/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// DefaultFallbackDirs are tried in order, against the bare filename, when
// the given document path does not exist. Upload paths recorded in one
// environment routinely point elsewhere after a redeploy.
var DefaultFallbackDirs = []string{
	filepath.Join("data", "uploads"),
	"data",
	".",
}

// rowTolerance groups positioned text fragments whose Y coordinates are
// within this many points into the same output line.
const rowTolerance = 3.0

// Loader opens loan agreement PDFs and produces per-page text and image
// information. It validates the document structure before extraction;
// invalid or missing files fail with DocumentOpenError.
type Loader struct {
	fallbackDirs []string
	logger       *zap.Logger
}

// NewLoader creates a Loader. A nil dirs uses DefaultFallbackDirs.
func NewLoader(dirs []string, logger *zap.Logger) *Loader {
	if dirs == nil {
		dirs = DefaultFallbackDirs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fallbackDirs: dirs, logger: logger}
}

// ResolvePath returns the first existing candidate for path: the path
// itself, then its base name under each fallback directory.
func (l *Loader) ResolvePath(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	name := filepath.Base(path)
	for _, dir := range l.fallbackDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			l.logger.Info("redirecting document path",
				zap.String("from", path),
				zap.String("to", candidate))
			return candidate, nil
		}
	}
	return "", &DocumentOpenError{Path: path, Cause: os.ErrNotExist}
}

// Load resolves and opens the document at path and returns its pages in
// order. Page text comes from the PDF text layer; OCR decisions happen
// downstream.
func (l *Loader) Load(path string) ([]PageInfo, error) {
	resolved, err := l.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, &DocumentOpenError{Path: resolved, Cause: err}
	}

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(raw), model.NewDefaultConfiguration())
	if err != nil {
		return nil, &DocumentOpenError{Path: resolved, Cause: fmt.Errorf("pdfcpu read: %w", err)}
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, &DocumentOpenError{Path: resolved, Cause: err}
	}

	total := reader.NumPage()
	pages := make([]PageInfo, 0, total)
	for number := 1; number <= total; number++ {
		page := reader.Page(number)
		if page.V.IsNull() {
			pages = append(pages, PageInfo{Number: number})
			continue
		}

		info := PageInfo{
			Number: number,
			Text:   extractRowText(page),
			Images: pageImages(page),
		}
		info.Width, info.Height = pageBox(page.V)

		// pdfcpu sees image streams the resource walk can miss
		// (inherited or indirect resource dictionaries).
		if len(info.Images) == 0 && pdfCtx.Optimize != nil {
			if len(pdfcpu.ImageObjNrs(pdfCtx, number)) > 0 {
				info.Images = append(info.Images, ImageInfo{})
			}
		}

		pages = append(pages, info)
	}

	l.logger.Debug("document loaded",
		zap.String("path", resolved),
		zap.Int("pages", len(pages)))
	return pages, nil
}

// extractRowText reconstructs reading order from positioned text: fragments
// are grouped into rows by Y coordinate, rows emitted top to bottom,
// fragments left to right.
func extractRowText(page pdf.Page) string {
	content := page.Content()
	if len(content.Text) == 0 {
		return ""
	}

	texts := make([]pdf.Text, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return ""
	}

	// PDF Y grows upward, so reading order is descending Y.
	sort.SliceStable(texts, func(i, j int) bool {
		if texts[i].Y != texts[j].Y {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var sb strings.Builder
	rowY := texts[0].Y
	lastEnd := 0.0
	for i, t := range texts {
		if t.Y < rowY-rowTolerance {
			sb.WriteByte('\n')
			rowY = t.Y
			lastEnd = 0
		} else if i > 0 {
			// Gaps wider than a thin space separate words; adjacent
			// fragments within a word are joined directly.
			if t.X-lastEnd > t.FontSize*0.3 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	return sb.String()
}

// pageImages enumerates image XObjects in the page's resource dictionary.
func pageImages(page pdf.Page) (images []ImageInfo) {
	// The value walker panics on malformed xobject dictionaries.
	defer func() {
		if r := recover(); r != nil {
			images = nil
		}
	}()

	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return nil
	}
	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return nil
	}

	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		subtype := obj.Key("Subtype")
		if subtype.IsNull() || subtype.Name() != "Image" {
			continue
		}
		width := float64(obj.Key("Width").Int64())
		height := float64(obj.Key("Height").Int64())
		if width <= 0 || height <= 0 {
			continue
		}
		images = append(images, ImageInfo{Width: width, Height: height})
	}
	return images
}

// pageBox returns the page's MediaBox dimensions in points, climbing the
// page tree for inherited boxes. Falls back to US Letter.
func pageBox(v pdf.Value) (width, height float64) {
	for depth := 0; depth < 8 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if !mb.IsNull() && mb.Len() == 4 {
			width = mb.Index(2).Float64() - mb.Index(0).Float64()
			height = mb.Index(3).Float64() - mb.Index(1).Float64()
			if width > 0 && height > 0 {
				return width, height
			}
		}
		v = v.Key("Parent")
	}
	return 612, 792
}
