package loansaf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/llm"
	"github.com/loantwindb/loantwin-go/reading"
)

// DefaultOCRRenderDPI is the rasterization resolution for pages sent to OCR.
const DefaultOCRRenderDPI = 150

const generativeTimeout = 60 * time.Second

// OCRConfig configures the OCR engine pool.
type OCRConfig struct {
	// TesseractBinary is the tesseract executable (default "tesseract").
	TesseractBinary string `yaml:"tesseract_binary"`
	// RenderBinary rasterizes PDF pages to PNG (default "pdftoppm").
	RenderBinary string `yaml:"render_binary"`
	// Language is the OCR language code (default "eng").
	Language string `yaml:"language"`
	// TessdataDir overrides the traineddata directory when set.
	TessdataDir string `yaml:"tessdata_dir"`
	// MinConfidence gates accurate-mode output, in [0,1].
	MinConfidence float64 `yaml:"min_confidence"`
	// RenderDPI is the rasterization resolution (default DefaultOCRRenderDPI).
	RenderDPI int `yaml:"render_dpi"`
}

func (c *OCRConfig) withDefaults() OCRConfig {
	out := *c
	if out.TesseractBinary == "" {
		out.TesseractBinary = "tesseract"
	}
	if out.RenderBinary == "" {
		out.RenderBinary = "pdftoppm"
	}
	if out.Language == "" {
		out.Language = "eng"
	}
	if out.RenderDPI <= 0 {
		out.RenderDPI = DefaultOCRRenderDPI
	}
	return out
}

// EnginePool resolves the available OCR backends once and hands out a shared
// fallback chain: accurate tesseract, fast tesseract, then generative
// placeholder text. Capability probing is deferred to first use so
// constructing a pool never touches the host.
type EnginePool struct {
	cfg    OCRConfig
	client llm.Client
	runner reading.Runner
	logger *zap.Logger

	once  sync.Once
	caps  map[Capability]bool
	chain reading.Reader
}

// NewEnginePool creates an engine pool. client may be nil (disables the
// generative backend); runner may be nil (defaults to os/exec).
func NewEnginePool(cfg OCRConfig, client llm.Client, runner reading.Runner, logger *zap.Logger) *EnginePool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = reading.NewExecRunner(logger)
	}
	return &EnginePool{cfg: cfg.withDefaults(), client: client, runner: runner, logger: logger}
}

func (p *EnginePool) init() {
	p.once.Do(func() {
		caps := make(map[Capability]bool)
		var readers []reading.Reader

		// Tesseract is useless without a rasterizer, so both binaries
		// gate the OCR capabilities together.
		if reading.Available(p.cfg.TesseractBinary) && reading.Available(p.cfg.RenderBinary) {
			tcfg := reading.TesseractConfig{
				Binary:        p.cfg.TesseractBinary,
				Language:      p.cfg.Language,
				TessdataDir:   p.cfg.TessdataDir,
				MinConfidence: p.cfg.MinConfidence,
			}
			caps[CapAccurateOCR] = true
			caps[CapFastOCR] = true
			readers = append(readers,
				instrumentReader(reading.NewTesseractReader(tcfg, reading.ModeAccurate, p.runner)),
				instrumentReader(reading.NewTesseractReader(tcfg, reading.ModeFast, p.runner)),
			)
		}
		if p.client != nil {
			caps[CapGenerative] = true
			readers = append(readers, instrumentReader(reading.NewGenerativeReader(p.client, generativeTimeout)))
		}

		p.caps = caps
		if len(readers) > 0 {
			chain := reading.NewFallbackReader(readers...)
			p.chain = chain
			p.logger.Info("ocr backends resolved", zap.String("chain", chain.Name()))
		} else {
			p.logger.Warn("no ocr backends available",
				zap.String("tesseract", p.cfg.TesseractBinary),
				zap.String("render", p.cfg.RenderBinary))
		}
	})
}

// Has reports whether the pool resolved the given capability.
func (p *EnginePool) Has(c Capability) bool {
	p.init()
	return p.caps[c]
}

// Capabilities lists the resolved capabilities in declaration order.
func (p *EnginePool) Capabilities() []Capability {
	p.init()
	var out []Capability
	for _, c := range []Capability{CapAccurateOCR, CapFastOCR, CapGenerative} {
		if p.caps[c] {
			out = append(out, c)
		}
	}
	return out
}

// ReadPage recovers text for one page of the document at path. It returns
// ErrOCRUnavailable when no backend resolved; callers substitute Placeholder
// text in that case.
func (p *EnginePool) ReadPage(ctx context.Context, path string, number int) (string, error) {
	p.init()
	if p.chain == nil {
		return "", ErrOCRUnavailable
	}

	img := reading.PageImage{Page: number, MIMEType: "image/png"}
	if p.caps[CapAccurateOCR] {
		data, err := p.renderPage(ctx, path, number)
		if err != nil {
			if !p.caps[CapGenerative] {
				return "", fmt.Errorf("rendering page %d: %w", number, err)
			}
			p.logger.Warn("page render failed, falling through to generative",
				zap.Int("page", number), zap.Error(err))
		} else {
			img.Data = data
		}
	}

	text, err := reading.ReadPage(ctx, p.chain, img, &reading.ReadOptions{Language: p.cfg.Language})
	if err != nil {
		return "", fmt.Errorf("ocr page %d: %w", number, err)
	}
	return text, nil
}

// Placeholder is the page text recorded when no OCR backend is available.
func Placeholder(number int) string {
	return fmt.Sprintf("[OCR required for page %d - tesseract not available and no AI provider configured]", number)
}

// renderPage rasterizes a single page to PNG via the render binary.
func (p *EnginePool) renderPage(ctx context.Context, path string, number int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "loantwin-render-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(number)
	_, stderr, err := p.runner.Run(ctx, p.cfg.RenderBinary,
		"-png", "-r", strconv.Itoa(p.cfg.RenderDPI), "-f", n, "-l", n, path, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", p.cfg.RenderBinary, err, stderrSummary(stderr))
	}

	// pdftoppm zero-pads the page number in the output name depending on
	// the document's page count, so match by glob.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no image produced for page %d", number)
	}
	return os.ReadFile(matches[0])
}

func stderrSummary(b []byte) string {
	s := strings.TrimSpace(string(b))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}
