package loansaf

// Page is one page of the source document after text extraction. Pages are
// 1-indexed, immutable once produced, and processed strictly in order.
type Page struct {
	Number int

	// Text is the page text after OCR fallback, if any ran.
	Text string

	// NeedsOCR records that the text layer was unusable and the OCR
	// chain produced (or failed to produce) this page's text.
	NeedsOCR bool
}

// ImageInfo describes an embedded image on a page, used by the
// scanned-page heuristic.
type ImageInfo struct {
	Width  float64
	Height float64
}

// PageInfo is the loader's raw view of a page before OCR: the text layer,
// embedded images, and the page box dimensions in points.
type PageInfo struct {
	Number int
	Text   string
	Images []ImageInfo
	Width  float64
	Height float64
}

// Capability identifies an OCR backend available to the engine pool.
// The set is resolved once at startup rather than probed per call.
type Capability int

const (
	// CapAccurateOCR is the slow, high-accuracy tesseract mode. Requires
	// both a page renderer and tesseract on PATH.
	CapAccurateOCR Capability = iota
	// CapFastOCR is the fast tesseract mode on the same rendered image.
	CapFastOCR
	// CapGenerative is the LLM placeholder-generation fallback.
	CapGenerative
)

func (c Capability) String() string {
	switch c {
	case CapAccurateOCR:
		return "accurate-ocr"
	case CapFastOCR:
		return "fast-ocr"
	case CapGenerative:
		return "generative"
	}
	return "unknown"
}
