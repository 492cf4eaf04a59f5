package loansaf

import "strings"

// DefaultMinTextChars is the extracted-text length below which a page with
// embedded images is classified as scanned.
const DefaultMinTextChars = 50

// fullPageCoverage is the fraction of both page dimensions an embedded
// image must reach to count as a full-page scan.
const fullPageCoverage = 0.8

// IsScanned classifies a page as a scan needing OCR. A page is scanned
// when its text layer is near-empty and it embeds at least one image, or
// when any embedded image covers most of the page box. This is a
// heuristic: missed scans are caught downstream by the still-empty check
// in the OCR engine.
func IsScanned(info PageInfo) bool {
	if len(strings.TrimSpace(info.Text)) < DefaultMinTextChars && len(info.Images) > 0 {
		return true
	}

	for _, img := range info.Images {
		if info.Width > 0 && info.Height > 0 &&
			img.Width > info.Width*fullPageCoverage &&
			img.Height > info.Height*fullPageCoverage {
			return true
		}
	}
	return false
}

// NeedsOCRFallback reports whether extracted text is too short, garbled,
// or corrupted to trust, independently of the image heuristic.
func NeedsOCRFallback(text string, minLen int) bool {
	text = strings.TrimSpace(text)
	if len(text) < minLen {
		return true
	}
	if HasGarbledPatterns(text) {
		return true
	}
	return ReplacementCharRatio(text) > 0.05
}

// HasGarbledPatterns detects text where many of the first 50 words are
// single characters, the signature of broken font encoding in the text
// layer.
func HasGarbledPatterns(text string) bool {
	words := strings.Fields(text)
	if len(words) < 20 {
		return false
	}

	sampleSize := min(50, len(words))
	singleCharWords := 0
	for _, w := range words[:sampleSize] {
		if len(w) == 1 {
			r := rune(w[0])
			// Standalone characters that legitimately appear in legal text.
			if r != '.' && r != '-' && r != '&' && r != ':' && r != 'a' && r != 'A' && r != 'I' {
				singleCharWords++
			}
		}
	}

	return float64(singleCharWords)/float64(sampleSize) > 0.4
}
