package loansaf

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanText normalizes extracted page text before downstream pattern
// matching: NFC normalization, control characters stripped (newlines and
// tabs survive), per-line trailing whitespace removed, and runs of blank
// lines collapsed.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFC.String(text)

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			sb.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || r == '�' {
			continue
		}
		sb.WriteRune(r)
	}

	lines := strings.Split(sb.String(), "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// PrintableRatio returns the fraction of characters that are printable,
// a cheap signal for garbled extraction.
func PrintableRatio(text string) float64 {
	if text == "" {
		return 1
	}
	printable := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

// ReplacementCharRatio returns the fraction of characters that are Unicode
// replacement characters (U+FFFD), indicating encoding failures.
func ReplacementCharRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	count := 0
	total := 0
	for _, r := range text {
		total++
		if r == '�' {
			count++
		}
	}
	return float64(count) / float64(total)
}

// runePrefix returns the first n runes of s without splitting a multi-byte
// character.
func runePrefix(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
