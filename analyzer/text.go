package analyzer

import (
	"regexp"
	"strings"
)

var sentenceEndPattern = regexp.MustCompile(`([.!?])\s+`)

// preserveTableBlocks splits a span into alternating prose and table
// fragments. A table fragment is a maximal run of table lines and is
// later kept atomic; everything else is prose.
func preserveTableBlocks(span string) []string {
	lines := strings.Split(span, "\n")
	var fragments []string
	var buf []string
	inTable := false

	flush := func() {
		if len(buf) == 0 {
			return
		}
		fragment := strings.Join(buf, "\n")
		if strings.TrimSpace(fragment) != "" {
			fragments = append(fragments, fragment)
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		isTable := strings.Contains(line, "|") ||
			(strings.TrimSpace(line) != "" && strings.HasPrefix(strings.TrimSpace(line), "Таблица"))
		if isTable != inTable {
			flush()
			inTable = isTable
		}
		buf = append(buf, line)
	}
	flush()
	return fragments
}

// isTableBlock reports whether a fragment produced by
// preserveTableBlocks is a table fragment.
func isTableBlock(fragment string) bool {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return false
	}
	first := strings.SplitN(trimmed, "\n", 2)[0]
	return strings.Contains(first, "|") || strings.HasPrefix(first, "Таблица")
}

// splitParagraphs splits prose on blank lines, trimming and dropping
// empty paragraphs.
func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// sentences splits a paragraph on terminal punctuation followed by
// whitespace. Abbreviations are not special-cased; for regulatory prose
// the occasional over-split is harmless because parts re-merge up to
// the target size anyway.
func sentences(text string) []string {
	marked := sentenceEndPattern.ReplaceAllString(text, "$1\x00")
	var out []string
	for _, s := range strings.Split(marked, "\x00") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// trailingChars returns up to n characters from the end of text,
// extended left to the nearest word boundary so the overlap never opens
// mid-word.
func trailingChars(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := len(runes) - n
	for cut > 0 && runes[cut] != ' ' && runes[cut] != '\n' {
		cut--
	}
	return strings.TrimSpace(string(runes[cut:]))
}
