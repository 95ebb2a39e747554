package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// maxSections bounds the section list so that degenerate inputs (thousands
// of numeric lines) cannot blow up downstream chunking.
const maxSections = 50

// sectionPatterns detect the three heading levels used by SP/GOST/SNiP
// documents. Level 1 headings are set in caps ("1. ОБЩИЕ ПОЛОЖЕНИЯ"),
// deeper levels in mixed case ("1.1 Текст раздела"). The patterns are
// mutually exclusive: a "1.1" line cannot match the level-1 pattern
// because the dot is followed by a digit, not whitespace.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^(\d+)\.\s+([А-ЯЁ][А-ЯЁ ]{5,80})`),
	regexp.MustCompile(`(?m)^(\d+\.\d+)\s+([А-Яа-яё][А-Яа-яё ]{5,80})`),
	regexp.MustCompile(`(?m)^(\d+\.\d+\.\d+)\s+([А-Яа-яё][А-Яа-яё ]{5,80})`),
}

// numberedLinePattern marks any line that opens with "N." — used to
// bound a section's own content span.
var numberedLinePattern = regexp.MustCompile(`(?m)^\d+\.`)

// Sections detects the heading hierarchy of a document. The returned
// slice is sorted by start position, each entry carries the span it
// governs ([StartPos, EndPos) in byte offsets), and the list is capped
// at maxSections entries in document order. No headings means an empty
// slice; the chunker then falls back to size-based windows.
func Sections(content string) []Section {
	// Start positions of every numbered line, for content-length bounds.
	numberedStarts := numberedLinePattern.FindAllStringIndex(content, -1)

	var sections []Section
	for _, re := range sectionPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
			start := m[0]
			number := content[m[2]:m[3]]
			title := strings.TrimSpace(content[m[4]:m[5]])

			sections = append(sections, Section{
				Number:        number,
				Title:         title,
				Level:         strings.Count(number, ".") + 1,
				Type:          "section",
				ContentLength: contentLength(content, start, numberedStarts),
				ParentPath:    parentPath(number),
				StartPos:      start,
			})
		}
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].StartPos < sections[j].StartPos
	})
	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}

	for i := range sections {
		sections[i].ID = fmt.Sprintf("section_%d", i+1)
		if i+1 < len(sections) {
			sections[i].EndPos = sections[i+1].StartPos
		} else {
			sections[i].EndPos = len(content)
		}
		sections[i].HasSubsections = hasSubsections(sections, sections[i].Number)
	}
	return sections
}

// contentLength measures the distance from a heading to the next
// numbered line, or to end of document when the heading is the last one.
func contentLength(content string, start int, numberedStarts [][]int) int {
	for _, loc := range numberedStarts {
		if loc[0] > start {
			return loc[0] - start
		}
	}
	return len(content) - start
}

// hasSubsections reports whether any other section's number extends the
// given number by at least one more segment.
func hasSubsections(sections []Section, number string) bool {
	prefix := number + "."
	for _, s := range sections {
		if s.Number != number && strings.HasPrefix(s.Number, prefix) {
			return true
		}
	}
	return false
}

// parentPath strips the last dot-segment from a section number.
// "3.2.1" yields "3.2"; top-level numbers yield "".
func parentPath(number string) string {
	idx := strings.LastIndex(number, ".")
	if idx < 0 {
		return ""
	}
	return number[:idx]
}
